package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/observability"
	"github.com/boddenberg/certificacion-calidad-go/internal/service"
)

var tracer = otel.Tracer("handler")

// Services are the use cases exposed over HTTP.
type Services struct {
	Tree          *service.TreeBuilder
	Certification *service.CertificationService
	Ledger        *service.ResponseLedger
	Dashboard     *service.DashboardService
	ReadModel     *service.ReadModelService

	// DefaultLanguage applies when a request carries no lang parameter.
	DefaultLanguage domain.Language

	// Backend names the storage in use ("postgres" or "memory").
	Backend string
	// Ping checks the storage; nil means always reachable.
	Ping func(ctx context.Context) error
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, jwtSecret []byte, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	if svc.DefaultLanguage == "" {
		svc.DefaultLanguage = domain.LanguageES
	}

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc, logger))
	r.Get("/readyz", readyzHandler(svc))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(IdentityMiddleware(jwtSecret, logger))

		// =============================================
		// Reference data
		// =============================================
		r.Get("/typologies/{typologyId}/tree", treeHandler(svc, logger))

		// =============================================
		// Companies
		// =============================================
		r.Post("/companies/{companyId}/processes", beginProcessHandler(svc, logger))
		r.Post("/companies/{companyId}/auditor", assignAuditorHandler(svc, logger))
		r.Get("/companies/{companyId}/certification", companyCertificationHandler(svc, logger))

		// =============================================
		// Certification processes
		// =============================================
		r.Get("/processes/{processId}", processHistoryHandler(svc, logger))
		r.Post("/processes/{processId}/questionnaires", generateQuestionnaireHandler(svc, logger))
		r.Put("/processes/{processId}/assignee", changeAssigneeHandler(svc, logger))
		r.Post("/processes/{processId}/qualification", qualificationHandler(svc, logger))
		r.Post("/processes/{processId}/recertification", recertificationHandler(svc, logger))

		// =============================================
		// Questionnaires
		// =============================================
		r.Get("/questionnaires/{questionnaireId}", questionnaireViewHandler(svc, logger))
		r.Post("/questionnaires/{questionnaireId}/finalize", finalizeHandler(svc, logger))
		r.Post("/questionnaires/{questionnaireId}/reopen", reopenHandler(svc, logger))
		r.Post("/questionnaires/{questionnaireId}/suggested-result", suggestedResultHandler(svc, logger))
		r.Get("/questionnaires/{questionnaireId}/progress", progressHandler(svc, logger))
		r.Put("/questionnaires/{questionnaireId}/questions/{questionId}", recordAnswerHandler(svc, logger))

		// =============================================
		// Items: observations and evidence
		// =============================================
		r.Put("/questionnaire-items/{itemId}/observation", recordObservationHandler(svc, logger))
		r.Get("/questionnaire-items/{itemId}/observation", getObservationHandler(svc, logger))
		r.Post("/questionnaire-items/{itemId}/files", attachFilesHandler(svc, logger))

		// =============================================
		// Metrics
		// =============================================
		r.Get("/metrics/lifecycle", lifecycleMetricsHandler(metrics))
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)
		status := domain.HealthStatus{Status: "healthy", Backend: svc.Backend}

		store := domain.DependencyHealth{Name: "store", Status: "healthy", LastChecked: now}
		if svc.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			start := time.Now()
			err := svc.Ping(ctx)
			cancel()
			store.LatencyMs = time.Since(start).Milliseconds()
			if err != nil {
				logger.Warn("store health check failed", zap.Error(err))
				store.Status = "unhealthy"
				store.Error = err.Error()
				status.Status = "unhealthy"
			}
		}
		status.Services = append(status.Services, store)

		code := http.StatusOK
		if status.Status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	}
}

func readyzHandler(svc Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc.Certification == nil {
			writeError(w, http.StatusServiceUnavailable, "services not wired")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func lifecycleMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeOK(w, http.StatusOK, "lifecycle counters", metrics.LifecycleSnapshot())
	}
}
