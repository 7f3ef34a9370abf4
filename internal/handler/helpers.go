package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/observability"
)

// ============================================================
// Shared helper functions
// ============================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeOK(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, domain.Ok(message, data))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, domain.Fail(msg))
}

// pathID reads a positive numeric URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &domain.ErrValidation{Field: name, Message: fmt.Sprintf("'%s' is not a valid id", raw)}
	}
	return id, nil
}

// caller returns the authenticated user and a logger tagged with it.
func caller(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (domain.User, *zap.Logger, bool) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return domain.User{}, logger, false
	}
	return user, observability.WithIdentity(logger, user.ID, string(user.Role)), true
}

// requireRole rejects callers whose role is not one of allowed.
func requireRole(user domain.User, action string, allowed ...domain.Role) error {
	for _, role := range allowed {
		if user.Role == role {
			return nil
		}
	}
	return &domain.ErrForbidden{Action: action, Role: user.Role}
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &domain.ErrValidation{Field: "body", Message: "invalid request body"}
	}
	return nil
}

func queryLanguage(r *http.Request, fallback domain.Language) (domain.Language, error) {
	return domain.ParseLanguage(r.URL.Query().Get("lang"), fallback)
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var validation *domain.ErrValidation
	var forbidden *domain.ErrForbidden
	var guard *domain.ErrStateGuard
	var unauthorized *domain.ErrUnauthorized
	var transient *domain.ErrTransient
	var circuitOpen *domain.ErrCircuitOpen
	var external *domain.ErrExternalService
	var inconsistent *domain.ErrDataInconsistency

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &forbidden):
		logger.Warn("forbidden access", zap.String("role", string(forbidden.Role)), zap.String("action", forbidden.Action))
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &guard):
		logger.Info("transition rejected", zap.String("operation", guard.Operation), zap.String("reason", guard.Reason))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &transient):
		logger.Error("transient failure", zap.String("operation", transient.Operation), zap.Int("attempts", transient.Attempts), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable, retry later")
	case errors.As(err, &external):
		logger.Error("external service failure", zap.String("service", external.Service), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &inconsistent):
		logger.Error("reference data inconsistency", zap.String("entity", inconsistent.Entity), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
