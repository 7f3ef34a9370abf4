package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/boddenberg/certificacion-calidad-go/internal/service"
)

// ============================================================
// Certification Lifecycle Handlers
// ============================================================

func beginProcessHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/companies/{companyId}/processes")
		defer span.End()

		user, log, ok := caller(w, r, logger)
		if !ok {
			return
		}
		if err := requireRole(user, "begin a certification process", domain.RoleAdmin, domain.RoleTecnicoPais); err != nil {
			handleServiceError(w, err, log)
			return
		}
		companyID, err := pathID(r, "companyId")
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		var req service.BeginProcessRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, log)
			return
		}

		p, err := svc.Certification.BeginProcess(ctx, companyID, req, user)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		writeOK(w, http.StatusCreated, "certification process started", p)
	}
}

func assignAuditorHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/companies/{companyId}/auditor")
		defer span.End()

		user, log, ok := caller(w, r, logger)
		if !ok {
			return
		}
		if err := requireRole(user, "assign an auditor", domain.RoleAdmin, domain.RoleTecnicoPais); err != nil {
			handleServiceError(w, err, log)
			return
		}
		companyID, err := pathID(r, "companyId")
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		var req service.AssignAuditorRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, log)
			return
		}

		p, err := svc.Certification.AssignAuditor(ctx, companyID, req, user)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		writeOK(w, http.StatusOK, "auditor assigned", p)
	}
}

func generateQuestionnaireHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/processes/{processId}/questionnaires")
		defer span.End()

		user, log, ok := caller(w, r, logger)
		if !ok {
			return
		}
		processID, err := pathID(r, "processId")
		if err != nil {
			handleServiceError(w, err, log)
			return
		}

		q, err := svc.Certification.GenerateQuestionnaire(ctx, processID, user)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		writeOK(w, http.StatusCreated, "questionnaire generated", q)
	}
}

type assigneeRequest struct {
	UserID  int64 `json:"userId"`
	Auditor bool  `json:"auditor"`
}

func changeAssigneeHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/processes/{processId}/assignee")
		defer span.End()

		user, log, ok := caller(w, r, logger)
		if !ok {
			return
		}
		if err := requireRole(user, "change the auditor or advisor", domain.RoleAdmin, domain.RoleTecnicoPais); err != nil {
			handleServiceError(w, err, log)
			return
		}
		processID, err := pathID(r, "processId")
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		var req assigneeRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, log)
			return
		}
		if req.UserID <= 0 {
			handleServiceError(w, &domain.ErrValidation{Field: "userId", Message: "userId is required"}, log)
			return
		}

		updated, err := svc.Certification.ChangeAuditorOrAdvisor(ctx, processID, req.UserID, req.Auditor, user)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		writeOK(w, http.StatusOK, "assignee changed", map[string]int{"questionnairesUpdated": updated})
	}
}

func qualificationHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/processes/{processId}/qualification")
		defer span.End()

		user, log, ok := caller(w, r, logger)
		if !ok {
			return
		}
		if err := requireRole(user, "record the final qualification", domain.RoleAdmin, domain.RoleTecnicoPais); err != nil {
			handleServiceError(w, err, log)
			return
		}
		processID, err := pathID(r, "processId")
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		var req service.QualificationRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, log)
			return
		}

		res, err := svc.Certification.RecordFinalQualification(ctx, processID, req, user)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		writeOK(w, http.StatusCreated, "qualification recorded", res)
	}
}

type recertificationRequest struct {
	CompanyID int64 `json:"companyId"`
}

func recertificationHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/processes/{processId}/recertification")
		defer span.End()

		user, log, ok := caller(w, r, logger)
		if !ok {
			return
		}
		if err := requireRole(user, "convert a process to recertification", domain.RoleAdmin, domain.RoleTecnicoPais); err != nil {
			handleServiceError(w, err, log)
			return
		}
		processID, err := pathID(r, "processId")
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		var req recertificationRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, log)
			return
		}

		p, err := svc.Certification.ConvertToRecertification(ctx, processID, req.CompanyID, user)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		writeOK(w, http.StatusOK, "process marked as recertification", p)
	}
}

func processHistoryHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/processes/{processId}")
		defer span.End()

		_, log, ok := caller(w, r, logger)
		if !ok {
			return
		}
		processID, err := pathID(r, "processId")
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		lang, err := queryLanguage(r, svc.DefaultLanguage)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}

		h, err := svc.ReadModel.ProcessHistory(ctx, processID, lang)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		writeOK(w, http.StatusOK, "", h)
	}
}

func companyCertificationHandler(svc Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/companies/{companyId}/certification")
		defer span.End()

		user, log, ok := caller(w, r, logger)
		if !ok {
			return
		}
		companyID, err := pathID(r, "companyId")
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		lang, err := queryLanguage(r, svc.DefaultLanguage)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}

		cur, err := svc.Dashboard.CompanyCertification(ctx, companyID, user, lang)
		if err != nil {
			handleServiceError(w, err, log)
			return
		}
		writeOK(w, http.StatusOK, "", cur)
	}
}
