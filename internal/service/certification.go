package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/observability"
	"github.com/boddenberg/certificacion-calidad-go/internal/port"
)

var certTracer = otel.Tracer("service/certification")

// CertificationService is the certification process state machine. Every
// transition runs in one unit of work and mirrors the reached status onto the
// company with keep-max semantics.
type CertificationService struct {
	uow        port.UnitOfWork
	store      port.Store
	tree       *TreeBuilder
	engine     *ComplianceEngine
	aggregator *SuggestedResultAggregator
	reopening  port.ReopeningService
	rules      Rules
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewCertificationService creates the state machine service.
func NewCertificationService(
	uow port.UnitOfWork,
	store port.Store,
	tree *TreeBuilder,
	reopening port.ReopeningService,
	rules Rules,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *CertificationService {
	return &CertificationService{
		uow:        uow,
		store:      store,
		tree:       tree,
		engine:     NewComplianceEngine(rules),
		aggregator: NewSuggestedResultAggregator(rules, logger),
		reopening:  reopening,
		rules:      rules,
		metrics:    metrics,
		logger:     logger,
	}
}

// BeginProcessRequest opens a new certification cycle.
type BeginProcessRequest struct {
	AdvisorID  *int64 `json:"advisorId"`
	CaseNumber string `json:"caseNumber"`
}

// AssignAuditorRequest assigns the auditor of the open process.
type AssignAuditorRequest struct {
	AuditorID     int64     `json:"auditorId"`
	ScheduledDate time.Time `json:"scheduledDate"`
}

// QualificationRequest is the final decision on a process.
type QualificationRequest struct {
	Approved       bool   `json:"approved"`
	BadgeID        *int64 `json:"badgeId"`
	DictamenNumber string `json:"dictamenNumber"`
	Observations   string `json:"observations"`
}

// run executes one transition and records its outcome.
func (s *CertificationService) run(ctx context.Context, operation string, fn func(ctx context.Context, st port.Store) error) error {
	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration(operation, time.Since(start)) }()

	err := s.uow.RunInTx(ctx, operation, fn)

	var inconsistent *domain.ErrDataInconsistency
	switch {
	case err == nil:
		s.metrics.IncrTransition(operation)
	case errors.As(err, &inconsistent):
		s.metrics.IncrRejection(operation)
		s.logger.Error("transition aborted on inconsistent data", zap.String("operation", operation), zap.Error(err))
	case domain.IsBusinessError(err):
		s.metrics.IncrRejection(operation)
		s.logger.Info("transition rejected", zap.String("operation", operation), zap.Error(err))
	default:
		s.logger.Error("transition failed", zap.String("operation", operation), zap.Error(err))
	}
	return err
}

// ============================================================
// BeginProcess
// ============================================================

// BeginProcess creates the company's new process at status 0. It is flagged
// as recertification when the company already had a process.
func (s *CertificationService) BeginProcess(ctx context.Context, companyID int64, req BeginProcessRequest, user domain.User) (*domain.CertificationProcess, error) {
	ctx, span := certTracer.Start(ctx, "CertificationService.BeginProcess")
	defer span.End()
	span.SetAttributes(attribute.Int64("company.id", companyID))

	req.CaseNumber = strings.TrimSpace(req.CaseNumber)
	if req.CaseNumber == "" {
		return nil, &domain.ErrValidation{Field: "caseNumber", Message: "required"}
	}

	var created *domain.CertificationProcess
	err := s.run(ctx, "begin_process", func(ctx context.Context, st port.Store) error {
		company, err := st.GetCompany(ctx, companyID)
		if err != nil {
			return err
		}

		_, err = st.GetOpenProcess(ctx, companyID)
		var notFound *domain.ErrNotFound
		switch {
		case err == nil:
			return &domain.ErrStateGuard{Operation: "begin process", Reason: "the company already has an open process"}
		case !errors.As(err, &notFound):
			return err
		}

		previous, err := st.ListProcessesByCompany(ctx, companyID)
		if err != nil {
			return err
		}

		now := s.rules.now()
		p := &domain.CertificationProcess{
			CompanyID:       companyID,
			AdvisorID:       req.AdvisorID,
			GeneratorUserID: user.ID,
			Status:          domain.StatusInitial,
			CaseNumber:      req.CaseNumber,
			StartedAt:       now,
			Recertification: len(previous) > 0,
			Enabled:         true,
			CreatedBy:       user.ID,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if len(company.TypologyIDs) > 0 {
			typologyID := company.TypologyIDs[0]
			p.TypologyID = &typologyID
		}

		if err := st.CreateProcess(ctx, p); err != nil {
			return err
		}
		if err := st.ClearAutoNotificationDate(ctx, companyID); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("certification process started",
		zap.Int64("company_id", companyID),
		zap.Int64("process_id", created.ID),
		zap.Bool("recertification", created.Recertification),
	)
	return created, nil
}

// ============================================================
// AssignAuditor
// ============================================================

// AssignAuditor sets the auditor and audit date of the company's open process
// and advances it to AuditingAssigned.
func (s *CertificationService) AssignAuditor(ctx context.Context, companyID int64, req AssignAuditorRequest, user domain.User) (*domain.CertificationProcess, error) {
	ctx, span := certTracer.Start(ctx, "CertificationService.AssignAuditor")
	defer span.End()
	span.SetAttributes(attribute.Int64("company.id", companyID), attribute.Int64("auditor.id", req.AuditorID))

	if req.AuditorID <= 0 {
		return nil, &domain.ErrValidation{Field: "auditorId", Message: "required"}
	}
	if req.ScheduledDate.IsZero() {
		return nil, &domain.ErrValidation{Field: "scheduledDate", Message: "required"}
	}

	var updated *domain.CertificationProcess
	err := s.run(ctx, "assign_auditor", func(ctx context.Context, st port.Store) error {
		p, err := st.GetOpenProcess(ctx, companyID)
		if err != nil {
			return err
		}
		if p.Status > domain.StatusAuditingAssigned {
			return &domain.ErrStateGuard{Operation: "assign auditor", Reason: fmt.Sprintf("process is at status %s; reassign the auditor instead", p.Status)}
		}

		auditorID := req.AuditorID
		scheduled := req.ScheduledDate
		p.AuditorID = &auditorID
		p.AuditScheduledAt = &scheduled
		p.Advance(domain.StatusAuditingAssigned)
		s.touch(p, user)

		if err := st.UpdateProcess(ctx, p); err != nil {
			return err
		}
		if err := st.RaiseCompanyStatus(ctx, companyID, p.Status); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ============================================================
// GenerateQuestionnaire
// ============================================================

// GenerateQuestionnaire creates the advisor's draft (status 1) or the
// auditor's official questionnaire (status 5). Other roles are rejected.
func (s *CertificationService) GenerateQuestionnaire(ctx context.Context, processID int64, user domain.User) (*domain.Questionnaire, error) {
	ctx, span := certTracer.Start(ctx, "CertificationService.GenerateQuestionnaire")
	defer span.End()
	span.SetAttributes(attribute.Int64("process.id", processID), attribute.String("role", string(user.Role)))

	var (
		draft  bool
		target domain.ProcessStatus
	)
	switch user.Role {
	case domain.RoleAsesor:
		draft, target = true, domain.StatusConsultancyUnderway
	case domain.RoleAuditor:
		draft, target = false, domain.StatusAuditingUnderway
	default:
		return nil, &domain.ErrForbidden{Action: "generate a questionnaire", Role: user.Role}
	}

	var created *domain.Questionnaire
	err := s.run(ctx, "generate_questionnaire", func(ctx context.Context, st port.Store) error {
		p, err := st.GetProcess(ctx, processID)
		if err != nil {
			return err
		}
		if !p.IsOpen() {
			return &domain.ErrStateGuard{Operation: "generate questionnaire", Reason: "process is closed"}
		}
		if !draft {
			if p.AuditorID == nil {
				return &domain.ErrStateGuard{Operation: "generate questionnaire", Reason: "no auditor is assigned to the process"}
			}
			existing, err := st.ListQuestionnairesByProcess(ctx, processID)
			if err != nil {
				return err
			}
			for _, q := range existing {
				if !q.Draft && !q.IsFinished() {
					return &domain.ErrStateGuard{Operation: "generate questionnaire", Reason: fmt.Sprintf("official questionnaire %d is still open", q.ID)}
				}
			}
		}

		typologyID, err := s.processTypology(ctx, st, p)
		if err != nil {
			return err
		}

		now := s.rules.now()
		pid := p.ID
		q := &domain.Questionnaire{
			ProcessID:   &pid,
			CompanyID:   p.CompanyID,
			TypologyID:  typologyID,
			AdvisorID:   p.AdvisorID,
			AuditorID:   p.AuditorID,
			Draft:       draft,
			StartedAt:   now,
			GeneratedAt: &now,
		}
		if draft && q.AdvisorID == nil {
			advisorID := user.ID
			q.AdvisorID = &advisorID
		}
		if err := st.CreateQuestionnaire(ctx, q); err != nil {
			return err
		}

		p.Advance(target)
		s.touch(p, user)
		if err := st.UpdateProcess(ctx, p); err != nil {
			return err
		}
		if err := st.RaiseCompanyStatus(ctx, p.CompanyID, p.Status); err != nil {
			return err
		}
		created = q
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("questionnaire generated",
		zap.Int64("process_id", processID),
		zap.Int64("questionnaire_id", created.ID),
		zap.Bool("draft", created.Draft),
	)
	return created, nil
}

// processTypology returns the process typology, falling back to the company's first one.
func (s *CertificationService) processTypology(ctx context.Context, st port.Store, p *domain.CertificationProcess) (int64, error) {
	if p.TypologyID != nil {
		return *p.TypologyID, nil
	}
	company, err := st.GetCompany(ctx, p.CompanyID)
	if err != nil {
		return 0, err
	}
	if len(company.TypologyIDs) == 0 {
		return 0, &domain.ErrStateGuard{Operation: "generate questionnaire", Reason: "the company has no typology"}
	}
	return company.TypologyIDs[0], nil
}

// ============================================================
// ChangeAuditorOrAdvisor
// ============================================================

// ChangeAuditorOrAdvisor reassigns the process auditor (or advisor) together
// with every unfinished official questionnaire of the process. Returns the
// number of questionnaires updated.
func (s *CertificationService) ChangeAuditorOrAdvisor(ctx context.Context, processID, newUserID int64, isAuditorChange bool, user domain.User) (int, error) {
	ctx, span := certTracer.Start(ctx, "CertificationService.ChangeAuditorOrAdvisor")
	defer span.End()
	span.SetAttributes(attribute.Int64("process.id", processID), attribute.Bool("auditor_change", isAuditorChange))

	if newUserID <= 0 {
		return 0, &domain.ErrValidation{Field: "userId", Message: "required"}
	}

	cascaded := 0
	err := s.run(ctx, "change_assignee", func(ctx context.Context, st port.Store) error {
		cascaded = 0
		p, err := st.GetProcess(ctx, processID)
		if err != nil {
			return err
		}

		id := newUserID
		if isAuditorChange {
			p.AuditorID = &id
		} else {
			p.AdvisorID = &id
		}
		s.touch(p, user)
		if err := st.UpdateProcess(ctx, p); err != nil {
			return err
		}

		questionnaires, err := st.ListQuestionnairesByProcess(ctx, processID)
		if err != nil {
			return err
		}
		for i := range questionnaires {
			q := &questionnaires[i]
			if q.Draft || q.IsFinished() {
				continue
			}
			if isAuditorChange {
				q.AuditorID = &id
			} else {
				q.AdvisorID = &id
			}
			if err := st.UpdateQuestionnaire(ctx, q); err != nil {
				return err
			}
			cascaded++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("process assignee changed",
		zap.Int64("process_id", processID),
		zap.Int64("user_id", newUserID),
		zap.Bool("auditor_change", isAuditorChange),
		zap.Int("questionnaires", cascaded),
	)
	return cascaded, nil
}

// ============================================================
// FinalizeQuestionnaire
// ============================================================

// FinalizeQuestionnaire closes the caller's stage of a questionnaire:
//   - Asesor closes the draft and advances the process to 3.
//   - Auditor records the review and saves the suggested result.
//   - TecnicoPais signs off once after the review and advances to 6.
func (s *CertificationService) FinalizeQuestionnaire(ctx context.Context, questionnaireID int64, user domain.User) (*domain.Questionnaire, error) {
	ctx, span := certTracer.Start(ctx, "CertificationService.FinalizeQuestionnaire")
	defer span.End()
	span.SetAttributes(attribute.Int64("questionnaire.id", questionnaireID), attribute.String("role", string(user.Role)))

	switch user.Role {
	case domain.RoleAsesor, domain.RoleAuditor, domain.RoleTecnicoPais:
	default:
		return nil, &domain.ErrForbidden{Action: "finalize a questionnaire", Role: user.Role}
	}

	var finalized *domain.Questionnaire
	err := s.run(ctx, "finalize_questionnaire", func(ctx context.Context, st port.Store) error {
		q, err := st.GetQuestionnaire(ctx, questionnaireID)
		if err != nil {
			return err
		}

		var p *domain.CertificationProcess
		if q.ProcessID != nil {
			if p, err = st.GetProcess(ctx, *q.ProcessID); err != nil {
				return err
			}
		}

		now := s.rules.now()
		target := domain.StatusInitial
		switch user.Role {
		case domain.RoleAsesor:
			if !q.Draft {
				return &domain.ErrStateGuard{Operation: "finalize questionnaire", Reason: "official questionnaires are closed by the auditor and the country technician"}
			}
			if q.IsFinished() {
				return &domain.ErrStateGuard{Operation: "finalize questionnaire", Reason: "questionnaire is already finalized"}
			}
			q.FinishedAt = &now
			q.Result = 1
			target = domain.StatusAdvisoryFinished

		case domain.RoleAuditor:
			if q.Draft {
				return &domain.ErrStateGuard{Operation: "finalize questionnaire", Reason: "draft questionnaires are closed by the advisor"}
			}
			if q.AuditorReviewedAt != nil {
				return &domain.ErrStateGuard{Operation: "finalize questionnaire", Reason: "auditor review already recorded"}
			}
			q.AuditorReviewedAt = &now
			if err := st.UpdateQuestionnaire(ctx, q); err != nil {
				return err
			}
			if _, err := s.saveSuggestedResult(ctx, st, q, s.rules.DefaultLanguage); err != nil {
				return err
			}
			finalized = q
			return nil

		case domain.RoleTecnicoPais:
			if q.Draft {
				return &domain.ErrStateGuard{Operation: "finalize questionnaire", Reason: "draft questionnaires are closed by the advisor"}
			}
			if q.AuditorReviewedAt == nil {
				return &domain.ErrStateGuard{Operation: "finalize questionnaire", Reason: "auditor review is pending"}
			}
			if q.CountryTechnicianID != nil {
				return &domain.ErrStateGuard{Operation: "finalize questionnaire", Reason: "already signed off by a country technician"}
			}
			technicianID := user.ID
			q.CountryTechnicianID = &technicianID
			q.FinishedAt = &now
			q.Result = 1
			target = domain.StatusAuditingFinished
		}

		if err := st.UpdateQuestionnaire(ctx, q); err != nil {
			return err
		}
		if p != nil {
			p.Advance(target)
			s.touch(p, user)
			if err := st.UpdateProcess(ctx, p); err != nil {
				return err
			}
			if err := st.RaiseCompanyStatus(ctx, p.CompanyID, p.Status); err != nil {
				return err
			}
		}
		finalized = q
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("questionnaire finalized",
		zap.Int64("questionnaire_id", questionnaireID),
		zap.String("role", string(user.Role)),
	)
	return finalized, nil
}

// ============================================================
// Suggested result
// ============================================================

// SaveSuggestedResult scores the questionnaire and stores the aggregated badge on the company.
func (s *CertificationService) SaveSuggestedResult(ctx context.Context, questionnaireID int64, lang domain.Language) (string, error) {
	ctx, span := certTracer.Start(ctx, "CertificationService.SaveSuggestedResult")
	defer span.End()
	span.SetAttributes(attribute.Int64("questionnaire.id", questionnaireID))

	var suggested string
	err := s.run(ctx, "save_suggested_result", func(ctx context.Context, st port.Store) error {
		q, err := st.GetQuestionnaire(ctx, questionnaireID)
		if err != nil {
			return err
		}
		suggested, err = s.saveSuggestedResult(ctx, st, q, lang)
		return err
	})
	return suggested, err
}

// saveSuggestedResult runs inside the caller's transaction; every read goes
// through st.
func (s *CertificationService) saveSuggestedResult(ctx context.Context, st port.Store, q *domain.Questionnaire, lang domain.Language) (string, error) {
	tree, err := s.tree.BuildWith(ctx, st, q.TypologyID, lang, true)
	if err != nil {
		return "", err
	}
	items, err := st.ListItems(ctx, q.ID)
	if err != nil {
		return "", err
	}
	thresholds, err := st.ListThresholds(ctx, q.TypologyID)
	if err != nil {
		return "", err
	}
	badges, err := st.ListBadges(ctx)
	if err != nil {
		return "", err
	}

	results, err := s.engine.ScoreModules(tree, items, thresholds, badges)
	if err != nil {
		return "", err
	}
	suggested, err := s.aggregator.Aggregate(results, badges, lang)
	if err != nil {
		return "", err
	}
	if err := st.SetSuggestedResult(ctx, q.CompanyID, suggested); err != nil {
		return "", err
	}
	return suggested, nil
}

// ============================================================
// RecordFinalQualification
// ============================================================

// RecordFinalQualification appends the final decision and closes the process
// at status 8. Approval sets the expiration date and the company's current badge.
func (s *CertificationService) RecordFinalQualification(ctx context.Context, processID int64, req QualificationRequest, user domain.User) (*domain.QualificationResult, error) {
	ctx, span := certTracer.Start(ctx, "CertificationService.RecordFinalQualification")
	defer span.End()
	span.SetAttributes(attribute.Int64("process.id", processID), attribute.Bool("approved", req.Approved))

	req.DictamenNumber = strings.TrimSpace(req.DictamenNumber)
	if req.Approved {
		if req.DictamenNumber == "" {
			return nil, &domain.ErrValidation{Field: "dictamenNumber", Message: "required when approving"}
		}
		if req.BadgeID == nil {
			return nil, &domain.ErrValidation{Field: "badgeId", Message: "required when approving"}
		}
	}

	var recorded *domain.QualificationResult
	err := s.run(ctx, "record_qualification", func(ctx context.Context, st port.Store) error {
		p, err := st.GetProcess(ctx, processID)
		if err != nil {
			return err
		}
		if !p.IsOpen() {
			return &domain.ErrStateGuard{Operation: "record qualification", Reason: "process is already closed"}
		}
		if p.Status < domain.StatusAuditingFinished {
			return &domain.ErrStateGuard{Operation: "record qualification", Reason: fmt.Sprintf("audit not finished (status %s)", p.Status)}
		}

		var badge *domain.Badge
		if req.BadgeID != nil {
			if badge, err = st.GetBadge(ctx, *req.BadgeID); err != nil {
				return err
			}
		}

		now := s.rules.now()
		r := &domain.QualificationResult{
			ProcessID:      processID,
			Approved:       req.Approved,
			BadgeID:        req.BadgeID,
			DictamenNumber: req.DictamenNumber,
			Observations:   req.Observations,
			CreatedBy:      user.ID,
			CreatedAt:      now,
		}
		if err := st.AddQualificationResult(ctx, r); err != nil {
			return err
		}

		if req.Approved {
			expires := p.StartedAt.AddDate(s.rules.CertificationValidityYears, 0, 0)
			p.ExpiresAt = &expires
			if err := st.SetCurrentResult(ctx, p.CompanyID, badge.Name.In(s.rules.DefaultLanguage)); err != nil {
				return err
			}
		}

		p.Advance(domain.StatusCompleted)
		p.FinishedAt = &now
		s.touch(p, user)
		if err := st.UpdateProcess(ctx, p); err != nil {
			return err
		}
		if err := st.RaiseCompanyStatus(ctx, p.CompanyID, p.Status); err != nil {
			return err
		}
		recorded = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("final qualification recorded",
		zap.Int64("process_id", processID),
		zap.Bool("approved", req.Approved),
	)
	return recorded, nil
}

// ============================================================
// ConvertToRecertification
// ============================================================

// ConvertToRecertification flags a closed process as a renewal.
func (s *CertificationService) ConvertToRecertification(ctx context.Context, processID, companyID int64, user domain.User) (*domain.CertificationProcess, error) {
	ctx, span := certTracer.Start(ctx, "CertificationService.ConvertToRecertification")
	defer span.End()
	span.SetAttributes(attribute.Int64("process.id", processID), attribute.Int64("company.id", companyID))

	var updated *domain.CertificationProcess
	err := s.run(ctx, "convert_recertification", func(ctx context.Context, st port.Store) error {
		p, err := st.GetProcess(ctx, processID)
		if err != nil {
			return err
		}
		if p.CompanyID != companyID {
			return &domain.ErrValidation{Field: "companyId", Message: fmt.Sprintf("process %d does not belong to company %d", processID, companyID)}
		}
		if p.IsOpen() {
			return &domain.ErrStateGuard{Operation: "convert to recertification", Reason: "process is still open"}
		}
		p.Recertification = true
		s.touch(p, user)
		if err := st.UpdateProcess(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ============================================================
// ReopenQuestionnaire
// ============================================================

// ReopenQuestionnaire asks the reopening workflow for approval and, when
// granted, reopens the questionnaire and rolls the process back to the stage
// that owns it: 1 for a draft, 5 for an official questionnaire. The company
// status is left untouched.
func (s *CertificationService) ReopenQuestionnaire(ctx context.Context, questionnaireID int64, user domain.User) (*domain.Questionnaire, error) {
	ctx, span := certTracer.Start(ctx, "CertificationService.ReopenQuestionnaire")
	defer span.End()
	span.SetAttributes(attribute.Int64("questionnaire.id", questionnaireID))

	q, err := s.store.GetQuestionnaire(ctx, questionnaireID)
	if err != nil {
		return nil, err
	}
	if !q.IsFinished() && q.AuditorReviewedAt == nil {
		return nil, &domain.ErrStateGuard{Operation: "reopen questionnaire", Reason: "questionnaire is not finalized"}
	}

	approved, err := s.reopening.ExecuteReopening(ctx, questionnaireID, user)
	if err != nil {
		s.metrics.IncrExternalError("reopening")
		return nil, err
	}
	if !approved {
		s.metrics.IncrRejection("reopen_questionnaire")
		return nil, &domain.ErrStateGuard{Operation: "reopen questionnaire", Reason: "reopening was not approved"}
	}

	var reopened *domain.Questionnaire
	err = s.run(ctx, "reopen_questionnaire", func(ctx context.Context, st port.Store) error {
		q, err := st.GetQuestionnaire(ctx, questionnaireID)
		if err != nil {
			return err
		}

		var p *domain.CertificationProcess
		if q.ProcessID != nil {
			if p, err = st.GetProcess(ctx, *q.ProcessID); err != nil {
				return err
			}
			if !p.IsOpen() {
				return &domain.ErrStateGuard{Operation: "reopen questionnaire", Reason: "process is already closed"}
			}
		}

		rollback := domain.StatusConsultancyUnderway
		q.FinishedAt = nil
		q.Result = 0
		if !q.Draft {
			q.AuditorReviewedAt = nil
			q.CountryTechnicianID = nil
			rollback = domain.StatusAuditingUnderway
		}
		if err := st.UpdateQuestionnaire(ctx, q); err != nil {
			return err
		}

		if p != nil {
			p.RollBack(rollback)
			s.touch(p, user)
			if err := st.UpdateProcess(ctx, p); err != nil {
				return err
			}
		}
		reopened = q
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("questionnaire reopened",
		zap.Int64("questionnaire_id", questionnaireID),
		zap.Int64("user_id", user.ID),
	)
	return reopened, nil
}

func (s *CertificationService) touch(p *domain.CertificationProcess, user domain.User) {
	updatedBy := user.ID
	p.UpdatedBy = &updatedBy
	p.UpdatedAt = s.rules.now()
}
