package memstore

import (
	"context"
	"time"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
)

// Reads outside a unit of work see the latest published tables. Writes outside
// a unit of work commit on their own.

func (s *Store) GetCompany(ctx context.Context, companyID int64) (*domain.Company, error) {
	return s.snapshot().GetCompany(ctx, companyID)
}

func (s *Store) RaiseCompanyStatus(ctx context.Context, companyID int64, status domain.ProcessStatus) error {
	return s.autoCommit(ctx, "raise_company_status", func(v *view) error {
		return v.RaiseCompanyStatus(ctx, companyID, status)
	})
}

func (s *Store) SetSuggestedResult(ctx context.Context, companyID int64, result string) error {
	return s.autoCommit(ctx, "set_suggested_result", func(v *view) error {
		return v.SetSuggestedResult(ctx, companyID, result)
	})
}

func (s *Store) SetCurrentResult(ctx context.Context, companyID int64, result string) error {
	return s.autoCommit(ctx, "set_current_result", func(v *view) error {
		return v.SetCurrentResult(ctx, companyID, result)
	})
}

func (s *Store) ClearAutoNotificationDate(ctx context.Context, companyID int64) error {
	return s.autoCommit(ctx, "clear_auto_notification", func(v *view) error {
		return v.ClearAutoNotificationDate(ctx, companyID)
	})
}

func (s *Store) CreateProcess(ctx context.Context, p *domain.CertificationProcess) error {
	return s.autoCommit(ctx, "create_process", func(v *view) error { return v.CreateProcess(ctx, p) })
}

func (s *Store) GetProcess(ctx context.Context, processID int64) (*domain.CertificationProcess, error) {
	return s.snapshot().GetProcess(ctx, processID)
}

func (s *Store) GetOpenProcess(ctx context.Context, companyID int64) (*domain.CertificationProcess, error) {
	return s.snapshot().GetOpenProcess(ctx, companyID)
}

func (s *Store) ListProcessesByCompany(ctx context.Context, companyID int64) ([]domain.CertificationProcess, error) {
	return s.snapshot().ListProcessesByCompany(ctx, companyID)
}

func (s *Store) UpdateProcess(ctx context.Context, p *domain.CertificationProcess) error {
	return s.autoCommit(ctx, "update_process", func(v *view) error { return v.UpdateProcess(ctx, p) })
}

func (s *Store) AddQualificationResult(ctx context.Context, r *domain.QualificationResult) error {
	return s.autoCommit(ctx, "add_qualification_result", func(v *view) error { return v.AddQualificationResult(ctx, r) })
}

func (s *Store) ListQualificationResults(ctx context.Context, processID int64) ([]domain.QualificationResult, error) {
	return s.snapshot().ListQualificationResults(ctx, processID)
}

func (s *Store) CreateQuestionnaire(ctx context.Context, q *domain.Questionnaire) error {
	return s.autoCommit(ctx, "create_questionnaire", func(v *view) error { return v.CreateQuestionnaire(ctx, q) })
}

func (s *Store) GetQuestionnaire(ctx context.Context, questionnaireID int64) (*domain.Questionnaire, error) {
	return s.snapshot().GetQuestionnaire(ctx, questionnaireID)
}

func (s *Store) ListQuestionnairesByProcess(ctx context.Context, processID int64) ([]domain.Questionnaire, error) {
	return s.snapshot().ListQuestionnairesByProcess(ctx, processID)
}

func (s *Store) UpdateQuestionnaire(ctx context.Context, q *domain.Questionnaire) error {
	return s.autoCommit(ctx, "update_questionnaire", func(v *view) error { return v.UpdateQuestionnaire(ctx, q) })
}

func (s *Store) GetItem(ctx context.Context, questionnaireID, questionID int64) (*domain.QuestionnaireItem, error) {
	return s.snapshot().GetItem(ctx, questionnaireID, questionID)
}

func (s *Store) GetItemByID(ctx context.Context, itemID int64) (*domain.QuestionnaireItem, error) {
	return s.snapshot().GetItemByID(ctx, itemID)
}

func (s *Store) CreateItem(ctx context.Context, item *domain.QuestionnaireItem) error {
	return s.autoCommit(ctx, "create_item", func(v *view) error { return v.CreateItem(ctx, item) })
}

func (s *Store) UpdateItemResult(ctx context.Context, itemID int64, result domain.AnswerResult, updatedOn time.Time, userID int64) error {
	return s.autoCommit(ctx, "update_item_result", func(v *view) error {
		return v.UpdateItemResult(ctx, itemID, result, updatedOn, userID)
	})
}

func (s *Store) ListItems(ctx context.Context, questionnaireID int64) ([]domain.QuestionnaireItem, error) {
	return s.snapshot().ListItems(ctx, questionnaireID)
}

func (s *Store) AddObservation(ctx context.Context, obs *domain.Observation) error {
	return s.autoCommit(ctx, "add_observation", func(v *view) error { return v.AddObservation(ctx, obs) })
}

func (s *Store) LatestObservation(ctx context.Context, itemID int64) (*domain.Observation, error) {
	return s.snapshot().LatestObservation(ctx, itemID)
}

func (s *Store) LatestObservations(ctx context.Context, questionnaireID int64) (map[int64]domain.Observation, error) {
	return s.snapshot().LatestObservations(ctx, questionnaireID)
}

func (s *Store) AddItemFiles(ctx context.Context, files []domain.ItemFile) error {
	return s.autoCommit(ctx, "add_item_files", func(v *view) error { return v.AddItemFiles(ctx, files) })
}

func (s *Store) ListFiles(ctx context.Context, questionnaireID int64) (map[int64][]domain.ItemFile, error) {
	return s.snapshot().ListFiles(ctx, questionnaireID)
}

func (s *Store) GetTypology(ctx context.Context, typologyID int64) (*domain.Typology, error) {
	return s.snapshot().GetTypology(ctx, typologyID)
}

func (s *Store) LoadHierarchy(ctx context.Context, typologyID int64) (*domain.QuestionnaireHierarchy, error) {
	return s.snapshot().LoadHierarchy(ctx, typologyID)
}

func (s *Store) GetQuestion(ctx context.Context, questionID int64) (*domain.Question, error) {
	return s.snapshot().GetQuestion(ctx, questionID)
}

func (s *Store) GetSection(ctx context.Context, sectionID int64) (*domain.Section, error) {
	return s.snapshot().GetSection(ctx, sectionID)
}

func (s *Store) ListThresholds(ctx context.Context, typologyID int64) ([]domain.ComplianceThreshold, error) {
	return s.snapshot().ListThresholds(ctx, typologyID)
}

func (s *Store) ListBadges(ctx context.Context) ([]domain.Badge, error) {
	return s.snapshot().ListBadges(ctx)
}

func (s *Store) GetBadge(ctx context.Context, badgeID int64) (*domain.Badge, error) {
	return s.snapshot().GetBadge(ctx, badgeID)
}
