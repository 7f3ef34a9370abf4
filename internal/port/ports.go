// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
)

// CompanyStore handles company data operations.
type CompanyStore interface {
	GetCompany(ctx context.Context, companyID int64) (*domain.Company, error)
	// RaiseCompanyStatus stores max(current, status); the company status never decreases.
	RaiseCompanyStatus(ctx context.Context, companyID int64, status domain.ProcessStatus) error
	SetSuggestedResult(ctx context.Context, companyID int64, result string) error
	SetCurrentResult(ctx context.Context, companyID int64, result string) error
	ClearAutoNotificationDate(ctx context.Context, companyID int64) error
}

// ProcessStore handles certification process data operations.
type ProcessStore interface {
	CreateProcess(ctx context.Context, p *domain.CertificationProcess) error
	GetProcess(ctx context.Context, processID int64) (*domain.CertificationProcess, error)
	// GetOpenProcess returns the company's process without a finish date.
	GetOpenProcess(ctx context.Context, companyID int64) (*domain.CertificationProcess, error)
	ListProcessesByCompany(ctx context.Context, companyID int64) ([]domain.CertificationProcess, error)
	UpdateProcess(ctx context.Context, p *domain.CertificationProcess) error
	AddQualificationResult(ctx context.Context, r *domain.QualificationResult) error
	ListQualificationResults(ctx context.Context, processID int64) ([]domain.QualificationResult, error)
}

// QuestionnaireStore handles questionnaires, their answers, observations and file links.
type QuestionnaireStore interface {
	CreateQuestionnaire(ctx context.Context, q *domain.Questionnaire) error
	GetQuestionnaire(ctx context.Context, questionnaireID int64) (*domain.Questionnaire, error)
	ListQuestionnairesByProcess(ctx context.Context, processID int64) ([]domain.Questionnaire, error)
	UpdateQuestionnaire(ctx context.Context, q *domain.Questionnaire) error

	GetItem(ctx context.Context, questionnaireID, questionID int64) (*domain.QuestionnaireItem, error)
	GetItemByID(ctx context.Context, itemID int64) (*domain.QuestionnaireItem, error)
	CreateItem(ctx context.Context, item *domain.QuestionnaireItem) error
	UpdateItemResult(ctx context.Context, itemID int64, result domain.AnswerResult, updatedOn time.Time, userID int64) error
	ListItems(ctx context.Context, questionnaireID int64) ([]domain.QuestionnaireItem, error)

	AddObservation(ctx context.Context, obs *domain.Observation) error
	LatestObservation(ctx context.Context, itemID int64) (*domain.Observation, error)
	// LatestObservations returns the most recent observation per item of a questionnaire.
	LatestObservations(ctx context.Context, questionnaireID int64) (map[int64]domain.Observation, error)

	AddItemFiles(ctx context.Context, files []domain.ItemFile) error
	ListFiles(ctx context.Context, questionnaireID int64) (map[int64][]domain.ItemFile, error)
}

// ReferenceStore reads the static questionnaire reference data.
type ReferenceStore interface {
	GetTypology(ctx context.Context, typologyID int64) (*domain.Typology, error)
	// LoadHierarchy returns every module, section, subtitle and question that
	// applies to the typology (typology-specific and typology-agnostic nodes).
	LoadHierarchy(ctx context.Context, typologyID int64) (*domain.QuestionnaireHierarchy, error)
	GetQuestion(ctx context.Context, questionID int64) (*domain.Question, error)
	GetSection(ctx context.Context, sectionID int64) (*domain.Section, error)
	ListThresholds(ctx context.Context, typologyID int64) ([]domain.ComplianceThreshold, error)
	ListBadges(ctx context.Context) ([]domain.Badge, error)
	GetBadge(ctx context.Context, badgeID int64) (*domain.Badge, error)
}

// Store is the full persistence surface used by the certification services.
// Implemented by the Postgres adapter and the in-memory adapter.
type Store interface {
	CompanyStore
	ProcessStore
	QuestionnaireStore
	ReferenceStore
}

// UnitOfWork runs fn inside one transaction: every write made through the
// store handed to fn commits together or not at all. Implementations re-run
// fn from scratch on transient infrastructure faults, never on business errors.
type UnitOfWork interface {
	RunInTx(ctx context.Context, operation string, fn func(ctx context.Context, store Store) error) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// FileStore persists evidence files. The core never touches the filesystem directly.
type FileStore interface {
	SaveFile(ctx context.Context, content []byte, subfolder, originalName string) (relativePath string, size int64, err error)
	GetFullPath() string
}

// NotificationService dispatches expiration notifications.
type NotificationService interface {
	HasBeenNotified(ctx context.Context, userID, certificationID int64) (bool, error)
	SendExpirationNotification(ctx context.Context, user domain.User, certification domain.CertificationProcess, companyID int64) error
}

// ReopeningService is the hook into the separate reopening-approval workflow.
type ReopeningService interface {
	ExecuteReopening(ctx context.Context, questionnaireID int64, user domain.User) (bool, error)
}
