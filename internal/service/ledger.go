package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/observability"
	"github.com/boddenberg/certificacion-calidad-go/internal/port"
)

var ledgerTracer = otel.Tracer("service/ledger")

const maxObservationLength = 4000

// ResponseLedger records answers, observations and evidence files of questionnaires.
type ResponseLedger struct {
	uow     port.UnitOfWork
	store   port.Store
	files   port.FileStore
	rules   Rules
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewResponseLedger creates a new response ledger.
func NewResponseLedger(uow port.UnitOfWork, store port.Store, files port.FileStore, rules Rules, metrics *observability.Metrics, logger *zap.Logger) *ResponseLedger {
	return &ResponseLedger{uow: uow, store: store, files: files, rules: rules, metrics: metrics, logger: logger}
}

// ============================================================
// Answers
// ============================================================

// RecordAnswer upserts the item of (questionnaire, question). The first answer
// snapshots the question's nomenclature, mandatory flag and text; every answer
// stamps the item with the current date. Returns the item id.
func (l *ResponseLedger) RecordAnswer(ctx context.Context, questionnaireID, questionID int64, result domain.AnswerResult, user domain.User) (int64, error) {
	ctx, span := ledgerTracer.Start(ctx, "ResponseLedger.RecordAnswer")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("questionnaire.id", questionnaireID),
		attribute.Int64("question.id", questionID),
		attribute.Int("result", int(result)),
	)

	start := time.Now()
	defer func() { l.metrics.RecordRequestDuration("record_answer", time.Since(start)) }()

	if _, err := domain.ParseAnswerResult(int(result)); err != nil {
		return 0, err
	}

	var itemID int64
	err := l.uow.RunInTx(ctx, "record_answer", func(ctx context.Context, st port.Store) error {
		q, err := st.GetQuestionnaire(ctx, questionnaireID)
		if err != nil {
			return err
		}
		if q.IsFinished() {
			return &domain.ErrStateGuard{Operation: "record answer", Reason: "questionnaire is already finalized"}
		}

		question, err := st.GetQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		if !domain.AppliesTo(question.TypologyID, q.TypologyID) {
			return &domain.ErrValidation{Field: "questionId", Message: fmt.Sprintf("question %d does not apply to typology %d", questionID, q.TypologyID)}
		}
		if result == domain.AnswerNotApplicable && !question.AllowsNotApplicable {
			return &domain.ErrValidation{Field: "result", Message: fmt.Sprintf("question %d cannot be marked not applicable", questionID)}
		}

		today := domain.DateOnly(l.rules.now())
		item, err := st.GetItem(ctx, questionnaireID, questionID)
		var notFound *domain.ErrNotFound
		switch {
		case errors.As(err, &notFound):
			section, err := st.GetSection(ctx, question.SectionID)
			if err != nil {
				return err
			}
			item = &domain.QuestionnaireItem{
				QuestionnaireID: questionnaireID,
				QuestionID:      questionID,
				ModuleID:        section.ModuleID,
				Nomenclature:    question.Nomenclature,
				Mandatory:       question.Mandatory,
				Text:            question.Text.In(l.rules.DefaultLanguage),
				Result:          result,
				UpdatedOn:       today,
				AnsweredBy:      user.ID,
			}
			if err := st.CreateItem(ctx, item); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := st.UpdateItemResult(ctx, item.ID, result, today, user.ID); err != nil {
				return err
			}
		}
		itemID = item.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	l.logger.Debug("answer recorded",
		zap.Int64("questionnaire_id", questionnaireID),
		zap.Int64("question_id", questionID),
		zap.Int64("item_id", itemID),
		zap.Int("result", int(result)),
	)
	return itemID, nil
}

// QuestionnaireProgress groups answered items by the day they were last
// updated and returns per-day and cumulative counts, oldest day first.
func (l *ResponseLedger) QuestionnaireProgress(ctx context.Context, questionnaireID int64) ([]domain.ProgressPoint, error) {
	ctx, span := ledgerTracer.Start(ctx, "ResponseLedger.QuestionnaireProgress")
	defer span.End()

	if _, err := l.store.GetQuestionnaire(ctx, questionnaireID); err != nil {
		return nil, err
	}
	items, err := l.store.ListItems(ctx, questionnaireID)
	if err != nil {
		return nil, err
	}

	perDay := map[string]int{}
	for _, it := range items {
		if it.Result == domain.AnswerUnanswered {
			continue
		}
		perDay[domain.DateOnly(it.UpdatedOn).Format("2006-01-02")]++
	}

	days := make([]string, 0, len(perDay))
	for d := range perDay {
		days = append(days, d)
	}
	sort.Strings(days)

	out := make([]domain.ProgressPoint, 0, len(days))
	cumulative := 0
	for _, d := range days {
		cumulative += perDay[d]
		out = append(out, domain.ProgressPoint{Day: d, Answered: perDay[d], Cumulative: cumulative})
	}
	return out, nil
}

// ============================================================
// Observations
// ============================================================

// RecordObservation stores a new note for the item; the latest note replaces
// earlier ones on read.
func (l *ResponseLedger) RecordObservation(ctx context.Context, itemID int64, text string, user domain.User) (*domain.Observation, error) {
	ctx, span := ledgerTracer.Start(ctx, "ResponseLedger.RecordObservation")
	defer span.End()
	span.SetAttributes(attribute.Int64("item.id", itemID))

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &domain.ErrValidation{Field: "text", Message: "required"}
	}
	if len(text) > maxObservationLength {
		return nil, &domain.ErrValidation{Field: "text", Message: fmt.Sprintf("must be at most %d characters", maxObservationLength)}
	}

	obs := &domain.Observation{ItemID: itemID, Text: text, UserID: user.ID}
	err := l.uow.RunInTx(ctx, "record_observation", func(ctx context.Context, st port.Store) error {
		if _, err := st.GetItemByID(ctx, itemID); err != nil {
			return err
		}
		obs.CreatedAt = l.rules.now()
		return st.AddObservation(ctx, obs)
	})
	if err != nil {
		return nil, err
	}
	return obs, nil
}

// GetObservation returns the latest note of the item, or nil when it has none.
func (l *ResponseLedger) GetObservation(ctx context.Context, itemID int64) (*domain.Observation, error) {
	ctx, span := ledgerTracer.Start(ctx, "ResponseLedger.GetObservation")
	defer span.End()

	if _, err := l.store.GetItemByID(ctx, itemID); err != nil {
		return nil, err
	}
	obs, err := l.store.LatestObservation(ctx, itemID)
	var notFound *domain.ErrNotFound
	if errors.As(err, &notFound) {
		return nil, nil
	}
	return obs, err
}

// ============================================================
// Evidence files
// ============================================================

// AttachFiles saves each file through the FileStore under the questionnaire's
// folder, then links all of them to the item in one transaction.
func (l *ResponseLedger) AttachFiles(ctx context.Context, itemID int64, files []domain.UploadedFile, user domain.User) ([]domain.ItemFile, error) {
	ctx, span := ledgerTracer.Start(ctx, "ResponseLedger.AttachFiles")
	defer span.End()
	span.SetAttributes(attribute.Int64("item.id", itemID), attribute.Int("files", len(files)))

	if len(files) == 0 {
		return nil, &domain.ErrValidation{Field: "files", Message: "at least one file is required"}
	}
	for _, f := range files {
		if strings.TrimSpace(f.Name) == "" || len(f.Content) == 0 {
			return nil, &domain.ErrValidation{Field: "files", Message: "every file needs a name and content"}
		}
	}

	item, err := l.store.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	subfolder := filepath.Join("cuestionarios", fmt.Sprintf("%d", item.QuestionnaireID))
	now := l.rules.now()
	links := make([]domain.ItemFile, 0, len(files))
	for _, f := range files {
		path, size, err := l.files.SaveFile(ctx, f.Content, subfolder, f.Name)
		if err != nil {
			l.metrics.IncrExternalError("filestore")
			l.logger.Error("failed to store evidence file",
				zap.Int64("item_id", itemID),
				zap.String("file", f.Name),
				zap.Error(err),
			)
			l.logOrphans(itemID, links)
			return nil, &domain.ErrExternalService{Service: "filestore", Err: err}
		}
		links = append(links, domain.ItemFile{
			ItemID:       itemID,
			Path:         path,
			OriginalName: f.Name,
			Size:         size,
			UploadedBy:   user.ID,
			UploadedAt:   now,
		})
	}

	err = l.uow.RunInTx(ctx, "attach_files", func(ctx context.Context, st port.Store) error {
		return st.AddItemFiles(ctx, links)
	})
	if err != nil {
		l.logOrphans(itemID, links)
		return nil, err
	}

	l.logger.Info("evidence files attached",
		zap.Int64("item_id", itemID),
		zap.Int("count", len(links)),
	)
	return links, nil
}

// logOrphans reports files already written to the FileStore that no item row
// references, so they can be removed by hand.
func (l *ResponseLedger) logOrphans(itemID int64, links []domain.ItemFile) {
	if len(links) == 0 {
		return
	}
	paths := make([]string, 0, len(links))
	for _, f := range links {
		paths = append(paths, f.Path)
	}
	l.logger.Warn("orphaned evidence files",
		zap.Int64("item_id", itemID),
		zap.Int("count", len(paths)),
		zap.Strings("paths", paths),
	)
}
