package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/boddenberg/certificacion-calidad-go/internal/port"
)

var readTracer = otel.Tracer("service/readmodel")

// ReadModelService composes the read-side views consumed by report rendering.
type ReadModelService struct {
	store      port.Store
	tree       *TreeBuilder
	engine     *ComplianceEngine
	aggregator *SuggestedResultAggregator
	logger     *zap.Logger
}

// NewReadModelService creates the read model service.
func NewReadModelService(store port.Store, tree *TreeBuilder, rules Rules, logger *zap.Logger) *ReadModelService {
	return &ReadModelService{
		store:      store,
		tree:       tree,
		engine:     NewComplianceEngine(rules),
		aggregator: NewSuggestedResultAggregator(rules, logger),
		logger:     logger,
	}
}

// GetQuestionnaireView returns the questionnaire with its answered tree,
// module results and suggested result. Nothing is persisted.
func (s *ReadModelService) GetQuestionnaireView(ctx context.Context, questionnaireID int64, lang domain.Language) (*domain.QuestionnaireView, error) {
	ctx, span := readTracer.Start(ctx, "ReadModelService.GetQuestionnaireView")
	defer span.End()
	span.SetAttributes(attribute.Int64("questionnaire.id", questionnaireID), attribute.String("lang", string(lang)))

	q, err := s.store.GetQuestionnaire(ctx, questionnaireID)
	if err != nil {
		return nil, err
	}

	var (
		company      *domain.Company
		process      *domain.CertificationProcess
		tree         *domain.QuestionnaireTree
		items        []domain.QuestionnaireItem
		observations map[int64]domain.Observation
		files        map[int64][]domain.ItemFile
		thresholds   []domain.ComplianceThreshold
		badges       []domain.Badge
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		company, err = s.store.GetCompany(gctx, q.CompanyID)
		return err
	})
	if q.ProcessID != nil {
		g.Go(func() (err error) {
			process, err = s.store.GetProcess(gctx, *q.ProcessID)
			return err
		})
	}
	g.Go(func() (err error) {
		tree, err = s.tree.Build(gctx, q.TypologyID, lang, true)
		return err
	})
	g.Go(func() (err error) {
		items, err = s.store.ListItems(gctx, questionnaireID)
		return err
	})
	g.Go(func() (err error) {
		observations, err = s.store.LatestObservations(gctx, questionnaireID)
		return err
	})
	g.Go(func() (err error) {
		files, err = s.store.ListFiles(gctx, questionnaireID)
		return err
	})
	g.Go(func() (err error) {
		thresholds, err = s.store.ListThresholds(gctx, q.TypologyID)
		return err
	})
	g.Go(func() (err error) {
		badges, err = s.store.ListBadges(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results, err := s.engine.ScoreModules(tree, items, thresholds, badges)
	if err != nil {
		return nil, err
	}
	suggested, err := s.aggregator.Aggregate(results, badges, lang)
	if err != nil {
		return nil, err
	}

	byQuestion := make(map[int64]domain.QuestionnaireItem, len(items))
	for _, it := range items {
		byQuestion[it.QuestionID] = it
	}

	view := &domain.QuestionnaireView{
		Questionnaire:   *q,
		Company:         *company,
		Language:        lang,
		Modules:         make([]domain.ModuleView, 0, len(tree.Modules)),
		SuggestedResult: suggested,
	}
	if process != nil {
		view.StatusLabel = process.Status.Label(lang)
	}

	for i, m := range tree.Modules {
		mv := domain.ModuleView{ID: m.ID, Name: m.Name, Items: make([]domain.AnsweredItem, 0, len(m.Items)), Result: results[i]}
		for _, leaf := range m.Items {
			ai := domain.AnsweredItem{TreeItem: leaf}
			if leaf.Type == domain.NodeQuestion {
				if it, ok := byQuestion[leaf.ID]; ok {
					itemID := it.ID
					ai.ItemID = &itemID
					ai.Result = it.Result
					ai.Observation = observations[it.ID].Text
					ai.Files = files[it.ID]
				}
			}
			mv.Items = append(mv.Items, ai)
		}
		view.Modules = append(view.Modules, mv)
	}
	return view, nil
}

// ProcessHistory returns a process together with its questionnaires and qualification decisions.
func (s *ReadModelService) ProcessHistory(ctx context.Context, processID int64, lang domain.Language) (*domain.ProcessHistory, error) {
	ctx, span := readTracer.Start(ctx, "ReadModelService.ProcessHistory")
	defer span.End()

	p, err := s.store.GetProcess(ctx, processID)
	if err != nil {
		return nil, err
	}

	var (
		questionnaires []domain.Questionnaire
		results        []domain.QualificationResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		questionnaires, err = s.store.ListQuestionnairesByProcess(gctx, processID)
		return err
	})
	g.Go(func() (err error) {
		results, err = s.store.ListQualificationResults(gctx, processID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if questionnaires == nil {
		questionnaires = []domain.Questionnaire{}
	}
	if results == nil {
		results = []domain.QualificationResult{}
	}
	return &domain.ProcessHistory{
		Process:        *p,
		StatusLabel:    p.Status.Label(lang),
		Questionnaires: questionnaires,
		Results:        results,
	}, nil
}
