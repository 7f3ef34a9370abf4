package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/cache"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/observability"
	"github.com/boddenberg/certificacion-calidad-go/internal/port"
)

var treeTracer = otel.Tracer("service/tree")

// TreeBuilder assembles the questionnaire tree of a typology. Trees are
// read-only reference views and are cached per (typology, language, biosecurity).
type TreeBuilder struct {
	store   port.ReferenceStore
	cache   port.Cache[*domain.QuestionnaireTree]
	rules   Rules
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewTreeBuilder creates a new tree builder.
func NewTreeBuilder(store port.ReferenceStore, cache port.Cache[*domain.QuestionnaireTree], rules Rules, metrics *observability.Metrics, logger *zap.Logger) *TreeBuilder {
	return &TreeBuilder{store: store, cache: cache, rules: rules, metrics: metrics, logger: logger}
}

// Build returns the ordered module tree for a typology. Biosecurity modules
// are included only when biosecurity is true.
func (b *TreeBuilder) Build(ctx context.Context, typologyID int64, lang domain.Language, biosecurity bool) (*domain.QuestionnaireTree, error) {
	return b.BuildWith(ctx, b.store, typologyID, lang, biosecurity)
}

// BuildWith is Build reading reference data through store. Callers inside a
// unit of work pass the transaction's store so a cache miss does not take a
// second connection.
func (b *TreeBuilder) BuildWith(ctx context.Context, store port.ReferenceStore, typologyID int64, lang domain.Language, biosecurity bool) (*domain.QuestionnaireTree, error) {
	ctx, span := treeTracer.Start(ctx, "TreeBuilder.Build")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("typology.id", typologyID),
		attribute.String("lang", string(lang)),
		attribute.Bool("biosecurity", biosecurity),
	)

	key := cache.TreeKey(typologyID, lang, biosecurity)
	if b.cache != nil {
		if tree, ok := b.cache.Get(key); ok {
			b.metrics.IncrCacheHit("tree")
			return tree, nil
		}
		b.metrics.IncrCacheMiss("tree")
	}

	if _, err := store.GetTypology(ctx, typologyID); err != nil {
		return nil, err
	}
	h, err := store.LoadHierarchy(ctx, typologyID)
	if err != nil {
		return nil, fmt.Errorf("loading questionnaire hierarchy: %w", err)
	}

	tree, err := AssembleTree(h, typologyID, lang, biosecurity, b.rules)
	if err != nil {
		b.logger.Error("questionnaire hierarchy is inconsistent",
			zap.Int64("typology_id", typologyID),
			zap.Error(err),
		)
		return nil, err
	}

	if b.cache != nil {
		b.cache.Set(key, tree)
	}
	return tree, nil
}

// AssembleTree orders the hierarchy into modules of flattened items. Within a
// section the header comes first, then questions without a subtitle, then
// each subtitle header followed by its questions.
func AssembleTree(h *domain.QuestionnaireHierarchy, typologyID int64, lang domain.Language, biosecurity bool, rules Rules) (*domain.QuestionnaireTree, error) {
	tree := &domain.QuestionnaireTree{
		TypologyID:  typologyID,
		Language:    lang,
		Biosecurity: biosecurity,
		Modules:     []domain.ModuleTree{},
	}

	modules := make([]domain.Module, 0, len(h.Modules))
	for _, m := range h.Modules {
		if !domain.AppliesTo(m.TypologyID, typologyID) {
			continue
		}
		if !biosecurity && rules.IsBiosecurity(m.ID) {
			continue
		}
		modules = append(modules, m)
	}
	sort.SliceStable(modules, func(i, j int) bool {
		if modules[i].Order != modules[j].Order {
			return modules[i].Order < modules[j].Order
		}
		return modules[i].ID < modules[j].ID
	})

	sectionsByModule := map[int64][]domain.Section{}
	for _, s := range h.Sections {
		if domain.AppliesTo(s.TypologyID, typologyID) {
			sectionsByModule[s.ModuleID] = append(sectionsByModule[s.ModuleID], s)
		}
	}
	subtitlesBySection := map[int64][]domain.Subtitle{}
	for _, st := range h.Subtitles {
		if domain.AppliesTo(st.TypologyID, typologyID) {
			subtitlesBySection[st.SectionID] = append(subtitlesBySection[st.SectionID], st)
		}
	}

	type orderedQuestion struct {
		q     domain.Question
		order float64
	}
	looseBySection := map[int64][]orderedQuestion{}
	bySubtitle := map[int64][]orderedQuestion{}
	for _, q := range h.Questions {
		if !domain.AppliesTo(q.TypologyID, typologyID) {
			continue
		}
		order, err := strconv.ParseFloat(q.Order, 64)
		if err != nil {
			return nil, &domain.ErrDataInconsistency{
				Entity: "question",
				Detail: fmt.Sprintf("question %d has non-numeric order %q", q.ID, q.Order),
			}
		}
		oq := orderedQuestion{q: q, order: order}
		if q.SubtitleID != nil {
			bySubtitle[*q.SubtitleID] = append(bySubtitle[*q.SubtitleID], oq)
		} else {
			looseBySection[q.SectionID] = append(looseBySection[q.SectionID], oq)
		}
	}

	sortQuestions := func(qs []orderedQuestion) {
		sort.SliceStable(qs, func(i, j int) bool {
			if qs[i].order != qs[j].order {
				return qs[i].order < qs[j].order
			}
			return qs[i].q.ID < qs[j].q.ID
		})
	}
	leaf := func(oq orderedQuestion) domain.TreeItem {
		return domain.TreeItem{
			Type:                domain.NodeQuestion,
			ID:                  oq.q.ID,
			Text:                oq.q.Text.In(lang),
			Nomenclature:        oq.q.Nomenclature,
			Mandatory:           oq.q.Mandatory,
			AllowsNotApplicable: oq.q.AllowsNotApplicable,
			SectionID:           oq.q.SectionID,
			SubtitleID:          oq.q.SubtitleID,
		}
	}

	for _, m := range modules {
		mt := domain.ModuleTree{ID: m.ID, Name: m.Name.In(lang), Order: m.Order, Items: []domain.TreeItem{}}

		sections := sectionsByModule[m.ID]
		sort.SliceStable(sections, func(i, j int) bool {
			if sections[i].Order != sections[j].Order {
				return sections[i].Order < sections[j].Order
			}
			return sections[i].ID < sections[j].ID
		})

		for _, s := range sections {
			mt.Items = append(mt.Items, domain.TreeItem{
				Type:      domain.NodeSection,
				ID:        s.ID,
				Text:      s.Name.In(lang),
				SectionID: s.ID,
			})

			loose := looseBySection[s.ID]
			sortQuestions(loose)
			for _, oq := range loose {
				mt.Items = append(mt.Items, leaf(oq))
			}

			subtitles := subtitlesBySection[s.ID]
			sort.SliceStable(subtitles, func(i, j int) bool {
				if subtitles[i].Order != subtitles[j].Order {
					return subtitles[i].Order < subtitles[j].Order
				}
				return subtitles[i].ID < subtitles[j].ID
			})
			for _, st := range subtitles {
				subtitleID := st.ID
				mt.Items = append(mt.Items, domain.TreeItem{
					Type:       domain.NodeSubtitle,
					ID:         st.ID,
					Text:       st.Name.In(lang),
					SectionID:  s.ID,
					SubtitleID: &subtitleID,
				})

				qs := bySubtitle[st.ID]
				sortQuestions(qs)
				for _, oq := range qs {
					mt.Items = append(mt.Items, leaf(oq))
				}
			}
		}
		tree.Modules = append(tree.Modules, mt)
	}
	return tree, nil
}
