package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/boddenberg/certificacion-calidad-go/internal/service"
)

func ptr(v int64) *int64 { return &v }

func hierarchy() *domain.QuestionnaireHierarchy {
	return &domain.QuestionnaireHierarchy{
		Modules: []domain.Module{
			{ID: 2, Name: domain.LocalizedText{ES: "Cocina", EN: "Kitchen"}, Order: 2},
			{ID: 1, Name: domain.LocalizedText{ES: "Gestión", EN: "Management"}, Order: 1},
			{ID: 3, Name: domain.LocalizedText{ES: "Restaurante"}, Order: 3, TypologyID: ptr(2)},
			{ID: 11, Name: domain.LocalizedText{ES: "Bioseguridad"}, Order: 11},
		},
		Sections: []domain.Section{
			{ID: 10, ModuleID: 1, Name: domain.LocalizedText{ES: "Dirección"}, Order: 2},
			{ID: 20, ModuleID: 1, Name: domain.LocalizedText{ES: "Personal"}, Order: 1},
			{ID: 30, ModuleID: 2, Name: domain.LocalizedText{ES: "Higiene"}, Order: 1},
			{ID: 40, ModuleID: 3, Name: domain.LocalizedText{ES: "Sala"}, Order: 1},
			{ID: 110, ModuleID: 11, Name: domain.LocalizedText{ES: "Protocolos"}, Order: 1},
		},
		Subtitles: []domain.Subtitle{
			{ID: 100, SectionID: 10, Name: domain.LocalizedText{ES: "Planificación"}, Order: 1},
		},
		Questions: []domain.Question{
			{ID: 1, SectionID: 10, Order: "2", Text: domain.LocalizedText{ES: "uno", EN: "one"}, Mandatory: true},
			{ID: 2, SectionID: 10, Order: "1.5", Text: domain.LocalizedText{ES: "dos"}},
			{ID: 3, SectionID: 10, SubtitleID: ptr(100), Order: "1", Text: domain.LocalizedText{ES: "tres"}},
			{ID: 4, SectionID: 20, Order: "10", Text: domain.LocalizedText{ES: "cuatro"}},
			{ID: 5, SectionID: 20, Order: "9", Text: domain.LocalizedText{ES: "cinco"}},
			{ID: 6, SectionID: 30, Order: "1", Text: domain.LocalizedText{ES: "seis"}, TypologyID: ptr(2)},
			{ID: 7, SectionID: 110, Order: "1", Text: domain.LocalizedText{ES: "siete"}},
		},
	}
}

type node struct {
	kind string
	id   int64
}

func flatten(m domain.ModuleTree) []node {
	out := make([]node, 0, len(m.Items))
	for _, it := range m.Items {
		out = append(out, node{it.Type, it.ID})
	}
	return out
}

func TestAssembleTree_OrdersSectionsSubtitlesAndQuestions(t *testing.T) {
	tree, err := service.AssembleTree(hierarchy(), 1, domain.LanguageES, false, service.DefaultRules())
	require.NoError(t, err)

	require.Len(t, tree.Modules, 2)
	assert.Equal(t, int64(1), tree.Modules[0].ID)
	assert.Equal(t, int64(2), tree.Modules[1].ID)

	want := []node{
		{domain.NodeSection, 20},
		{domain.NodeQuestion, 5},
		{domain.NodeQuestion, 4},
		{domain.NodeSection, 10},
		{domain.NodeQuestion, 2},
		{domain.NodeQuestion, 1},
		{domain.NodeSubtitle, 100},
		{domain.NodeQuestion, 3},
	}
	assert.Equal(t, want, flatten(tree.Modules[0]))
}

func TestAssembleTree_TypologyScoping(t *testing.T) {
	hotel, err := service.AssembleTree(hierarchy(), 1, domain.LanguageES, false, service.DefaultRules())
	require.NoError(t, err)
	assert.Equal(t, []node{{domain.NodeSection, 30}}, flatten(hotel.Modules[1]), "question 6 belongs to typology 2")

	restaurant, err := service.AssembleTree(hierarchy(), 2, domain.LanguageES, false, service.DefaultRules())
	require.NoError(t, err)
	ids := make([]int64, 0, len(restaurant.Modules))
	for _, m := range restaurant.Modules {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []int64{1, 2, 3}, ids)
	assert.Equal(t, []node{{domain.NodeSection, 30}, {domain.NodeQuestion, 6}}, flatten(restaurant.Modules[1]))
}

func TestAssembleTree_BiosecurityFlag(t *testing.T) {
	without, err := service.AssembleTree(hierarchy(), 1, domain.LanguageES, false, service.DefaultRules())
	require.NoError(t, err)
	for _, m := range without.Modules {
		assert.NotEqual(t, int64(11), m.ID)
	}

	with, err := service.AssembleTree(hierarchy(), 1, domain.LanguageES, true, service.DefaultRules())
	require.NoError(t, err)
	require.Len(t, with.Modules, 3)
	assert.Equal(t, int64(11), with.Modules[2].ID)
	assert.True(t, with.Biosecurity)
}

func TestAssembleTree_Language(t *testing.T) {
	tree, err := service.AssembleTree(hierarchy(), 1, domain.LanguageEN, false, service.DefaultRules())
	require.NoError(t, err)

	assert.Equal(t, "Management", tree.Modules[0].Name)
	for _, it := range tree.Modules[0].Items {
		if it.ID == 1 && it.Type == domain.NodeQuestion {
			assert.Equal(t, "one", it.Text)
			assert.True(t, it.Mandatory)
		}
		if it.ID == 2 && it.Type == domain.NodeQuestion {
			assert.Equal(t, "dos", it.Text, "falls back to Spanish")
		}
	}
}

func TestAssembleTree_NonNumericOrder(t *testing.T) {
	h := hierarchy()
	h.Questions = append(h.Questions, domain.Question{ID: 99, SectionID: 10, Order: "1.a"})

	_, err := service.AssembleTree(h, 1, domain.LanguageES, false, service.DefaultRules())
	var inconsistent *domain.ErrDataInconsistency
	require.True(t, errors.As(err, &inconsistent), "got %v", err)
	assert.Equal(t, "question", inconsistent.Entity)
}

func TestAssembleTree_EmptyHierarchy(t *testing.T) {
	tree, err := service.AssembleTree(&domain.QuestionnaireHierarchy{}, 1, domain.LanguageES, true, service.DefaultRules())
	require.NoError(t, err)
	assert.NotNil(t, tree.Modules)
	assert.Empty(t, tree.Modules)
}

func TestTreeBuilder_CachesTrees(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	first, err := e.tree.Build(ctx, typologyID, domain.LanguageES, true)
	require.NoError(t, err)
	second, err := e.tree.Build(ctx, typologyID, domain.LanguageES, true)
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = e.tree.Build(ctx, typologyID, domain.LanguageEN, true)
	require.NoError(t, err)

	snap := e.metrics.LifecycleSnapshot()
	assert.InDelta(t, 1.0/3.0, snap.CacheHitRate, 0.0001)
}

func TestTreeBuilder_UnknownTypology(t *testing.T) {
	e := newEnv()

	_, err := e.tree.Build(context.Background(), 999, domain.LanguageES, false)
	var notFound *domain.ErrNotFound
	require.True(t, errors.As(err, &notFound), "got %v", err)
}

func TestTreeBuilder_WithoutCache(t *testing.T) {
	e := newEnv()
	builder := service.NewTreeBuilder(e.store, nil, e.rules, e.metrics, zap.NewNop())

	tree, err := builder.Build(context.Background(), typologyID, domain.LanguageES, false)
	require.NoError(t, err)
	require.Len(t, tree.Modules, 1)
	assert.Len(t, tree.Modules[0].Questions(), 4)
}
