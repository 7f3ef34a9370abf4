package seed_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/memstore"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/seed"
)

const devFixture = "testdata/dev.yaml"

func TestLoad_DevFixtureIsValid(t *testing.T) {
	fx, err := seed.Load(devFixture)
	require.NoError(t, err)
	require.NoError(t, fx.Validate())

	assert.Len(t, fx.Typologies, 2)
	assert.Len(t, fx.Badges, 3)
	assert.Len(t, fx.Companies, 2)
}

func TestLoadInto_PopulatesStore(t *testing.T) {
	s := memstore.New()
	_, err := seed.LoadInto(devFixture, s)
	require.NoError(t, err)

	ctx := context.Background()
	c, err := s.GetCompany(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Hotel Quetzal", c.Name)
	assert.Equal(t, []int64{1}, c.TypologyIDs)

	h, err := s.LoadHierarchy(ctx, 1)
	require.NoError(t, err)
	var ids []int64
	for _, m := range h.Modules {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []int64{1, 2, 11}, ids, "restaurant-only module is filtered out")

	gold, err := s.GetBadge(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Gold", gold.Name.In(domain.LanguageEN))
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := writeFixture(t, "badges:\n  - id: 1\n    colour: gold\n")
	_, err := seed.Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := seed.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	path := writeFixture(t, `
typologies:
  - {id: 1, name: {es: Hotel}}
badges:
  - {id: 1, name: {es: Oro}, importance: 3, active: true}
modules:
  - {id: 1, name: {es: Gestión}, order: 1}
sections:
  - {id: 10, moduleId: 9, name: {es: Huérfana}, order: 1}
questions:
  - {id: 100, sectionId: 10, order: "1.a", text: {es: X}}
thresholds:
  - {id: 1, moduleId: 1, min: 0, max: 60, badgeId: 1}
  - {id: 2, moduleId: 1, min: 50, max: 100, badgeId: 7}
companies:
  - {id: 1, name: Sin tipología}
`)
	fx, err := seed.Load(path)
	require.NoError(t, err)

	err = fx.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "section 10: unknown module 9")
	assert.Contains(t, msg, `question 100: order "1.a" is not numeric`)
	assert.Contains(t, msg, "threshold 2: unknown badge 7")
	assert.Contains(t, msg, "thresholds 1 and 2 overlap")
	assert.Contains(t, msg, "company 1: no typology")
}

func TestValidate_AdjacentRangesDoNotOverlap(t *testing.T) {
	fx := &seed.Fixture{
		Badges:  []domain.Badge{{ID: 1, Name: domain.LocalizedText{ES: "Oro"}, Active: true}},
		Modules: []domain.Module{{ID: 1}},
		Thresholds: []domain.ComplianceThreshold{
			{ID: 1, ModuleID: 1, Min: 0, Max: 60, BadgeID: 1},
			{ID: 2, ModuleID: 1, Min: 60, Max: 100, BadgeID: 1},
		},
	}
	assert.NoError(t, fx.Validate())
}

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadInto_MigratedCompanyKeepsLegacyStatus(t *testing.T) {
	path := writeFixture(t, `
typologies:
  - {id: 1, name: {es: Hotel}}
companies:
  - {id: 7, name: Posada Maya, typologyIds: [1], status: "8 - Finalizado"}
  - {id: 8, name: Hostal Volcán, typologyIds: [1]}
`)
	s := memstore.New()
	_, err := seed.LoadInto(path, s)
	require.NoError(t, err)

	ctx := context.Background()
	migrated, err := s.GetCompany(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, migrated.Status)

	fresh, err := s.GetCompany(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInitial, fresh.Status)
}

func TestValidate_RejectsUnreadableCompanyStatus(t *testing.T) {
	fx := &seed.Fixture{
		Typologies: []domain.Typology{{ID: 1}},
		Companies:  []seed.Company{{ID: 7, TypologyIDs: []int64{1}, Status: "Finalizado"}},
	}
	err := fx.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company 7")
}
