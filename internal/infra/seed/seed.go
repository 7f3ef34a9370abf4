// Package seed loads reference data and development fixtures from YAML.
package seed

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
	"github.com/boddenberg/certificacion-calidad-go/internal/infra/memstore"
)

// Fixture is the content of a seed file.
type Fixture struct {
	Typologies []domain.Typology            `yaml:"typologies"`
	Badges     []domain.Badge               `yaml:"badges"`
	Thresholds []domain.ComplianceThreshold `yaml:"thresholds"`
	Modules    []domain.Module              `yaml:"modules"`
	Sections   []domain.Section             `yaml:"sections"`
	Subtitles  []domain.Subtitle            `yaml:"subtitles"`
	Questions  []domain.Question            `yaml:"questions"`
	Companies  []Company                    `yaml:"companies"`
}

// Company is a seeded company. Lifecycle fields start empty; Status may carry
// the display string of a company migrated from the legacy system
// ("8 - Finalizado") and defaults to status 0.
type Company struct {
	ID          int64   `yaml:"id"`
	Name        string  `yaml:"name"`
	CountryID   int64   `yaml:"countryId"`
	TypologyIDs []int64 `yaml:"typologyIds"`
	Status      string  `yaml:"status"`
}

func (c Company) status() (domain.ProcessStatus, error) {
	if strings.TrimSpace(c.Status) == "" {
		return domain.StatusInitial, nil
	}
	return domain.ParseLegacyStatus(c.Status)
}

// Load reads and decodes a seed file. Unknown keys are rejected.
func Load(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var fx Fixture
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return &fx, nil
}

// Validate checks referential integrity and the rules the scoring engine
// relies on. Every problem found is reported.
func (fx *Fixture) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	typologies := map[int64]bool{}
	for _, t := range fx.Typologies {
		if typologies[t.ID] {
			add("typology %d: duplicate id", t.ID)
		}
		typologies[t.ID] = true
	}
	scope := func(kind string, id int64, typologyID *int64) {
		if typologyID != nil && !typologies[*typologyID] {
			add("%s %d: unknown typology %d", kind, id, *typologyID)
		}
	}

	badges := map[int64]bool{}
	names := map[string]int64{}
	for _, b := range fx.Badges {
		if badges[b.ID] {
			add("badge %d: duplicate id", b.ID)
		}
		badges[b.ID] = true
		if b.Name.ES == "" {
			add("badge %d: missing spanish name", b.ID)
		}
		key := strings.ToLower(b.Name.ES)
		if other, ok := names[key]; ok && b.Active {
			add("badge %d: name %q already used by badge %d", b.ID, b.Name.ES, other)
		}
		if b.Active {
			names[key] = b.ID
		}
	}

	modules := map[int64]bool{}
	for _, m := range fx.Modules {
		if modules[m.ID] {
			add("module %d: duplicate id", m.ID)
		}
		modules[m.ID] = true
		scope("module", m.ID, m.TypologyID)
	}

	sections := map[int64]bool{}
	for _, s := range fx.Sections {
		sections[s.ID] = true
		if !modules[s.ModuleID] {
			add("section %d: unknown module %d", s.ID, s.ModuleID)
		}
		scope("section", s.ID, s.TypologyID)
	}

	subtitles := map[int64]int64{}
	for _, s := range fx.Subtitles {
		subtitles[s.ID] = s.SectionID
		if !sections[s.SectionID] {
			add("subtitle %d: unknown section %d", s.ID, s.SectionID)
		}
		scope("subtitle", s.ID, s.TypologyID)
	}

	for _, q := range fx.Questions {
		if !sections[q.SectionID] {
			add("question %d: unknown section %d", q.ID, q.SectionID)
		}
		if q.SubtitleID != nil {
			parent, ok := subtitles[*q.SubtitleID]
			switch {
			case !ok:
				add("question %d: unknown subtitle %d", q.ID, *q.SubtitleID)
			case parent != q.SectionID:
				add("question %d: subtitle %d belongs to section %d", q.ID, *q.SubtitleID, parent)
			}
		}
		if _, err := strconv.ParseFloat(q.Order, 64); err != nil {
			add("question %d: order %q is not numeric", q.ID, q.Order)
		}
		scope("question", q.ID, q.TypologyID)
	}

	for _, t := range fx.Thresholds {
		if !modules[t.ModuleID] {
			add("threshold %d: unknown module %d", t.ID, t.ModuleID)
		}
		if !badges[t.BadgeID] {
			add("threshold %d: unknown badge %d", t.ID, t.BadgeID)
		}
		if t.Min >= t.Max {
			add("threshold %d: empty range (%d, %d]", t.ID, t.Min, t.Max)
		}
		scope("threshold", t.ID, t.TypologyID)
	}
	for _, overlap := range overlappingThresholds(fx.Thresholds) {
		add("thresholds %d and %d overlap", overlap[0], overlap[1])
	}

	for _, c := range fx.Companies {
		if len(c.TypologyIDs) == 0 {
			add("company %d: no typology", c.ID)
		}
		for _, id := range c.TypologyIDs {
			if !typologies[id] {
				add("company %d: unknown typology %d", c.ID, id)
			}
		}
		if _, err := c.status(); err != nil {
			add("company %d: %v", c.ID, err)
		}
	}

	return errors.Join(errs...)
}

// overlappingThresholds returns the id pairs of rows sharing a module and
// typology scope whose (min, max] ranges intersect.
func overlappingThresholds(rows []domain.ComplianceThreshold) [][2]int64 {
	type key struct {
		module   int64
		typology int64
	}
	groups := map[key][]domain.ComplianceThreshold{}
	for _, t := range rows {
		k := key{module: t.ModuleID, typology: -1}
		if t.TypologyID != nil {
			k.typology = *t.TypologyID
		}
		groups[k] = append(groups[k], t)
	}

	var out [][2]int64
	for _, g := range groups {
		sort.Slice(g, func(i, j int) bool { return g[i].Min < g[j].Min })
		for i := 1; i < len(g); i++ {
			if g[i].Min < g[i-1].Max {
				out = append(out, [2]int64{g[i-1].ID, g[i].ID})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// Apply writes the fixture into the in-memory store.
func (fx *Fixture) Apply(s *memstore.Store) {
	for _, t := range fx.Typologies {
		s.AddTypology(t)
	}
	for _, b := range fx.Badges {
		s.AddBadge(b)
	}
	for _, t := range fx.Thresholds {
		s.AddThreshold(t)
	}
	for _, m := range fx.Modules {
		s.AddModule(m)
	}
	for _, sec := range fx.Sections {
		s.AddSection(sec)
	}
	for _, sub := range fx.Subtitles {
		s.AddSubtitle(sub)
	}
	for _, q := range fx.Questions {
		s.AddQuestion(q)
	}
	for _, c := range fx.Companies {
		status, err := c.status()
		if err != nil {
			status = domain.StatusInitial
		}
		s.AddCompany(domain.Company{
			ID:          c.ID,
			Name:        c.Name,
			CountryID:   c.CountryID,
			TypologyIDs: append([]int64(nil), c.TypologyIDs...),
			Status:      status,
		})
	}
}

// LoadInto loads, validates and applies a seed file.
func LoadInto(path string, s *memstore.Store) (*Fixture, error) {
	fx, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := fx.Validate(); err != nil {
		return nil, fmt.Errorf("invalid seed file %s: %w", path, err)
	}
	fx.Apply(s)
	return fx, nil
}
