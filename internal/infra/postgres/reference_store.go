package postgres

import (
	"context"
	"fmt"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
)

// Reference tables keep the Spanish name in "nombre" and the English one in "nombre_en".

type namedRow struct {
	NameES string `db:"nombre"`
	NameEN string `db:"nombre_en"`
}

func (r namedRow) text() domain.LocalizedText {
	return domain.LocalizedText{ES: r.NameES, EN: r.NameEN}
}

type typologyRow struct {
	ID int64 `db:"id"`
	namedRow
}

type moduleRow struct {
	ID         int64  `db:"id"`
	Order      int    `db:"orden"`
	TypologyID *int64 `db:"tipologia_id"`
	namedRow
}

type sectionRow struct {
	ID         int64  `db:"id"`
	ModuleID   int64  `db:"modulo_id"`
	Order      int    `db:"orden"`
	TypologyID *int64 `db:"tipologia_id"`
	namedRow
}

type subtitleRow struct {
	ID         int64  `db:"id"`
	SectionID  int64  `db:"seccion_id"`
	Order      int    `db:"orden"`
	TypologyID *int64 `db:"tipologia_id"`
	namedRow
}

type questionRow struct {
	ID                  int64  `db:"id"`
	SectionID           int64  `db:"seccion_id"`
	SubtitleID          *int64 `db:"subtitulo_id"`
	TextES              string `db:"texto"`
	TextEN              string `db:"texto_en"`
	Nomenclature        string `db:"nomenclatura"`
	Order               string `db:"orden"`
	Mandatory           bool   `db:"obligatoria"`
	AllowsNotApplicable bool   `db:"no_aplica"`
	TypologyID          *int64 `db:"tipologia_id"`
}

func (r questionRow) toDomain() domain.Question {
	return domain.Question{
		ID:                  r.ID,
		SectionID:           r.SectionID,
		SubtitleID:          r.SubtitleID,
		Text:                domain.LocalizedText{ES: r.TextES, EN: r.TextEN},
		Nomenclature:        r.Nomenclature,
		Order:               r.Order,
		Mandatory:           r.Mandatory,
		AllowsNotApplicable: r.AllowsNotApplicable,
		TypologyID:          r.TypologyID,
	}
}

type badgeRow struct {
	ID         int64 `db:"id"`
	Importance int   `db:"importancia"`
	Active     bool  `db:"activo"`
	namedRow
}

const questionColumns = `id, seccion_id, subtitulo_id, texto, COALESCE(texto_en, '') AS texto_en,
	COALESCE(nomenclatura, '') AS nomenclatura, orden, obligatoria, no_aplica, tipologia_id`

func (s *Store) GetTypology(ctx context.Context, typologyID int64) (*domain.Typology, error) {
	var row typologyRow
	query := `SELECT id, nombre, COALESCE(nombre_en, '') AS nombre_en FROM tipologias WHERE id = $1`
	if err := s.getContext(ctx, &row, query, typologyID); err != nil {
		return nil, lookupErr(err, "typology", typologyID)
	}
	return &domain.Typology{ID: row.ID, Name: row.text()}, nil
}

// LoadHierarchy reads every node scoped to the typology or to no typology at all.
func (s *Store) LoadHierarchy(ctx context.Context, typologyID int64) (*domain.QuestionnaireHierarchy, error) {
	var (
		modules   []moduleRow
		sections  []sectionRow
		subtitles []subtitleRow
		questions []questionRow
	)

	if err := s.selectContext(ctx, &modules, `
		SELECT id, nombre, COALESCE(nombre_en, '') AS nombre_en, orden, tipologia_id
		FROM modulos
		WHERE tipologia_id IS NULL OR tipologia_id = $1`, typologyID); err != nil {
		return nil, fmt.Errorf("loading modules for typology %d: %w", typologyID, err)
	}
	if err := s.selectContext(ctx, &sections, `
		SELECT id, modulo_id, nombre, COALESCE(nombre_en, '') AS nombre_en, orden, tipologia_id
		FROM secciones
		WHERE tipologia_id IS NULL OR tipologia_id = $1`, typologyID); err != nil {
		return nil, fmt.Errorf("loading sections for typology %d: %w", typologyID, err)
	}
	if err := s.selectContext(ctx, &subtitles, `
		SELECT id, seccion_id, nombre, COALESCE(nombre_en, '') AS nombre_en, orden, tipologia_id
		FROM subtitulos
		WHERE tipologia_id IS NULL OR tipologia_id = $1`, typologyID); err != nil {
		return nil, fmt.Errorf("loading subtitles for typology %d: %w", typologyID, err)
	}
	if err := s.selectContext(ctx, &questions, `SELECT `+questionColumns+`
		FROM preguntas
		WHERE tipologia_id IS NULL OR tipologia_id = $1`, typologyID); err != nil {
		return nil, fmt.Errorf("loading questions for typology %d: %w", typologyID, err)
	}

	h := &domain.QuestionnaireHierarchy{
		Modules:   make([]domain.Module, 0, len(modules)),
		Sections:  make([]domain.Section, 0, len(sections)),
		Subtitles: make([]domain.Subtitle, 0, len(subtitles)),
		Questions: make([]domain.Question, 0, len(questions)),
	}
	for _, r := range modules {
		h.Modules = append(h.Modules, domain.Module{ID: r.ID, Name: r.text(), Order: r.Order, TypologyID: r.TypologyID})
	}
	for _, r := range sections {
		h.Sections = append(h.Sections, domain.Section{ID: r.ID, ModuleID: r.ModuleID, Name: r.text(), Order: r.Order, TypologyID: r.TypologyID})
	}
	for _, r := range subtitles {
		h.Subtitles = append(h.Subtitles, domain.Subtitle{ID: r.ID, SectionID: r.SectionID, Name: r.text(), Order: r.Order, TypologyID: r.TypologyID})
	}
	for _, r := range questions {
		h.Questions = append(h.Questions, r.toDomain())
	}
	return h, nil
}

func (s *Store) GetQuestion(ctx context.Context, questionID int64) (*domain.Question, error) {
	var row questionRow
	if err := s.getContext(ctx, &row, `SELECT `+questionColumns+` FROM preguntas WHERE id = $1`, questionID); err != nil {
		return nil, lookupErr(err, "question", questionID)
	}
	q := row.toDomain()
	return &q, nil
}

func (s *Store) GetSection(ctx context.Context, sectionID int64) (*domain.Section, error) {
	var row sectionRow
	query := `SELECT id, modulo_id, nombre, COALESCE(nombre_en, '') AS nombre_en, orden, tipologia_id
		FROM secciones WHERE id = $1`
	if err := s.getContext(ctx, &row, query, sectionID); err != nil {
		return nil, lookupErr(err, "section", sectionID)
	}
	return &domain.Section{ID: row.ID, ModuleID: row.ModuleID, Name: row.text(), Order: row.Order, TypologyID: row.TypologyID}, nil
}

// ListThresholds returns the threshold rows of the typology, typology-specific rows first.
func (s *Store) ListThresholds(ctx context.Context, typologyID int64) ([]domain.ComplianceThreshold, error) {
	var out []domain.ComplianceThreshold
	query := `
		SELECT id, modulo_id, tipologia_id, porcentaje_min, porcentaje_max, distintivo_id
		FROM cumplimientos
		WHERE tipologia_id IS NULL OR tipologia_id = $1
		ORDER BY tipologia_id NULLS LAST, modulo_id, porcentaje_min`
	if err := s.selectContext(ctx, &out, query, typologyID); err != nil {
		return nil, fmt.Errorf("loading thresholds for typology %d: %w", typologyID, err)
	}
	return out, nil
}

func (s *Store) ListBadges(ctx context.Context) ([]domain.Badge, error) {
	var rows []badgeRow
	query := `SELECT id, nombre, COALESCE(nombre_en, '') AS nombre_en, importancia, activo FROM distintivos ORDER BY importancia`
	if err := s.selectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("loading badges: %w", err)
	}

	out := make([]domain.Badge, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Badge{ID: r.ID, Name: r.text(), Importance: r.Importance, Active: r.Active})
	}
	return out, nil
}

func (s *Store) GetBadge(ctx context.Context, badgeID int64) (*domain.Badge, error) {
	var row badgeRow
	query := `SELECT id, nombre, COALESCE(nombre_en, '') AS nombre_en, importancia, activo FROM distintivos WHERE id = $1`
	if err := s.getContext(ctx, &row, query, badgeID); err != nil {
		return nil, lookupErr(err, "badge", badgeID)
	}
	return &domain.Badge{ID: row.ID, Name: row.text(), Importance: row.Importance, Active: row.Active}, nil
}
