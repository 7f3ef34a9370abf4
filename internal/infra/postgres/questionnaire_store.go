package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
)

const questionnaireColumns = `id, proceso_id, empresa_id, tipologia_id, asesor_id, auditor_id,
	tecnico_pais_id, prueba, fecha_inicio, fecha_generacion, fecha_finalizado,
	fecha_revisado_auditor, resultado`

const itemColumns = `id, cuestionario_id, pregunta_id, modulo_id, nomenclatura, obligatoria,
	texto, resultado, fecha_actualizado, usuario_id`

// =============================================================================
// Questionnaires
// =============================================================================

func (s *Store) CreateQuestionnaire(ctx context.Context, q *domain.Questionnaire) error {
	query := `
		INSERT INTO cuestionarios
		(proceso_id, empresa_id, tipologia_id, asesor_id, auditor_id, prueba,
		 fecha_inicio, fecha_generacion, resultado)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := s.queryRowxContext(ctx, query,
		q.ProcessID, q.CompanyID, q.TypologyID, q.AdvisorID, q.AuditorID, q.Draft,
		q.StartedAt, q.GeneratedAt, q.Result,
	).Scan(&q.ID)
	if err != nil {
		return fmt.Errorf("creating questionnaire for company %d: %w", q.CompanyID, err)
	}
	return nil
}

func (s *Store) GetQuestionnaire(ctx context.Context, questionnaireID int64) (*domain.Questionnaire, error) {
	var q domain.Questionnaire
	query := `SELECT ` + questionnaireColumns + ` FROM cuestionarios WHERE id = $1`
	if err := s.getContext(ctx, &q, query, questionnaireID); err != nil {
		return nil, lookupErr(err, "questionnaire", questionnaireID)
	}
	return &q, nil
}

func (s *Store) ListQuestionnairesByProcess(ctx context.Context, processID int64) ([]domain.Questionnaire, error) {
	var out []domain.Questionnaire
	query := `SELECT ` + questionnaireColumns + ` FROM cuestionarios WHERE proceso_id = $1 ORDER BY id`
	if err := s.selectContext(ctx, &out, query, processID); err != nil {
		return nil, fmt.Errorf("listing questionnaires of process %d: %w", processID, err)
	}
	return out, nil
}

func (s *Store) UpdateQuestionnaire(ctx context.Context, q *domain.Questionnaire) error {
	query := `
		UPDATE cuestionarios SET
			asesor_id = :asesor_id,
			auditor_id = :auditor_id,
			tecnico_pais_id = :tecnico_pais_id,
			fecha_finalizado = :fecha_finalizado,
			fecha_revisado_auditor = :fecha_revisado_auditor,
			resultado = :resultado
		WHERE id = :id`

	res, err := s.namedExecContext(ctx, query, q)
	if err != nil {
		return fmt.Errorf("updating questionnaire %d: %w", q.ID, err)
	}
	return expectOneRow(res, "questionnaire", q.ID)
}

// =============================================================================
// Items
// =============================================================================

func (s *Store) GetItem(ctx context.Context, questionnaireID, questionID int64) (*domain.QuestionnaireItem, error) {
	var it domain.QuestionnaireItem
	query := `SELECT ` + itemColumns + ` FROM cuestionario_items
		WHERE cuestionario_id = $1 AND pregunta_id = $2`
	if err := s.getContext(ctx, &it, query, questionnaireID, questionID); err != nil {
		return nil, lookupErr(err, "questionnaire item for question", questionID)
	}
	return &it, nil
}

func (s *Store) GetItemByID(ctx context.Context, itemID int64) (*domain.QuestionnaireItem, error) {
	var it domain.QuestionnaireItem
	query := `SELECT ` + itemColumns + ` FROM cuestionario_items WHERE id = $1`
	if err := s.getContext(ctx, &it, query, itemID); err != nil {
		return nil, lookupErr(err, "questionnaire item", itemID)
	}
	return &it, nil
}

func (s *Store) CreateItem(ctx context.Context, item *domain.QuestionnaireItem) error {
	query := `
		INSERT INTO cuestionario_items
		(cuestionario_id, pregunta_id, modulo_id, nomenclatura, obligatoria, texto,
		 resultado, fecha_actualizado, usuario_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := s.queryRowxContext(ctx, query,
		item.QuestionnaireID, item.QuestionID, item.ModuleID, item.Nomenclature, item.Mandatory,
		item.Text, int(item.Result), item.UpdatedOn, item.AnsweredBy,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("creating item for question %d: %w", item.QuestionID, err)
	}
	return nil
}

func (s *Store) UpdateItemResult(ctx context.Context, itemID int64, result domain.AnswerResult, updatedOn time.Time, userID int64) error {
	res, err := s.execContext(ctx,
		`UPDATE cuestionario_items SET resultado = $2, fecha_actualizado = $3, usuario_id = $4 WHERE id = $1`,
		itemID, int(result), updatedOn, userID)
	if err != nil {
		return fmt.Errorf("updating item %d: %w", itemID, err)
	}
	return expectOneRow(res, "questionnaire item", itemID)
}

func (s *Store) ListItems(ctx context.Context, questionnaireID int64) ([]domain.QuestionnaireItem, error) {
	var out []domain.QuestionnaireItem
	query := `SELECT ` + itemColumns + ` FROM cuestionario_items WHERE cuestionario_id = $1 ORDER BY id`
	if err := s.selectContext(ctx, &out, query, questionnaireID); err != nil {
		return nil, fmt.Errorf("listing items of questionnaire %d: %w", questionnaireID, err)
	}
	return out, nil
}

// =============================================================================
// Observations and files
// =============================================================================

func (s *Store) AddObservation(ctx context.Context, obs *domain.Observation) error {
	query := `
		INSERT INTO cuestionario_item_observaciones (cuestionario_item_id, observacion, usuario_id, fecha)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := s.queryRowxContext(ctx, query, obs.ItemID, obs.Text, obs.UserID, obs.CreatedAt).Scan(&obs.ID); err != nil {
		return fmt.Errorf("adding observation to item %d: %w", obs.ItemID, err)
	}
	return nil
}

func (s *Store) LatestObservation(ctx context.Context, itemID int64) (*domain.Observation, error) {
	var obs domain.Observation
	query := `
		SELECT id, cuestionario_item_id, observacion, usuario_id, fecha
		FROM cuestionario_item_observaciones
		WHERE cuestionario_item_id = $1
		ORDER BY fecha DESC, id DESC
		LIMIT 1`
	if err := s.getContext(ctx, &obs, query, itemID); err != nil {
		return nil, lookupErr(err, "observation of item", itemID)
	}
	return &obs, nil
}

func (s *Store) LatestObservations(ctx context.Context, questionnaireID int64) (map[int64]domain.Observation, error) {
	var rows []domain.Observation
	query := `
		SELECT DISTINCT ON (o.cuestionario_item_id)
		       o.id, o.cuestionario_item_id, o.observacion, o.usuario_id, o.fecha
		FROM cuestionario_item_observaciones o
		JOIN cuestionario_items i ON i.id = o.cuestionario_item_id
		WHERE i.cuestionario_id = $1
		ORDER BY o.cuestionario_item_id, o.fecha DESC, o.id DESC`
	if err := s.selectContext(ctx, &rows, query, questionnaireID); err != nil {
		return nil, fmt.Errorf("listing observations of questionnaire %d: %w", questionnaireID, err)
	}

	out := make(map[int64]domain.Observation, len(rows))
	for _, o := range rows {
		out[o.ItemID] = o
	}
	return out, nil
}

func (s *Store) AddItemFiles(ctx context.Context, files []domain.ItemFile) error {
	query := `
		INSERT INTO cuestionario_item_archivos (cuestionario_item_id, ruta, nombre, peso, usuario_id, fecha)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	for i := range files {
		f := &files[i]
		if err := s.queryRowxContext(ctx, query,
			f.ItemID, f.Path, f.OriginalName, f.Size, f.UploadedBy, f.UploadedAt,
		).Scan(&f.ID); err != nil {
			return fmt.Errorf("linking file %q to item %d: %w", f.OriginalName, f.ItemID, err)
		}
	}
	return nil
}

func (s *Store) ListFiles(ctx context.Context, questionnaireID int64) (map[int64][]domain.ItemFile, error) {
	var rows []domain.ItemFile
	query := `
		SELECT a.id, a.cuestionario_item_id, a.ruta, a.nombre, a.peso, a.usuario_id, a.fecha
		FROM cuestionario_item_archivos a
		JOIN cuestionario_items i ON i.id = a.cuestionario_item_id
		WHERE i.cuestionario_id = $1
		ORDER BY a.id`
	if err := s.selectContext(ctx, &rows, query, questionnaireID); err != nil {
		return nil, fmt.Errorf("listing files of questionnaire %d: %w", questionnaireID, err)
	}

	out := make(map[int64][]domain.ItemFile)
	for _, f := range rows {
		out[f.ItemID] = append(out[f.ItemID], f)
	}
	return out, nil
}
