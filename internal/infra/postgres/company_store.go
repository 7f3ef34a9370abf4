package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
)

type companyRow struct {
	ID                   int64         `db:"id"`
	Name                 string        `db:"nombre"`
	CountryID            int64         `db:"pais_id"`
	Status               int           `db:"estado"`
	SuggestedResult      string        `db:"resultado_sugerido"`
	CurrentResult        string        `db:"resultado_actual"`
	ExpirationResult     string        `db:"resultado_vencimiento"`
	AutoNotificationDate *time.Time    `db:"fecha_auto_notificacion"`
	TypologyIDs          pq.Int64Array `db:"tipologias"`
}

func (r companyRow) toDomain() *domain.Company {
	return &domain.Company{
		ID:                   r.ID,
		Name:                 r.Name,
		CountryID:            r.CountryID,
		TypologyIDs:          []int64(r.TypologyIDs),
		Status:               domain.ProcessStatus(r.Status),
		SuggestedResult:      r.SuggestedResult,
		CurrentResult:        r.CurrentResult,
		ExpirationResult:     r.ExpirationResult,
		AutoNotificationDate: r.AutoNotificationDate,
	}
}

func (s *Store) GetCompany(ctx context.Context, companyID int64) (*domain.Company, error) {
	var row companyRow
	query := `
		SELECT e.id, e.nombre, e.pais_id, e.estado,
		       COALESCE(e.resultado_sugerido, '') AS resultado_sugerido,
		       COALESCE(e.resultado_actual, '') AS resultado_actual,
		       COALESCE(e.resultado_vencimiento, '') AS resultado_vencimiento,
		       e.fecha_auto_notificacion,
		       COALESCE(array_agg(et.tipologia_id ORDER BY et.tipologia_id)
		                FILTER (WHERE et.tipologia_id IS NOT NULL), '{}') AS tipologias
		FROM empresas e
		LEFT JOIN empresa_tipologias et ON et.empresa_id = e.id
		WHERE e.id = $1
		GROUP BY e.id`

	if err := s.getContext(ctx, &row, query, companyID); err != nil {
		return nil, lookupErr(err, "company", companyID)
	}
	return row.toDomain(), nil
}

// RaiseCompanyStatus keeps the maximum of the stored and the given status.
func (s *Store) RaiseCompanyStatus(ctx context.Context, companyID int64, status domain.ProcessStatus) error {
	res, err := s.execContext(ctx,
		`UPDATE empresas SET estado = GREATEST(estado, $2) WHERE id = $1`,
		companyID, int(status))
	if err != nil {
		return fmt.Errorf("raising company %d status: %w", companyID, err)
	}
	return expectOneRow(res, "company", companyID)
}

func (s *Store) SetSuggestedResult(ctx context.Context, companyID int64, result string) error {
	res, err := s.execContext(ctx,
		`UPDATE empresas SET resultado_sugerido = $2 WHERE id = $1`,
		companyID, result)
	if err != nil {
		return fmt.Errorf("saving suggested result of company %d: %w", companyID, err)
	}
	return expectOneRow(res, "company", companyID)
}

func (s *Store) SetCurrentResult(ctx context.Context, companyID int64, result string) error {
	res, err := s.execContext(ctx,
		`UPDATE empresas SET resultado_actual = $2 WHERE id = $1`,
		companyID, result)
	if err != nil {
		return fmt.Errorf("saving current result of company %d: %w", companyID, err)
	}
	return expectOneRow(res, "company", companyID)
}

func (s *Store) ClearAutoNotificationDate(ctx context.Context, companyID int64) error {
	res, err := s.execContext(ctx,
		`UPDATE empresas SET fecha_auto_notificacion = NULL WHERE id = $1`,
		companyID)
	if err != nil {
		return fmt.Errorf("clearing notification date of company %d: %w", companyID, err)
	}
	return expectOneRow(res, "company", companyID)
}
