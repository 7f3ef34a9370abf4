package postgres

import (
	"context"
	"fmt"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
)

const processColumns = `id, empresa_id, asesor_id, auditor_id, usuario_generador_id, tipologia_id,
	estado, COALESCE(numero_expediente, '') AS numero_expediente, fecha_inicio, fecha_finalizacion, fecha_solicitud_auditoria,
	fecha_fijada_auditoria, fecha_vencimiento, recertificacion, enabled,
	creado_por, creado_en, actualizado_por, actualizado_en`

func (s *Store) CreateProcess(ctx context.Context, p *domain.CertificationProcess) error {
	query := `
		INSERT INTO procesos_certificacion
		(empresa_id, asesor_id, auditor_id, usuario_generador_id, tipologia_id, estado,
		 numero_expediente, fecha_inicio, recertificacion, enabled, creado_por, creado_en, actualizado_en)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	err := s.queryRowxContext(ctx, query,
		p.CompanyID, p.AdvisorID, p.AuditorID, p.GeneratorUserID, p.TypologyID, int(p.Status),
		p.CaseNumber, p.StartedAt, p.Recertification, p.Enabled, p.CreatedBy, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("creating process for company %d: %w", p.CompanyID, err)
	}
	return nil
}

func (s *Store) GetProcess(ctx context.Context, processID int64) (*domain.CertificationProcess, error) {
	var p domain.CertificationProcess
	query := `SELECT ` + processColumns + ` FROM procesos_certificacion WHERE id = $1`
	if err := s.getContext(ctx, &p, query, processID); err != nil {
		return nil, lookupErr(err, "certification process", processID)
	}
	return &p, nil
}

func (s *Store) GetOpenProcess(ctx context.Context, companyID int64) (*domain.CertificationProcess, error) {
	var p domain.CertificationProcess
	query := `SELECT ` + processColumns + ` FROM procesos_certificacion
		WHERE empresa_id = $1 AND fecha_finalizacion IS NULL
		ORDER BY id DESC LIMIT 1`
	if err := s.getContext(ctx, &p, query, companyID); err != nil {
		return nil, lookupErr(err, "open certification process of company", companyID)
	}
	return &p, nil
}

func (s *Store) ListProcessesByCompany(ctx context.Context, companyID int64) ([]domain.CertificationProcess, error) {
	var out []domain.CertificationProcess
	query := `SELECT ` + processColumns + ` FROM procesos_certificacion WHERE empresa_id = $1 ORDER BY id`
	if err := s.selectContext(ctx, &out, query, companyID); err != nil {
		return nil, fmt.Errorf("listing processes of company %d: %w", companyID, err)
	}
	return out, nil
}

func (s *Store) UpdateProcess(ctx context.Context, p *domain.CertificationProcess) error {
	query := `
		UPDATE procesos_certificacion SET
			asesor_id = :asesor_id,
			auditor_id = :auditor_id,
			tipologia_id = :tipologia_id,
			estado = :estado,
			numero_expediente = :numero_expediente,
			fecha_finalizacion = :fecha_finalizacion,
			fecha_solicitud_auditoria = :fecha_solicitud_auditoria,
			fecha_fijada_auditoria = :fecha_fijada_auditoria,
			fecha_vencimiento = :fecha_vencimiento,
			recertificacion = :recertificacion,
			enabled = :enabled,
			actualizado_por = :actualizado_por,
			actualizado_en = :actualizado_en
		WHERE id = :id`

	res, err := s.namedExecContext(ctx, query, p)
	if err != nil {
		return fmt.Errorf("updating process %d: %w", p.ID, err)
	}
	return expectOneRow(res, "certification process", p.ID)
}

func (s *Store) AddQualificationResult(ctx context.Context, r *domain.QualificationResult) error {
	query := `
		INSERT INTO resultados_certificacion
		(proceso_id, aprobado, distintivo_id, numero_dictamen, observaciones, creado_por, creado_en)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := s.queryRowxContext(ctx, query,
		r.ProcessID, r.Approved, r.BadgeID, r.DictamenNumber, r.Observations, r.CreatedBy, r.CreatedAt,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("recording qualification of process %d: %w", r.ProcessID, err)
	}
	return nil
}

func (s *Store) ListQualificationResults(ctx context.Context, processID int64) ([]domain.QualificationResult, error) {
	var out []domain.QualificationResult
	query := `
		SELECT id, proceso_id, aprobado, distintivo_id, numero_dictamen,
		       COALESCE(observaciones, '') AS observaciones, creado_por, creado_en
		FROM resultados_certificacion
		WHERE proceso_id = $1
		ORDER BY id`
	if err := s.selectContext(ctx, &out, query, processID); err != nil {
		return nil, fmt.Errorf("listing qualifications of process %d: %w", processID, err)
	}
	return out, nil
}
