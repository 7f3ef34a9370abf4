package domain

import "time"

// Company (Empresa) is the certified establishment.
type Company struct {
	ID          int64   `json:"id" db:"id"`
	Name        string  `json:"name" db:"nombre"`
	CountryID   int64   `json:"countryId" db:"pais_id"`
	TypologyIDs []int64 `json:"typologyIds" db:"-"`

	// Status mirrors the furthest lifecycle position reached. It never decreases.
	Status ProcessStatus `json:"status" db:"estado"`

	SuggestedResult  string `json:"suggestedResult" db:"resultado_sugerido"`
	CurrentResult    string `json:"currentResult" db:"resultado_actual"`
	ExpirationResult string `json:"expirationResult" db:"resultado_vencimiento"`

	// AutoNotificationDate is the pending automatic-notification date, cleared when a new process begins.
	AutoNotificationDate *time.Time `json:"autoNotificationDate,omitempty" db:"fecha_auto_notificacion"`
}

// CertificationProcess (ProcesoCertificacion) is one certification cycle of a company.
type CertificationProcess struct {
	ID              int64         `json:"id" db:"id"`
	CompanyID       int64         `json:"companyId" db:"empresa_id"`
	AdvisorID       *int64        `json:"advisorId,omitempty" db:"asesor_id"`
	AuditorID       *int64        `json:"auditorId,omitempty" db:"auditor_id"`
	GeneratorUserID int64         `json:"generatorUserId" db:"usuario_generador_id"`
	TypologyID      *int64        `json:"typologyId,omitempty" db:"tipologia_id"`
	Status          ProcessStatus `json:"status" db:"estado"`
	CaseNumber      string        `json:"caseNumber" db:"numero_expediente"`

	StartedAt        time.Time  `json:"startedAt" db:"fecha_inicio"`
	FinishedAt       *time.Time `json:"finishedAt,omitempty" db:"fecha_finalizacion"`
	AuditRequestedAt *time.Time `json:"auditRequestedAt,omitempty" db:"fecha_solicitud_auditoria"`
	AuditScheduledAt *time.Time `json:"auditScheduledAt,omitempty" db:"fecha_fijada_auditoria"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty" db:"fecha_vencimiento"`

	Recertification bool `json:"recertification" db:"recertificacion"`
	Enabled         bool `json:"enabled" db:"enabled"`

	CreatedBy int64     `json:"createdBy" db:"creado_por"`
	CreatedAt time.Time `json:"createdAt" db:"creado_en"`
	UpdatedBy *int64    `json:"updatedBy,omitempty" db:"actualizado_por"`
	UpdatedAt time.Time `json:"updatedAt" db:"actualizado_en"`
}

// IsOpen reports whether the process is the company's active cycle.
func (p *CertificationProcess) IsOpen() bool {
	return p.FinishedAt == nil
}

// Advance moves the process forward. It returns false when to would regress the status.
func (p *CertificationProcess) Advance(to ProcessStatus) bool {
	if to < p.Status {
		return false
	}
	p.Status = to
	return true
}

// RollBack sets an earlier status. Only the reopening hook uses it.
func (p *CertificationProcess) RollBack(to ProcessStatus) {
	if to < p.Status {
		p.Status = to
	}
}

// QualificationResult (ResultadoCertificacion) is the final decision recorded for a process.
type QualificationResult struct {
	ID             int64     `json:"id" db:"id"`
	ProcessID      int64     `json:"processId" db:"proceso_id"`
	Approved       bool      `json:"approved" db:"aprobado"`
	BadgeID        *int64    `json:"badgeId,omitempty" db:"distintivo_id"`
	DictamenNumber string    `json:"dictamenNumber" db:"numero_dictamen"`
	Observations   string    `json:"observations" db:"observaciones"`
	CreatedBy      int64     `json:"createdBy" db:"creado_por"`
	CreatedAt      time.Time `json:"createdAt" db:"creado_en"`
}

// User is the authenticated actor of an operation.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// CurrentCertification is the dashboard view of a company's certification.
type CurrentCertification struct {
	Process          *CertificationProcess `json:"process"`
	StatusLabel      string                `json:"statusLabel"`
	ExpirationAlert  bool                  `json:"alertaVencimiento"`
	CurrentResult    string                `json:"currentResult"`
	SuggestedResult  string                `json:"suggestedResult"`
	NotificationSent bool                  `json:"notificationSent"`
}
