package domain

import (
	"fmt"
	"time"
)

// AnswerResult is the recorded outcome for one question.
type AnswerResult int

const (
	AnswerNonCompliant  AnswerResult = -1
	AnswerUnanswered    AnswerResult = 0
	AnswerCompliant     AnswerResult = 1
	AnswerNotApplicable AnswerResult = 2
)

// ParseAnswerResult validates a raw result value.
func ParseAnswerResult(v int) (AnswerResult, error) {
	switch r := AnswerResult(v); r {
	case AnswerNonCompliant, AnswerUnanswered, AnswerCompliant, AnswerNotApplicable:
		return r, nil
	default:
		return 0, &ErrValidation{Field: "result", Message: fmt.Sprintf("result must be one of -1, 0, 1, 2 (got %d)", v)}
	}
}

// Questionnaire (Cuestionario) is one run of the questionnaire for a process.
// Draft questionnaires are the advisor's self-assessment; official ones are the audit.
type Questionnaire struct {
	ID                  int64  `json:"id" db:"id"`
	ProcessID           *int64 `json:"processId,omitempty" db:"proceso_id"`
	CompanyID           int64  `json:"companyId" db:"empresa_id"`
	TypologyID          int64  `json:"typologyId" db:"tipologia_id"`
	AdvisorID           *int64 `json:"advisorId,omitempty" db:"asesor_id"`
	AuditorID           *int64 `json:"auditorId,omitempty" db:"auditor_id"`
	CountryTechnicianID *int64 `json:"countryTechnicianId,omitempty" db:"tecnico_pais_id"`
	Draft               bool   `json:"prueba" db:"prueba"`

	StartedAt         time.Time  `json:"startedAt" db:"fecha_inicio"`
	GeneratedAt       *time.Time `json:"generatedAt,omitempty" db:"fecha_generacion"`
	FinishedAt        *time.Time `json:"finishedAt,omitempty" db:"fecha_finalizado"`
	AuditorReviewedAt *time.Time `json:"auditorReviewedAt,omitempty" db:"fecha_revisado_auditor"`

	Result int `json:"resultado" db:"resultado"`
}

// IsFinished reports whether the questionnaire has been closed.
func (q *Questionnaire) IsFinished() bool {
	return q.FinishedAt != nil
}

// QuestionnaireItem (CuestionarioItem) is the answer to one question. The
// nomenclature, mandatory flag and text are a snapshot taken on first answer.
type QuestionnaireItem struct {
	ID              int64        `json:"id" db:"id"`
	QuestionnaireID int64        `json:"questionnaireId" db:"cuestionario_id"`
	QuestionID      int64        `json:"questionId" db:"pregunta_id"`
	ModuleID        int64        `json:"moduleId" db:"modulo_id"`
	Nomenclature    string       `json:"nomenclature" db:"nomenclatura"`
	Mandatory       bool         `json:"obligatoria" db:"obligatoria"`
	Text            string       `json:"text" db:"texto"`
	Result          AnswerResult `json:"resultado" db:"resultado"`
	UpdatedOn       time.Time    `json:"updatedOn" db:"fecha_actualizado"`
	AnsweredBy      int64        `json:"answeredBy" db:"usuario_id"`
}

// Observation is a free-text note attached to an item. The latest one wins on read.
type Observation struct {
	ID        int64     `json:"id" db:"id"`
	ItemID    int64     `json:"itemId" db:"cuestionario_item_id"`
	Text      string    `json:"text" db:"observacion"`
	UserID    int64     `json:"userId" db:"usuario_id"`
	CreatedAt time.Time `json:"createdAt" db:"fecha"`
}

// ItemFile is the association between an item and an evidence file kept by the FileStore.
type ItemFile struct {
	ID           int64     `json:"id" db:"id"`
	ItemID       int64     `json:"itemId" db:"cuestionario_item_id"`
	Path         string    `json:"path" db:"ruta"`
	OriginalName string    `json:"originalName" db:"nombre"`
	Size         int64     `json:"size" db:"peso"`
	UploadedBy   int64     `json:"uploadedBy" db:"usuario_id"`
	UploadedAt   time.Time `json:"uploadedAt" db:"fecha"`
}

// UploadedFile is an incoming evidence file before it is stored.
type UploadedFile struct {
	Name    string
	Content []byte
}

// ProgressPoint is one day of the answering history of a questionnaire.
type ProgressPoint struct {
	Day        string `json:"day"`
	Answered   int    `json:"answered"`
	Cumulative int    `json:"cumulative"`
}

// DateOnly truncates t to its calendar day in t's location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
