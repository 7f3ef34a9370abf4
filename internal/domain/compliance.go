package domain

// Badge (Distintivo) is a certification tier. Higher Importance is better.
type Badge struct {
	ID         int64         `json:"id" yaml:"id" db:"id"`
	Name       LocalizedText `json:"name" yaml:"name" db:"-"`
	Importance int           `json:"importancia" yaml:"importance" db:"importancia"`
	Active     bool          `json:"active" yaml:"active" db:"activo"`
}

// ComplianceThreshold (Cumplimiento) maps a complementary-percentage range of a
// module to a badge. A row matches when Min < pct <= Max.
type ComplianceThreshold struct {
	ID         int64  `json:"id" yaml:"id" db:"id"`
	ModuleID   int64  `json:"moduleId" yaml:"moduleId" db:"modulo_id"`
	TypologyID *int64 `json:"typologyId,omitempty" yaml:"typologyId" db:"tipologia_id"`
	Min        int    `json:"min" yaml:"min" db:"porcentaje_min"`
	Max        int    `json:"max" yaml:"max" db:"porcentaje_max"`
	BadgeID    int64  `json:"badgeId" yaml:"badgeId" db:"distintivo_id"`
}

// Matches reports whether pct falls in the (Min, Max] range.
func (t ComplianceThreshold) Matches(pct int) bool {
	return t.Min < pct && pct <= t.Max
}

// ModuleResult is the compliance outcome of one module.
type ModuleResult struct {
	ModuleID               int64  `json:"moduleId"`
	ModuleName             string `json:"moduleName"`
	TotalMandatory         int    `json:"totalObligatorias"`
	MandatorySatisfied     int    `json:"obligatoriasCumplidas"`
	TotalComplementary     int    `json:"totalComplementarias"`
	ComplementarySatisfied int    `json:"complementariasCumplidas"`
	PctMandatory           int    `json:"porcentajeObligatorias"`
	PctComplementary       int    `json:"porcentajeComplementarias"`
	Result                 string `json:"resultado"`
	BadgeID                *int64 `json:"badgeId,omitempty"`
	Biosecurity            bool   `json:"bioseguridad"`
}

// ScoredQuestion is the input of the compliance computation: a question of
// the module together with its recorded answer (unanswered when absent).
type ScoredQuestion struct {
	QuestionID int64
	Mandatory  bool
	Result     AnswerResult
}
