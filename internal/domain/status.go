package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Role is the business role of the user acting on a certification.
type Role string

const (
	RoleAsesor      Role = "Asesor"
	RoleAuditor     Role = "Auditor"
	RoleTecnicoPais Role = "TecnicoPais"
	RoleAdmin       Role = "Admin"
)

// ParseRole validates a role claim.
func ParseRole(s string) (Role, error) {
	switch Role(strings.TrimSpace(s)) {
	case RoleAsesor:
		return RoleAsesor, nil
	case RoleAuditor:
		return RoleAuditor, nil
	case RoleTecnicoPais:
		return RoleTecnicoPais, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", &ErrValidation{Field: "role", Message: fmt.Sprintf("unknown role '%s'", s)}
	}
}

// ProcessStatus is the lifecycle position of a certification process. The
// same code is mirrored onto Company.Status.
type ProcessStatus int

const (
	StatusInitial             ProcessStatus = 0
	StatusConsultancyUnderway ProcessStatus = 1
	StatusAdvisoryFinished    ProcessStatus = 3
	StatusAuditingAssigned    ProcessStatus = 4
	StatusAuditingUnderway    ProcessStatus = 5
	StatusAuditingFinished    ProcessStatus = 6
	StatusUnderReview         ProcessStatus = 7
	StatusCompleted           ProcessStatus = 8
)

var statusLabels = map[ProcessStatus]LocalizedText{
	StatusInitial:             {ES: "Inicial", EN: "Initial"},
	StatusConsultancyUnderway: {ES: "Asesoría en curso", EN: "Consultancy underway"},
	StatusAdvisoryFinished:    {ES: "Asesoría finalizada", EN: "Advisory finished"},
	StatusAuditingAssigned:    {ES: "Auditoría asignada", EN: "Auditing assigned"},
	StatusAuditingUnderway:    {ES: "Auditoría en curso", EN: "Auditing underway"},
	StatusAuditingFinished:    {ES: "Auditoría finalizada", EN: "Auditing finished"},
	StatusUnderReview:         {ES: "En revisión", EN: "Under review"},
	StatusCompleted:           {ES: "Finalizado", EN: "Completed"},
}

// Valid reports whether s is a known status code.
func (s ProcessStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label renders the display string "<code> - <text>".
func (s ProcessStatus) Label(lang Language) string {
	text, ok := statusLabels[s]
	if !ok {
		return strconv.Itoa(int(s))
	}
	return fmt.Sprintf("%d - %s", int(s), text.In(lang))
}

func (s ProcessStatus) String() string {
	return s.Label(LanguageES)
}

// ParseLegacyStatus extracts the numeric prefix of a stored display string
// such as "5 - Auditoría en curso". A bare code ("5") is accepted too.
func ParseLegacyStatus(raw string) (ProcessStatus, error) {
	prefix := strings.TrimSpace(raw)
	if i := strings.Index(prefix, "-"); i >= 0 {
		prefix = strings.TrimSpace(prefix[:i])
	}
	code, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, &ErrValidation{Field: "status", Message: fmt.Sprintf("no numeric prefix in '%s'", raw)}
	}
	status := ProcessStatus(code)
	if !status.Valid() {
		return 0, &ErrValidation{Field: "status", Message: fmt.Sprintf("unknown status code %d", code)}
	}
	return status, nil
}

// MaxStatus returns the larger of two statuses.
func MaxStatus(a, b ProcessStatus) ProcessStatus {
	if a > b {
		return a
	}
	return b
}
