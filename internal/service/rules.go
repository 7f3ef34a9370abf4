// Package service provides the business logic layer (use cases): the
// questionnaire tree builder, the response ledger, compliance scoring and the
// certification process state machine.
package service

import (
	"time"

	"github.com/boddenberg/certificacion-calidad-go/internal/config"
	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
)

// Rules are the configurable constants of the certification rulebook.
type Rules struct {
	// Modules with an id at or above this value are biosecurity modules:
	// tracked, reported as "-", never scored.
	BiosecurityModuleFrom      int64
	ExpirationAlertMonths      int
	CertificationValidityYears int
	DefaultLanguage            domain.Language

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// DefaultRules returns the rulebook used when nothing is configured.
func DefaultRules() Rules {
	return Rules{
		BiosecurityModuleFrom:      11,
		ExpirationAlertMonths:      6,
		CertificationValidityYears: 2,
		DefaultLanguage:            domain.LanguageES,
	}
}

// RulesFromConfig maps the environment configuration onto the rulebook.
func RulesFromConfig(cfg *config.Config) Rules {
	r := DefaultRules()
	if cfg.BiosecurityModuleFrom > 0 {
		r.BiosecurityModuleFrom = cfg.BiosecurityModuleFrom
	}
	if cfg.ExpirationAlertMonths > 0 {
		r.ExpirationAlertMonths = cfg.ExpirationAlertMonths
	}
	if cfg.CertificationValidityYears > 0 {
		r.CertificationValidityYears = cfg.CertificationValidityYears
	}
	if lang, err := domain.ParseLanguage(cfg.DefaultLanguage, domain.LanguageES); err == nil {
		r.DefaultLanguage = lang
	}
	return r
}

// IsBiosecurity reports whether a module is excluded from badge scoring.
func (r Rules) IsBiosecurity(moduleID int64) bool {
	return moduleID >= r.BiosecurityModuleFrom
}

func (r Rules) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
