package domain

import "strings"

// Language selects which side of the bilingual reference data is rendered.
type Language string

const (
	LanguageES Language = "es"
	LanguageEN Language = "en"
)

// ParseLanguage validates a language code. An empty code yields fallback.
func ParseLanguage(code string, fallback Language) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "":
		return fallback, nil
	case "es":
		return LanguageES, nil
	case "en":
		return LanguageEN, nil
	default:
		return "", &ErrValidation{Field: "lang", Message: "unsupported language code '" + code + "'"}
	}
}

// LocalizedText holds the Spanish and English renditions of a label.
type LocalizedText struct {
	ES string `json:"es" yaml:"es"`
	EN string `json:"en" yaml:"en"`
}

// In returns the text for lang, falling back to Spanish when the English text is empty.
func (t LocalizedText) In(lang Language) string {
	if lang == LanguageEN && t.EN != "" {
		return t.EN
	}
	return t.ES
}

// NotCertified is the localized module/company result used when no badge is reached.
var NotCertified = LocalizedText{ES: "No Certificado", EN: "Not Certified"}

// ExcludedResult marks modules tracked outside badge scoring.
const ExcludedResult = "-"
