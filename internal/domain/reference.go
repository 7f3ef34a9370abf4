package domain

// Reference data for the questionnaire hierarchy. A nil TypologyID means the
// node applies to every typology.

// Module (Modulo) is the top level of the questionnaire.
type Module struct {
	ID         int64         `json:"id" yaml:"id" db:"id"`
	Name       LocalizedText `json:"name" yaml:"name" db:"-"`
	Order      int           `json:"order" yaml:"order" db:"orden"`
	TypologyID *int64        `json:"typologyId,omitempty" yaml:"typologyId" db:"tipologia_id"`
}

// Section (Seccion) groups subtitles and questions inside a module.
type Section struct {
	ID         int64         `json:"id" yaml:"id" db:"id"`
	ModuleID   int64         `json:"moduleId" yaml:"moduleId" db:"modulo_id"`
	Name       LocalizedText `json:"name" yaml:"name" db:"-"`
	Order      int           `json:"order" yaml:"order" db:"orden"`
	TypologyID *int64        `json:"typologyId,omitempty" yaml:"typologyId" db:"tipologia_id"`
}

// Subtitle (Subtitulo) is an optional heading inside a section.
type Subtitle struct {
	ID         int64         `json:"id" yaml:"id" db:"id"`
	SectionID  int64         `json:"sectionId" yaml:"sectionId" db:"seccion_id"`
	Name       LocalizedText `json:"name" yaml:"name" db:"-"`
	Order      int           `json:"order" yaml:"order" db:"orden"`
	TypologyID *int64        `json:"typologyId,omitempty" yaml:"typologyId" db:"tipologia_id"`
}

// Question (Pregunta) is a leaf of the hierarchy. Order is stored as text
// and must parse as a number.
type Question struct {
	ID                  int64         `json:"id" yaml:"id" db:"id"`
	SectionID           int64         `json:"sectionId" yaml:"sectionId" db:"seccion_id"`
	SubtitleID          *int64        `json:"subtitleId,omitempty" yaml:"subtitleId" db:"subtitulo_id"`
	Text                LocalizedText `json:"text" yaml:"text" db:"-"`
	Nomenclature        string        `json:"nomenclature" yaml:"nomenclature" db:"nomenclatura"`
	Order               string        `json:"order" yaml:"order" db:"orden"`
	Mandatory           bool          `json:"obligatoria" yaml:"mandatory" db:"obligatoria"`
	AllowsNotApplicable bool          `json:"noAplica" yaml:"allowsNotApplicable" db:"no_aplica"`
	TypologyID          *int64        `json:"typologyId,omitempty" yaml:"typologyId" db:"tipologia_id"`
}

// AppliesTo is the typology scoping rule shared by every hierarchy level.
func AppliesTo(scope *int64, typologyID int64) bool {
	return scope == nil || *scope == typologyID
}

// QuestionnaireHierarchy is the raw reference data a tree is assembled from.
type QuestionnaireHierarchy struct {
	Modules   []Module
	Sections  []Section
	Subtitles []Subtitle
	Questions []Question
}

// Tree item discriminators.
const (
	NodeSection  = "seccion"
	NodeSubtitle = "subtitulo"
	NodeQuestion = "pregunta"
)

// TreeItem is one row of a module's flattened item list.
type TreeItem struct {
	Type                string `json:"type"`
	ID                  int64  `json:"id"`
	Text                string `json:"text"`
	Nomenclature        string `json:"nomenclature,omitempty"`
	Mandatory           bool   `json:"obligatoria,omitempty"`
	AllowsNotApplicable bool   `json:"noAplica,omitempty"`
	SectionID           int64  `json:"sectionId,omitempty"`
	SubtitleID          *int64 `json:"subtitleId,omitempty"`
}

// ModuleTree is a module with its ordered items.
type ModuleTree struct {
	ID    int64      `json:"id"`
	Name  string     `json:"name"`
	Order int        `json:"order"`
	Items []TreeItem `json:"items"`
}

// Questions returns the question leaves of the module in tree order.
func (m *ModuleTree) Questions() []TreeItem {
	out := make([]TreeItem, 0, len(m.Items))
	for _, it := range m.Items {
		if it.Type == NodeQuestion {
			out = append(out, it)
		}
	}
	return out
}

// QuestionnaireTree is the assembled tree for a typology and language.
type QuestionnaireTree struct {
	TypologyID  int64        `json:"typologyId"`
	Language    Language     `json:"language"`
	Biosecurity bool         `json:"biosecurity"`
	Modules     []ModuleTree `json:"modules"`
}

// Typology (Tipologia) is a company category that scopes the questionnaire.
type Typology struct {
	ID   int64         `json:"id" yaml:"id"`
	Name LocalizedText `json:"name" yaml:"name"`
}
