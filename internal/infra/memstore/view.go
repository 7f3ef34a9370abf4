package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
)

// =============================================================================
// Companies
// =============================================================================

func (v *view) GetCompany(_ context.Context, companyID int64) (*domain.Company, error) {
	c, ok := v.t.companies[companyID]
	if !ok {
		return nil, domain.NotFound("company", companyID)
	}
	c.TypologyIDs = append([]int64(nil), c.TypologyIDs...)
	return &c, nil
}

func (v *view) updateCompany(companyID int64, fn func(c *domain.Company)) error {
	c, ok := v.t.companies[companyID]
	if !ok {
		return domain.NotFound("company", companyID)
	}
	fn(&c)
	v.t.companies[companyID] = c
	return nil
}

func (v *view) RaiseCompanyStatus(_ context.Context, companyID int64, status domain.ProcessStatus) error {
	return v.updateCompany(companyID, func(c *domain.Company) {
		c.Status = domain.MaxStatus(c.Status, status)
	})
}

func (v *view) SetSuggestedResult(_ context.Context, companyID int64, result string) error {
	return v.updateCompany(companyID, func(c *domain.Company) { c.SuggestedResult = result })
}

func (v *view) SetCurrentResult(_ context.Context, companyID int64, result string) error {
	return v.updateCompany(companyID, func(c *domain.Company) { c.CurrentResult = result })
}

func (v *view) ClearAutoNotificationDate(_ context.Context, companyID int64) error {
	return v.updateCompany(companyID, func(c *domain.Company) { c.AutoNotificationDate = nil })
}

// =============================================================================
// Processes
// =============================================================================

func (v *view) CreateProcess(_ context.Context, p *domain.CertificationProcess) error {
	if _, ok := v.t.companies[p.CompanyID]; !ok {
		return domain.NotFound("company", p.CompanyID)
	}
	p.ID = v.t.nextID()
	v.t.processes[p.ID] = *p
	return nil
}

func (v *view) GetProcess(_ context.Context, processID int64) (*domain.CertificationProcess, error) {
	p, ok := v.t.processes[processID]
	if !ok {
		return nil, domain.NotFound("certification process", processID)
	}
	return &p, nil
}

func (v *view) GetOpenProcess(_ context.Context, companyID int64) (*domain.CertificationProcess, error) {
	var open *domain.CertificationProcess
	for _, p := range v.t.processes {
		if p.CompanyID == companyID && p.IsOpen() && (open == nil || p.ID > open.ID) {
			p := p
			open = &p
		}
	}
	if open == nil {
		return nil, domain.NotFound("open certification process of company", companyID)
	}
	return open, nil
}

func (v *view) ListProcessesByCompany(_ context.Context, companyID int64) ([]domain.CertificationProcess, error) {
	return sortedByID(v.t.processes, func(p domain.CertificationProcess) bool {
		return p.CompanyID == companyID
	}), nil
}

func (v *view) UpdateProcess(_ context.Context, p *domain.CertificationProcess) error {
	if _, ok := v.t.processes[p.ID]; !ok {
		return domain.NotFound("certification process", p.ID)
	}
	v.t.processes[p.ID] = *p
	return nil
}

func (v *view) AddQualificationResult(_ context.Context, r *domain.QualificationResult) error {
	if _, ok := v.t.processes[r.ProcessID]; !ok {
		return domain.NotFound("certification process", r.ProcessID)
	}
	r.ID = v.t.nextID()
	v.t.results[r.ID] = *r
	return nil
}

func (v *view) ListQualificationResults(_ context.Context, processID int64) ([]domain.QualificationResult, error) {
	return sortedByID(v.t.results, func(r domain.QualificationResult) bool {
		return r.ProcessID == processID
	}), nil
}

// =============================================================================
// Questionnaires and items
// =============================================================================

func (v *view) CreateQuestionnaire(_ context.Context, q *domain.Questionnaire) error {
	q.ID = v.t.nextID()
	v.t.questionnaires[q.ID] = *q
	return nil
}

func (v *view) GetQuestionnaire(_ context.Context, questionnaireID int64) (*domain.Questionnaire, error) {
	q, ok := v.t.questionnaires[questionnaireID]
	if !ok {
		return nil, domain.NotFound("questionnaire", questionnaireID)
	}
	return &q, nil
}

func (v *view) ListQuestionnairesByProcess(_ context.Context, processID int64) ([]domain.Questionnaire, error) {
	return sortedByID(v.t.questionnaires, func(q domain.Questionnaire) bool {
		return q.ProcessID != nil && *q.ProcessID == processID
	}), nil
}

func (v *view) UpdateQuestionnaire(_ context.Context, q *domain.Questionnaire) error {
	if _, ok := v.t.questionnaires[q.ID]; !ok {
		return domain.NotFound("questionnaire", q.ID)
	}
	v.t.questionnaires[q.ID] = *q
	return nil
}

func (v *view) GetItem(_ context.Context, questionnaireID, questionID int64) (*domain.QuestionnaireItem, error) {
	for _, it := range v.t.items {
		if it.QuestionnaireID == questionnaireID && it.QuestionID == questionID {
			return &it, nil
		}
	}
	return nil, domain.NotFound("questionnaire item for question", questionID)
}

func (v *view) GetItemByID(_ context.Context, itemID int64) (*domain.QuestionnaireItem, error) {
	it, ok := v.t.items[itemID]
	if !ok {
		return nil, domain.NotFound("questionnaire item", itemID)
	}
	return &it, nil
}

func (v *view) CreateItem(_ context.Context, item *domain.QuestionnaireItem) error {
	if _, ok := v.t.questionnaires[item.QuestionnaireID]; !ok {
		return domain.NotFound("questionnaire", item.QuestionnaireID)
	}
	item.ID = v.t.nextID()
	v.t.items[item.ID] = *item
	return nil
}

func (v *view) UpdateItemResult(_ context.Context, itemID int64, result domain.AnswerResult, updatedOn time.Time, userID int64) error {
	it, ok := v.t.items[itemID]
	if !ok {
		return domain.NotFound("questionnaire item", itemID)
	}
	it.Result = result
	it.UpdatedOn = updatedOn
	it.AnsweredBy = userID
	v.t.items[itemID] = it
	return nil
}

func (v *view) ListItems(_ context.Context, questionnaireID int64) ([]domain.QuestionnaireItem, error) {
	return sortedByID(v.t.items, func(it domain.QuestionnaireItem) bool {
		return it.QuestionnaireID == questionnaireID
	}), nil
}

// =============================================================================
// Observations and files
// =============================================================================

func (v *view) AddObservation(_ context.Context, obs *domain.Observation) error {
	if _, ok := v.t.items[obs.ItemID]; !ok {
		return domain.NotFound("questionnaire item", obs.ItemID)
	}
	obs.ID = v.t.nextID()
	v.t.observations[obs.ID] = *obs
	return nil
}

// newer orders observations by date, then id.
func newer(a, b domain.Observation) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (v *view) LatestObservation(_ context.Context, itemID int64) (*domain.Observation, error) {
	var latest *domain.Observation
	for _, o := range v.t.observations {
		if o.ItemID == itemID && (latest == nil || newer(o, *latest)) {
			o := o
			latest = &o
		}
	}
	if latest == nil {
		return nil, domain.NotFound("observation of item", itemID)
	}
	return latest, nil
}

func (v *view) LatestObservations(_ context.Context, questionnaireID int64) (map[int64]domain.Observation, error) {
	out := map[int64]domain.Observation{}
	for _, o := range v.t.observations {
		it, ok := v.t.items[o.ItemID]
		if !ok || it.QuestionnaireID != questionnaireID {
			continue
		}
		if cur, seen := out[o.ItemID]; !seen || newer(o, cur) {
			out[o.ItemID] = o
		}
	}
	return out, nil
}

func (v *view) AddItemFiles(_ context.Context, files []domain.ItemFile) error {
	for i := range files {
		if _, ok := v.t.items[files[i].ItemID]; !ok {
			return domain.NotFound("questionnaire item", files[i].ItemID)
		}
		files[i].ID = v.t.nextID()
		v.t.files[files[i].ID] = files[i]
	}
	return nil
}

func (v *view) ListFiles(_ context.Context, questionnaireID int64) (map[int64][]domain.ItemFile, error) {
	out := map[int64][]domain.ItemFile{}
	for _, f := range sortedByID(v.t.files, func(domain.ItemFile) bool { return true }) {
		it, ok := v.t.items[f.ItemID]
		if ok && it.QuestionnaireID == questionnaireID {
			out[f.ItemID] = append(out[f.ItemID], f)
		}
	}
	return out, nil
}

// =============================================================================
// Reference data
// =============================================================================

func (v *view) GetTypology(_ context.Context, typologyID int64) (*domain.Typology, error) {
	t, ok := v.ref.typologies[typologyID]
	if !ok {
		return nil, domain.NotFound("typology", typologyID)
	}
	return &t, nil
}

func (v *view) LoadHierarchy(_ context.Context, typologyID int64) (*domain.QuestionnaireHierarchy, error) {
	return &domain.QuestionnaireHierarchy{
		Modules: sortedByID(v.ref.modules, func(m domain.Module) bool {
			return domain.AppliesTo(m.TypologyID, typologyID)
		}),
		Sections: sortedByID(v.ref.sections, func(s domain.Section) bool {
			return domain.AppliesTo(s.TypologyID, typologyID)
		}),
		Subtitles: sortedByID(v.ref.subtitles, func(s domain.Subtitle) bool {
			return domain.AppliesTo(s.TypologyID, typologyID)
		}),
		Questions: sortedByID(v.ref.questions, func(q domain.Question) bool {
			return domain.AppliesTo(q.TypologyID, typologyID)
		}),
	}, nil
}

func (v *view) GetQuestion(_ context.Context, questionID int64) (*domain.Question, error) {
	q, ok := v.ref.questions[questionID]
	if !ok {
		return nil, domain.NotFound("question", questionID)
	}
	return &q, nil
}

func (v *view) GetSection(_ context.Context, sectionID int64) (*domain.Section, error) {
	s, ok := v.ref.sections[sectionID]
	if !ok {
		return nil, domain.NotFound("section", sectionID)
	}
	return &s, nil
}

func (v *view) ListThresholds(_ context.Context, typologyID int64) ([]domain.ComplianceThreshold, error) {
	out := make([]domain.ComplianceThreshold, 0, len(v.ref.thresholds))
	for _, t := range v.ref.thresholds {
		if domain.AppliesTo(t.TypologyID, typologyID) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if (out[i].TypologyID != nil) != (out[j].TypologyID != nil) {
			return out[i].TypologyID != nil
		}
		if out[i].ModuleID != out[j].ModuleID {
			return out[i].ModuleID < out[j].ModuleID
		}
		return out[i].Min < out[j].Min
	})
	return out, nil
}

func (v *view) ListBadges(_ context.Context) ([]domain.Badge, error) {
	out := sortedByID(v.ref.badges, func(domain.Badge) bool { return true })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance < out[j].Importance })
	return out, nil
}

func (v *view) GetBadge(_ context.Context, badgeID int64) (*domain.Badge, error) {
	b, ok := v.ref.badges[badgeID]
	if !ok {
		return nil, domain.NotFound("badge", badgeID)
	}
	return &b, nil
}
