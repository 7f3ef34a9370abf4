package service

import (
	"fmt"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
)

// ComplianceEngine scores modules against the threshold table.
type ComplianceEngine struct {
	rules Rules
}

// NewComplianceEngine creates a compliance engine.
func NewComplianceEngine(rules Rules) *ComplianceEngine {
	return &ComplianceEngine{rules: rules}
}

// ModuleScoring is the input of one module computation.
type ModuleScoring struct {
	ModuleID   int64
	ModuleName string
	TypologyID int64
	Questions  []domain.ScoredQuestion
}

// ComputeModuleResult counts the module's answers, derives floor percentages
// and resolves the badge. A module reaches a badge only with every mandatory
// question compliant; a module without mandatory questions passes that gate.
func (e *ComplianceEngine) ComputeModuleResult(in ModuleScoring, thresholds []domain.ComplianceThreshold, badges []domain.Badge, lang domain.Language) (domain.ModuleResult, error) {
	res := domain.ModuleResult{
		ModuleID:   in.ModuleID,
		ModuleName: in.ModuleName,
		Result:     domain.NotCertified.In(lang),
	}

	for _, q := range in.Questions {
		if q.Result == domain.AnswerNotApplicable {
			continue
		}
		if q.Mandatory {
			res.TotalMandatory++
			if q.Result == domain.AnswerCompliant {
				res.MandatorySatisfied++
			}
		} else {
			res.TotalComplementary++
			if q.Result == domain.AnswerCompliant {
				res.ComplementarySatisfied++
			}
		}
	}
	res.PctMandatory = percentage(res.MandatorySatisfied, res.TotalMandatory)
	res.PctComplementary = percentage(res.ComplementarySatisfied, res.TotalComplementary)

	if e.rules.IsBiosecurity(in.ModuleID) {
		res.Biosecurity = true
		res.Result = domain.ExcludedResult
		return res, nil
	}

	if res.MandatorySatisfied != res.TotalMandatory {
		return res, nil
	}

	row, ok := matchThreshold(thresholds, in.ModuleID, in.TypologyID, res.PctComplementary)
	if !ok {
		return res, nil
	}
	badge, ok := findBadge(badges, row.BadgeID)
	if !ok {
		return res, &domain.ErrDataInconsistency{
			Entity: "threshold",
			Detail: fmt.Sprintf("threshold %d of module %d points to unknown badge %d", row.ID, in.ModuleID, row.BadgeID),
		}
	}
	badgeID := badge.ID
	res.BadgeID = &badgeID
	res.Result = badge.Name.In(lang)
	return res, nil
}

// ScoreModules computes the result of every module of the tree. Unanswered
// questions count as answered with result 0. The mandatory flag is taken from
// the item snapshot when one exists.
func (e *ComplianceEngine) ScoreModules(tree *domain.QuestionnaireTree, items []domain.QuestionnaireItem, thresholds []domain.ComplianceThreshold, badges []domain.Badge) ([]domain.ModuleResult, error) {
	byQuestion := make(map[int64]domain.QuestionnaireItem, len(items))
	for _, it := range items {
		byQuestion[it.QuestionID] = it
	}

	out := make([]domain.ModuleResult, 0, len(tree.Modules))
	for i := range tree.Modules {
		m := &tree.Modules[i]
		in := ModuleScoring{ModuleID: m.ID, ModuleName: m.Name, TypologyID: tree.TypologyID}
		for _, leaf := range m.Questions() {
			sq := domain.ScoredQuestion{QuestionID: leaf.ID, Mandatory: leaf.Mandatory, Result: domain.AnswerUnanswered}
			if it, ok := byQuestion[leaf.ID]; ok {
				sq.Mandatory = it.Mandatory
				sq.Result = it.Result
			}
			in.Questions = append(in.Questions, sq)
		}

		res, err := e.ComputeModuleResult(in, thresholds, badges, tree.Language)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func percentage(satisfied, total int) int {
	if total == 0 {
		return 0
	}
	return satisfied * 100 / total
}

// matchThreshold prefers rows scoped to the typology over typology-agnostic rows.
func matchThreshold(rows []domain.ComplianceThreshold, moduleID, typologyID int64, pct int) (domain.ComplianceThreshold, bool) {
	var generic *domain.ComplianceThreshold
	for i := range rows {
		t := rows[i]
		if t.ModuleID != moduleID || !domain.AppliesTo(t.TypologyID, typologyID) || !t.Matches(pct) {
			continue
		}
		if t.TypologyID != nil {
			return t, true
		}
		if generic == nil {
			generic = &rows[i]
		}
	}
	if generic != nil {
		return *generic, true
	}
	return domain.ComplianceThreshold{}, false
}

func findBadge(badges []domain.Badge, id int64) (domain.Badge, bool) {
	for _, b := range badges {
		if b.ID == id {
			return b, true
		}
	}
	return domain.Badge{}, false
}
