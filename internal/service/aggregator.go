package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/boddenberg/certificacion-calidad-go/internal/domain"
)

// SuggestedResultAggregator folds module results into the company-wide
// suggested badge. One "Not Certified" module vetoes everything; otherwise the
// most important badge reached by any scored module wins.
type SuggestedResultAggregator struct {
	rules  Rules
	logger *zap.Logger
}

// NewSuggestedResultAggregator creates an aggregator.
func NewSuggestedResultAggregator(rules Rules, logger *zap.Logger) *SuggestedResultAggregator {
	return &SuggestedResultAggregator{rules: rules, logger: logger}
}

// Aggregate returns the suggested badge name, the localized "Not Certified"
// text, or "-" when no scored module exists. A module result naming no active
// badge is a data inconsistency.
func (a *SuggestedResultAggregator) Aggregate(results []domain.ModuleResult, badges []domain.Badge, lang domain.Language) (string, error) {
	notCertified := domain.NotCertified.In(lang)

	scored := make([]domain.ModuleResult, 0, len(results))
	for _, r := range results {
		if r.Biosecurity || a.rules.IsBiosecurity(r.ModuleID) {
			continue
		}
		if r.Result == notCertified {
			return notCertified, nil
		}
		scored = append(scored, r)
	}
	if len(scored) == 0 {
		return domain.ExcludedResult, nil
	}

	var best *domain.Badge
	for _, r := range scored {
		badge, ok := badgeByName(badges, r.Result, lang)
		if !ok {
			err := &domain.ErrDataInconsistency{
				Entity: "badge",
				Detail: fmt.Sprintf("module %d result %q matches no active badge", r.ModuleID, r.Result),
			}
			a.logger.Error("suggested result aggregation failed",
				zap.Int64("module_id", r.ModuleID),
				zap.String("module_result", r.Result),
				zap.String("lang", string(lang)),
				zap.Error(err),
			)
			return "", err
		}
		if best == nil || badge.Importance > best.Importance {
			b := badge
			best = &b
		}
	}
	return best.Name.In(lang), nil
}

func badgeByName(badges []domain.Badge, name string, lang domain.Language) (domain.Badge, bool) {
	for _, b := range badges {
		if b.Active && b.Name.In(lang) == name {
			return b, true
		}
	}
	return domain.Badge{}, false
}
