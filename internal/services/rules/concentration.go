// Package rules evaluates user-defined portfolio constraints
package rules

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bobmcallan/folio/internal/models"
)

// EvaluateConcentration flags every asset whose share of invested value
// exceeds an enabled concentration limit. Callers pass assigned assets only.
// An asset breaching several rules yields one violation per rule.
func EvaluateConcentration(rules []models.Rule, assets []models.AssetValuation) []models.ConcentrationViolation {
	var violations []models.ConcentrationViolation

	for i := range rules {
		r := &rules[i]
		if !r.Enabled || r.Type != models.RuleTypeConcentrationLimit {
			continue
		}

		cfg := r.Concentration
		for _, a := range assets {
			if !matchesAssetType(a.Type, cfg.AssetTypes) {
				continue
			}
			if a.PercentOfInvested <= cfg.MaxPercent {
				continue
			}
			violations = append(violations, models.ConcentrationViolation{
				RuleID:        r.ID,
				RuleName:      r.Name,
				AssetID:       a.AssetID,
				AssetName:     a.Name,
				AssetTicker:   a.Ticker,
				AssetType:     a.Type,
				ActualPercent: a.PercentOfInvested,
				MaxPercent:    cfg.MaxPercent,
			})
		}
	}

	return violations
}

func matchesAssetType(t models.AssetType, filter []models.AssetType) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if strings.EqualFold(string(f), string(t)) {
			return true
		}
	}
	return false
}

// ParseRuleConfig decodes a stored concentration-limit config
func ParseRuleConfig(raw []byte) (models.ConcentrationLimitConfig, error) {
	var cfg models.ConcentrationLimitConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid concentration limit config: %w", err)
	}
	if cfg.MaxPercent <= 0 || cfg.MaxPercent > 100 {
		return cfg, fmt.Errorf("invalid concentration limit config: max_percent %.2f out of range (0, 100]", cfg.MaxPercent)
	}
	return cfg, nil
}

// Describe renders a violation for display, e.g.
// "ACME is 25.0% of invested value (limit 20.0%, rule Single stock cap)".
func Describe(v models.ConcentrationViolation) string {
	label := v.AssetTicker
	if label == "" {
		label = v.AssetName
	}
	return fmt.Sprintf("%s is %.1f%% of invested value (limit %.1f%%, rule %s)", label, v.ActualPercent, v.MaxPercent, v.RuleName)
}
