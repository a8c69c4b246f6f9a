// Package models defines data structures for Folio
package models

// Sleeve is a node in a portfolio's target-allocation forest.
// A nil ParentID marks a root. Cash sleeves are deprecated and excluded from
// every tree computation.
type Sleeve struct {
	ID            string  `json:"id"`
	PortfolioID   string  `json:"portfolio_id"`
	ParentID      *string `json:"parent_id,omitempty"`
	Name          string  `json:"name"`
	BudgetPercent float64 `json:"budget_percent"`
	SortOrder     int     `json:"sort_order"`
	IsCash        bool    `json:"is_cash,omitempty"`
}

// ParentKey returns the parent ID, or "" for roots
func (s Sleeve) ParentKey() string {
	if s.ParentID == nil {
		return ""
	}
	return *s.ParentID
}

// SleeveAssignment maps an asset to a sleeve. An asset has at most one
// sleeve per portfolio.
type SleeveAssignment struct {
	SleeveID string `json:"sleeve_id"`
	AssetID  string `json:"asset_id"`
}

// RuleType identifies the constraint a rule enforces
type RuleType string

const (
	RuleTypeConcentrationLimit RuleType = "concentration_limit"
)

// ConcentrationLimitConfig caps a single asset's share of invested value.
// An empty AssetTypes list applies the limit to every asset.
type ConcentrationLimitConfig struct {
	MaxPercent float64     `json:"max_percent"`
	AssetTypes []AssetType `json:"asset_types,omitempty"`
}

// Rule is a user-defined constraint scoped to a portfolio
type Rule struct {
	ID            string                   `json:"id"`
	PortfolioID   string                   `json:"portfolio_id"`
	Name          string                   `json:"name"`
	Type          RuleType                 `json:"type"`
	Enabled       bool                     `json:"enabled"`
	Concentration ConcentrationLimitConfig `json:"config"`
}

// BandConfig sets the tolerance around sleeve targets.
// RelativeTolerance is a percentage of the target; AbsoluteFloor and
// AbsoluteCap bound the half-width in percentage points.
type BandConfig struct {
	RelativeTolerance float64 `json:"relative_tolerance" toml:"relative_tolerance"`
	AbsoluteFloor     float64 `json:"absolute_floor" toml:"absolute_floor"`
	AbsoluteCap       float64 `json:"absolute_cap" toml:"absolute_cap"`
}

// DefaultBandConfig returns the settings applied at portfolio creation:
// ±20% of target, never narrower than 2pp nor wider than 10pp.
func DefaultBandConfig() BandConfig {
	return BandConfig{RelativeTolerance: 20, AbsoluteFloor: 2, AbsoluteCap: 10}
}

// IsZero reports whether no band settings were provided
func (c BandConfig) IsZero() bool {
	return c.RelativeTolerance == 0 && c.AbsoluteFloor == 0 && c.AbsoluteCap == 0
}

// Band is the acceptable range around a target, in percentage points
type Band struct {
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
	HalfWidth float64 `json:"half_width"`
}

// AllocationStatus reports whether an actual allocation sits inside its band
type AllocationStatus string

const (
	AllocationStatusOK      AllocationStatus = "ok"
	AllocationStatusWarning AllocationStatus = "warning"
)
