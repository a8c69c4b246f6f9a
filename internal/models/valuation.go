package models

import (
	"time"
)

// AssetValuation is one held asset's contribution to a portfolio valuation
type AssetValuation struct {
	AssetID         string    `json:"asset_id"`
	Ticker          string    `json:"ticker"`
	Name            string    `json:"name"`
	Type            AssetType `json:"type"`
	Currency        string    `json:"currency"`
	Quantity        float64   `json:"quantity"`
	PriceEur        *float64  `json:"price_eur"`    // nil when no cached price
	PriceNative     *float64  `json:"price_native"` // nil when no cached price
	CostBasisEur    float64   `json:"cost_basis_eur"`
	CostBasisNative float64   `json:"cost_basis_native"`
	ValueEur        float64   `json:"value_eur"` // price × quantity, or cost basis
	UsingCostBasis  bool      `json:"using_cost_basis"`

	// Share of invested value; 0 when nothing is invested
	PercentOfInvested float64 `json:"percent_of_invested"`

	// Reporting-currency units per native unit implied by the ledger
	ImpliedHistoricalFXRate *float64 `json:"implied_historical_fx_rate,omitempty"`
}

// SleeveAllocation is a sleeve's actual allocation against its budget
type SleeveAllocation struct {
	SleeveID      string  `json:"sleeve_id"`
	SleeveName    string  `json:"sleeve_name"`
	ParentID      *string `json:"parent_id"`
	BudgetPercent float64 `json:"budget_percent"`

	DirectAssets   []AssetValuation `json:"direct_assets"`
	DirectValueEur float64          `json:"direct_value_eur"`

	// Direct value plus every non-cash descendant
	TotalValueEur float64 `json:"total_value_eur"`

	ActualPercentInvested float64 `json:"actual_percent_invested"`
	ActualPercentTotal    float64 `json:"actual_percent_total"`

	Band         Band             `json:"band"`
	Status       AllocationStatus `json:"status"`
	DeltaPercent float64          `json:"delta_percent"`
}

// ConcentrationViolation flags an asset above a concentration limit
type ConcentrationViolation struct {
	RuleID        string    `json:"rule_id"`
	RuleName      string    `json:"rule_name"`
	AssetID       string    `json:"asset_id"`
	AssetName     string    `json:"asset_name"`
	AssetTicker   string    `json:"asset_ticker"`
	AssetType     AssetType `json:"asset_type"`
	ActualPercent float64   `json:"actual_percent"`
	MaxPercent    float64   `json:"max_percent"`
}

// MissingSymbolAsset is a held asset with no market-data symbol
type MissingSymbolAsset struct {
	AssetID string `json:"asset_id"`
	Ticker  string `json:"ticker"`
	Name    string `json:"name"`
}

// StalePriceAsset is a held asset whose cached price is older than the threshold
type StalePriceAsset struct {
	AssetID       string    `json:"asset_id"`
	Ticker        string    `json:"ticker"`
	Name          string    `json:"name"`
	LastFetchedAt time.Time `json:"last_fetched_at"`
	HoursStale    int       `json:"hours_stale"`
}

// PortfolioValuation is a point-in-time valuation with band compliance
type PortfolioValuation struct {
	PortfolioID   string `json:"portfolio_id"`
	PortfolioName string `json:"portfolio_name"`

	CashEur                  float64 `json:"cash_eur"`
	TotalHoldingsValueEur    float64 `json:"total_holdings_value_eur"`
	AssignedHoldingsValueEur float64 `json:"assigned_holdings_value_eur"`
	UnassignedValueEur       float64 `json:"unassigned_value_eur"`
	InvestedValueEur         float64 `json:"invested_value_eur"` // 100% of the invested view
	TotalValueEur            float64 `json:"total_value_eur"`    // 100% of the total view
	TotalCostBasisEur        float64 `json:"total_cost_basis_eur"`

	Sleeves          []SleeveAllocation `json:"sleeves"`
	Assets           []AssetValuation   `json:"assets"`
	UnassignedAssets []AssetValuation   `json:"unassigned_assets"`
	BandConfig       BandConfig         `json:"band_config"`

	ViolationCount int  `json:"violation_count"` // sleeves outside their band
	HasAllPrices   bool `json:"has_all_prices"`

	MissingSymbolAssets      []MissingSymbolAsset `json:"missing_symbol_assets"`
	StalePriceAssets         []StalePriceAsset    `json:"stale_price_assets"`
	StalePriceThresholdHours int                  `json:"stale_price_threshold_hours"`

	ConcentrationViolations     []ConcentrationViolation `json:"concentration_violations"`
	ConcentrationViolationCount int                      `json:"concentration_violation_count"`
	TotalViolationCount         int                      `json:"total_violation_count"`

	LastSyncAt *time.Time `json:"last_sync_at"` // nil when the price cache is empty
}
