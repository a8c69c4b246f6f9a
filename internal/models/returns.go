package models

// ReturnPeriod names a historical comparison window
type ReturnPeriod string

const (
	PeriodToday    ReturnPeriod = "today"
	PeriodWeek     ReturnPeriod = "1w"
	PeriodMonth    ReturnPeriod = "1m"
	PeriodSixMonth ReturnPeriod = "6m"
	PeriodYTD      ReturnPeriod = "ytd"
	PeriodYear     ReturnPeriod = "1y"
	PeriodAll      ReturnPeriod = "all"
)

// ReturnPeriods lists every window in display order
var ReturnPeriods = []ReturnPeriod{
	PeriodToday, PeriodWeek, PeriodMonth, PeriodSixMonth, PeriodYTD, PeriodYear, PeriodAll,
}

// PeriodReturn is the portfolio money-weighted return over one window.
// Percentages are expressed as percent (12.5 = 12.5%).
type PeriodReturn struct {
	Period         ReturnPeriod `json:"period"`
	ComparisonDate string       `json:"comparison_date"`
	CurrentValue   float64      `json:"current_value"`
	StartValue     float64      `json:"start_value"`
	AbsoluteReturn float64      `json:"absolute_return"` // current − start − net cash flow

	CompoundedReturnPct   float64 `json:"compounded_return_pct"`
	AnnualizedReturnPct   float64 `json:"annualized_return_pct"`
	TimeWeightedReturnPct float64 `json:"time_weighted_return_pct"`
	PeriodYears           float64 `json:"period_years"`

	NetCashFlow   float64 `json:"net_cash_flow"`
	CashFlowCount int     `json:"cash_flow_count"`
}

// AssetPeriodReturn is one held asset's return over a window.
// Nil fields mean the figure could not be computed (no price).
type AssetPeriodReturn struct {
	AssetID         string   `json:"asset_id"`
	Ticker          string   `json:"ticker"`
	CurrentPrice    *float64 `json:"current_price"`
	HistoricalPrice *float64 `json:"historical_price"`
	StartValue      *float64 `json:"start_value"`
	CurrentValue    *float64 `json:"current_value"`

	AbsoluteReturn      *float64 `json:"absolute_return"`
	CompoundedReturnPct *float64 `json:"compounded_return_pct"`
	AnnualizedReturnPct *float64 `json:"annualized_return_pct"`
	PeriodYears         *float64 `json:"period_years"`
	CashFlowCount       int      `json:"cash_flow_count"`

	// Set when the asset was first bought after the comparison date
	IsShortHolding     bool   `json:"is_short_holding"`
	EffectiveStartDate string `json:"effective_start_date"`
	HoldingPeriodLabel string `json:"holding_period_label,omitempty"`
}

// HistoricalReturns holds returns for every window that has a meaningful start value
type HistoricalReturns struct {
	CurrentValue float64                                       `json:"current_value"`
	Returns      map[ReturnPeriod]PeriodReturn                 `json:"returns"`
	AssetReturns map[ReturnPeriod]map[string]AssetPeriodReturn `json:"asset_returns"`
}

// ChartRange names a chart window
type ChartRange string

const (
	ChartRangeMonth     ChartRange = "1m"
	ChartRangeQuarter   ChartRange = "3m"
	ChartRangeSixMonth  ChartRange = "6m"
	ChartRangeYear      ChartRange = "1y"
	ChartRangeInception ChartRange = "all"
	DefaultChartRange              = ChartRangeSixMonth
)

// ChartDataPoint is the portfolio value and cost basis on one date
type ChartDataPoint struct {
	Date          string  `json:"date"` // YYYY-MM-DD
	InvestedValue float64 `json:"invested_value"`
	CostBasis     float64 `json:"cost_basis"`
}

// ChartData is the value time series for a chart window
type ChartData struct {
	Range      ChartRange       `json:"range"`
	DataPoints []ChartDataPoint `json:"data_points"`
	HasData    bool             `json:"has_data"`
}
