package returns

import (
	"math"
	"time"

	"github.com/bobmcallan/folio/internal/common"
)

// MWRResult is a money-weighted return over one window.
// Rates are fractions (0.085 = 8.5%).
type MWRResult struct {
	Annualized    float64
	Compounded    float64
	NetCashFlow   float64
	CashFlowCount int
	PeriodYears   float64
	Solved        bool // false when a closed form or fallback was used
}

// FlowsInWindow returns the flows dated after start and on or before end,
// compared by calendar day
func FlowsInWindow(flows []CashFlow, start, end time.Time) []CashFlow {
	from, to := common.Day(start), common.Day(end)
	var out []CashFlow
	for _, f := range flows {
		d := common.Day(f.Date)
		if d.After(from) && !d.After(to) {
			out = append(out, f)
		}
	}
	return out
}

// CalculateMWR computes the money-weighted return between start and end.
//
// The start value is treated as an investment on the start date, every flow
// in (start, end] as a further investment or withdrawal, and the end value as
// the proceeds on the end date. Windows shorter than a day, empty start values,
// flow-free windows and solver failures are handled in closed form.
func CalculateMWR(start, end time.Time, startValue, endValue float64, flows []CashFlow) MWRResult {
	inWindow := FlowsInWindow(flows, start, end)

	res := MWRResult{
		CashFlowCount: len(inWindow),
		PeriodYears:   common.YearsBetween(common.Day(start), common.Day(end)),
	}
	for _, f := range inWindow {
		res.NetCashFlow += f.Amount
	}

	if res.PeriodYears < 1.0/365 {
		if startValue > 0 {
			simple := (endValue - startValue - res.NetCashFlow) / startValue
			res.Annualized, res.Compounded = simple, simple
		}
		return res
	}

	if startValue <= 0 {
		return res
	}

	if len(inWindow) == 0 {
		simple := (endValue - startValue) / startValue
		res.Compounded = simple
		res.Annualized = annualize(simple, res.PeriodYears)
		return res
	}

	transactions := make([]CashFlow, 0, len(inWindow)+2)
	transactions = append(transactions, CashFlow{Date: common.Day(start), Amount: -startValue})
	for _, f := range inWindow {
		// capital in is money out of the investor's pocket
		transactions = append(transactions, CashFlow{Date: common.Day(f.Date), Amount: -f.Amount})
	}
	transactions = append(transactions, CashFlow{Date: common.Day(end), Amount: endValue})

	if rate, ok := SolveXIRR(transactions); ok {
		res.Annualized = rate
		res.Compounded = math.Pow(1+rate, res.PeriodYears) - 1
		res.Solved = true
		return res
	}

	simple := (endValue - startValue - res.NetCashFlow) / startValue
	res.Compounded = simple
	res.Annualized = annualize(simple, res.PeriodYears)
	return res
}

// annualize converts a total return over years into a yearly rate.
// A total loss of everything or more annualizes to -100%.
func annualize(total, years float64) float64 {
	if years <= 0 {
		return total
	}
	if total <= -1 {
		return -1
	}
	return math.Pow(1+total, 1/years) - 1
}
