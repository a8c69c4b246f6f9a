package returns

import (
	"sort"
	"time"

	"github.com/bobmcallan/folio/internal/common"
)

// CalculateTWR computes the time-weighted return between start and end by
// splitting the window at every flow date and chaining the sub-period returns.
// valueAt returns the end-of-day portfolio value on a date. Flows on the same
// day are netted. Returns the return as a fraction and the flow count.
func CalculateTWR(start, end time.Time, flows []CashFlow, valueAt func(time.Time) float64) (float64, int) {
	inWindow := FlowsInWindow(flows, start, end)
	start, end = common.Day(start), common.Day(end)

	if len(inWindow) == 0 {
		startValue := valueAt(start)
		if startValue <= 0 {
			return 0, 0
		}
		return (valueAt(end) - startValue) / startValue, 0
	}

	byDate := make(map[time.Time]float64)
	for _, f := range inWindow {
		byDate[common.Day(f.Date)] += f.Amount
	}
	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	product := 1.0
	subStart := start
	subStartValue := valueAt(start)

	for _, d := range dates {
		dayBefore := d.AddDate(0, 0, -1)
		valueBefore := subStartValue
		if !dayBefore.Before(subStart) {
			valueBefore = valueAt(dayBefore)
		}

		if subStartValue > 0 {
			product *= 1 + (valueBefore-subStartValue)/subStartValue
		}

		subStartValue = valueBefore + byDate[d]
		subStart = d
	}

	if subStartValue > 0 {
		product *= 1 + (valueAt(end)-subStartValue)/subStartValue
	}

	return product - 1, len(inWindow)
}
