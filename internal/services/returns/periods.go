package returns

import (
	"fmt"
	"math"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// ComparisonDate returns the start of the window for period as of now.
// The inception window starts on the first order date, or a year back when
// the ledger is empty.
func ComparisonDate(period models.ReturnPeriod, now time.Time, firstOrder time.Time) time.Time {
	today := common.Day(now)

	switch period {
	case models.PeriodToday:
		return today.AddDate(0, 0, -1)
	case models.PeriodWeek:
		return today.AddDate(0, 0, -7)
	case models.PeriodMonth:
		return today.AddDate(0, 0, -30)
	case models.PeriodSixMonth:
		return today.AddDate(0, -6, 0)
	case models.PeriodYTD:
		return time.Date(today.Year()-1, time.December, 31, 0, 0, 0, 0, time.UTC)
	case models.PeriodYear:
		return today.AddDate(-1, 0, 0)
	case models.PeriodAll:
		if !firstOrder.IsZero() {
			return common.Day(firstOrder)
		}
		return today.AddDate(-1, 0, 0)
	}
	return today
}

// HoldingPeriodLabel renders a holding period for display: "5d", "3w", "4mo", "1.5y"
func HoldingPeriodLabel(years float64) string {
	days := int(math.Round(years * 365.25))
	switch {
	case days < 7:
		return fmt.Sprintf("%dd", days)
	case days < 30:
		return fmt.Sprintf("%dw", int(math.Round(float64(days)/7)))
	case days < 365:
		return fmt.Sprintf("%dmo", int(math.Round(float64(days)/30)))
	}
	return fmt.Sprintf("%.1fy", years)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// pct converts a fraction to a percentage rounded to two decimals
func pct(v float64) float64 {
	return math.Round(v*10000) / 100
}
