package returns

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateMWR_NoFlows(t *testing.T) {
	res := CalculateMWR(date("2023-01-01"), date("2024-01-01"), 1000, 1100, nil)

	assert.InDelta(t, 0.10, res.Compounded, 1e-9)
	assert.InDelta(t, 0.10, res.Annualized, 0.001)
	assert.InDelta(t, 365/365.25, res.PeriodYears, 1e-9)
	assert.Zero(t, res.CashFlowCount)
	assert.False(t, res.Solved)
}

func TestCalculateMWR_WithFlows(t *testing.T) {
	start, end := date("2023-01-01"), date("2024-01-01")
	flows := []CashFlow{
		{Date: date("2022-06-01"), Amount: 999}, // before window
		{Date: start, Amount: 999},              // start day is excluded
		{Date: date("2023-07-02"), Amount: 500},
		{Date: end, Amount: -100}, // end day is included
		{Date: date("2024-02-01"), Amount: 999},
	}

	res := CalculateMWR(start, end, 1000, 1550, flows)
	require.True(t, res.Solved)
	assert.Equal(t, 2, res.CashFlowCount)
	assert.InDelta(t, 400.0, res.NetCashFlow, 1e-9)
	assert.InDelta(t, math.Pow(1+res.Annualized, res.PeriodYears)-1, res.Compounded, 1e-12)

	// the solved rate zeroes the NPV of the investor's transactions
	tx := []CashFlow{
		{Date: start, Amount: -1000},
		{Date: date("2023-07-02"), Amount: -500},
		{Date: end, Amount: 100},
		{Date: end, Amount: 1550},
	}
	assert.InDelta(t, 0, npv(tx, res.Annualized), 1e-4)
	assert.Greater(t, res.Annualized, 0.0)
}

func TestCalculateMWR_ShortWindow(t *testing.T) {
	d := date("2024-03-01")
	res := CalculateMWR(d, d.Add(6*time.Hour), 1000, 1030, nil)
	assert.InDelta(t, 0.03, res.Annualized, 1e-9)
	assert.InDelta(t, 0.03, res.Compounded, 1e-9)

	res = CalculateMWR(d, d, 0, 1030, nil)
	assert.Zero(t, res.Annualized)
}

func TestCalculateMWR_ZeroStartValue(t *testing.T) {
	flows := []CashFlow{{Date: date("2023-06-01"), Amount: 500}}
	res := CalculateMWR(date("2023-01-01"), date("2024-01-01"), 0, 600, flows)

	assert.Zero(t, res.Annualized)
	assert.Zero(t, res.Compounded)
	assert.Equal(t, 1, res.CashFlowCount)
	assert.InDelta(t, 500.0, res.NetCashFlow, 1e-9)
}

func TestCalculateMWR_SolverFailureFallsBack(t *testing.T) {
	// nothing comes back to the investor: no sign change
	flows := []CashFlow{{Date: date("2023-06-01"), Amount: 500}}
	res := CalculateMWR(date("2023-01-01"), date("2024-01-01"), 1000, 0, flows)

	assert.False(t, res.Solved)
	assert.InDelta(t, -1.5, res.Compounded, 1e-9)
	assert.Equal(t, -1.0, res.Annualized)
	assert.False(t, math.IsNaN(res.Annualized))
}

func TestCalculateTWR(t *testing.T) {
	values := map[string]float64{
		"2024-01-01": 100,
		"2024-01-09": 110,
		"2024-01-31": 176,
	}
	valueAt := func(d time.Time) float64 { return values[d.Format("2006-01-02")] }

	flows := []CashFlow{
		{Date: date("2024-01-10"), Amount: 30},
		{Date: date("2024-01-10"), Amount: 20},
	}

	twr, count := CalculateTWR(date("2024-01-01"), date("2024-01-31"), flows, valueAt)
	assert.Equal(t, 2, count)
	assert.InDelta(t, 0.21, twr, 1e-9)
}

func TestCalculateTWR_NoFlows(t *testing.T) {
	valueAt := func(d time.Time) float64 {
		if d.Equal(date("2024-01-01")) {
			return 200
		}
		return 250
	}
	twr, count := CalculateTWR(date("2024-01-01"), date("2024-02-01"), nil, valueAt)
	assert.Zero(t, count)
	assert.InDelta(t, 0.25, twr, 1e-9)

	twr, _ = CalculateTWR(date("2024-01-01"), date("2024-02-01"), nil, func(time.Time) float64 { return 0 })
	assert.Zero(t, twr)
}
