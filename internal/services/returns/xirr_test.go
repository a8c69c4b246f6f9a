package returns

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func npv(flows []CashFlow, rate float64) float64 {
	var sum float64
	for _, f := range flows {
		y := f.Date.Sub(flows[0].Date).Hours() / 24 / 365.25
		sum += f.Amount / math.Pow(1+rate, y)
	}
	return sum
}

func TestSolveXIRR_SingleYear(t *testing.T) {
	rate, ok := SolveXIRR([]CashFlow{
		{Date: date("2023-01-01"), Amount: -1000},
		{Date: date("2024-01-01"), Amount: 1100},
	})
	require.True(t, ok)
	assert.InDelta(t, 0.10, rate, 0.001)
}

func TestSolveXIRR_MultipleFlows(t *testing.T) {
	flows := []CashFlow{
		{Date: date("2022-01-01"), Amount: -10000},
		{Date: date("2022-06-15"), Amount: -2500},
		{Date: date("2023-03-01"), Amount: 1500},
		{Date: date("2024-01-01"), Amount: 13000},
	}
	rate, ok := SolveXIRR(flows)
	require.True(t, ok)
	assert.InDelta(t, 0, npv(flows, rate), 1e-4)
}

func TestSolveXIRR_Loss(t *testing.T) {
	rate, ok := SolveXIRR([]CashFlow{
		{Date: date("2023-01-01"), Amount: -1000},
		{Date: date("2024-01-01"), Amount: 500},
	})
	require.True(t, ok)
	assert.InDelta(t, -0.5, rate, 0.001)
}

func TestSolveXIRR_UnsortedInput(t *testing.T) {
	rate, ok := SolveXIRR([]CashFlow{
		{Date: date("2024-01-01"), Amount: 1100},
		{Date: date("2023-01-01"), Amount: -1000},
	})
	require.True(t, ok)
	assert.InDelta(t, 0.10, rate, 0.001)
}

func TestSolveXIRR_NoSignChange(t *testing.T) {
	tests := []struct {
		name  string
		flows []CashFlow
	}{
		{"empty", nil},
		{"single flow", []CashFlow{{Date: date("2023-01-01"), Amount: -1000}}},
		{"all negative", []CashFlow{{Date: date("2023-01-01"), Amount: -1000}, {Date: date("2024-01-01"), Amount: -10}}},
		{"all positive", []CashFlow{{Date: date("2023-01-01"), Amount: 1000}, {Date: date("2024-01-01"), Amount: 10}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, ok := SolveXIRR(tt.flows)
			assert.False(t, ok)
			assert.Zero(t, rate)
		})
	}
}
