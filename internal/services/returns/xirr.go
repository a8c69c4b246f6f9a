// Package returns computes money-weighted and time-weighted portfolio returns
package returns

import (
	"math"
	"sort"
	"time"
)

// CashFlow is an external flow into or out of the portfolio.
// Positive amounts are capital in (buys), negative are capital out (sells).
type CashFlow struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// SolveXIRR finds the annual rate r at which the net present value of the
// transactions is zero. Transactions use the investor's sign convention:
// money paid in is negative, money received is positive.
// Returns false when no root is found.
func SolveXIRR(transactions []CashFlow) (float64, bool) {
	if len(transactions) < 2 {
		return 0, false
	}

	flows := make([]CashFlow, len(transactions))
	copy(flows, transactions)
	sort.SliceStable(flows, func(i, j int) bool {
		return flows[i].Date.Before(flows[j].Date)
	})

	hasNeg, hasPos := false, false
	for _, f := range flows {
		if f.Amount < 0 {
			hasNeg = true
		}
		if f.Amount > 0 {
			hasPos = true
		}
	}
	if !hasNeg || !hasPos {
		return 0, false
	}

	// year fractions from the first transaction
	years := make([]float64, len(flows))
	for i, f := range flows {
		years[i] = f.Date.Sub(flows[0].Date).Hours() / 24 / 365.25
	}

	if rate, ok := newtonXIRR(flows, years); ok {
		return rate, true
	}
	return bisectXIRR(flows, years)
}

func newtonXIRR(flows []CashFlow, years []float64) (float64, bool) {
	const (
		maxIter = 100
		tol     = 1e-7
		minRate = -0.999
		maxRate = 100.0
	)

	// seed with the undiscounted return when it is plausible
	var paid, received float64
	for _, f := range flows {
		if f.Amount < 0 {
			paid -= f.Amount
		} else {
			received += f.Amount
		}
	}
	rate := 0.1
	if paid > 0 {
		if simple := received/paid - 1; simple > -0.9 && simple < 10 {
			rate = simple
		}
	}

	for iter := 0; iter < maxIter; iter++ {
		base := 1 + rate
		var npv, dnpv float64
		for i, f := range flows {
			discount := math.Pow(base, years[i])
			if discount == 0 {
				continue
			}
			npv += f.Amount / discount
			if years[i] != 0 {
				dnpv -= years[i] * f.Amount / (discount * base)
			}
		}

		if math.IsNaN(npv) || math.IsInf(npv, 0) {
			return 0, false
		}
		if math.Abs(npv) < tol {
			return rate, true
		}
		if dnpv == 0 {
			return 0, false
		}

		rate -= npv / dnpv
		if rate < minRate {
			rate = minRate
		}
		if rate > maxRate {
			rate = maxRate
		}
	}
	return 0, false
}

func bisectXIRR(flows []CashFlow, years []float64) (float64, bool) {
	const (
		maxIter = 200
		tol     = 1e-6
	)

	npvAt := func(rate float64) float64 {
		var sum float64
		for i, f := range flows {
			sum += f.Amount / math.Pow(1+rate, years[i])
		}
		return sum
	}

	lo, hi := -0.99, 10.0
	npvLo, npvHi := npvAt(lo), npvAt(hi)
	if math.IsNaN(npvLo) || math.IsNaN(npvHi) || npvLo*npvHi > 0 {
		return 0, false
	}

	for iter := 0; iter < maxIter; iter++ {
		mid := (lo + hi) / 2
		npvMid := npvAt(mid)
		if math.IsNaN(npvMid) {
			return 0, false
		}
		if math.Abs(npvMid) < tol {
			return mid, true
		}
		if npvMid*npvLo < 0 {
			hi = mid
		} else {
			lo, npvLo = mid, npvMid
		}
	}
	return (lo + hi) / 2, true
}
