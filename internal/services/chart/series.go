// Package chart builds and renders the portfolio value time series
package chart

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/holdings"
	"github.com/bobmcallan/folio/internal/services/prices"
)

// ErrUnknownRange is returned for a range key outside 1m, 3m, 6m, 1y and all
var ErrUnknownRange = errors.New("unknown chart range")

// ParseRange validates a range key. Empty selects the default range.
func ParseRange(key string) (models.ChartRange, error) {
	switch r := models.ChartRange(key); r {
	case "":
		return models.DefaultChartRange, nil
	case models.ChartRangeMonth, models.ChartRangeQuarter, models.ChartRangeSixMonth,
		models.ChartRangeYear, models.ChartRangeInception:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRange, key)
}

// RangeStart returns the first date of the chart window
func RangeStart(r models.ChartRange, now, firstOrder time.Time) time.Time {
	today := common.Day(now)
	switch r {
	case models.ChartRangeMonth:
		return today.AddDate(0, -1, 0)
	case models.ChartRangeQuarter:
		return today.AddDate(0, -3, 0)
	case models.ChartRangeYear:
		return today.AddDate(-1, 0, 0)
	case models.ChartRangeInception:
		return common.Day(firstOrder)
	}
	return today.AddDate(0, -6, 0)
}

// Series computes invested value and cost basis on every price date in the
// window plus every order date inside it. Today's point uses the
// price cache so it agrees with the valuation.
func Series(book *prices.Book, orders []models.Order, r models.ChartRange, now time.Time) *models.ChartData {
	data := &models.ChartData{Range: r, DataPoints: []models.ChartDataPoint{}}

	timeline := holdings.Replay(orders)
	first, ok := timeline.FirstDate()
	if !ok {
		return data
	}

	today := common.Day(now)
	start := RangeStart(r, today, first)

	seen := make(map[time.Time]bool)
	var dates []time.Time
	for _, d := range book.Dates(start, today) {
		seen[d] = true
		dates = append(dates, d)
	}
	for _, d := range timeline.Dates() {
		if !d.Before(start) && !d.After(today) && !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	for _, d := range dates {
		snap := timeline.AsOf(d)

		var value float64
		if d.Equal(today) {
			value = todayValue(book, snap.Positions, d)
		} else {
			value = book.Value(snap.Positions, d, prices.FromHistoryUnbounded)
		}

		data.DataPoints = append(data.DataPoints, models.ChartDataPoint{
			Date:          common.FormatDate(d),
			InvestedValue: value,
			CostBasis:     math.Round(snap.CostBasisEur()*100) / 100,
		})
	}

	data.HasData = len(data.DataPoints) > 0
	return data
}

// todayValue prefers the cached quote and falls back to the latest bar
func todayValue(book *prices.Book, positions map[string]models.Position, d time.Time) float64 {
	var total float64
	for id, p := range positions {
		if !p.IsOpen() {
			continue
		}
		if price, ok := book.Current(id); ok {
			total += price * p.Quantity
		} else if price, ok := book.HistoricalUnbounded(id, d); ok {
			total += price * p.Quantity
		} else {
			total += p.CostBasisEur
		}
	}
	return math.Round(total*100) / 100
}
