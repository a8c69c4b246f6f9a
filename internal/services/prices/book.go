// Package prices resolves current and historical asset prices in the
// reporting currency
package prices

import (
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// Unbounded disables the lookback limit on historical lookups
const Unbounded = -1

// Book answers price questions over a read-only snapshot of the price cache,
// daily history and FX table.
type Book struct {
	assets    map[string]models.Asset
	cache     models.PriceCache
	history   map[string][]models.DailyBar // ascending by date
	fx        map[string]float64
	reporting string
	lookback  int
}

// Options configures a Book
type Options struct {
	ReportingCurrency string
	LookbackDays      int // max days to walk back for a bar; Unbounded for no limit
}

// NewBook indexes history by price key. Bars are copied and sorted.
func NewBook(assets []models.Asset, cache models.PriceCache, history models.PriceHistory, fx map[string]float64, opts Options) *Book {
	b := &Book{
		assets:    make(map[string]models.Asset, len(assets)),
		cache:     cache,
		history:   make(map[string][]models.DailyBar, len(history)),
		fx:        fx,
		reporting: strings.ToUpper(opts.ReportingCurrency),
		lookback:  opts.LookbackDays,
	}
	if b.reporting == "" {
		b.reporting = "EUR"
	}
	if b.cache == nil {
		b.cache = models.PriceCache{}
	}

	for _, a := range assets {
		b.assets[a.ID] = a
	}

	for key, bars := range history {
		sorted := make([]models.DailyBar, len(bars))
		copy(sorted, bars)
		for i := range sorted {
			sorted[i].Date = common.Day(sorted[i].Date)
		}
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Date.Before(sorted[j].Date)
		})
		b.history[key] = sorted
	}

	return b
}

// Asset returns the asset with the given ID
func (b *Book) Asset(id string) (models.Asset, bool) {
	a, ok := b.assets[id]
	return a, ok
}

// Current returns the cached reporting-currency price of an asset
func (b *Book) Current(assetID string) (float64, bool) {
	a, ok := b.assets[assetID]
	if !ok {
		return 0, false
	}
	entry, ok := b.cache[a.PriceKey()]
	if !ok {
		return 0, false
	}
	return entry.PriceEur, true
}

// FXRate returns reporting-currency units per unit of currency for an asset.
// The rate implied by the asset's cached quote wins, so historical and
// current values convert consistently. Otherwise the FX table is used, and
// 1 when the pair is unknown. Pence currencies are scaled down by 100.
func (b *Book) FXRate(assetID, currency string) float64 {
	if a, ok := b.assets[assetID]; ok {
		if entry, ok := b.cache[a.PriceKey()]; ok {
			if rate, ok := entry.ImpliedFXRate(); ok {
				return rate
			}
		}
	}

	major, divisor := models.MajorCurrency(currency)
	if major == "" || major == b.reporting {
		return 1 / divisor
	}
	if rate, ok := b.fx[major+b.reporting]; ok && rate > 0 {
		return rate / divisor
	}
	return 1 / divisor
}

// Bar returns the latest bar on or before date, walking back at most
// lookbackDays (Unbounded for no limit)
func (b *Book) Bar(assetID string, date time.Time, lookbackDays int) (models.DailyBar, bool) {
	a, ok := b.assets[assetID]
	if !ok {
		return models.DailyBar{}, false
	}
	bars := b.history[a.PriceKey()]
	if len(bars) == 0 {
		return models.DailyBar{}, false
	}

	target := common.Day(date)
	idx := sort.Search(len(bars), func(i int) bool {
		return bars[i].Date.After(target)
	})
	if idx == 0 {
		return models.DailyBar{}, false
	}

	bar := bars[idx-1]
	if lookbackDays >= 0 && bar.Date.Before(target.AddDate(0, 0, -lookbackDays)) {
		return models.DailyBar{}, false
	}
	return bar, true
}

// Historical returns the reporting-currency price on date using the book's
// lookback window
func (b *Book) Historical(assetID string, date time.Time) (float64, bool) {
	return b.historical(assetID, date, b.lookback)
}

// HistoricalUnbounded is Historical without a lookback limit
func (b *Book) HistoricalUnbounded(assetID string, date time.Time) (float64, bool) {
	return b.historical(assetID, date, Unbounded)
}

func (b *Book) historical(assetID string, date time.Time, lookback int) (float64, bool) {
	bar, ok := b.Bar(assetID, date, lookback)
	if !ok {
		return 0, false
	}
	currency := bar.Currency
	if currency == "" {
		currency = b.assets[assetID].Currency
	}
	return bar.Price() * b.FXRate(assetID, currency), true
}

// Dates returns the distinct bar dates across every known asset within
// [from, to], ascending
func (b *Book) Dates(from, to time.Time) []time.Time {
	from, to = common.Day(from), common.Day(to)
	seen := make(map[time.Time]bool)
	var dates []time.Time

	for _, a := range b.assets {
		for _, bar := range b.history[a.PriceKey()] {
			if bar.Date.Before(from) || bar.Date.After(to) || seen[bar.Date] {
				continue
			}
			seen[bar.Date] = true
			dates = append(dates, bar.Date)
		}
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Valuation selects the price source for Value
type Valuation int

const (
	// FromCache values positions at the cached quote
	FromCache Valuation = iota
	// FromHistory values positions at the bar within the lookback window
	FromHistory
	// FromHistoryUnbounded values positions at the latest bar on or before the date
	FromHistoryUnbounded
)

// Value sums price × quantity over open positions, rounded to cents.
// A position without a price counts at its cost basis.
func (b *Book) Value(positions map[string]models.Position, date time.Time, source Valuation) float64 {
	ids := make([]string, 0, len(positions))
	for id, p := range positions {
		if p.IsOpen() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	values := make([]float64, 0, len(ids))
	for _, id := range ids {
		p := positions[id]

		var price float64
		var ok bool
		switch source {
		case FromCache:
			price, ok = b.Current(id)
		case FromHistory:
			price, ok = b.Historical(id, date)
		default:
			price, ok = b.HistoricalUnbounded(id, date)
		}

		if ok {
			values = append(values, price*p.Quantity)
		} else {
			values = append(values, p.CostBasisEur)
		}
	}
	return math.Round(floats.Sum(values)*100) / 100
}
