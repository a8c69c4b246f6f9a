package pricesync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// ErrSyncInProgress is returned when another sync holds the gate
var ErrSyncInProgress = errors.New("price sync already in progress")

// Options configures a Syncer
type Options struct {
	ReportingCurrency string
	RequestTimeout    time.Duration
	HistoryDays       int // initial history depth for symbols without bars; 0 skips history
}

// Result is the data fetched by one sync
type Result struct {
	Prices  models.PriceCache
	History models.PriceHistory // new bars only
	FXRates map[string]float64
	Report  *models.SyncReport
}

// Syncer fetches quotes, FX rates and daily history for a set of assets
type Syncer struct {
	fetcher    interfaces.PriceFetcher
	dispatcher *Dispatcher
	logger     *common.Logger
	opts       Options

	gate Gate
	jobs atomic.Int64
	now  func() time.Time
}

// NewSyncer creates a Syncer. All requests go through dispatcher.
func NewSyncer(fetcher interfaces.PriceFetcher, dispatcher *Dispatcher, logger *common.Logger, opts Options) *Syncer {
	if opts.ReportingCurrency == "" {
		opts.ReportingCurrency = "EUR"
	}
	opts.ReportingCurrency = strings.ToUpper(opts.ReportingCurrency)
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Syncer{
		fetcher:    fetcher,
		dispatcher: dispatcher,
		logger:     logger,
		opts:       opts,
		now:        time.Now,
	}
}

// Running reports whether a sync currently holds the gate
func (s *Syncer) Running() bool {
	busy, _ := s.gate.Busy()
	return busy
}

// Sync refreshes prices for every non-archived asset in data with a
// market-data symbol. Stored history is consulted to fetch only newer bars.
// Quotes are converted with the freshly fetched FX rate, or the stored one when
// that fetch fails; a quote with no usable rate is recorded as failed and not
// returned. Per-symbol failures are recorded in the report; the sync itself
// only fails when the gate is held or ctx is cancelled.
func (s *Syncer) Sync(ctx context.Context, data *models.PortfolioData) (*Result, error) {
	lease, ok := s.gate.TryAcquire()
	if !ok {
		return nil, ErrSyncInProgress
	}
	defer lease.Release()

	started := s.now()
	report := &models.SyncReport{JobID: s.jobs.Add(1), StartedAt: started, Items: []models.SyncItem{}}
	res := &Result{
		Prices:  models.PriceCache{},
		History: models.PriceHistory{},
		FXRates: map[string]float64{},
		Report:  report,
	}

	targets := syncTargets(data.Assets)
	s.logger.Info().Int64("job", report.JobID).Int("symbols", len(targets)).Msg("Price sync started")

	// FX first so quotes can be converted
	for _, cur := range currencies(targets, s.opts.ReportingCurrency) {
		pair := cur + s.opts.ReportingCurrency
		var rate float64
		err := s.fetch(ctx, report, pair, func(rctx context.Context) error {
			var err error
			rate, err = s.fetcher.FetchFXRate(rctx, cur, s.opts.ReportingCurrency)
			return err
		})
		if err == nil && rate > 0 {
			res.FXRates[pair] = rate
		}
		if ctx.Err() != nil {
			return s.finish(res), ctx.Err()
		}
	}

	for _, a := range targets {
		s.syncQuote(ctx, report, res, a, data.FXRates)
		if ctx.Err() != nil {
			return s.finish(res), ctx.Err()
		}

		from, ok := s.historyStart(data.History[a.Symbol])
		if !ok {
			continue
		}
		var bars []models.DailyBar
		err := s.fetch(ctx, report, a.Symbol+" history", func(rctx context.Context) error {
			var err error
			bars, err = s.fetcher.FetchHistory(rctx, a.Symbol, from, s.now())
			return err
		})
		if err == nil && len(bars) > 0 {
			for i := range bars {
				if bars[i].Currency == "" {
					bars[i].Currency = a.Currency
				}
			}
			res.History[a.Symbol] = bars
		}
		if ctx.Err() != nil {
			return s.finish(res), ctx.Err()
		}
	}

	return s.finish(res), nil
}

// syncQuote fetches the latest quote for a and stores it converted to the
// reporting currency. Without a usable rate the quote is marked failed unfetched.
func (s *Syncer) syncQuote(ctx context.Context, report *models.SyncReport, res *Result, a models.Asset, storedFX map[string]float64) {
	rate, ok := s.fxRate(a.Currency, res.FXRates, storedFX)
	if !ok {
		major, _ := models.MajorCurrency(a.Currency)
		s.record(report, a.Symbol, 0, fmt.Errorf("no %s%s rate to convert quote", major, s.opts.ReportingCurrency))
		return
	}

	var quote *models.Quote
	err := s.fetch(ctx, report, a.Symbol, func(rctx context.Context) error {
		var err error
		quote, err = s.fetcher.FetchQuote(rctx, a.Symbol)
		return err
	})
	if err != nil || quote == nil {
		return
	}
	res.Prices[a.Symbol] = models.PriceCacheEntry{
		Symbol:      a.Symbol,
		PriceNative: quote.Price,
		Currency:    a.Currency,
		PriceEur:    quote.Price * rate,
		FetchedAt:   s.now(),
	}
}

// fetch runs one request through the dispatcher and records its outcome
func (s *Syncer) fetch(ctx context.Context, report *models.SyncReport, label string, fn func(context.Context) error) error {
	start := time.Now()
	err := s.dispatcher.Submit(ctx, func(ctx context.Context) error {
		rctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
		return fn(rctx)
	})

	s.record(report, label, time.Since(start), err)
	return err
}

func (s *Syncer) record(report *models.SyncReport, label string, took time.Duration, err error) {
	item := models.SyncItem{Symbol: label, Status: models.SyncStatusOK, Took: took}
	if err != nil {
		item.Status = models.SyncStatusFailed
		item.Error = err.Error()
		report.Failed++
		s.logger.Warn().Str("symbol", label).Err(err).Msg("Price fetch failed")
	} else {
		report.Succeeded++
	}
	report.Items = append(report.Items, item)
}

func (s *Syncer) finish(res *Result) *Result {
	res.Report.FinishedAt = s.now()
	s.logger.Info().
		Int64("job", res.Report.JobID).
		Int("succeeded", res.Report.Succeeded).
		Int("failed", res.Report.Failed).
		Dur("elapsed", res.Report.FinishedAt.Sub(res.Report.StartedAt)).
		Msg("Price sync complete")
	return res
}

// fxRate converts one unit of currency into the reporting currency, preferring
// fetched over stored rates. Pence quotes are scaled down by 100.
func (s *Syncer) fxRate(currency string, fetched, stored map[string]float64) (float64, bool) {
	major, divisor := models.MajorCurrency(currency)
	if major == "" || major == s.opts.ReportingCurrency {
		return 1 / divisor, true
	}
	pair := major + s.opts.ReportingCurrency
	if r, ok := fetched[pair]; ok && r > 0 {
		return r / divisor, true
	}
	if r, ok := stored[pair]; ok && r > 0 {
		return r / divisor, true
	}
	return 0, false
}

// historyStart returns the first day to fetch: the day after the newest
// stored bar, or HistoryDays back when nothing is stored
func (s *Syncer) historyStart(bars []models.DailyBar) (time.Time, bool) {
	if s.opts.HistoryDays <= 0 {
		return time.Time{}, false
	}
	today := common.Day(s.now())

	var latest time.Time
	for _, b := range bars {
		if b.Date.After(latest) {
			latest = b.Date
		}
	}
	if latest.IsZero() {
		return today.AddDate(0, 0, -s.opts.HistoryDays), true
	}

	from := common.Day(latest).AddDate(0, 0, 1)
	if from.After(today) {
		return time.Time{}, false
	}
	return from, true
}

// syncTargets returns one asset per distinct symbol, skipping archived and unsymbolled assets
func syncTargets(assets []models.Asset) []models.Asset {
	seen := make(map[string]bool)
	var out []models.Asset
	for _, a := range assets {
		if a.Archived || a.Symbol == "" || seen[a.Symbol] {
			continue
		}
		seen[a.Symbol] = true
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func currencies(assets []models.Asset, reporting string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range assets {
		c, _ := models.MajorCurrency(a.Currency)
		if c == "" || c == reporting || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// ApplyTo merges the result into a workspace: quotes and FX rates replace
// existing entries, new bars are appended with duplicates by date dropped.
func (r *Result) ApplyTo(data *models.PortfolioData) {
	if data.Prices == nil {
		data.Prices = models.PriceCache{}
	}
	for k, v := range r.Prices {
		data.Prices[k] = v
	}

	if data.FXRates == nil {
		data.FXRates = map[string]float64{}
	}
	for k, v := range r.FXRates {
		data.FXRates[k] = v
	}

	if data.History == nil {
		data.History = models.PriceHistory{}
	}
	for symbol, bars := range r.History {
		have := make(map[time.Time]bool, len(data.History[symbol]))
		for _, b := range data.History[symbol] {
			have[common.Day(b.Date)] = true
		}
		for _, b := range bars {
			if !have[common.Day(b.Date)] {
				data.History[symbol] = append(data.History[symbol], b)
				have[common.Day(b.Date)] = true
			}
		}
	}
}

func (r *Result) String() string {
	return fmt.Sprintf("job %d: %d ok, %d failed", r.Report.JobID, r.Report.Succeeded, r.Report.Failed)
}
