// Package models defines data structures for Folio
package models

import (
	"strings"
	"time"
)

// MajorCurrency returns the ISO code FX pairs are quoted in for currency and
// the number of currency units per major unit. London listings quoted in
// pence ("GBp" or "GBX") map to GBP with 100.
func MajorCurrency(currency string) (string, float64) {
	if currency == "GBp" || strings.EqualFold(currency, "GBX") {
		return "GBP", 100
	}
	return strings.ToUpper(currency), 1
}

// PriceCacheEntry is the latest fetched quote for a symbol
type PriceCacheEntry struct {
	Symbol      string    `json:"symbol"`
	PriceNative float64   `json:"price_native"`
	Currency    string    `json:"currency"`
	PriceEur    float64   `json:"price_eur"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// ImpliedFXRate returns the reporting-currency units per native unit implied
// by the quote, or false when the native price is missing.
func (e PriceCacheEntry) ImpliedFXRate() (float64, bool) {
	if e.PriceNative == 0 {
		return 0, false
	}
	return e.PriceEur / e.PriceNative, true
}

// PriceCache maps symbol to latest quote
type PriceCache map[string]PriceCacheEntry

// LastFetched returns the most recent fetch time, or the zero time for an empty cache
func (c PriceCache) LastFetched() time.Time {
	var latest time.Time
	for _, e := range c {
		if e.FetchedAt.After(latest) {
			latest = e.FetchedAt
		}
	}
	return latest
}

// DailyBar is one day's close for a symbol in its native currency
type DailyBar struct {
	Date     time.Time `json:"date"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adjusted_close"`
	Currency string    `json:"currency"`
}

// Price returns the adjusted close, falling back to the raw close
func (b DailyBar) Price() float64 {
	if b.AdjClose > 0 {
		return b.AdjClose
	}
	return b.Close
}

// PriceHistory maps symbol to daily bars (any order)
type PriceHistory map[string][]DailyBar

// SyncStatus is the per-symbol outcome of a price sync
type SyncStatus string

const (
	SyncStatusOK     SyncStatus = "ok"
	SyncStatusFailed SyncStatus = "failed"
)

// SyncItem records a single symbol's sync result
type SyncItem struct {
	Symbol string        `json:"symbol"`
	Status SyncStatus    `json:"status"`
	Error  string        `json:"error,omitempty"`
	Took   time.Duration `json:"took"`
}

// SyncReport summarises one price sync job
type SyncReport struct {
	JobID      int64      `json:"job_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Items      []SyncItem `json:"items"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
}

// Quote is a latest-price sample from a market-data provider, in the
// instrument's native currency
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}
