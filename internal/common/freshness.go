// Package common provides shared utilities for Folio
package common

import "time"

// Freshness TTLs for cached data
const (
	FreshnessPriceCache = 24 * time.Hour // quotes older than this are reported stale
	FreshnessHistory    = 24 * time.Hour
)

// IsFresh returns true if the given timestamp is within the TTL as of now
func IsFresh(updated, now time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return now.Sub(updated) < ttl
}

// HoursStale returns the whole hours elapsed since updated, or 0 for the zero time
func HoursStale(updated, now time.Time) int {
	if updated.IsZero() {
		return 0
	}
	return int(now.Sub(updated) / time.Hour)
}
