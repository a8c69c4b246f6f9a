package common

import (
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar day.
// Ledger and price dates are compared at day granularity.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders the calendar day of t as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return Day(t).Format(DateLayout)
}

// ParseDate parses "2006-01-02" or "2006-01-02T15:04:05[Z07:00]" and returns the UTC day.
// Returns the zero time for empty or unparseable input.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{DateLayout, "2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t)
		}
	}
	return time.Time{}
}

// YearsBetween returns the length of [start, end] in years of 365.25 days
func YearsBetween(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24 / 365.25
}
