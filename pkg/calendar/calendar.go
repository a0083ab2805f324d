// Package calendar provides trading-calendar aware date parsing, frequency
// bucketing, and request-window adjustment.
//
// Cached coverage windows and requested windows are only comparable after both
// have been snapped to the same bucket granularity and shifted off weekend
// days. This package owns that arithmetic; it has no knowledge of what the
// buckets contain.
package calendar

import (
	"fmt"
	"time"
)

// Frequency is the sampling granularity of a time series.
type Frequency string

const (
	// Freq1m samples once per minute.
	Freq1m Frequency = "1m"

	// Freq5m samples every 5 minutes.
	Freq5m Frequency = "5m"

	// Freq15m samples every 15 minutes.
	Freq15m Frequency = "15m"

	// Freq30m samples every 30 minutes.
	Freq30m Frequency = "30m"

	// Freq60m samples every 60 minutes.
	Freq60m Frequency = "60m"

	// FreqDaily samples once per trading day.
	FreqDaily Frequency = "daily"

	// FreqWeekly samples once per calendar week.
	FreqWeekly Frequency = "weekly"

	// FreqMonthly samples once per calendar month.
	FreqMonthly Frequency = "monthly"
)

// intradayMinutes maps intraday frequencies to their bucket width in minutes.
var intradayMinutes = map[Frequency]int{
	Freq1m:  1,
	Freq5m:  5,
	Freq15m: 15,
	Freq30m: 30,
	Freq60m: 60,
}

// ParseFrequency converts a string to a Frequency.
// Returns a *ParseError for unknown values.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case Freq1m, Freq5m, Freq15m, Freq30m, Freq60m, FreqDaily, FreqWeekly, FreqMonthly:
		return Frequency(s), nil
	}
	return "", &ParseError{Input: s, Reason: "unknown frequency"}
}

// IsIntraday returns true for minute-granularity frequencies.
func (f Frequency) IsIntraday() bool {
	_, ok := intradayMinutes[f]
	return ok
}

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	if f.IsIntraday() {
		return true
	}
	return f == FreqDaily || f == FreqWeekly || f == FreqMonthly
}

// ParseError indicates a malformed date, time, or frequency input.
// It is surfaced to the request's caller and must never be swallowed as
// "no update needed".
type ParseError struct {
	Input  string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %q: %s: %v", e.Input, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %q: %s", e.Input, e.Reason)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Layouts accepted by ParseDate, most common first.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"20060102",
	time.RFC3339,
}

// ParseDate parses a loosely formatted date or datetime string.
// Returns a *ParseError when no accepted layout matches.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ParseError{Input: s, Reason: "unrecognized date format"}
}

// Canonical formats a timestamp in the canonical string form used for
// temporal fields: date-only at midnight, datetime otherwise.
func Canonical(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// Bucket snaps t to the boundary implied by the frequency:
// intraday frequencies truncate to the bucket minute, daily to midnight,
// weekly to the Monday of the week, monthly to the first of the month.
//
// Bucket is idempotent and preserves the ordering of its inputs.
func Bucket(t time.Time, f Frequency) time.Time {
	if mins, ok := intradayMinutes[f]; ok {
		truncated := t.Truncate(time.Minute)
		rem := truncated.Minute() % mins
		return truncated.Add(-time.Duration(rem) * time.Minute)
	}

	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch f {
	case FreqWeekly:
		// Monday of the ISO week; Sunday counts as day 6 of the prior week.
		offset := (int(midnight.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -offset)
	case FreqMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return midnight
	}
}

// NextBucket returns the bucket immediately after the one containing t.
func NextBucket(t time.Time, f Frequency) time.Time {
	b := Bucket(t, f)
	if mins, ok := intradayMinutes[f]; ok {
		return b.Add(time.Duration(mins) * time.Minute)
	}
	switch f {
	case FreqWeekly:
		return b.AddDate(0, 0, 7)
	case FreqMonthly:
		return b.AddDate(0, 1, 0)
	default:
		return b.AddDate(0, 0, 1)
	}
}

// PrevBucket returns the bucket immediately before the one containing t.
func PrevBucket(t time.Time, f Frequency) time.Time {
	b := Bucket(t, f)
	if mins, ok := intradayMinutes[f]; ok {
		return b.Add(-time.Duration(mins) * time.Minute)
	}
	switch f {
	case FreqWeekly:
		return b.AddDate(0, 0, -7)
	case FreqMonthly:
		return b.AddDate(0, -1, 0)
	default:
		return b.AddDate(0, 0, -1)
	}
}

// SessionClose is the local wall-clock time a market session ends.
// Intraday end adjustments pin the requested end to this time so that a
// same-day request made before the close still compares consistently against
// a close-of-day snapshot.
type SessionClose struct {
	Hour   int
	Minute int
}

// DefaultSessionClose matches a 15:00 local market close.
var DefaultSessionClose = SessionClose{Hour: 15}

// AdjustStart shifts a naive requested start date off the weekend:
// Saturday advances 2 days, Sunday advances 1 day.
func AdjustStart(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, 2)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

// AdjustEnd shifts a naive requested end date off the weekend (Saturday
// retreats 1 day, Sunday retreats 2) and clamps it to the latest known
// trading day. For intraday frequencies the result is pinned to the session
// close time.
func AdjustEnd(d time.Time, latest time.Time, f Frequency, close SessionClose) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		d = d.AddDate(0, 0, -1)
	case time.Sunday:
		d = d.AddDate(0, 0, -2)
	}

	if !latest.IsZero() {
		latestDay := time.Date(latest.Year(), latest.Month(), latest.Day(), 0, 0, 0, 0, d.Location())
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
		if day.After(latestDay) {
			d = latestDay
		}
	}

	if f.IsIntraday() {
		return time.Date(d.Year(), d.Month(), d.Day(), close.Hour, close.Minute, 0, 0, d.Location())
	}
	return d
}
