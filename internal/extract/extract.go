// Package extract implements the heuristic temporal-extraction pipeline:
// it recovers dates, clock times and a location from free-form email text
// and repairs partial results into a coherent start/end range.
package extract

import (
	"fmt"
	"time"
)

// TimeOfDay is a clock time without a date, always in 24-hour form.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Minutes returns the time as minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// Before reports whether t is earlier in the day than u.
func (t TimeOfDay) Before(u TimeOfDay) bool {
	return t.Minutes() < u.Minutes()
}

// AddHours returns the time shifted by h hours, wrapping around midnight.
func (t TimeOfDay) AddHours(h int) TimeOfDay {
	return TimeOfDay{Hour: ((t.Hour+h)%24 + 24) % 24, Minute: t.Minute}
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Extraction accumulates everything the extractors recovered from one
// message. Date fields hold midnight in the reference location; nil means
// the corresponding signal was not found. After Reconcile the invariants
// hold: if either date is set both are, with start <= end; if either time
// is set both are, with start <= end modulo the overnight tolerance.
type Extraction struct {
	StartDate *time.Time
	EndDate   *time.Time
	StartTime *TimeOfDay
	EndTime   *TimeOfDay

	// Daily is true when the text expressed a contiguous span of days each
	// repeating at the same time, false when discrete dates were found.
	Daily bool

	// AllDates is populated only by the connected-list strategy and keeps
	// the full set of discrete dates for fan-out, even though only the
	// min/max populate StartDate/EndDate.
	AllDates []time.Time
}

// HasDates reports whether any date signal was found.
func (x *Extraction) HasDates() bool {
	return x.StartDate != nil || x.EndDate != nil
}

// HasTimes reports whether any clock-time signal was found.
func (x *Extraction) HasTimes() bool {
	return x.StartTime != nil || x.EndTime != nil
}

// Extract runs the date and time extractors over normalized text. The
// reference time is the message's own received-at instant; relative
// phrases resolve against it. Strategy results are never merged: the
// first date strategy to produce a result wins.
func Extract(text string, ref time.Time) *Extraction {
	x := &Extraction{}

	if r, ok := extractDates(text, ref); ok {
		start, end := r.start, r.end
		x.StartDate = &start
		x.EndDate = &end
		x.Daily = r.daily
		x.AllDates = r.allDates
	}

	times := extractTimes(text)
	switch len(times) {
	case 0:
	case 1:
		st := times[0]
		x.StartTime = &st
	default:
		// Range results arrive in textual order and must be preserved so
		// that deliberate overnight spans survive; scattered results are
		// already sorted, so first/last is min/max.
		st, et := times[0], times[len(times)-1]
		x.StartTime = &st
		x.EndTime = &et
	}

	return x
}

// dateOnly truncates an instant to midnight in the given location.
func dateOnly(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
