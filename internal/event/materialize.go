// Package event turns reconciled extractions into Google Calendar event
// descriptors ready for insertion.
package event

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
	"google.golang.org/api/calendar/v3"

	"github.com/SuperCoolPencil/CLEO/internal/extract"
)

const dateLayout = "2006-01-02"

// Record is a fully reconciled extraction together with the descriptive
// fields that survive into the calendar entry.
type Record struct {
	Summary     string
	Description string
	Location    string
	Times       *extract.Extraction
}

// Proposed pairs an event ready for insertion with the concrete window it
// occupies, used to scope the conflict query. For recurring events the
// window covers the whole span, not just the first occurrence.
type Proposed struct {
	Event       *calendar.Event
	WindowStart time.Time
	WindowEnd   time.Time
}

// Materialize converts one record into the event(s) it describes: one per
// member of AllDates when several discrete dates were found, a single
// daily-recurring event for a contiguous range, or a plain span otherwise.
// The extraction must have been reconciled first.
func Materialize(rec Record, tz *time.Location) ([]Proposed, error) {
	x := rec.Times
	if x == nil || x.StartDate == nil || x.EndDate == nil {
		return nil, fmt.Errorf("record %q has no reconciled dates", rec.Summary)
	}

	if len(x.AllDates) > 1 {
		out := make([]Proposed, 0, len(x.AllDates))
		for _, d := range x.AllDates {
			out = append(out, buildSpan(rec, d, d, x.StartTime, x.EndTime, tz))
		}
		return out, nil
	}

	full := buildSpan(rec, *x.StartDate, *x.EndDate, x.StartTime, x.EndTime, tz)

	if days := daysBetween(*x.StartDate, *x.EndDate); x.Daily && days > 0 {
		// The same slot repeated once per day across the span, not one
		// contiguous multi-day block.
		r, err := rrule.NewRRule(rrule.ROption{Freq: rrule.DAILY, Count: days + 1})
		if err != nil {
			return nil, fmt.Errorf("failed to build recurrence rule: %w", err)
		}
		first := buildSpan(rec, *x.StartDate, *x.StartDate, x.StartTime, x.EndTime, tz)
		first.Event.Recurrence = []string{"RRULE:" + r.String()}
		first.WindowEnd = full.WindowEnd
		return []Proposed{first}, nil
	}

	return []Proposed{full}, nil
}

func buildSpan(rec Record, startDate, endDate time.Time, st, et *extract.TimeOfDay, tz *time.Location) Proposed {
	ev := &calendar.Event{
		Summary:     rec.Summary,
		Description: rec.Description,
		Location:    rec.Location,
	}

	if st == nil {
		// All-day boundaries are date-only and the end date is exclusive.
		ws := midnight(startDate, tz)
		we := midnight(endDate, tz).AddDate(0, 0, 1)
		ev.Start = &calendar.EventDateTime{Date: ws.Format(dateLayout)}
		ev.End = &calendar.EventDateTime{Date: we.Format(dateLayout)}
		return Proposed{Event: ev, WindowStart: ws, WindowEnd: we}
	}

	start := at(startDate, *st, tz)
	end := start
	if et != nil {
		end = at(endDate, *et, tz)
	}
	if end.Before(start) {
		// An end clock earlier than the start clock on the same date is a
		// deliberate overnight span.
		end = end.AddDate(0, 0, 1)
	}

	ev.Start = &calendar.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: tz.String()}
	ev.End = &calendar.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: tz.String()}
	return Proposed{Event: ev, WindowStart: start, WindowEnd: end}
}

func midnight(d time.Time, tz *time.Location) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, tz)
}

func at(d time.Time, t extract.TimeOfDay, tz *time.Location) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, t.Hour, t.Minute, 0, 0, tz)
}

func daysBetween(a, b time.Time) int {
	return int(midnight(b, time.UTC).Sub(midnight(a, time.UTC)).Hours() / 24)
}
