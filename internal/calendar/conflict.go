package calendar

import (
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/SuperCoolPencil/CLEO/internal/event"
)

// Policy decides what happens when a proposed event overlaps existing ones.
type Policy string

const (
	PolicyKeepOld  Policy = "keep-old"
	PolicyKeepNew  Policy = "keep-new"
	PolicyKeepBoth Policy = "keep-both"
	PolicyAsk      Policy = "ask"
)

// ParsePolicy validates a policy string from config or flags.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyKeepOld, PolicyKeepNew, PolicyKeepBoth, PolicyAsk:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown conflict policy %q", s)
}

// InsertResult reports what a single insertion attempt did.
type InsertResult struct {
	Inserted      bool
	Link          string
	Skipped       bool
	Deleted       int
	Conflicts     []*calendar.Event
	NeedsDecision bool
}

// Resolver checks proposed events against the destination calendar and
// applies a conflict policy before inserting.
type Resolver struct {
	client     Client
	calendarID string
	tz         *time.Location
}

// NewResolver creates a resolver bound to one destination calendar.
func NewResolver(client Client, calendarID string, tz *time.Location) *Resolver {
	return &Resolver{client: client, calendarID: calendarID, tz: tz}
}

// Insert lists existing events overlapping the proposed window and applies
// the policy: keep-old aborts, keep-new deletes the conflicting events
// first, keep-both inserts alongside, and ask returns the conflict set
// with NeedsDecision set so the caller can re-invoke with a concrete
// policy. Overlap is inclusive at both boundaries.
func (r *Resolver) Insert(p event.Proposed, policy Policy) (InsertResult, error) {
	existing, err := r.client.GetEvents(r.calendarID, p.WindowStart, p.WindowEnd)
	if err != nil {
		return InsertResult{}, fmt.Errorf("failed to check for conflicts: %w", err)
	}

	var conflicts []*calendar.Event
	for _, ev := range existing {
		start, end, ok := EventWindow(ev, r.tz)
		if !ok {
			continue
		}
		if !start.After(p.WindowEnd) && !end.Before(p.WindowStart) {
			conflicts = append(conflicts, ev)
		}
	}

	if len(conflicts) == 0 {
		return r.insert(p)
	}

	switch policy {
	case PolicyKeepOld:
		return InsertResult{Skipped: true, Conflicts: conflicts}, nil
	case PolicyKeepNew:
		for _, ev := range conflicts {
			if err := r.client.DeleteEvent(r.calendarID, ev.Id); err != nil {
				return InsertResult{Conflicts: conflicts}, fmt.Errorf("failed to delete conflicting event %q: %w", ev.Summary, err)
			}
		}
		res, err := r.insert(p)
		res.Deleted = len(conflicts)
		res.Conflicts = conflicts
		return res, err
	case PolicyKeepBoth:
		res, err := r.insert(p)
		res.Conflicts = conflicts
		return res, err
	case PolicyAsk:
		return InsertResult{NeedsDecision: true, Conflicts: conflicts}, nil
	default:
		return InsertResult{}, fmt.Errorf("unknown conflict policy %q", policy)
	}
}

func (r *Resolver) insert(p event.Proposed) (InsertResult, error) {
	link, err := r.client.InsertEvent(r.calendarID, p.Event)
	if err != nil {
		return InsertResult{}, fmt.Errorf("failed to insert event: %w", err)
	}
	return InsertResult{Inserted: true, Link: link}, nil
}

// EventWindow resolves an event's concrete [start, end] occupancy from its
// date-only or date-time boundaries. Date-only ends keep their exclusive
// convention.
func EventWindow(ev *calendar.Event, tz *time.Location) (time.Time, time.Time, bool) {
	if ev.Start == nil {
		return time.Time{}, time.Time{}, false
	}
	start, ok := boundaryTime(ev.Start, tz)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end := start
	if ev.End != nil {
		if e, ok := boundaryTime(ev.End, tz); ok {
			end = e
		}
	}
	return start, end, true
}

func boundaryTime(b *calendar.EventDateTime, tz *time.Location) (time.Time, bool) {
	if b.Date != "" {
		t, err := time.ParseInLocation(icsDateLayout, b.Date, tz)
		return t, err == nil
	}
	if b.DateTime != "" {
		t, err := time.Parse(time.RFC3339, b.DateTime)
		return t, err == nil
	}
	return time.Time{}, false
}
