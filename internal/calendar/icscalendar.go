package calendar

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
	"google.golang.org/api/calendar/v3"
)

const icsDateLayout = "2006-01-02"

// ICSClient stores events in a local iCalendar file. It implements the
// same contract as the Google client so the pipeline can run against a
// plain file instead of a live calendar.
type ICSClient struct {
	path string
	tz   *time.Location
}

// NewICSClient creates a client backed by the .ics file at path. The file
// is created on first insert.
func NewICSClient(path string, tz *time.Location) *ICSClient {
	return &ICSClient{path: path, tz: tz}
}

// FindOrCreateCalendarByName returns the file path as the calendar ID. The
// name and color only exist in the Google model.
func (c *ICSClient) FindOrCreateCalendarByName(name string, colorID string) (string, error) {
	return c.path, nil
}

// GetEvents retrieves events overlapping the specified time window.
// Recurring events count with their full occurrence span, mirroring the
// expansion the Google client requests.
func (c *ICSClient) GetEvents(calendarID string, timeMin, timeMax time.Time) ([]*calendar.Event, error) {
	cal, err := c.load()
	if err != nil {
		return nil, err
	}

	var events []*calendar.Event
	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		ev, err := c.componentToEvent(comp)
		if err != nil {
			log.Printf("Warning: skipping unreadable calendar entry: %v", err)
			continue
		}
		start, end, ok := EventWindow(ev, c.tz)
		if !ok {
			continue
		}
		if len(ev.Recurrence) > 0 {
			end = recurrenceEnd(ev.Recurrence[0], start, end)
		}
		if !start.After(timeMax) && !end.Before(timeMin) {
			events = append(events, ev)
		}
	}

	return events, nil
}

// InsertEvent appends the event to the file and returns the file path. A
// UID is generated when the event has none.
func (c *ICSClient) InsertEvent(calendarID string, event *calendar.Event) (string, error) {
	cal, err := c.load()
	if err != nil {
		return "", err
	}

	if event.Id == "" {
		event.Id = uuid.NewString()
	}
	comp, err := c.eventToComponent(event)
	if err != nil {
		return "", fmt.Errorf("failed to convert event: %w", err)
	}
	cal.Children = append(cal.Children, comp)

	if err := c.save(cal); err != nil {
		return "", err
	}
	return c.path, nil
}

// DeleteEvent removes the event with the given UID from the file.
func (c *ICSClient) DeleteEvent(calendarID, eventID string) error {
	cal, err := c.load()
	if err != nil {
		return err
	}

	kept := cal.Children[:0]
	removed := false
	for _, comp := range cal.Children {
		if comp.Name == ical.CompEvent {
			if uid := comp.Props.Get(ical.PropUID); uid != nil && uid.Value == eventID {
				removed = true
				continue
			}
		}
		kept = append(kept, comp)
	}
	if !removed {
		return fmt.Errorf("event %q not found in %s", eventID, c.path)
	}
	cal.Children = kept

	return c.save(cal)
}

// load reads the calendar file, returning a fresh calendar when the file
// does not exist yet.
func (c *ICSClient) load() (*ical.Calendar, error) {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		cal := ical.NewCalendar()
		cal.Props.SetText(ical.PropVersion, "2.0")
		cal.Props.SetText(ical.PropProductID, "-//cleo//EN")
		return cal, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar file: %w", err)
	}

	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar file: %w", err)
	}
	return cal, nil
}

// save rewrites the calendar file atomically.
func (c *ICSClient) save(cal *ical.Calendar) error {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write calendar file: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to replace calendar file: %w", err)
	}
	return nil
}

// componentToEvent converts a VEVENT into the Google event shape used
// throughout the pipeline.
func (c *ICSClient) componentToEvent(comp *ical.Component) (*calendar.Event, error) {
	event := &calendar.Event{}

	if uid := comp.Props.Get(ical.PropUID); uid != nil {
		event.Id = uid.Value
	}
	if summary := comp.Props.Get(ical.PropSummary); summary != nil {
		event.Summary = summary.Value
	}
	if desc := comp.Props.Get(ical.PropDescription); desc != nil {
		event.Description = desc.Value
	}
	if loc := comp.Props.Get(ical.PropLocation); loc != nil {
		event.Location = loc.Value
	}
	if rule := comp.Props.Get(ical.PropRecurrenceRule); rule != nil {
		event.Recurrence = []string{"RRULE:" + rule.Value}
	}

	if dtstart := comp.Props.Get(ical.PropDateTimeStart); dtstart != nil {
		start, err := dtstart.DateTime(c.tz)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DTSTART: %w", err)
		}
		if dtstart.Params.Get("VALUE") == "DATE" {
			event.Start = &calendar.EventDateTime{Date: start.Format(icsDateLayout)}
		} else {
			event.Start = &calendar.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: c.tz.String()}
		}
	}
	if dtend := comp.Props.Get(ical.PropDateTimeEnd); dtend != nil {
		end, err := dtend.DateTime(c.tz)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DTEND: %w", err)
		}
		if dtend.Params.Get("VALUE") == "DATE" {
			event.End = &calendar.EventDateTime{Date: end.Format(icsDateLayout)}
		} else {
			event.End = &calendar.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: c.tz.String()}
		}
	}
	if event.Start == nil {
		return nil, fmt.Errorf("entry %q has no start", event.Id)
	}
	if event.End == nil {
		event.End = event.Start
	}

	return event, nil
}

// eventToComponent converts a Google-shaped event into a VEVENT.
func (c *ICSClient) eventToComponent(event *calendar.Event) (*ical.Component, error) {
	comp := ical.NewComponent(ical.CompEvent)

	comp.Props.SetText(ical.PropUID, event.Id)
	if event.Summary != "" {
		comp.Props.SetText(ical.PropSummary, event.Summary)
	}
	if event.Description != "" {
		comp.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		comp.Props.SetText(ical.PropLocation, event.Location)
	}
	if len(event.Recurrence) > 0 {
		rule := ical.NewProp(ical.PropRecurrenceRule)
		rule.Value = strings.TrimPrefix(event.Recurrence[0], "RRULE:")
		comp.Props.Set(rule)
	}

	if err := setBoundary(comp, "DTSTART", event.Start); err != nil {
		return nil, err
	}
	if err := setBoundary(comp, "DTEND", event.End); err != nil {
		return nil, err
	}

	comp.Props.SetDateTime(ical.PropDateTimeStamp, time.Now())
	return comp, nil
}

func setBoundary(comp *ical.Component, name string, boundary *calendar.EventDateTime) error {
	if boundary == nil {
		return nil
	}
	if boundary.Date != "" {
		d, err := time.Parse(icsDateLayout, boundary.Date)
		if err != nil {
			return fmt.Errorf("failed to parse %s date: %w", name, err)
		}
		prop := ical.NewProp(name)
		prop.SetDate(d)
		comp.Props.Set(prop)
		return nil
	}
	if boundary.DateTime != "" {
		t, err := time.Parse(time.RFC3339, boundary.DateTime)
		if err != nil {
			return fmt.Errorf("failed to parse %s datetime: %w", name, err)
		}
		comp.Props.SetDateTime(name, t)
	}
	return nil
}

// recurrenceEnd extends an event's window to the end of its last
// occurrence. Unbounded rules are left alone rather than expanded.
func recurrenceEnd(rule string, start, end time.Time) time.Time {
	body := strings.TrimPrefix(rule, "RRULE:")
	if !strings.Contains(body, "COUNT=") && !strings.Contains(body, "UNTIL=") {
		return end
	}
	r, err := rrule.StrToRRule(body)
	if err != nil {
		return end
	}
	r.DTStart(start)
	occurrences := r.All()
	if len(occurrences) == 0 {
		return end
	}
	return occurrences[len(occurrences)-1].Add(end.Sub(start))
}
