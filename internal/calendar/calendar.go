// Package calendar provides the destination-calendar contract and its
// Google and local-file implementations.
package calendar

import (
	"time"

	"google.golang.org/api/calendar/v3"
)

// Client is a generic interface for calendar destinations. Both the Google
// Calendar client and the local .ics file client implement it.
type Client interface {
	FindOrCreateCalendarByName(name string, colorID string) (string, error)
	GetEvents(calendarID string, timeMin, timeMax time.Time) ([]*calendar.Event, error)
	InsertEvent(calendarID string, event *calendar.Event) (string, error)
	DeleteEvent(calendarID, eventID string) error
}
