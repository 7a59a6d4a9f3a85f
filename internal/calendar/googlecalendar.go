package calendar

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleClient is a wrapper around the Google Calendar API service.
type GoogleClient struct {
	service *calendar.Service
}

// NewGoogleClient creates a new Google Calendar API client using the
// provided authenticated HTTP client.
func NewGoogleClient(ctx context.Context, httpClient *http.Client) (*GoogleClient, error) {
	service, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &GoogleClient{service: service}, nil
}

// FindOrCreateCalendarByName finds an existing calendar by name or creates
// a new one. Returns the calendar ID.
func (c *GoogleClient) FindOrCreateCalendarByName(name string, colorID string) (string, error) {
	calendarList, err := c.service.CalendarList.List().Do()
	if err != nil {
		return "", fmt.Errorf("failed to list calendars: %w", err)
	}

	for _, cal := range calendarList.Items {
		if cal.Summary == name {
			return cal.Id, nil
		}
	}

	newCalendar := &calendar.Calendar{
		Summary:     name,
		Description: "Events extracted from email",
	}

	created, err := c.service.Calendars.Insert(newCalendar).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create calendar: %w", err)
	}

	if colorID != "" {
		_, err = c.service.CalendarList.Patch(created.Id, &calendar.CalendarListEntry{
			ColorId: colorID,
		}).Do()
		if err != nil {
			// Cosmetic, the calendar is still usable.
			log.Printf("Warning: failed to set calendar color: %v", err)
		}
	}

	return created.Id, nil
}

// GetEvents retrieves events from a calendar within the specified time
// window. Sets SingleEvents = true to expand recurring events.
func (c *GoogleClient) GetEvents(calendarID string, timeMin, timeMax time.Time) ([]*calendar.Event, error) {
	eventsList, err := c.service.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return eventsList.Items, nil
}

// InsertEvent inserts a new event into a calendar and returns its link.
// Sets sendUpdates="none" to prevent notifications.
func (c *GoogleClient) InsertEvent(calendarID string, event *calendar.Event) (string, error) {
	created, err := c.service.Events.Insert(calendarID, event).
		SendUpdates("none").
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to insert event: %w", err)
	}

	return created.HtmlLink, nil
}

// DeleteEvent deletes an event from a calendar.
func (c *GoogleClient) DeleteEvent(calendarID, eventID string) error {
	err := c.service.Events.Delete(calendarID, eventID).
		SendUpdates("none").
		Do()
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	return nil
}
