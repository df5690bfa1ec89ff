package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/tracks2cal/tracks2cal/internal/paging"
)

// eventTimeLayout is the timestamp format submitted to and read from the
// Calendar API (whole seconds, UTC).
const eventTimeLayout = "2006-01-02T15:04:05Z"

// Event is the reduced form of an existing calendar event, loaded once per
// synchronization run.
type Event struct {
	Title string
	Start time.Time
	End   time.Time
}

// EventInput carries everything needed to create one calendar event.
type EventInput struct {
	Title       string
	Start       time.Time
	End         time.Time
	Location    string
	Description string
}

type Service interface {
	// EnsureCalendar returns the id of the calendar with the given summary,
	// creating the calendar when no such calendar exists.
	EnsureCalendar(ctx context.Context, summary string) (string, error)

	// ListEvents loads every event of the calendar.
	ListEvents(ctx context.Context, calendarID string) ([]Event, error)

	// InsertEvent creates a new event. No retry on failure.
	InsertEvent(ctx context.Context, calendarID string, input EventInput) error
}

// Client wraps the Google Calendar API service.
type Client struct {
	service *gcal.Service
}

// NewClient creates a new Google Calendar API client using an authorized
// HTTP client. Optionally accepts an endpoint URL for testing with mock
// servers.
func NewClient(ctx context.Context, httpClient *http.Client, endpoint ...string) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if len(endpoint) > 0 && endpoint[0] != "" {
		opts = append(opts, option.WithEndpoint(endpoint[0]))
	}

	srv, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %w", err)
	}

	return &Client{service: srv}, nil
}

func (c *Client) EnsureCalendar(ctx context.Context, summary string) (string, error) {
	calendars, err := paging.FetchAll(func(pageToken string) ([]*gcal.CalendarListEntry, string, error) {
		call := c.service.CalendarList.List().Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		res, err := call.Do()
		if err != nil {
			return nil, "", err
		}
		return res.Items, res.NextPageToken, nil
	})
	if err != nil {
		return "", fmt.Errorf("unable to retrieve calendars from Google Calendar: %w", err)
	}

	for _, cal := range calendars {
		if cal.Summary == summary {
			return cal.Id, nil
		}
	}

	log.Infof("No calendar named %q found, creating one", summary)
	created, err := c.service.Calendars.Insert(&gcal.Calendar{Summary: summary}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create calendar %q: %w", summary, err)
	}
	return created.Id, nil
}

func (c *Client) ListEvents(ctx context.Context, calendarID string) ([]Event, error) {
	googleEvents, err := paging.FetchAll(func(pageToken string) ([]*gcal.Event, string, error) {
		call := c.service.Events.List(calendarID).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		res, err := call.Do()
		if err != nil {
			return nil, "", err
		}
		return res.Items, res.NextPageToken, nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve events from Google Calendar: %w", err)
	}

	events := make([]Event, 0, len(googleEvents))
	for _, item := range googleEvents {
		if item.Start == nil || item.Start.DateTime == "" || item.End == nil || item.End.DateTime == "" {
			// all-day events carry dates only and can never match a track
			log.Debugf("ignoring event without timestamps: %q", item.Summary)
			continue
		}
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			log.Warnf("ignoring event %q with unparseable start time %q", item.Summary, item.Start.DateTime)
			continue
		}
		end, err := time.Parse(time.RFC3339, item.End.DateTime)
		if err != nil {
			log.Warnf("ignoring event %q with unparseable end time %q", item.Summary, item.End.DateTime)
			continue
		}
		events = append(events, Event{
			Title: item.Summary,
			Start: start,
			End:   end,
		})
	}
	return events, nil
}

func (c *Client) InsertEvent(ctx context.Context, calendarID string, input EventInput) error {
	log.Debugf("Adding event %q to calendar %s", input.Title, calendarID)

	created, err := c.service.Events.Insert(calendarID, &gcal.Event{
		Summary:     input.Title,
		Location:    input.Location,
		Description: input.Description,
		Start: &gcal.EventDateTime{
			DateTime: input.Start.UTC().Format(eventTimeLayout),
		},
		End: &gcal.EventDateTime{
			DateTime: input.End.UTC().Format(eventTimeLayout),
		},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to insert event in Google Calendar: %w", err)
	}

	log.Debugf("Event %q created", created.Summary)
	return nil
}
