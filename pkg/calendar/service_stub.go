package calendar

import (
	"context"
	"fmt"
)

// ServiceStub is an in-memory Service implementation for tests.
type ServiceStub struct {
	Calendars map[string]string // summary -> id
	Events    map[string][]Event
	Inserted  map[string][]EventInput
	nextID    int

	EnsureErr error
	ListErr   error
	InsertErr error
}

func NewServiceStub() *ServiceStub {
	return &ServiceStub{
		Calendars: make(map[string]string),
		Events:    make(map[string][]Event),
		Inserted:  make(map[string][]EventInput),
		nextID:    1,
	}
}

func (s *ServiceStub) EnsureCalendar(_ context.Context, summary string) (string, error) {
	if s.EnsureErr != nil {
		return "", s.EnsureErr
	}
	if id, ok := s.Calendars[summary]; ok {
		return id, nil
	}
	id := fmt.Sprintf("cal-%d", s.nextID)
	s.nextID++
	s.Calendars[summary] = id
	return id, nil
}

func (s *ServiceStub) ListEvents(_ context.Context, calendarID string) ([]Event, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	return s.Events[calendarID], nil
}

func (s *ServiceStub) InsertEvent(_ context.Context, calendarID string, input EventInput) error {
	if s.InsertErr != nil {
		return s.InsertErr
	}
	s.Inserted[calendarID] = append(s.Inserted[calendarID], input)
	s.Events[calendarID] = append(s.Events[calendarID], Event{
		Title: input.Title,
		Start: input.Start,
		End:   input.End,
	})
	return nil
}
