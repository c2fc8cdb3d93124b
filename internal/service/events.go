package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/eventflow/internal/model"
	"github.com/and161185/eventflow/internal/repository"
)

const defaultConcurrency = 8

// LocationLookup loads a location by id.
type LocationLookup func(ctx context.Context, id string) (*model.Location, error)

// ResolveLocation returns the event's location: the expanded relation when
// present, otherwise the result of lookup for location_id. An event without
// either resolves to nil and lookup is not called.
func ResolveLocation(ctx context.Context, ev model.Event, lookup LocationLookup) (*model.Location, error) {
	if ev.Expand.Location != nil {
		l := *ev.Expand.Location
		return &l, nil
	}
	if ev.LocationID == "" || lookup == nil {
		return nil, nil
	}
	return lookup(ctx, ev.LocationID)
}

// EventService defines event listing, detail, creation and deletion.
type EventService interface {
	// Fetch lists events and resolves each one's location.
	Fetch(ctx context.Context, opts model.ListOptions) ([]model.EventView, error)
	// Get loads one event with its resolved location.
	Get(ctx context.Context, id string) (model.EventView, error)
	// Create validates the form, builds the payload and submits it.
	Create(ctx context.Context, form EventForm, now time.Time) (model.Event, error)
	// Delete removes an event.
	Delete(ctx context.Context, id string) error
	// ThumbnailURL resolves the event image URL, empty if none.
	ThumbnailURL(ev model.Event) string
}

type EventServiceImpl struct {
	events      repository.EventRepository
	locations   repository.LocationRepository
	log         *zap.Logger
	concurrency int
}

// NewEventService constructs EventService. concurrency bounds the parallel
// location lookups of a single Fetch.
func NewEventService(events repository.EventRepository, locations repository.LocationRepository, log *zap.Logger, concurrency int) *EventServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &EventServiceImpl{events: events, locations: locations, log: log, concurrency: concurrency}
}

func (s *EventServiceImpl) lookup(ctx context.Context, id string) (*model.Location, error) {
	l, err := s.locations.GetOne(ctx, id)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Fetch lists events and resolves every location concurrently. The join is
// all-settled: a failed lookup is logged and leaves that event's location nil.
// The result has the length and order of the list response.
func (s *EventServiceImpl) Fetch(ctx context.Context, opts model.ListOptions) ([]model.EventView, error) {
	events, err := s.events.List(ctx, opts)
	if err != nil {
		s.log.Warn("fetch events", zap.Error(err))
		return nil, fmt.Errorf("fetch events: %w", err)
	}

	views := make([]model.EventView, len(events))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, ev := range events {
		views[i].Event = ev
		g.Go(func() error {
			loc, err := ResolveLocation(ctx, ev, s.lookup)
			if err != nil {
				s.log.Warn("resolve event location",
					zap.String("event_id", ev.ID),
					zap.String("location_id", ev.LocationID),
					zap.Error(err))
				return nil
			}
			views[i].Location = loc
			return nil
		})
	}
	_ = g.Wait()
	return views, nil
}

// Get loads an event with both relations expanded.
func (s *EventServiceImpl) Get(ctx context.Context, id string) (model.EventView, error) {
	ev, err := s.events.GetOne(ctx, id, []string{model.RelCategory, model.RelLocation})
	if err != nil {
		return model.EventView{}, fmt.Errorf("get event: %w", err)
	}
	view := model.EventView{Event: ev}
	loc, err := ResolveLocation(ctx, ev, s.lookup)
	if err != nil {
		s.log.Warn("resolve event location", zap.String("event_id", ev.ID), zap.Error(err))
	}
	view.Location = loc
	return view, nil
}

// Create submits a new event. Validation errors are returned before any
// request is made.
func (s *EventServiceImpl) Create(ctx context.Context, form EventForm, now time.Time) (model.Event, error) {
	valid, err := Validate(form)
	if err != nil {
		return model.Event{}, err
	}
	payload := BuildPayload(valid, now)
	ev, err := s.events.Create(ctx, payload)
	if err != nil {
		s.log.Warn("create event", zap.Error(err))
		return model.Event{}, fmt.Errorf("create event: %w", err)
	}
	s.log.Info("event created", zap.String("event_id", ev.ID))
	return ev, nil
}

// Delete removes an event.
func (s *EventServiceImpl) Delete(ctx context.Context, id string) error {
	if err := s.events.Delete(ctx, id); err != nil {
		s.log.Warn("delete event", zap.String("event_id", id), zap.Error(err))
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func (s *EventServiceImpl) ThumbnailURL(ev model.Event) string {
	if ev.Thumbnail == "" {
		return ""
	}
	return s.events.FileURL(ev, ev.Thumbnail)
}
