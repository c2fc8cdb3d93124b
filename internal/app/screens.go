package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/eventflow/internal/feed"
	"github.com/and161185/eventflow/internal/model"
	"github.com/and161185/eventflow/internal/service"
)

// EventRow is one line of the event list.
type EventRow struct {
	model.EventView
	Category string
}

// EventList is the list screen: newest events first with their categories,
// polled while mounted and filtered locally by name.
type EventList struct {
	app  *App
	feed *feed.Feed[model.EventView]

	mu    sync.Mutex
	cats  model.CategoryIndex
	query string
}

// NewEventList builds an unmounted list screen.
func (a *App) NewEventList() *EventList {
	l := &EventList{app: a, cats: model.CategoryIndex{}}
	l.feed = feed.New(func(ctx context.Context) ([]model.EventView, error) {
		return a.Events.Fetch(ctx, model.ListOptions{
			Sort:   "-created",
			Expand: []string{model.RelCategory},
		})
	}, feed.Options{
		Interval: a.Config.Poll.EventsInterval,
		Ticker:   a.ticker,
		Log:      a.Log.Named("events-feed"),
	})
	return l
}

// Mount loads the categories once, then fetches events and starts polling.
// A category failure leaves names to the expanded relation.
func (l *EventList) Mount(ctx context.Context) error {
	idx, err := l.app.Categories.Index(ctx)
	if err != nil {
		l.app.Log.Warn("categories unavailable", zap.Error(err))
		idx = model.CategoryIndex{}
	}
	l.mu.Lock()
	l.cats = idx
	l.mu.Unlock()
	return l.feed.Mount(ctx)
}

// Unmount stops polling.
func (l *EventList) Unmount() { l.feed.Unmount() }

// Refresh re-fetches the list.
func (l *EventList) Refresh(ctx context.Context) error {
	_, err := l.feed.Refresh(ctx)
	return err
}

// Search sets the name filter; no request is made.
func (l *EventList) Search(q string) {
	l.mu.Lock()
	l.query = q
	l.mu.Unlock()
}

// Rows returns the latest list filtered by the current query.
func (l *EventList) Rows() []EventRow {
	l.mu.Lock()
	q, idx := l.query, l.cats
	l.mu.Unlock()
	return rows(service.FilterByName(l.feed.Items(), q), idx)
}

// OnUpdate runs fn with the filtered rows after every applied fetch.
func (l *EventList) OnUpdate(fn func([]EventRow)) {
	l.feed.OnUpdate(func([]model.EventView) { fn(l.Rows()) })
}

// Err returns the latest fetch error.
func (l *EventList) Err() error { return l.feed.Err() }

// Feed exposes the underlying list state.
func (l *EventList) Feed() *feed.Feed[model.EventView] { return l.feed }

func rows(views []model.EventView, idx model.CategoryIndex) []EventRow {
	out := make([]EventRow, len(views))
	for i, v := range views {
		out[i] = EventRow{EventView: v, Category: service.CategoryName(v.Event, idx)}
	}
	return out
}

// EventMap is the map screen: events with resolved locations, polled while
// mounted.
type EventMap struct {
	feed *feed.Feed[model.EventView]
}

// NewEventMap builds an unmounted map screen.
func (a *App) NewEventMap() *EventMap {
	return &EventMap{feed: feed.New(func(ctx context.Context) ([]model.EventView, error) {
		return a.Events.Fetch(ctx, model.ListOptions{
			Expand: []string{model.RelLocation, model.RelCategory},
		})
	}, feed.Options{
		Interval: a.Config.Poll.MapInterval,
		Ticker:   a.ticker,
		Log:      a.Log.Named("map-feed"),
	})}
}

// Mount fetches once and starts polling.
func (m *EventMap) Mount(ctx context.Context) error { return m.feed.Mount(ctx) }

// Unmount stops polling.
func (m *EventMap) Unmount() { m.feed.Unmount() }

// Refresh re-fetches the events.
func (m *EventMap) Refresh(ctx context.Context) error {
	_, err := m.feed.Refresh(ctx)
	return err
}

// Markers returns the events that can be placed on the map.
func (m *EventMap) Markers() []model.EventView { return service.Markers(m.feed.Items()) }

// OnUpdate runs fn with the markers after every applied fetch.
func (m *EventMap) OnUpdate(fn func([]model.EventView)) {
	m.feed.OnUpdate(func(v []model.EventView) { fn(service.Markers(v)) })
}

// Feed exposes the underlying list state.
func (m *EventMap) Feed() *feed.Feed[model.EventView] { return m.feed }

// SubmitEvent creates the event from form. On success the form is reset and
// refresh always runs so the caller's list shows the stored record; a refresh
// failure is logged and does not fail the submission.
func (a *App) SubmitEvent(ctx context.Context, form *service.EventForm, refresh func(context.Context) error) (model.Event, error) {
	now := a.now()
	ev, err := a.Events.Create(ctx, *form, now)
	if err != nil {
		return model.Event{}, err
	}
	form.Reset(now)
	if refresh != nil {
		if rerr := refresh(ctx); rerr != nil {
			a.Log.Warn("refresh after create", zap.String("event_id", ev.ID), zap.Error(rerr))
		}
	}
	return ev, nil
}
