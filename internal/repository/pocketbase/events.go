package pocketbase

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/and161185/eventflow/internal/convert"
	"github.com/and161185/eventflow/internal/model"
)

// EventRepo implements repository.EventRepository.
type EventRepo struct {
	c *Client
}

// NewEventRepo constructs an EventRepo.
func NewEventRepo(c *Client) *EventRepo { return &EventRepo{c: c} }

// List returns all events in server order.
func (r *EventRepo) List(ctx context.Context, opts model.ListOptions) ([]model.Event, error) {
	recs, err := listAll[convert.EventRecord](ctx, r.c, "events.list", model.CollectionEvents, opts)
	if err != nil {
		return nil, err
	}
	return convert.ToEvents(recs), nil
}

// GetOne loads a single event, optionally expanding relations.
func (r *EventRepo) GetOne(ctx context.Context, id string, expand []string) (model.Event, error) {
	req := request{op: "events.get", method: http.MethodGet, path: recordsPath(model.CollectionEvents, id)}
	if len(expand) > 0 {
		req.query = url.Values{"expand": {strings.Join(expand, ",")}}
	}
	var rec convert.EventRecord
	if err := r.c.do(ctx, req, &rec); err != nil {
		return model.Event{}, err
	}
	return convert.ToEvent(rec), nil
}

// Create submits the payload as multipart/form-data.
func (r *EventRepo) Create(ctx context.Context, p model.EventPayload) (model.Event, error) {
	ct, body, err := convert.EncodeMultipart(p)
	if err != nil {
		return model.Event{}, err
	}
	req := request{
		op:          "events.create",
		method:      http.MethodPost,
		path:        recordsPath(model.CollectionEvents),
		body:        body,
		contentType: ct,
	}
	var rec convert.EventRecord
	if err := r.c.do(ctx, req, &rec); err != nil {
		return model.Event{}, err
	}
	return convert.ToEvent(rec), nil
}

// Delete removes an event.
func (r *EventRepo) Delete(ctx context.Context, id string) error {
	return r.c.do(ctx, request{op: "events.delete", method: http.MethodDelete, path: recordsPath(model.CollectionEvents, id)}, nil)
}

// FileURL resolves a file stored on the event record.
func (r *EventRepo) FileURL(ev model.Event, filename string) string {
	coll := ev.CollectionID
	if coll == "" {
		coll = model.CollectionEvents
	}
	return r.c.FileURL(coll, ev.ID, filename)
}
