package pocketbase

import (
	"context"
	"net/http"

	"github.com/and161185/eventflow/internal/convert"
	"github.com/and161185/eventflow/internal/model"
)

// LocationRepo implements repository.LocationRepository.
type LocationRepo struct {
	c *Client
}

// NewLocationRepo constructs a LocationRepo.
func NewLocationRepo(c *Client) *LocationRepo { return &LocationRepo{c: c} }

func (r *LocationRepo) List(ctx context.Context, opts model.ListOptions) ([]model.Location, error) {
	recs, err := listAll[convert.LocationRecord](ctx, r.c, "locations.list", model.CollectionLocations, opts)
	if err != nil {
		return nil, err
	}
	return convert.ToLocations(recs), nil
}

func (r *LocationRepo) GetOne(ctx context.Context, id string) (model.Location, error) {
	var rec convert.LocationRecord
	req := request{op: "locations.get", method: http.MethodGet, path: recordsPath(model.CollectionLocations, id)}
	if err := r.c.do(ctx, req, &rec); err != nil {
		return model.Location{}, err
	}
	return convert.ToLocation(rec), nil
}

func (r *LocationRepo) Create(ctx context.Context, l model.NewLocation) (model.Location, error) {
	req, err := jsonRequest("locations.create", http.MethodPost, recordsPath(model.CollectionLocations), convert.FromNewLocation(l))
	if err != nil {
		return model.Location{}, err
	}
	var rec convert.LocationRecord
	if err := r.c.do(ctx, req, &rec); err != nil {
		return model.Location{}, err
	}
	return convert.ToLocation(rec), nil
}

func (r *LocationRepo) Delete(ctx context.Context, id string) error {
	return r.c.do(ctx, request{op: "locations.delete", method: http.MethodDelete, path: recordsPath(model.CollectionLocations, id)}, nil)
}
