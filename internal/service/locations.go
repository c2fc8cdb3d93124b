package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/eventflow/internal/errs"
	"github.com/and161185/eventflow/internal/model"
	"github.com/and161185/eventflow/internal/repository"
)

// AddressResolver turns a map point into a display address.
type AddressResolver interface {
	Address(ctx context.Context, lat, long float64) (string, error)
}

// LocationInput holds the create-location screen fields as typed.
type LocationInput struct {
	Name    string
	Address string
	Lat     string
	Long    string
}

// LocationService manages locations.
type LocationService struct {
	repo     repository.LocationRepository
	resolver AddressResolver
	log      *zap.Logger
}

// NewLocationService constructs LocationService. resolver may be nil, in
// which case points are saved without an address.
func NewLocationService(repo repository.LocationRepository, resolver AddressResolver, log *zap.Logger) *LocationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &LocationService{repo: repo, resolver: resolver, log: log}
}

// List returns all locations sorted by name.
func (s *LocationService) List(ctx context.Context) ([]model.Location, error) {
	locs, err := s.repo.List(ctx, model.ListOptions{Sort: "name"})
	if err != nil {
		s.log.Warn("list locations", zap.Error(err))
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return locs, nil
}

func (s *LocationService) Get(ctx context.Context, id string) (model.Location, error) {
	l, err := s.repo.GetOne(ctx, id)
	if err != nil {
		return model.Location{}, fmt.Errorf("get location: %w", err)
	}
	return l, nil
}

// Create validates typed input and creates the location.
func (s *LocationService) Create(ctx context.Context, in LocationInput) (model.Location, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Location{}, errs.Validation("nome", "Informe o nome do local.")
	}
	lat, ok := parseCoord(in.Lat, 90)
	if !ok {
		return model.Location{}, errs.Validation("latitude", "Informe uma latitude válida.")
	}
	long, ok := parseCoord(in.Long, 180)
	if !ok {
		return model.Location{}, errs.Validation("longitude", "Informe uma longitude válida.")
	}
	return s.create(ctx, model.NewLocation{Name: name, Address: strings.TrimSpace(in.Address), Lat: lat, Long: long})
}

// CreateFromPoint creates a location picked on the map. The address is
// reverse geocoded; a geocoding failure leaves it empty.
func (s *LocationService) CreateFromPoint(ctx context.Context, name string, lat, long float64) (model.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Location{}, errs.Validation("nome", "Informe o nome do local.")
	}
	if lat < -90 || lat > 90 {
		return model.Location{}, errs.Validation("latitude", "Informe uma latitude válida.")
	}
	if long < -180 || long > 180 {
		return model.Location{}, errs.Validation("longitude", "Informe uma longitude válida.")
	}
	var addr string
	if s.resolver != nil {
		a, err := s.resolver.Address(ctx, lat, long)
		if err != nil {
			s.log.Warn("reverse geocode", zap.Float64("lat", lat), zap.Float64("long", long), zap.Error(err))
		} else {
			addr = a
		}
	}
	return s.create(ctx, model.NewLocation{Name: name, Address: addr, Lat: lat, Long: long})
}

func (s *LocationService) create(ctx context.Context, nl model.NewLocation) (model.Location, error) {
	l, err := s.repo.Create(ctx, nl)
	if err != nil {
		s.log.Warn("create location", zap.Error(err))
		return model.Location{}, fmt.Errorf("create location: %w", err)
	}
	return l, nil
}

func (s *LocationService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.log.Warn("delete location", zap.String("location_id", id), zap.Error(err))
		return fmt.Errorf("delete location: %w", err)
	}
	return nil
}

// Markers returns the views whose resolved location has both coordinates.
func Markers(views []model.EventView) []model.EventView {
	out := make([]model.EventView, 0, len(views))
	for _, v := range views {
		if v.Location.HasPoint() {
			out = append(out, v)
		}
	}
	return out
}

func parseCoord(s string, limit float64) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < -limit || v > limit {
		return 0, false
	}
	return v, true
}
