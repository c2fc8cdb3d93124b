// Package repository defines the gateway contracts implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/eventflow/internal/model"
)

// UserRepository provides authentication and user records.
type UserRepository interface {
	// AuthWithPassword exchanges credentials for a token and the user record.
	AuthWithPassword(ctx context.Context, email, password string) (model.AuthState, error)
	// AuthRefresh renews the current token.
	AuthRefresh(ctx context.Context) (model.AuthState, error)
	// Create registers a new user.
	Create(ctx context.Context, u model.NewUser) (model.User, error)
	// List returns all visible users.
	List(ctx context.Context, opts model.ListOptions) ([]model.User, error)
}

// EventRepository provides event records.
type EventRepository interface {
	// List returns all events in server order.
	List(ctx context.Context, opts model.ListOptions) ([]model.Event, error)
	// GetOne loads a single event.
	GetOne(ctx context.Context, id string, expand []string) (model.Event, error)
	// Create submits a multipart payload and returns the created record.
	Create(ctx context.Context, p model.EventPayload) (model.Event, error)
	// Delete removes an event.
	Delete(ctx context.Context, id string) error
	// FileURL resolves the absolute URL of a file stored on an event.
	FileURL(ev model.Event, filename string) string
}

// CategoryRepository provides category records.
type CategoryRepository interface {
	List(ctx context.Context, opts model.ListOptions) ([]model.Category, error)
	Create(ctx context.Context, name string) (model.Category, error)
	Update(ctx context.Context, id, name string) (model.Category, error)
	Delete(ctx context.Context, id string) error
}

// LocationRepository provides location records.
type LocationRepository interface {
	List(ctx context.Context, opts model.ListOptions) ([]model.Location, error)
	// GetOne loads a single location; used to resolve unexpanded relations.
	GetOne(ctx context.Context, id string) (model.Location, error)
	Create(ctx context.Context, l model.NewLocation) (model.Location, error)
	Delete(ctx context.Context, id string) error
}
