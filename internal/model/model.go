// Package model defines domain entities used by services and the gateway.
package model

import (
	"strings"
	"time"
)

// Collection names on the backend.
const (
	CollectionUsers      = "users"
	CollectionEvents     = "events"
	CollectionCategories = "categories"
	CollectionLocations  = "locations"
)

// Relation field names usable in ListOptions.Expand.
const (
	RelCategory = "category_id"
	RelLocation = "location_id"
)

// User is an account owned by the backend; read-only except at registration.
type User struct {
	ID    string
	Name  string
	Email string
}

// DisplayName returns the name, or the email when no name is set.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.Email
}

// AuthState is a snapshot of the process-wide session. User is nil when logged out.
type AuthState struct {
	Token string
	User  *User
}

// LoggedIn reports whether the snapshot carries a user.
func (s AuthState) LoggedIn() bool { return s.User != nil && s.Token != "" }

// Category is a flat event category.
type Category struct {
	ID   string
	Name string
}

// CategoryIndex maps category id to category for local name resolution.
type CategoryIndex map[string]Category

// IndexCategories builds a CategoryIndex from a fetched list.
func IndexCategories(cats []Category) CategoryIndex {
	idx := make(CategoryIndex, len(cats))
	for _, c := range cats {
		idx[c.ID] = c
	}
	return idx
}

// Coordinate is an optional decimal coordinate.
type Coordinate struct {
	Value float64
	Valid bool
}

// Coord returns a valid Coordinate.
func Coord(v float64) Coordinate { return Coordinate{Value: v, Valid: true} }

// Location is a named place with optional coordinates.
type Location struct {
	ID      string
	Name    string
	Address string
	Lat     Coordinate
	Long    Coordinate
}

// HasPoint reports whether both coordinates are present.
func (l *Location) HasPoint() bool {
	return l != nil && l.Lat.Valid && l.Long.Valid
}

// Expand holds relations inlined by the backend on request.
type Expand struct {
	Category *Category
	Location *Location
}

// Event is a single event record.
type Event struct {
	ID           string
	CollectionID string
	Name         string
	Description  string
	Date         time.Time // zero if unset
	StartAt      string    // HH:MM
	EndAt        string    // HH:MM
	Price        float64
	CategoryID   string
	LocationID   string
	Thumbnail    string // file name on the record, empty if none
	Created      time.Time
	Expand       Expand
}

// EventView is an event with its resolved location. Built per fetch, never persisted.
type EventView struct {
	Event
	Location *Location
}

// ListOptions controls list requests.
type ListOptions struct {
	Sort   string   // e.g. "-created", "name"
	Expand []string // relation field names
}

// NewUser is a registration request.
type NewUser struct {
	Name     string
	Email    string
	Password string
}

// NewLocation is a location creation request.
type NewLocation struct {
	Name    string
	Address string
	Lat     float64
	Long    float64
}

// Field is a single text part of a multipart payload.
type Field struct {
	Name  string
	Value string
}

// FilePart is a binary part of a multipart payload.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// EventPayload is the ordered part list submitted when creating an event.
type EventPayload struct {
	Fields []Field
	File   *FilePart // nil if no image
}

// Value returns the value of the named field and whether it is present.
func (p EventPayload) Value(name string) (string, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}
