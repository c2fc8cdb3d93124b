// Package convert maps PocketBase wire records to domain types and back.
package convert

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/and161185/eventflow/internal/model"
)

// --- helpers ---

// Backend datetime layouts, most specific first. Fractional seconds are
// accepted by time.Parse after the seconds field even when absent from the layout.
var timeLayouts = []string{
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// ParseTime parses a backend datetime; empty or unparsable input yields the zero time.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FlexFloat decodes a number that may arrive as a JSON number, a decimal
// string, an empty string or null.
type FlexFloat struct {
	Value float64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	*f = FlexFloat{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
		if s == "" {
			return nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// free-form text in a coordinate field is treated as absent
		return nil
	}
	f.Value, f.Valid = v, true
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f.Value, 'f', -1, 64)), nil
}

func (f FlexFloat) coord() model.Coordinate {
	return model.Coordinate{Value: f.Value, Valid: f.Valid}
}

// --- wire records ---

// ListResult is a single page of a list response.
type ListResult[T any] struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
	Items      []T `json:"items"`
}

// UserRecord is a users collection record.
type UserRecord struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CategoryRecord is a categories collection record.
type CategoryRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LocationRecord is a locations collection record.
type LocationRecord struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Address string    `json:"address"`
	Lat     FlexFloat `json:"lat"`
	Long    FlexFloat `json:"long"`
}

// EventExpand holds relations inlined with expand=.
type EventExpand struct {
	CategoryID *CategoryRecord `json:"category_id,omitempty"`
	LocationID *LocationRecord `json:"location_id,omitempty"`
}

// EventRecord is an events collection record.
type EventRecord struct {
	ID             string       `json:"id"`
	CollectionID   string       `json:"collectionId"`
	CollectionName string       `json:"collectionName"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Date           string       `json:"date"`
	StartAt        string       `json:"start_at"`
	EndAt          string       `json:"end_at"`
	Price          FlexFloat    `json:"price"`
	CategoryID     string       `json:"category_id"`
	LocationID     string       `json:"location_id"`
	Thumbnail      string       `json:"thumbnail"`
	Created        string       `json:"created"`
	Expand         *EventExpand `json:"expand,omitempty"`
}

// AuthResponse is the auth-with-password / auth-refresh response.
// Current backends return "record", older ones "model".
type AuthResponse struct {
	Token  string      `json:"token"`
	Record *UserRecord `json:"record,omitempty"`
	Model  *UserRecord `json:"model,omitempty"`
}

// --- to domain ---

// ToUser converts a wire user to the domain struct.
func ToUser(r UserRecord) model.User {
	return model.User{ID: r.ID, Name: r.Name, Email: r.Email}
}

// ToUsers converts a slice of wire users.
func ToUsers(in []UserRecord) []model.User {
	out := make([]model.User, 0, len(in))
	for _, r := range in {
		out = append(out, ToUser(r))
	}
	return out
}

// ToCategory converts a wire category.
func ToCategory(r CategoryRecord) model.Category {
	return model.Category{ID: r.ID, Name: r.Name}
}

// ToCategories converts a slice of wire categories.
func ToCategories(in []CategoryRecord) []model.Category {
	out := make([]model.Category, 0, len(in))
	for _, r := range in {
		out = append(out, ToCategory(r))
	}
	return out
}

// ToLocation converts a wire location.
func ToLocation(r LocationRecord) model.Location {
	return model.Location{
		ID:      r.ID,
		Name:    r.Name,
		Address: r.Address,
		Lat:     r.Lat.coord(),
		Long:    r.Long.coord(),
	}
}

// ToLocations converts a slice of wire locations.
func ToLocations(in []LocationRecord) []model.Location {
	out := make([]model.Location, 0, len(in))
	for _, r := range in {
		out = append(out, ToLocation(r))
	}
	return out
}

// ToEvent converts a wire event, including any expanded relations.
func ToEvent(r EventRecord) model.Event {
	ev := model.Event{
		ID:           r.ID,
		CollectionID: r.CollectionID,
		Name:         r.Name,
		Description:  r.Description,
		Date:         ParseTime(r.Date),
		StartAt:      r.StartAt,
		EndAt:        r.EndAt,
		Price:        r.Price.Value,
		CategoryID:   r.CategoryID,
		LocationID:   r.LocationID,
		Thumbnail:    r.Thumbnail,
		Created:      ParseTime(r.Created),
	}
	if ev.CollectionID == "" {
		ev.CollectionID = r.CollectionName
	}
	if r.Expand != nil {
		if r.Expand.CategoryID != nil {
			c := ToCategory(*r.Expand.CategoryID)
			ev.Expand.Category = &c
		}
		if r.Expand.LocationID != nil {
			l := ToLocation(*r.Expand.LocationID)
			ev.Expand.Location = &l
		}
	}
	return ev
}

// ToEvents converts a slice of wire events preserving order.
func ToEvents(in []EventRecord) []model.Event {
	out := make([]model.Event, 0, len(in))
	for _, r := range in {
		out = append(out, ToEvent(r))
	}
	return out
}

// ToAuthState converts an auth response into a session snapshot.
func ToAuthState(r AuthResponse) model.AuthState {
	rec := r.Record
	if rec == nil {
		rec = r.Model
	}
	st := model.AuthState{Token: r.Token}
	if rec != nil {
		u := ToUser(*rec)
		st.User = &u
	}
	return st
}

// --- from domain ---

// FromNewUser builds the registration body. The email is made visible so the
// best-effort uniqueness check can read it from the users list.
func FromNewUser(u model.NewUser) map[string]any {
	return map[string]any{
		"name":            u.Name,
		"email":           u.Email,
		"emailVisibility": true,
		"password":        u.Password,
		"passwordConfirm": u.Password,
	}
}

// FromNewLocation builds the location creation body.
func FromNewLocation(l model.NewLocation) map[string]any {
	return map[string]any{
		"name":    l.Name,
		"address": l.Address,
		"lat":     l.Lat,
		"long":    l.Long,
	}
}
