package service

import (
	"context"
	"strings"
	"sync"

	"github.com/and161185/eventflow/internal/errs"
	"github.com/and161185/eventflow/internal/model"
	"github.com/and161185/eventflow/internal/repository"
)

type fakeUsers struct {
	list    []model.User
	listErr error

	created   []model.NewUser
	createErr error

	authState model.AuthState
	authErr   error

	refreshState model.AuthState
	refreshErr   error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) AuthWithPassword(_ context.Context, _, _ string) (model.AuthState, error) {
	return f.authState, f.authErr
}
func (f *fakeUsers) AuthRefresh(context.Context) (model.AuthState, error) {
	return f.refreshState, f.refreshErr
}
func (f *fakeUsers) Create(_ context.Context, u model.NewUser) (model.User, error) {
	if f.createErr != nil {
		return model.User{}, f.createErr
	}
	f.created = append(f.created, u)
	return model.User{ID: "u-new", Name: u.Name, Email: u.Email}, nil
}
func (f *fakeUsers) List(context.Context, model.ListOptions) ([]model.User, error) {
	return append([]model.User(nil), f.list...), f.listErr
}

type fakeSession struct {
	state   model.AuthState
	saveErr error
	saves   int
	clears  int
}

func (f *fakeSession) Save(st model.AuthState) error {
	f.saves++
	f.state = st
	return f.saveErr
}
func (f *fakeSession) Clear() error {
	f.clears++
	f.state = model.AuthState{}
	return nil
}
func (f *fakeSession) Current() *model.User { return f.state.User }

type fakeEvents struct {
	mu sync.Mutex

	list     []model.Event
	listErr  error
	listOpts []model.ListOptions

	one    model.Event
	oneErr error

	created   []model.EventPayload
	createErr error

	deleted   []string
	deleteErr error
}

var _ repository.EventRepository = (*fakeEvents)(nil)

func (f *fakeEvents) List(_ context.Context, opts model.ListOptions) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listOpts = append(f.listOpts, opts)
	return append([]model.Event(nil), f.list...), f.listErr
}
func (f *fakeEvents) GetOne(_ context.Context, _ string, _ []string) (model.Event, error) {
	return f.one, f.oneErr
}
func (f *fakeEvents) Create(_ context.Context, p model.EventPayload) (model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return model.Event{}, f.createErr
	}
	f.created = append(f.created, p)
	name, _ := p.Value(FieldName)
	return model.Event{ID: "ev-new", Name: name}, nil
}
func (f *fakeEvents) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}
func (f *fakeEvents) FileURL(ev model.Event, filename string) string {
	return "http://pb/api/files/events/" + ev.ID + "/" + filename
}

type fakeLocations struct {
	mu sync.Mutex

	byID   map[string]model.Location
	failID map[string]error
	calls  []string

	list      []model.Location
	created   []model.NewLocation
	createErr error
	deleted   []string
}

var _ repository.LocationRepository = (*fakeLocations)(nil)

func (f *fakeLocations) List(context.Context, model.ListOptions) ([]model.Location, error) {
	return append([]model.Location(nil), f.list...), nil
}
func (f *fakeLocations) GetOne(_ context.Context, id string) (model.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if err := f.failID[id]; err != nil {
		return model.Location{}, err
	}
	l, ok := f.byID[id]
	if !ok {
		return model.Location{}, &errs.APIError{Status: 404}
	}
	return l, nil
}
func (f *fakeLocations) Create(_ context.Context, l model.NewLocation) (model.Location, error) {
	if f.createErr != nil {
		return model.Location{}, f.createErr
	}
	f.created = append(f.created, l)
	return model.Location{ID: "loc-new", Name: l.Name, Address: l.Address, Lat: model.Coord(l.Lat), Long: model.Coord(l.Long)}, nil
}
func (f *fakeLocations) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeLocations) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeCategories struct {
	items     []model.Category
	listOpts  []model.ListOptions
	updateErr error
	deleted   []string
}

var _ repository.CategoryRepository = (*fakeCategories)(nil)

func (f *fakeCategories) List(_ context.Context, opts model.ListOptions) ([]model.Category, error) {
	f.listOpts = append(f.listOpts, opts)
	return append([]model.Category(nil), f.items...), nil
}
func (f *fakeCategories) Create(_ context.Context, name string) (model.Category, error) {
	c := model.Category{ID: "c" + strings.ToLower(name), Name: name}
	f.items = append(f.items, c)
	return c, nil
}
func (f *fakeCategories) Update(_ context.Context, id, name string) (model.Category, error) {
	if f.updateErr != nil {
		return model.Category{}, f.updateErr
	}
	return model.Category{ID: id, Name: name}, nil
}
func (f *fakeCategories) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeResolver struct {
	addr string
	err  error
}

func (f fakeResolver) Address(context.Context, float64, float64) (string, error) { return f.addr, f.err }
