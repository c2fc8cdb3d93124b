// Package app wires the client together and keeps the navigation root in
// step with the session.
package app

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/eventflow/internal/config"
	"github.com/and161185/eventflow/internal/feed"
	"github.com/and161185/eventflow/internal/geocode"
	"github.com/and161185/eventflow/internal/model"
	"github.com/and161185/eventflow/internal/repository/pocketbase"
	"github.com/and161185/eventflow/internal/service"
	"github.com/and161185/eventflow/internal/session"
)

// Root is the mounted navigation subtree.
type Root int

const (
	RootAuth Root = iota
	RootHome
)

func (r Root) String() string {
	if r == RootHome {
		return "home"
	}
	return "auth"
}

// Screen names a destination of the navigation tree.
type Screen string

const (
	ScreenLogin       Screen = "login"
	ScreenRegister    Screen = "register"
	ScreenEvents      Screen = "events"
	ScreenMap         Screen = "map"
	ScreenCategories  Screen = "categories"
	ScreenLocations   Screen = "locations"
	ScreenProfile     Screen = "profile"
	ScreenCreateEvent Screen = "create-event"
	ScreenEventDetail Screen = "event-detail"
)

var rootScreens = map[Root][]Screen{
	RootAuth: {ScreenLogin, ScreenRegister},
	RootHome: {ScreenEvents, ScreenMap, ScreenCategories, ScreenLocations, ScreenProfile, ScreenCreateEvent, ScreenEventDetail},
}

// RootFor maps a session state to its navigation root.
func RootFor(st model.AuthState) Root {
	if st.LoggedIn() {
		return RootHome
	}
	return RootAuth
}

// Option customizes App construction.
type Option func(*options)

type options struct {
	gateway []pocketbase.Option
	ticker  feed.TickerFunc
	now     func() time.Time
}

// WithGatewayOptions appends options for the PocketBase client.
func WithGatewayOptions(opts ...pocketbase.Option) Option {
	return func(o *options) { o.gateway = append(o.gateway, opts...) }
}

// WithTicker replaces the polling tick source of screens.
func WithTicker(t feed.TickerFunc) Option { return func(o *options) { o.ticker = t } }

// WithClock replaces time.Now for submissions.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// App owns the process session and the services built on top of it.
type App struct {
	Config     *config.Config
	Log        *zap.Logger
	Session    *session.Session
	Client     *pocketbase.Client
	Auth       service.AuthService
	Events     service.EventService
	Categories *service.CategoryService
	Locations  *service.LocationService
	Geocoder   *geocode.Nominatim

	ticker feed.TickerFunc
	now    func() time.Time

	mu     sync.RWMutex
	root   Root
	onRoot func(Root)
}

// New builds the App, initializes the session from store and installs the
// single session subscription driving the navigation root.
func New(cfg *config.Config, log *zap.Logger, store session.Store, opts ...Option) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	o := options{ticker: feed.RealTicker, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	sess := session.New(store, log.Named("session"))

	gw := append([]pocketbase.Option{
		pocketbase.WithTokenSource(sess),
		pocketbase.WithLogger(log.Named("pocketbase")),
		pocketbase.WithTimeout(cfg.Timeout),
		pocketbase.WithBatchSize(cfg.List.Batch),
	}, o.gateway...)
	client, err := pocketbase.New(cfg.BackendURL, gw...)
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}

	events := pocketbase.NewEventRepo(client)
	locations := pocketbase.NewLocationRepo(client)
	geo := geocode.NewNominatim(cfg.Geocoder.URL, cfg.Geocoder.UserAgent, cfg.Geocoder.Timeout, log.Named("geocode"))

	a := &App{
		Config:     cfg,
		Log:        log,
		Session:    sess,
		Client:     client,
		Auth:       service.NewAuthService(pocketbase.NewUserRepo(client), sess, log.Named("auth")),
		Events:     service.NewEventService(events, locations, log.Named("events"), cfg.Fetch.Concurrency),
		Categories: service.NewCategoryService(pocketbase.NewCategoryRepo(client), log.Named("categories")),
		Locations:  service.NewLocationService(locations, geo, log.Named("locations")),
		Geocoder:   geo,
		ticker:     o.ticker,
		now:        o.now,
	}

	a.root = RootFor(sess.Initialize())
	sess.Subscribe(a.sessionChanged)
	log.Debug("app started", zap.Stringer("root", a.root))
	return a, nil
}

func (a *App) sessionChanged(st model.AuthState) {
	next := RootFor(st)
	a.mu.Lock()
	changed := next != a.root
	a.root = next
	cb := a.onRoot
	a.mu.Unlock()

	if changed {
		a.Log.Info("navigation root changed", zap.Stringer("root", next))
		if cb != nil {
			cb(next)
		}
	}
}

// Root returns the mounted navigation subtree.
func (a *App) Root() Root {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.root
}

// OnRootChange sets the callback run when the root switches.
func (a *App) OnRootChange(fn func(Root)) {
	a.mu.Lock()
	a.onRoot = fn
	a.mu.Unlock()
}

// Reachable reports whether screen belongs to the mounted root.
func (a *App) Reachable(s Screen) bool {
	for _, x := range rootScreens[a.Root()] {
		if x == s {
			return true
		}
	}
	return false
}

// Screens lists the destinations of the mounted root.
func (a *App) Screens() []Screen {
	return append([]Screen(nil), rootScreens[a.Root()]...)
}
