// Package session holds the process-wide authentication state and notifies
// observers about login, logout and token refresh transitions.
package session

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/and161185/eventflow/internal/model"
)

// Listener receives the new state after every transition.
type Listener func(model.AuthState)

// Session is the single source of the current user and token.
type Session struct {
	store Store
	log   *zap.Logger
	now   func() time.Time

	mu        sync.RWMutex
	state     model.AuthState
	listeners []Listener
}

// New constructs a Session backed by store. Call Initialize before use.
func New(store Store, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{store: store, log: log, now: time.Now}
}

// Initialize loads the persisted state without any network round trip.
// Unreadable, incomplete or expired state is treated as logged out.
func (s *Session) Initialize() model.AuthState {
	st, err := s.store.Load()
	if err != nil {
		s.log.Warn("persisted session unreadable, starting logged out", zap.Error(err))
		st = model.AuthState{}
	}
	if st.LoggedIn() && TokenExpired(st.Token, s.now()) {
		s.log.Info("persisted session expired")
		st = model.AuthState{}
	}
	if !st.LoggedIn() {
		st = model.AuthState{}
	}

	s.mu.Lock()
	s.state = copyState(st)
	s.mu.Unlock()
	return copyState(st)
}

// Subscribe registers fn to be called synchronously after each transition.
func (s *Session) Subscribe(fn Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// State returns a snapshot of the current state.
func (s *Session) State() model.AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyState(s.state)
}

// Current returns the logged-in user or nil.
func (s *Session) Current() *model.User {
	return s.State().User
}

// Token returns the current auth token, empty when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// IsValid reports whether a user is present and the token has not expired.
func (s *Session) IsValid() bool {
	st := s.State()
	return st.LoggedIn() && !TokenExpired(st.Token, s.now())
}

// Save sets a new state (login or token refresh), persists it and notifies
// listeners. The in-memory state changes even if persisting fails; the store
// error is returned.
func (s *Session) Save(st model.AuthState) error {
	st = copyState(st)
	err := s.store.Save(st)
	if err != nil {
		s.log.Warn("persist session", zap.Error(err))
	}
	s.set(st)
	return err
}

// Clear logs out: the state is cleared, removed from the store and listeners notified.
func (s *Session) Clear() error {
	err := s.store.Clear()
	if err != nil {
		s.log.Warn("clear persisted session", zap.Error(err))
	}
	s.set(model.AuthState{})
	return err
}

func (s *Session) set(st model.AuthState) {
	s.mu.Lock()
	s.state = st
	ls := make([]Listener, len(s.listeners))
	copy(ls, s.listeners)
	s.mu.Unlock()

	for _, fn := range ls {
		fn(copyState(st))
	}
}

// TokenExpired reports whether the token's exp claim is in the past.
// The signature is not verified; only the backend can do that. A token that
// cannot be decoded counts as expired, one without exp does not.
func TokenExpired(token string, now time.Time) bool {
	if token == "" {
		return true
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return true
	}
	if exp == nil {
		return len(claims) == 0
	}
	return !exp.Time.After(now)
}
