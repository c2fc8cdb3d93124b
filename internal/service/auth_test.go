package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/and161185/eventflow/internal/errs"
	"github.com/and161185/eventflow/internal/model"
)

func TestAuth_Login(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{}
	sess := &fakeSession{}
	s := NewAuthService(users, sess, nil)

	if _, err := s.Login(context.Background(), "  ", "pw"); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error on blank email, got %v", err)
	}
	if _, err := s.Login(context.Background(), "a@b.c", ""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error on blank password, got %v", err)
	}

	users.authErr = &errs.APIError{Status: 400, Message: "Failed to authenticate."}
	if _, err := s.Login(context.Background(), "a@b.c", "bad"); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized on rejected credentials, got %v", err)
	}

	users.authErr = errs.Network("auth", errors.New("dial"))
	if _, err := s.Login(context.Background(), "a@b.c", "pw"); !errors.Is(err, errs.ErrNetwork) {
		t.Fatalf("want network error propagated, got %v", err)
	}
	if sess.saves != 0 {
		t.Fatalf("session must not be saved on failure")
	}

	users.authErr = nil
	users.authState = model.AuthState{Token: "tok", User: &model.User{ID: "u1", Email: "a@b.c"}}
	u, err := s.Login(context.Background(), " a@b.c ", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if u.ID != "u1" || sess.saves != 1 || sess.state.Token != "tok" {
		t.Fatalf("bad login result: %+v, session %+v", u, sess.state)
	}
}

func TestAuth_Login_RejectionIsLogged(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	users := &fakeUsers{authErr: &errs.APIError{Status: 400, Message: "Failed to authenticate."}}
	s := NewAuthService(users, &fakeSession{}, zap.New(core))

	if _, err := s.Login(context.Background(), "a@b.c", "bad"); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	entries := logs.FilterMessage("login rejected").All()
	if len(entries) != 1 {
		t.Fatalf("want one rejection log entry, got %d", len(entries))
	}
	if _, ok := entries[0].ContextMap()["error"]; !ok {
		t.Fatalf("rejection log must carry the error: %v", entries[0].ContextMap())
	}
}

func TestAuth_Login_PersistFailureStillLogsIn(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{authState: model.AuthState{Token: "tok", User: &model.User{ID: "u1"}}}
	sess := &fakeSession{saveErr: errors.New("disk full")}
	s := NewAuthService(users, sess, nil)

	if _, err := s.Login(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Current() == nil {
		t.Fatalf("in-memory session must be set")
	}
}

func TestAuth_Register(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{list: []model.User{{ID: "u1", Email: "Ana@X.io"}}}
	sess := &fakeSession{}
	s := NewAuthService(users, sess, nil)
	ctx := context.Background()

	for _, tc := range [][3]string{{"", "a@b.c", "pw"}, {"Bob", "", "pw"}, {"Bob", "a@b.c", ""}} {
		if _, err := s.Register(ctx, tc[0], tc[1], tc[2]); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("want validation error for %v, got %v", tc, err)
		}
	}

	if _, err := s.Register(ctx, "Ana", "ana@x.io", "pw"); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists on case-insensitive clash, got %v", err)
	}
	if len(users.created) != 0 {
		t.Fatalf("no create call expected on clash")
	}

	u, err := s.Register(ctx, "Bob", "bob@x.io", "pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Email != "bob@x.io" || len(users.created) != 1 {
		t.Fatalf("bad register: %+v", u)
	}
	if sess.saves != 0 {
		t.Fatalf("register must not log in")
	}
}

func TestAuth_Register_BestEffortAndBackendClash(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{listErr: errs.Network("list", errors.New("dial"))}
	s := NewAuthService(users, &fakeSession{}, nil)

	if _, err := s.Register(context.Background(), "Bob", "bob@x.io", "pw"); err != nil {
		t.Fatalf("list failure must not block registration: %v", err)
	}

	users.createErr = &errs.APIError{Status: 400, Data: map[string]errs.FieldIssue{
		"email": {Code: "validation_not_unique", Message: "taken"},
	}}
	if _, err := s.Register(context.Background(), "Bob", "bob@x.io", "pw"); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want backend uniqueness clash as ErrAlreadyExists, got %v", err)
	}

	users.createErr = &errs.APIError{Status: 400}
	if _, err := s.Register(context.Background(), "Bob", "bob@x.io", "pw"); !errors.Is(err, errs.ErrInvalidFields) {
		t.Fatalf("want ErrInvalidFields, got %v", err)
	}
}

func TestAuth_RefreshLogoutProfile(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{}
	sess := &fakeSession{state: model.AuthState{Token: "old", User: &model.User{ID: "u1"}}}
	s := NewAuthService(users, sess, nil)

	p, err := s.Profile()
	if err != nil || p.ID != "u1" {
		t.Fatalf("Profile: %+v %v", p, err)
	}

	users.refreshState = model.AuthState{Token: "new", User: &model.User{ID: "u1"}}
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if sess.state.Token != "new" {
		t.Fatalf("token not updated: %q", sess.state.Token)
	}

	users.refreshErr = &errs.APIError{Status: 401}
	if err := s.Refresh(context.Background()); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if sess.Current() != nil {
		t.Fatalf("rejected token must clear the session")
	}

	sess.state = model.AuthState{Token: "t", User: &model.User{ID: "u1"}}
	if err := s.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := s.Profile(); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized after logout, got %v", err)
	}
}
