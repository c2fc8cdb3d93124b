// Package service contains the application flows: authentication, event
// aggregation and submission, categories, locations and deletion.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/eventflow/internal/errs"
	"github.com/and161185/eventflow/internal/model"
	"github.com/and161185/eventflow/internal/repository"
)

// Session is the part of the process session the auth flows mutate.
type Session interface {
	Save(st model.AuthState) error
	Clear() error
	Current() *model.User
}

// AuthService defines authentication and account operations.
type AuthService interface {
	// Login authenticates and stores the session.
	Login(ctx context.Context, email, password string) (model.User, error)
	// Register creates an account; it does not log in.
	Register(ctx context.Context, name, email, password string) (model.User, error)
	// Logout clears the session.
	Logout() error
	// Refresh renews the token of the current session.
	Refresh(ctx context.Context) error
	// Profile returns the logged-in user.
	Profile() (model.User, error)
}

type AuthServiceImpl struct {
	users repository.UserRepository
	sess  Session
	log   *zap.Logger
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, sess Session, log *zap.Logger) *AuthServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthServiceImpl{users: users, sess: sess, log: log}
}

// Login exchanges credentials for a token. Rejected credentials come back from
// the backend as 400 or 401 and are both reported as ErrUnauthorized.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return model.User{}, errs.Validation("email", "Preencha email e senha.")
	}

	st, err := s.users.AuthWithPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidFields) || errors.Is(err, errs.ErrUnauthorized) {
			s.log.Info("login rejected", zap.Error(err))
			return model.User{}, fmt.Errorf("login: %w", errs.ErrUnauthorized)
		}
		s.log.Warn("login failed", zap.Error(err))
		return model.User{}, fmt.Errorf("login: %w", err)
	}
	if !st.LoggedIn() {
		return model.User{}, fmt.Errorf("login: empty auth response: %w", errs.ErrServer)
	}
	if err := s.sess.Save(st); err != nil {
		// the in-memory session is set; only persistence failed
		s.log.Warn("login: session not persisted", zap.Error(err))
	}
	s.log.Info("logged in", zap.String("user_id", st.User.ID))
	return *st.User, nil
}

// Register validates the fields, checks the email against the listed users
// case-insensitively and creates the account. The uniqueness check is
// best-effort: if the list cannot be read the backend decides.
func (s *AuthServiceImpl) Register(ctx context.Context, name, email, password string) (model.User, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	switch {
	case name == "":
		return model.User{}, errs.Validation("nome", "Preencha todos os campos.")
	case email == "":
		return model.User{}, errs.Validation("email", "Preencha todos os campos.")
	case password == "":
		return model.User{}, errs.Validation("senha", "Preencha todos os campos.")
	}

	existing, err := s.users.List(ctx, model.ListOptions{})
	if err != nil {
		s.log.Warn("register: user list unavailable, skipping email check", zap.Error(err))
	}
	for _, u := range existing {
		if strings.EqualFold(strings.TrimSpace(u.Email), email) {
			return model.User{}, fmt.Errorf("register: %w", errs.ErrAlreadyExists)
		}
	}

	u, err := s.users.Create(ctx, model.NewUser{Name: name, Email: email, Password: password})
	if err != nil {
		var apiErr *errs.APIError
		if errors.As(err, &apiErr) && apiErr.Data["email"].Code == "validation_not_unique" {
			return model.User{}, fmt.Errorf("register: %w", errs.ErrAlreadyExists)
		}
		s.log.Warn("register failed", zap.Error(err))
		return model.User{}, fmt.Errorf("register: %w", err)
	}
	s.log.Info("user registered", zap.String("user_id", u.ID))
	return u, nil
}

// Logout clears the session.
func (s *AuthServiceImpl) Logout() error {
	if err := s.sess.Clear(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Refresh renews the token. A rejected token logs the user out.
func (s *AuthServiceImpl) Refresh(ctx context.Context) error {
	st, err := s.users.AuthRefresh(ctx)
	if err != nil {
		if errors.Is(err, errs.ErrUnauthorized) {
			_ = s.sess.Clear()
		}
		return fmt.Errorf("refresh: %w", err)
	}
	if !st.LoggedIn() {
		return fmt.Errorf("refresh: empty auth response: %w", errs.ErrServer)
	}
	if err := s.sess.Save(st); err != nil {
		s.log.Warn("refresh: session not persisted", zap.Error(err))
	}
	return nil
}

// Profile returns the current user or ErrUnauthorized.
func (s *AuthServiceImpl) Profile() (model.User, error) {
	u := s.sess.Current()
	if u == nil {
		return model.User{}, errs.ErrUnauthorized
	}
	return *u, nil
}
