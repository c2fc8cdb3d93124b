package pocketbase

import (
	"context"
	"net/http"

	"github.com/and161185/eventflow/internal/convert"
	"github.com/and161185/eventflow/internal/model"
)

// UserRepo implements repository.UserRepository.
type UserRepo struct {
	c *Client
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(c *Client) *UserRepo { return &UserRepo{c: c} }

// AuthWithPassword authenticates against the users collection.
func (r *UserRepo) AuthWithPassword(ctx context.Context, email, password string) (model.AuthState, error) {
	req, err := jsonRequest("users.auth", http.MethodPost,
		[]string{"api", "collections", model.CollectionUsers, "auth-with-password"},
		map[string]string{"identity": email, "password": password})
	if err != nil {
		return model.AuthState{}, err
	}
	var resp convert.AuthResponse
	if err := r.c.do(ctx, req, &resp); err != nil {
		return model.AuthState{}, err
	}
	return convert.ToAuthState(resp), nil
}

// AuthRefresh renews the token of the current session.
func (r *UserRepo) AuthRefresh(ctx context.Context) (model.AuthState, error) {
	req := request{
		op:     "users.refresh",
		method: http.MethodPost,
		path:   []string{"api", "collections", model.CollectionUsers, "auth-refresh"},
	}
	var resp convert.AuthResponse
	if err := r.c.do(ctx, req, &resp); err != nil {
		return model.AuthState{}, err
	}
	return convert.ToAuthState(resp), nil
}

// Create registers a user.
func (r *UserRepo) Create(ctx context.Context, u model.NewUser) (model.User, error) {
	req, err := jsonRequest("users.create", http.MethodPost, recordsPath(model.CollectionUsers), convert.FromNewUser(u))
	if err != nil {
		return model.User{}, err
	}
	var rec convert.UserRecord
	if err := r.c.do(ctx, req, &rec); err != nil {
		return model.User{}, err
	}
	return convert.ToUser(rec), nil
}

// List returns all users visible to the caller.
func (r *UserRepo) List(ctx context.Context, opts model.ListOptions) ([]model.User, error) {
	recs, err := listAll[convert.UserRecord](ctx, r.c, "users.list", model.CollectionUsers, opts)
	if err != nil {
		return nil, err
	}
	return convert.ToUsers(recs), nil
}
