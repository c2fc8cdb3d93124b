package pocketbase

import (
	"context"
	"net/http"

	"github.com/and161185/eventflow/internal/convert"
	"github.com/and161185/eventflow/internal/model"
)

// CategoryRepo implements repository.CategoryRepository.
type CategoryRepo struct {
	c *Client
}

// NewCategoryRepo constructs a CategoryRepo.
func NewCategoryRepo(c *Client) *CategoryRepo { return &CategoryRepo{c: c} }

func (r *CategoryRepo) List(ctx context.Context, opts model.ListOptions) ([]model.Category, error) {
	recs, err := listAll[convert.CategoryRecord](ctx, r.c, "categories.list", model.CollectionCategories, opts)
	if err != nil {
		return nil, err
	}
	return convert.ToCategories(recs), nil
}

func (r *CategoryRepo) Create(ctx context.Context, name string) (model.Category, error) {
	req, err := jsonRequest("categories.create", http.MethodPost, recordsPath(model.CollectionCategories),
		map[string]string{"name": name})
	if err != nil {
		return model.Category{}, err
	}
	var rec convert.CategoryRecord
	if err := r.c.do(ctx, req, &rec); err != nil {
		return model.Category{}, err
	}
	return convert.ToCategory(rec), nil
}

func (r *CategoryRepo) Update(ctx context.Context, id, name string) (model.Category, error) {
	req, err := jsonRequest("categories.update", http.MethodPatch, recordsPath(model.CollectionCategories, id),
		map[string]string{"name": name})
	if err != nil {
		return model.Category{}, err
	}
	var rec convert.CategoryRecord
	if err := r.c.do(ctx, req, &rec); err != nil {
		return model.Category{}, err
	}
	return convert.ToCategory(rec), nil
}

func (r *CategoryRepo) Delete(ctx context.Context, id string) error {
	return r.c.do(ctx, request{op: "categories.delete", method: http.MethodDelete, path: recordsPath(model.CollectionCategories, id)}, nil)
}
