package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/eventflow/internal/errs"
	"github.com/and161185/eventflow/internal/model"
	"github.com/and161185/eventflow/internal/repository"
)

// NoCategory is shown for events whose category cannot be resolved.
const NoCategory = "Sem categoria"

// CategoryName resolves the display name: the expanded relation first, then
// the cached list, then NoCategory.
func CategoryName(ev model.Event, idx model.CategoryIndex) string {
	if ev.Expand.Category != nil && ev.Expand.Category.Name != "" {
		return ev.Expand.Category.Name
	}
	if c, ok := idx[ev.CategoryID]; ok && ev.CategoryID != "" {
		return c.Name
	}
	return NoCategory
}

// CategoryService manages the flat category list.
type CategoryService struct {
	repo repository.CategoryRepository
	log  *zap.Logger
}

// NewCategoryService constructs CategoryService.
func NewCategoryService(repo repository.CategoryRepository, log *zap.Logger) *CategoryService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CategoryService{repo: repo, log: log}
}

// List returns all categories sorted by name.
func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	cats, err := s.repo.List(ctx, model.ListOptions{Sort: "name"})
	if err != nil {
		s.log.Warn("list categories", zap.Error(err))
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// Index fetches the list and indexes it by id.
func (s *CategoryService) Index(ctx context.Context) (model.CategoryIndex, error) {
	cats, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return model.IndexCategories(cats), nil
}

func (s *CategoryService) Create(ctx context.Context, name string) (model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, errs.Validation("nome", "Informe o nome da categoria.")
	}
	c, err := s.repo.Create(ctx, name)
	if err != nil {
		s.log.Warn("create category", zap.Error(err))
		return model.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (s *CategoryService) Rename(ctx context.Context, id, name string) (model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, errs.Validation("nome", "Informe o nome da categoria.")
	}
	c, err := s.repo.Update(ctx, id, name)
	if err != nil {
		s.log.Warn("rename category", zap.String("category_id", id), zap.Error(err))
		return model.Category{}, fmt.Errorf("rename category: %w", err)
	}
	return c, nil
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.log.Warn("delete category", zap.String("category_id", id), zap.Error(err))
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}
