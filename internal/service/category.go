package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/repo"
)

type CategoryService struct {
	repo repo.CategoryRepository
}

func NewCategoryService(repo repo.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	return s.repo.GetAll(ctx)
}

func (s *CategoryService) Get(ctx context.Context, id int64) (model.Category, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *CategoryService) Create(ctx context.Context, c model.Category) (model.Category, error) {
	if strings.TrimSpace(c.Name) == "" {
		return c, fmt.Errorf("%w: name is required", ErrValidation)
	}
	return s.repo.Create(ctx, c)
}

func (s *CategoryService) Update(ctx context.Context, id int64, patch model.CategoryPatch) (model.Category, error) {
	if patch.Name == nil && patch.Color == nil && patch.TaskCount == nil {
		return model.Category{}, fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return model.Category{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if patch.TaskCount != nil && *patch.TaskCount < 0 {
		return model.Category{}, fmt.Errorf("%w: task count cannot be negative", ErrValidation)
	}
	return s.repo.Update(ctx, id, patch)
}

func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	_, err := s.repo.Delete(ctx, id)
	return err
}
