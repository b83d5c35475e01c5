package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/repo"
	"github.com/BuzzLyutic/taskflow-api/internal/view"
)

var (
	ErrValidation = errors.New("validation error")
)

type TaskService struct {
	tasks      repo.TaskRepository
	categories repo.CategoryRepository
	logger     *zap.Logger
}

func NewTaskService(tasks repo.TaskRepository, categories repo.CategoryRepository, logger *zap.Logger) *TaskService {
	return &TaskService{
		tasks:      tasks,
		categories: categories,
		logger:     logger,
	}
}

func (s *TaskService) Create(ctx context.Context, t model.Task) (model.Task, error) {
	if err := s.validate(t); err != nil { // Валидация до обращения к хранилищу
		return t, err
	}

	created, err := s.tasks.Create(ctx, t)
	if err != nil {
		return created, err
	}

	s.categories.UpdateTaskCount(ctx, created.Category, 1)
	s.logger.Debug("task created", zap.Int64("task_id", created.ID), zap.String("category", created.Category))
	return created, nil
}

func (s *TaskService) Get(ctx context.Context, id int64) (model.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

// List applies the repository-level filters; each "all" value is a no-op.
func (s *TaskService) List(ctx context.Context, filter model.Filter, query string) ([]model.Task, error) {
	var (
		tasks []model.Task
		err   error
	)
	if strings.TrimSpace(query) != "" {
		tasks, err = s.tasks.Search(ctx, query)
	} else {
		tasks, err = s.tasks.GetAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	tasks = view.ByStatus(tasks, filter.Status)
	tasks = view.ByPriority(tasks, filter.Priority)
	return view.ByCategory(tasks, filter.Category), nil
}

// View loads every task and runs the derivation pipeline over it.
func (s *TaskService) View(ctx context.Context, filter model.Filter, search string) (model.View, error) {
	tasks, err := s.tasks.GetAll(ctx)
	if err != nil {
		return model.View{}, err
	}
	return view.Derive(tasks, filter, search), nil
}

func (s *TaskService) Update(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error) {
	if err := s.validatePatch(patch); err != nil {
		return model.Task{}, err
	}

	var previous model.Task
	if patch.Category != nil {
		current, err := s.tasks.GetByID(ctx, id)
		if err != nil {
			return model.Task{}, err
		}
		previous = current
	}

	updated, err := s.tasks.Update(ctx, id, patch)
	if err != nil {
		return updated, err
	}

	if patch.Category != nil && previous.Category != updated.Category {
		s.categories.UpdateTaskCount(ctx, previous.Category, -1)
		s.categories.UpdateTaskCount(ctx, updated.Category, 1)
	}
	return updated, nil
}

func (s *TaskService) SetCompleted(ctx context.Context, id int64, completed bool) (model.Task, error) {
	return s.tasks.Update(ctx, id, model.TaskPatch{Completed: &completed})
}

func (s *TaskService) Delete(ctx context.Context, id int64) error {
	current, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if _, err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}

	s.categories.UpdateTaskCount(ctx, current.Category, -1)
	s.logger.Debug("task deleted", zap.Int64("task_id", id))
	return nil
}

func (s *TaskService) validate(t model.Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: priority must be High, Medium or Low", ErrValidation)
	}
	if strings.TrimSpace(t.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	return nil
}

func (s *TaskService) validatePatch(p model.TaskPatch) error {
	if p.Empty() {
		return fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("%w: priority must be High, Medium or Low", ErrValidation)
	}
	if p.Category != nil && strings.TrimSpace(*p.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	return nil
}
