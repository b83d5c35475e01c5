package repo

import (
	"context"
	"errors"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrOperationFailed hides the store's error detail from callers; the
	// detail is logged where it happens.
	ErrOperationFailed = errors.New("operation failed, please try again")
)

// DefaultPageSize caps every list fetch.
const DefaultPageSize = 1000

// TaskRepository определяет интерфейс для работы с задачами
type TaskRepository interface {
	GetAll(ctx context.Context) ([]model.Task, error)
	GetByID(ctx context.Context, id int64) (model.Task, error)
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Update(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Search(ctx context.Context, query string) ([]model.Task, error)
	GetByStatus(ctx context.Context, status model.Status) ([]model.Task, error)
	GetByCategory(ctx context.Context, category string) ([]model.Task, error)
	GetByPriority(ctx context.Context, priority model.Priority) ([]model.Task, error)
}

// CategoryRepository определяет интерфейс для работы с категориями
type CategoryRepository interface {
	GetAll(ctx context.Context) ([]model.Category, error)
	GetByID(ctx context.Context, id int64) (model.Category, error)
	Create(ctx context.Context, c model.Category) (model.Category, error)
	Update(ctx context.Context, id int64, patch model.CategoryPatch) (model.Category, error)
	Delete(ctx context.Context, id int64) (bool, error)
	UpdateTaskCount(ctx context.Context, name string, delta int) *model.Category
}
