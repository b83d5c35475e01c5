package repo

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/store"
)

type CategoryRepo struct {
	store    store.RecordStore
	logger   *zap.Logger
	pageSize int
}

func NewCategoryRepo(s store.RecordStore, logger *zap.Logger, pageSize int) *CategoryRepo {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &CategoryRepo{
		store:    s,
		logger:   logger,
		pageSize: pageSize,
	}
}

func (r *CategoryRepo) GetAll(ctx context.Context) ([]model.Category, error) {
	records, err := r.store.FetchRecords(ctx, store.EntityCategory, store.Query{
		Fields:  categoryFields,
		OrderBy: []store.Order{{Field: fieldName}},
		Paging:  store.Paging{Limit: r.pageSize},
	})
	if err != nil {
		return nil, r.fail("fetch categories", err)
	}

	categories := make([]model.Category, 0, len(records))
	for _, rec := range records {
		categories = append(categories, categoryFromRecord(rec))
	}
	return categories, nil
}

func (r *CategoryRepo) GetByID(ctx context.Context, id int64) (model.Category, error) {
	rec, err := r.store.GetRecordByID(ctx, store.EntityCategory, id, store.Query{Fields: categoryFields})
	if errors.Is(err, store.ErrRecordNotFound) {
		return model.Category{}, fmt.Errorf("category with id %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Category{}, r.fail(fmt.Sprintf("fetch category %d", id), err)
	}
	return categoryFromRecord(rec), nil
}

// Create always starts the task count at zero.
func (r *CategoryRepo) Create(ctx context.Context, c model.Category) (model.Category, error) {
	c.ID = 0
	c.TaskCount = 0

	resp, err := r.store.CreateRecords(ctx, store.EntityCategory, []store.Record{categoryToRecord(c)})
	rec, err := singleResult(resp, err)
	if err != nil {
		return model.Category{}, r.fail("create category", err)
	}
	return categoryFromRecord(rec), nil
}

func (r *CategoryRepo) Update(ctx context.Context, id int64, patch model.CategoryPatch) (model.Category, error) {
	resp, err := r.store.UpdateRecords(ctx, store.EntityCategory, []store.Record{categoryPatchToRecord(id, patch)})
	rec, err := singleResult(resp, err)
	if errors.Is(err, store.ErrRecordNotFound) {
		return model.Category{}, fmt.Errorf("category with id %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Category{}, r.fail(fmt.Sprintf("update category %d", id), err)
	}
	return categoryFromRecord(rec), nil
}

func (r *CategoryRepo) Delete(ctx context.Context, id int64) (bool, error) {
	resp, err := r.store.DeleteRecords(ctx, store.EntityCategory, []int64{id})
	_, err = singleResult(resp, err)
	if errors.Is(err, store.ErrRecordNotFound) {
		return false, fmt.Errorf("category with id %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return false, r.fail(fmt.Sprintf("delete category %d", id), err)
	}
	return true, nil
}

// UpdateTaskCount applies delta to the named category's count, clamped at
// zero. Counts are best-effort: failures are logged and yield nil so a task
// mutation is never blocked by them. An unknown name also yields nil.
func (r *CategoryRepo) UpdateTaskCount(ctx context.Context, name string, delta int) *model.Category {
	categories, err := r.GetAll(ctx)
	if err != nil {
		r.logger.Warn("task count update skipped", zap.String("category", name), zap.Error(err))
		return nil
	}

	for _, c := range categories {
		if c.Name != name {
			continue
		}
		count := max(0, c.TaskCount+delta)
		updated, err := r.Update(ctx, c.ID, model.CategoryPatch{TaskCount: &count})
		if err != nil {
			r.logger.Warn("task count update failed", zap.String("category", name), zap.Error(err))
			return nil
		}
		return &updated
	}
	return nil
}

func (r *CategoryRepo) fail(op string, err error) error {
	r.logger.Error("category store call failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("failed to %s: %w", op, ErrOperationFailed)
}
