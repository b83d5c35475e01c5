package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/store"
	"github.com/BuzzLyutic/taskflow-api/internal/view"
)

type TaskRepo struct { // Репозиторий задач поверх record store
	store    store.RecordStore
	logger   *zap.Logger
	pageSize int
	now      func() time.Time
}

func NewTaskRepo(s store.RecordStore, logger *zap.Logger, pageSize int) *TaskRepo {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &TaskRepo{
		store:    s,
		logger:   logger,
		pageSize: pageSize,
		now:      time.Now,
	}
}

func (r *TaskRepo) GetAll(ctx context.Context) ([]model.Task, error) {
	records, err := r.store.FetchRecords(ctx, store.EntityTask, store.Query{
		Fields:  taskFields,
		OrderBy: []store.Order{{Field: store.IDField, Desc: true}},
		Paging:  store.Paging{Limit: r.pageSize},
	})
	if err != nil {
		return nil, r.fail("fetch tasks", err)
	}

	tasks := make([]model.Task, 0, len(records))
	for _, rec := range records {
		tasks = append(tasks, taskFromRecord(rec))
	}
	return tasks, nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id int64) (model.Task, error) {
	rec, err := r.store.GetRecordByID(ctx, store.EntityTask, id, store.Query{Fields: taskFields})
	if errors.Is(err, store.ErrRecordNotFound) {
		return model.Task{}, fmt.Errorf("task with id %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Task{}, r.fail(fmt.Sprintf("fetch task %d", id), err)
	}
	return taskFromRecord(rec), nil
}

// Create ignores the caller's id and completion state: new tasks start open.
func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	t.ID = 0
	t.Completed = false
	t.CompletedAt = nil
	t.CreatedAt = r.now().UTC()

	resp, err := r.store.CreateRecords(ctx, store.EntityTask, []store.Record{taskToRecord(t)})
	rec, err := singleResult(resp, err)
	if err != nil {
		return model.Task{}, r.fail("create task", err)
	}
	return taskFromRecord(rec), nil
}

func (r *TaskRepo) Update(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error) {
	rec := taskPatchToRecord(id, patch, r.now().UTC())
	resp, err := r.store.UpdateRecords(ctx, store.EntityTask, []store.Record{rec})
	updated, err := singleResult(resp, err)
	if errors.Is(err, store.ErrRecordNotFound) {
		return model.Task{}, fmt.Errorf("task with id %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Task{}, r.fail(fmt.Sprintf("update task %d", id), err)
	}
	return taskFromRecord(updated), nil
}

func (r *TaskRepo) Delete(ctx context.Context, id int64) (bool, error) {
	resp, err := r.store.DeleteRecords(ctx, store.EntityTask, []int64{id})
	_, err = singleResult(resp, err)
	if errors.Is(err, store.ErrRecordNotFound) {
		return false, fmt.Errorf("task with id %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return false, r.fail(fmt.Sprintf("delete task %d", id), err)
	}
	return true, nil
}

func (r *TaskRepo) Search(ctx context.Context, query string) ([]model.Task, error) {
	return r.filter(ctx, func(tasks []model.Task) []model.Task {
		needle := view.Fold(query)
		out := make([]model.Task, 0, len(tasks))
		for _, t := range tasks {
			if view.MatchesSearch(t, needle) {
				out = append(out, t)
			}
		}
		return out
	})
}

func (r *TaskRepo) GetByStatus(ctx context.Context, status model.Status) ([]model.Task, error) {
	return r.filter(ctx, func(tasks []model.Task) []model.Task {
		return view.ByStatus(tasks, status)
	})
}

func (r *TaskRepo) GetByCategory(ctx context.Context, category string) ([]model.Task, error) {
	return r.filter(ctx, func(tasks []model.Task) []model.Task {
		return view.ByCategory(tasks, category)
	})
}

func (r *TaskRepo) GetByPriority(ctx context.Context, priority model.Priority) ([]model.Task, error) {
	return r.filter(ctx, func(tasks []model.Task) []model.Task {
		return view.ByPriority(tasks, priority)
	})
}

func (r *TaskRepo) filter(ctx context.Context, keep func([]model.Task) []model.Task) ([]model.Task, error) {
	tasks, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return keep(tasks), nil
}

// fail logs the store error and returns the generic caller-facing one.
func (r *TaskRepo) fail(op string, err error) error {
	r.logger.Error("task store call failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("failed to %s: %w", op, ErrOperationFailed)
}

// singleResult unpacks a one-record batch response.
func singleResult(resp store.Response, err error) (store.Record, error) {
	if err != nil {
		return nil, err
	}
	if failed, ok := resp.Failed(); ok {
		if failed.NotFound {
			return nil, store.ErrRecordNotFound
		}
		return nil, errors.New(failed.Message)
	}
	if !resp.Success {
		return nil, errors.New(resp.Message)
	}
	if len(resp.Results) == 0 {
		return nil, errors.New("empty store response")
	}
	return resp.Results[0].Data, nil
}
