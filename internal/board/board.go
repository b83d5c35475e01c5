// Package board keeps the last loaded task snapshot the way the list screen
// does, and guards it against out-of-order responses: every request is
// stamped with a monotonic token per entity key and a response is applied
// only if no newer request for the same key was issued in the meantime.
package board

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/repo"
	"github.com/BuzzLyutic/taskflow-api/internal/view"
)

// ErrStale reports a response discarded because a newer request superseded it.
var ErrStale = errors.New("stale response discarded")

const snapshotKey = "tasks"

type TaskSource interface {
	List(ctx context.Context, filter model.Filter, query string) ([]model.Task, error)
	SetCompleted(ctx context.Context, id int64, completed bool) (model.Task, error)
}

type CategorySource interface {
	List(ctx context.Context) ([]model.Category, error)
}

type Board struct {
	tasks      TaskSource
	categories CategorySource
	logger     *zap.Logger
	now        func() time.Time

	mu       sync.Mutex
	seq      uint64
	latest   map[string]uint64
	pending  map[int64]bool // optimistic completion state of in-flight toggles
	snapshot []model.Task
	cats     []model.Category
	loaded   bool
}

func New(tasks TaskSource, categories CategorySource, logger *zap.Logger) *Board {
	return &Board{
		tasks:      tasks,
		categories: categories,
		logger:     logger,
		now:        time.Now,
		latest:     make(map[string]uint64),
		pending:    make(map[int64]bool),
	}
}

// Refresh reloads tasks and categories. On failure the previous snapshot is
// kept; a result overtaken by a newer Refresh is dropped with ErrStale. Rows
// toggled after the refresh was issued keep their snapshot copy.
func (b *Board) Refresh(ctx context.Context) error {
	token := b.issue(snapshotKey)

	var (
		tasks      []model.Task
		categories []model.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tasks, err = b.tasks.List(gctx, model.Filter{}, "")
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = b.categories.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		b.logger.Warn("board refresh failed, keeping last snapshot", zap.Error(err))
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.latest[snapshotKey] != token {
		b.logger.Debug("dropping stale board refresh", zap.Uint64("token", token))
		return ErrStale
	}
	for i, t := range tasks {
		// A toggle issued after this refresh is newer than the fetched row.
		if b.latest[taskKey(t.ID)] > token {
			if idx := b.indexOf(t.ID); idx >= 0 {
				tasks[i] = b.snapshot[idx]
				continue
			}
		}
		if completed, ok := b.pending[t.ID]; ok {
			tasks[i] = b.withCompletion(t, completed)
		}
	}
	b.snapshot = tasks
	b.cats = categories
	b.loaded = true
	return nil
}

// Toggle flips a task's completion optimistically, then persists it. The
// server's copy replaces the optimistic one unless a newer toggle of the same
// task was issued; on failure the flip is reverted.
func (b *Board) Toggle(ctx context.Context, id int64) (model.Task, error) {
	key := taskKey(id)

	b.mu.Lock()
	idx := b.indexOf(id)
	if idx < 0 {
		// The task may be newer than the snapshot.
		b.mu.Unlock()
		if err := b.Refresh(ctx); err != nil && !errors.Is(err, ErrStale) {
			return model.Task{}, err
		}
		b.mu.Lock()
		idx = b.indexOf(id)
	}
	if idx < 0 {
		b.mu.Unlock()
		return model.Task{}, fmt.Errorf("task with id %d: %w", id, repo.ErrNotFound)
	}
	previous := b.snapshot[idx]
	target := !previous.Completed
	b.snapshot[idx] = b.withCompletion(previous, target)
	b.pending[id] = target
	b.seq++
	token := b.seq
	b.latest[key] = token
	b.mu.Unlock()

	updated, err := b.tasks.SetCompleted(ctx, id, target)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.latest[key] != token {
		return updated, err
	}
	delete(b.pending, id)

	idx = b.indexOf(id)
	if err != nil {
		if idx >= 0 {
			b.snapshot[idx] = b.withCompletion(b.snapshot[idx], previous.Completed)
			b.snapshot[idx].CompletedAt = previous.CompletedAt
		}
		return model.Task{}, err
	}
	if idx >= 0 {
		b.snapshot[idx] = updated
	}
	return updated, nil
}

// View derives the displayed list from the current snapshot.
func (b *Board) View(filter model.Filter, search string) model.View {
	return view.Derive(b.Tasks(), filter, search)
}

func (b *Board) Tasks() []model.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.snapshot)
}

func (b *Board) Categories() []model.Category {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.cats)
}

// Loaded reports whether at least one Refresh succeeded.
func (b *Board) Loaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaded
}

func (b *Board) issue(key string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	b.latest[key] = b.seq
	return b.seq
}

// indexOf must be called with mu held.
func (b *Board) indexOf(id int64) int {
	return slices.IndexFunc(b.snapshot, func(t model.Task) bool { return t.ID == id })
}

func (b *Board) withCompletion(t model.Task, completed bool) model.Task {
	t.Completed = completed
	t.CompletedAt = nil
	if completed {
		now := b.now()
		t.CompletedAt = &now
	}
	return t
}

func taskKey(id int64) string {
	return fmt.Sprintf("task:%d", id)
}
