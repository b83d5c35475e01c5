package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/repo"
	"github.com/BuzzLyutic/taskflow-api/internal/store"
)

func setup(t *testing.T) (*repo.TaskRepo, *repo.CategoryRepo) {
	t.Helper()
	s := store.NewMemoryStore()
	logger := zap.NewNop()
	tasks := repo.NewTaskRepo(s, logger, 0)
	categories := repo.NewCategoryRepo(s, logger, 0)
	ctx := context.Background()

	for _, name := range []string{"Work", "Home", "Empty"} {
		_, err := categories.Create(ctx, model.Category{Name: name})
		require.NoError(t, err)
	}
	for _, c := range []string{"Work", "Work", "Home"} {
		_, err := tasks.Create(ctx, model.Task{Title: "t", Priority: model.PriorityLow, Category: c})
		require.NoError(t, err)
	}
	return tasks, categories
}

func counts(t *testing.T, categories *repo.CategoryRepo) map[string]int {
	t.Helper()
	all, err := categories.GetAll(context.Background())
	require.NoError(t, err)
	out := make(map[string]int, len(all))
	for _, c := range all {
		out[c.Name] = c.TaskCount
	}
	return out
}

func TestReconciler_Reconcile(t *testing.T) {
	tasks, categories := setup(t)
	ctx := context.Background()

	// Drift: Empty claims tasks it does not have, Work and Home were never counted.
	require.NotNil(t, categories.UpdateTaskCount(ctx, "Empty", 4))

	r := NewReconciler(tasks, categories, zap.NewNop(), time.Hour)
	fixed, err := r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, fixed)
	assert.Equal(t, map[string]int{"Work": 2, "Home": 1, "Empty": 0}, counts(t, categories))

	fixed, err = r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, fixed, "second pass has nothing to do")
}

func TestReconciler_RunsOnTicker(t *testing.T) {
	tasks, categories := setup(t)

	r := NewReconciler(tasks, categories, zap.NewNop(), 20*time.Millisecond)
	r.Start(context.Background())
	defer r.Stop()

	assert.Eventually(t, func() bool {
		c := counts(t, categories)
		return c["Work"] == 2 && c["Home"] == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReconciler_GracefulShutdown(t *testing.T) {
	tasks, categories := setup(t)
	r := NewReconciler(tasks, categories, zap.NewNop(), 10*time.Millisecond)
	r.Start(context.Background())

	done := make(chan struct{})
	go func() {
		r.Stop()
		r.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reconciler did not stop within 5 seconds")
	}
}

func TestReconciler_StopsOnContextCancel(t *testing.T) {
	tasks, categories := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	r := NewReconciler(tasks, categories, zap.NewNop(), time.Hour)
	r.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reconciler ignored context cancellation")
	}
	r.Stop()
}
