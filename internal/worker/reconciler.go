package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/repo"
)

// Reconciler periodically recounts tasks per category and rewrites drifted
// Category.TaskCount values. Counts stay advisory between passes.
type Reconciler struct {
	tasks      repo.TaskRepository
	categories repo.CategoryRepository
	logger     *zap.Logger
	interval   time.Duration
	wg         sync.WaitGroup
	stop       chan struct{}
	once       sync.Once
}

func NewReconciler(tasks repo.TaskRepository, categories repo.CategoryRepository, logger *zap.Logger, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reconciler{
		tasks:      tasks,
		categories: categories,
		logger:     logger,
		interval:   interval,
		stop:       make(chan struct{}),
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	r.logger.Info("Starting category count reconciler", zap.Duration("interval", r.interval))

	r.wg.Add(1)
	go r.loop(ctx)
}

func (r *Reconciler) Stop() {
	r.logger.Info("Stopping category count reconciler...")
	r.once.Do(func() { close(r.stop) })
	r.wg.Wait()
	r.logger.Info("Category count reconciler stopped")
}

func (r *Reconciler) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Reconcile(ctx); err != nil {
				r.logger.Error("reconcile error", zap.Error(err))
			}
		}
	}
}

// Reconcile runs one pass and returns how many categories were corrected.
func (r *Reconciler) Reconcile(ctx context.Context) (int, error) {
	tasks, err := r.tasks.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	categories, err := r.categories.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	counts := make(map[string]int, len(categories))
	for _, t := range tasks {
		counts[t.Category]++
	}

	fixed := 0
	for _, c := range categories {
		want := counts[c.Name]
		if c.TaskCount == want {
			continue
		}
		if _, err := r.categories.Update(ctx, c.ID, model.CategoryPatch{TaskCount: &want}); err != nil {
			r.logger.Warn("failed to correct task count",
				zap.Int64("category_id", c.ID),
				zap.String("category", c.Name),
				zap.Error(err),
			)
			continue
		}
		r.logger.Info("Corrected category task count",
			zap.String("category", c.Name),
			zap.Int("from", c.TaskCount),
			zap.Int("to", want),
		)
		fixed++
	}
	return fixed, nil
}
