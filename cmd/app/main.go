package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow-api/internal/board"
	"github.com/BuzzLyutic/taskflow-api/internal/config"
	"github.com/BuzzLyutic/taskflow-api/internal/handler"
	"github.com/BuzzLyutic/taskflow-api/internal/repo"
	"github.com/BuzzLyutic/taskflow-api/internal/service"
	"github.com/BuzzLyutic/taskflow-api/internal/store"
	"github.com/BuzzLyutic/taskflow-api/internal/worker"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Подключаем логгер
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	records, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	// Репозитории и сервисы
	taskRepo := repo.NewTaskRepo(records, logger, cfg.PageSize)
	categoryRepo := repo.NewCategoryRepo(records, logger, cfg.PageSize)
	taskService := service.NewTaskService(taskRepo, categoryRepo, logger)
	categoryService := service.NewCategoryService(categoryRepo)
	b := board.New(taskService, categoryService, logger)

	reconciler := worker.NewReconciler(taskRepo, categoryRepo, logger, cfg.ReconcileInterval)
	if cfg.ReconcileInterval > 0 {
		reconciler.Start(ctx)
		defer reconciler.Stop()
	}

	srv := http.Server{ // Создаем сервер
		Addr: ":" + cfg.Port,
		Handler: handler.NewRouter(
			handler.NewTaskHandler(taskService, b, logger),
			handler.NewCategoryHandler(categoryService, logger),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() { // Запуск сервера и обработка ошибок
		logger.Info("Server started", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	<-ctx.Done()

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
	logger.Info("Server stopped successfully!")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

// openStore выбирает хранилище записей и, если задан REDIS_ADDR, оборачивает его кэшем.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.RecordStore, func()) {
	var (
		records store.RecordStore
		closers []func()
	)

	switch cfg.StoreBackend {
	case config.BackendMemory:
		logger.Warn("Using in-memory record store, data is lost on restart")
		records = store.NewMemoryStore()
	default:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL) // Создаем пул соединений к БД
		if err != nil {
			logger.Fatal("Failed to connect to Database", zap.Error(err)) // Fatal потому что дальнейшая работа теряет смысл
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			logger.Fatal("Failed to ping the Database", zap.Error(err))
		}
		logger.Info("Successfully connected to the Database!")
		records = store.NewPostgresStore(pool)
		closers = append(closers, pool.Close)
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			// Кэш необязателен: без Redis читаем напрямую из хранилища.
			logger.Warn("Redis unavailable, cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			client.Close()
		} else {
			logger.Info("Record cache enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.CacheTTL))
			records = store.NewCache(records, client, cfg.CacheTTL, logger)
			closers = append(closers, func() { client.Close() })
		}
	}

	return records, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}
