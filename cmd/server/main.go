// Package main is the entrypoint for the ControlFit API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/controlfit/controlfit/internal/ai"
	"github.com/controlfit/controlfit/internal/api"
	"github.com/controlfit/controlfit/internal/api/handler"
	mw "github.com/controlfit/controlfit/internal/api/middleware"
	"github.com/controlfit/controlfit/internal/api/response"
	"github.com/controlfit/controlfit/internal/cache"
	"github.com/controlfit/controlfit/internal/config"
	"github.com/controlfit/controlfit/internal/feedback"
	"github.com/controlfit/controlfit/internal/store"
	"github.com/controlfit/controlfit/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "ai_provider", cfg.AI.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create AI provider
	aiProvider, err := ai.NewProvider(cfg.AI)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}
	slog.Info("AI provider initialized", "provider", aiProvider.Name())

	// 6. Create store and the feedback core
	pgStore := store.NewPostgresStore(pool)

	executor := feedback.NewExecutor(pgStore, redisCache, aiProvider, cfg.AI.InferenceTimeout)
	workers := worker.New(cfg.Worker.Count, cfg.Worker.QueueSize, executor.Process)
	// Workers get their own context: shutdown drains the queue via Stop
	// instead of cancelling in-flight jobs.
	workers.Start(context.Background())

	svc := feedback.NewService(pgStore, redisCache, workers)

	// 7. Build router with dependencies
	auth := mw.NewAuth(pgStore)
	rateLimit := mw.NewRateLimit(redisCache, 0)

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,

		HealthHandler: healthHandler(pgStore, redisCache),

		RegisterHandler: handler.NewRegisterHandler(pgStore),
		LoginHandler:    handler.NewLoginHandler(pgStore),
		MeHandler:       handler.NewMeHandler(pgStore),

		CreateProfileEntry: handler.NewCreateProfileEntryHandler(pgStore),
		ListProfileHistory: handler.NewListProfileHistoryHandler(pgStore),

		CreateDailyLog: handler.NewCreateDailyLogHandler(pgStore, svc),
		ListDailyLogs:  handler.NewListDailyLogsHandler(pgStore),
		GetDailyLog:    handler.NewGetDailyLogHandler(pgStore),
		UpdateDailyLog: handler.NewUpdateDailyLogHandler(pgStore, svc),
		DeleteDailyLog: handler.NewDeleteDailyLogHandler(pgStore, svc),

		CreatePhoto: handler.NewCreatePhotoHandler(pgStore, svc),
		ListPhotos:  handler.NewListPhotosHandler(pgStore),
		GetPhoto:    handler.NewGetPhotoHandler(pgStore),
		UpdatePhoto: handler.NewUpdatePhotoHandler(pgStore, svc),
		DeletePhoto: handler.NewDeletePhotoHandler(pgStore, svc),

		CreateCheatMeal: handler.NewCreateCheatMealHandler(pgStore, svc),
		ListCheatMeals:  handler.NewListCheatMealsHandler(pgStore),
		GetCheatMeal:    handler.NewGetCheatMealHandler(pgStore),
		UpdateCheatMeal: handler.NewUpdateCheatMealHandler(pgStore, svc),
		DeleteCheatMeal: handler.NewDeleteCheatMealHandler(pgStore, svc),

		RequestFeedback: handler.NewRequestFeedbackHandler(svc),
		ListFeedback:    handler.NewListFeedbackHandler(pgStore),
		GetFeedback:     handler.NewGetFeedbackHandler(pgStore, svc),

		ListJobs:     handler.NewListJobsHandler(pgStore),
		GetJob:       handler.NewGetJobHandler(pgStore),
		GetJobStatus: handler.NewGetJobStatusHandler(pgStore, redisCache),
		ProcessJob:   handler.NewProcessJobHandler(svc),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown: stop accepting requests, then drain the job queue.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	workers.Stop()

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
