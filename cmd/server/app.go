package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/reelforge/reelforge-api/internal/config"
	"github.com/reelforge/reelforge-api/internal/events"
	"github.com/reelforge/reelforge-api/internal/generation"
	"github.com/reelforge/reelforge-api/internal/pipeline"
	"github.com/reelforge/reelforge-api/internal/platform/fal"
	"github.com/reelforge/reelforge-api/internal/platform/gemini"
	"github.com/reelforge/reelforge-api/internal/platform/logger"
	"github.com/reelforge/reelforge-api/internal/platform/postgres"
	"github.com/reelforge/reelforge-api/internal/service"
	"github.com/reelforge/reelforge-api/internal/store"
	"github.com/reelforge/reelforge-api/internal/task"
)

// application holds all shared dependencies: configuration, the database
// connection, stores, providers, the pipeline runtime, and services. It
// is assembled once at startup and handed to the router and server.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	generationStore *postgres.PostgresGenerationStore
	promptStore     *postgres.PostgresPromptStore
	stateStore      *postgres.PostgresStateStore
	taskStore       *postgres.PostgresTaskStore

	eventEmitter *events.InMemoryEventEmitter
	taskRunner   *task.TaskRunner

	generationService service.GenerationService
}

// newApplication loads configuration and builds the full dependency
// graph. Components are constructed bottom-up: stores over the database,
// providers over their APIs, then the pipeline runtime and services on
// top of both.
func newApplication() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(logger.LoggerConfig{Level: cfg.Server.LogLevel})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"worker_count", cfg.Pipeline.WorkerCount,
		"video_mock", cfg.Video.Mock)

	db, err := setupAppDatabase(cfg, appLogger)
	if err != nil {
		return nil, err
	}

	app := &application{
		config: cfg,
		logger: appLogger,
		db:     db,
	}

	if err := app.setupDependencies(); err != nil {
		app.cleanup()
		return nil, err
	}

	return app, nil
}

// setupDependencies builds everything above the database connection.
func (app *application) setupDependencies() error {
	app.generationStore = postgres.NewPostgresGenerationStore(app.db, app.logger)
	app.promptStore = postgres.NewPostgresPromptStore(app.db, app.logger)
	app.stateStore = postgres.NewPostgresStateStore(app.db, app.logger)
	app.taskStore = postgres.NewPostgresTaskStore(app.db, app.logger)

	promptProvider, err := gemini.NewGenerator(context.Background(), app.logger, app.config.LLM)
	if err != nil {
		return fmt.Errorf("failed to create prompt provider: %w", err)
	}

	videoProvider, err := setupVideoProvider(app.config.Video, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create video provider: %w", err)
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(app.logger)
	scheduler := pipeline.NewScheduler(app.eventEmitter, app.logger)

	registry := task.NewRegistry(task.RetryPolicy{
		MaxRetries: uint64(app.config.Pipeline.MaxRetries),
		BaseDelay:  app.config.Pipeline.RetryBaseDelay,
	}, app.generationStore, app.logger)

	if err := pipeline.RegisterJobs(registry, pipeline.Deps{
		Generations:    app.generationStore,
		Prompts:        app.promptStore,
		State:          app.stateStore,
		PromptProvider: promptProvider,
		VideoProvider:  videoProvider,
		Scheduler:      scheduler,
		Tx:             store.NewDBTransactor(app.db),
		StateTTL:       app.config.Pipeline.StateTTL,
		ModelName:      app.config.LLM.ModelName,
		Logger:         app.logger,
	}); err != nil {
		return fmt.Errorf("failed to register pipeline jobs: %w", err)
	}

	app.taskRunner = task.NewTaskRunner(app.taskStore, registry, app.stateStore, task.TaskRunnerConfig{
		WorkerCount:  app.config.Pipeline.WorkerCount,
		QueueSize:    app.config.Pipeline.QueueSize,
		StuckTaskAge: app.config.Pipeline.StuckJobAge,
	}, app.logger)

	// The dispatcher closes the loop: scheduled job names flow through the
	// emitter, get resolved against the registry, and land on the runner.
	app.eventEmitter.RegisterHandler(task.NewDispatcher(registry, app.taskRunner, app.logger))

	app.generationService = service.NewGenerationService(
		app.generationStore, app.promptStore, scheduler, app.logger)

	return nil
}

// setupVideoProvider selects between the real client and the mock
// depending on configuration.
func setupVideoProvider(cfg config.VideoConfig, logger *slog.Logger) (generation.VideoGenerator, error) {
	if cfg.Mock {
		logger.Warn("using mock video provider, artifact URLs are fabricated")
		return fal.NewMockGenerator(logger), nil
	}
	return fal.NewClient(cfg, logger)
}

// cleanup releases resources during shutdown. Safe to call on a
// partially constructed application.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", "error", err)
		}
	}
}
