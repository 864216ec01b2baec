// -----------------------------------------------------------------------
// Application wiring - services, storage, and handlers
// -----------------------------------------------------------------------

package app

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/pd-experiments/vendere/internal/common"
	"github.com/pd-experiments/vendere/internal/connectors/extraction"
	"github.com/pd-experiments/vendere/internal/handlers"
	"github.com/pd-experiments/vendere/internal/interfaces"
	"github.com/pd-experiments/vendere/internal/services/llm"
	"github.com/pd-experiments/vendere/internal/services/maintenance"
	"github.com/pd-experiments/vendere/internal/services/media"
	"github.com/pd-experiments/vendere/internal/services/variants"
	badgerstorage "github.com/pd-experiments/vendere/internal/storage/badger"
	"github.com/pd-experiments/vendere/internal/tasks"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	TaskRegistry   *tasks.Registry
	Orchestrator   *tasks.Orchestrator

	LLMService       interfaces.LLMService
	EmbeddingService interfaces.EmbeddingService
	VariantService   *variants.Service
	MediaPipeline    *media.Pipeline
	Maintenance      *maintenance.Service

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	TaskHandler    *handlers.TaskHandler
	VariantHandler *handlers.VariantHandler
	MediaHandler   *handlers.MediaHandler
	KeywordHandler *handlers.KeywordHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := badgerstorage.NewManager(logger, &cfg.Storage.Badger, cfg.QueryTimeout())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	claudeService, err := llm.NewClaudeService(&cfg.Claude, storageManager.KeyValueStorage(), logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize Claude service: %w", err)
	}
	app.LLMService = claudeService

	geminiService, err := llm.NewGeminiService(&cfg.Gemini, storageManager.KeyValueStorage(), logger)
	if err != nil {
		claudeService.Close()
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize Gemini service: %w", err)
	}
	app.EmbeddingService = geminiService

	extractionTimeout, err := time.ParseDuration(cfg.Extraction.Timeout)
	if err != nil {
		extractionTimeout = 5 * time.Minute
	}
	extractor := extraction.NewClient(cfg.Extraction.ToolPath, extractionTimeout)

	app.TaskRegistry = tasks.NewRegistry(logger)
	app.Orchestrator = tasks.NewOrchestrator(app.TaskRegistry, cfg.TaskRetention(), logger)

	app.VariantService = variants.NewService(
		storageManager.KeywordStorage(),
		app.LLMService,
		float64(cfg.Tasks.RatePerSecond),
		cfg.Tasks.BatchSize,
		logger,
	)
	app.MediaPipeline = media.NewPipeline(
		storageManager.MediaStorage(),
		app.LLMService,
		app.EmbeddingService,
		extractor,
		logger,
	)

	if cfg.Maintenance.Enabled {
		if compactor, ok := storageManager.(maintenance.ValueLogCompactor); ok {
			app.Maintenance = maintenance.NewService(compactor, storageManager.MediaStorage(), logger)
			if err := app.Maintenance.Start(cfg.Maintenance.Schedule); err != nil {
				logger.Warn().Err(err).Msg("Failed to start maintenance scheduler")
				app.Maintenance = nil
			}
		}
	}

	app.APIHandler = handlers.NewAPIHandler(storageManager, app.LLMService, app.TaskRegistry, logger)
	app.TaskHandler = handlers.NewTaskHandler(app.TaskRegistry, logger)
	app.VariantHandler = handlers.NewVariantHandler(app.VariantService, app.Orchestrator, logger)
	app.MediaHandler = handlers.NewMediaHandler(app.MediaPipeline, storageManager.MediaStorage(), app.Orchestrator, logger)
	app.KeywordHandler = handlers.NewKeywordHandler(storageManager.KeywordStorage(), logger)

	logger.Info().
		Str("environment", cfg.Environment).
		Str("storage_path", cfg.Storage.Badger.Path).
		Msg("Application initialized")

	return app, nil
}

// Close shuts down all components in dependency order. In-flight batches
// get to finish before the services they depend on go away.
func (a *App) Close() error {
	a.Logger.Info().Msg("Shutting down application")

	if a.Maintenance != nil {
		a.Maintenance.Stop()
	}

	if a.Orchestrator != nil {
		a.Orchestrator.Wait()
	}
	if a.TaskRegistry != nil {
		a.TaskRegistry.Close()
	}

	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}
	if a.EmbeddingService != nil {
		if err := a.EmbeddingService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close embedding service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("Failed to close storage")
			return err
		}
	}

	a.Logger.Info().Msg("Application shutdown complete")
	return nil
}
