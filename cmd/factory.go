package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/agentnexus/copilot/pkg/config"
	"github.com/agentnexus/copilot/pkg/engine/devops"
	"github.com/agentnexus/copilot/pkg/engine/memory"
	"github.com/agentnexus/copilot/pkg/engine/planner"
	"github.com/agentnexus/copilot/pkg/engine/runtime"
	"github.com/agentnexus/copilot/pkg/engine/store"
	"github.com/agentnexus/copilot/pkg/engine/tools"
	"github.com/agentnexus/copilot/pkg/logging"
	"github.com/agentnexus/copilot/pkg/observability"
)

// app bundles the assembled collaborators behind each command.
type app struct {
	Config   config.Config
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Store    store.SessionStore
	Logs     *devops.LogStore
	Registry *tools.Registry
	Engine   *runtime.WorkflowEngine
}

// Close releases held resources in reverse dependency order.
func (a *app) Close() {
	if a.Logs != nil {
		_ = a.Logs.Close()
	}
	if a.Store != nil {
		_ = a.Store.Close()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}

// buildApp assembles the full runtime from configuration. quiet routes
// logs to a file so interactive output stays clean.
func buildApp(ctx context.Context, quiet bool) (*app, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}

	var logger *zap.Logger
	if quiet {
		logger, err = logging.NewFile("workspace/logs/copilot.log", cfg.Logging.Level)
	} else {
		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if err != nil {
		return nil, err
	}

	metrics := observability.New()

	sessions, err := buildStore(cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	logs, err := devops.NewLogStore(cfg.Logs.Path, logger.Named("logs"))
	if err != nil {
		return nil, err
	}
	if err := logs.Setup(ctx); err != nil {
		return nil, err
	}

	registry := tools.NewRegistry(logger.Named("tools"), metrics)
	err = devops.RegisterTools(registry, devops.Deps{
		Logs: logs,
		Thresholds: devops.Thresholds{
			ErrorRate:    cfg.Anomaly.ErrorRateThreshold,
			Window:       time.Duration(cfg.Anomaly.WindowSeconds) * time.Second,
			MinLogVolume: cfg.Anomaly.MinLogVolume,
			MTTDCeiling:  time.Duration(cfg.Anomaly.MTTDCeilingSeconds) * time.Second,
		},
		Metrics: metrics,
		Logger:  logger.Named("devops"),
	})
	if err != nil {
		return nil, err
	}
	err = devops.RegisterStandardTools(registry, devops.StandardDeps{
		Workspace: cfg.Workspace,
		Logger:    logger.Named("tools"),
	})
	if err != nil {
		return nil, err
	}

	backend, err := planner.NewBackend(ctx, planner.BackendConfig{
		Provider:   cfg.Planner.Provider,
		Model:      cfg.Planner.Model,
		APIKey:     cfg.Planner.APIKey,
		MaxRetries: uint64(cfg.Planner.MaxRetries),
	}, logger.Named("planner"))
	switch {
	case errors.Is(err, planner.ErrNotConfigured):
		logger.Warn("planner backend not configured, using built-in demo plan", zap.Error(err))
		backend = nil
	case err != nil:
		return nil, err
	}
	agent := planner.New(backend, registry, logger.Named("planner"))

	mem, err := memory.New(memory.Config{
		Path:       cfg.Memory.Path,
		Collection: cfg.Memory.Collection,
		OpenAIKey:  openAIKey(cfg),
	}, logger.Named("memory"))
	if err != nil {
		return nil, err
	}

	engine, err := runtime.New(runtime.Config{
		Planner:       agent,
		Registry:      registry,
		Store:         sessions,
		Memory:        mem,
		Logger:        logger.Named("engine"),
		HistoryWindow: cfg.Engine.HistoryWindow,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics,
		Store:    sessions,
		Logs:     logs,
		Registry: registry,
		Engine:   engine,
	}, nil
}

// buildStore selects the session persistence backend.
func buildStore(cfg config.StoreConfig, logger *zap.Logger) (store.SessionStore, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return store.NewSQLiteStore(cfg.Path, logger.Named("store"))
	case "file":
		return store.NewFileStore(cfg.Path, logger.Named("store"))
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// openAIKey returns the key used for memory embeddings. Only OpenAI keys
// apply, the local embedder covers everything else.
func openAIKey(cfg config.Config) string {
	if cfg.Planner.Provider == "openai" {
		return cfg.Planner.APIKey
	}
	return ""
}
