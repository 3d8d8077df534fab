package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"

	"github.com/Rrens/neuralizard/internal/config"
	"github.com/Rrens/neuralizard/internal/domain"
	"github.com/Rrens/neuralizard/internal/llm"
	"github.com/Rrens/neuralizard/internal/llm/providers"
	"github.com/Rrens/neuralizard/internal/logger"
	"github.com/Rrens/neuralizard/internal/repository"
	"github.com/Rrens/neuralizard/internal/service"
)

// newRouter builds the provider registry; tests swap it for scripted providers.
var newRouter = providers.NewRouter

// loadConfig reads .env files and configuration, then installs a quiet logger.
func loadConfig() (*config.Config, error) {
	for _, p := range []string{".env", "../.env", config.EnvFile()} {
		_ = godotenv.Load(p)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	opts := logger.FromConfig(cfg.Logging, "neuralizard")
	opts.Pretty = true
	if cfg.Logging.Level == "" || cfg.Logging.Level == "info" {
		opts.Level = "warn"
	}
	if _, err := logger.Setup(opts); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app is what the data commands need: the store and the provider registry.
type app struct {
	cfg         *config.Config
	store       *domain.Store
	router      *llm.Router
	completions *service.CompletionService
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	store, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	router := newRouter(cfg.LLM)
	return &app{
		cfg:         cfg,
		store:       store,
		router:      router,
		completions: service.NewCompletionService(router, store),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// provider resolves name, defaulting to the configured provider.
func (a *app) provider(name string) (llm.Provider, error) {
	return a.router.Resolve(name)
}
