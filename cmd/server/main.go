package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/neuralizard/internal/api"
	"github.com/Rrens/neuralizard/internal/config"
	"github.com/Rrens/neuralizard/internal/llm/providers"
	"github.com/Rrens/neuralizard/internal/logger"
	"github.com/Rrens/neuralizard/internal/metrics"
	"github.com/Rrens/neuralizard/internal/repository"
	"github.com/Rrens/neuralizard/internal/repository/redis"
	"github.com/Rrens/neuralizard/internal/service"
)

func main() {
	// Load .env file - try multiple locations
	for _, p := range []string{".env", "../.env", config.EnvFile()} {
		if err := godotenv.Load(p); err == nil {
			fmt.Printf("Loaded .env from: %s\n", p)
			break
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	closer, err := logger.Setup(logger.FromConfig(cfg.Logging, "neuralizard-server"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer closer.Close()

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("database", cfg.Database.Backend()).
		Msg("Starting Neuralizard API server")

	ctx := context.Background()

	// Initialize database
	store, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer store.Close()

	// Title lock: Redis when enabled, in-process otherwise
	var titleLock service.TitleLock
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		titleLock = redis.NewTitleLock(redisClient, cfg.Redis.LockTTL)
	}

	router := providers.NewRouter(cfg.LLM)
	log.Info().
		Str("default", router.DefaultProvider()).
		Strs("available", router.Available()).
		Msg("LLM providers registered")

	m := metrics.New()
	titles := service.NewTitleService(store.Conversations, titleLock, cfg.LLM.TitleTimeout, m)
	chat := service.NewChatService(store, router, titles, m, service.ChatConfig{
		DefaultProvider: router.DefaultProvider(),
		ContextWindow:   cfg.Session.ContextWindow,
		HistoryLimit:    cfg.Session.HistoryLimit,
		StreamTimeout:   cfg.LLM.StreamTimeout,
	})

	handler := api.NewRouter(cfg, api.Dependencies{
		Store:       store,
		Completions: service.NewCompletionService(router, store),
		Chat:        chat,
		Metrics:     m,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
