package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Rrens/neuralizard/internal/api/handler"
	customMiddleware "github.com/Rrens/neuralizard/internal/api/middleware"
	"github.com/Rrens/neuralizard/internal/config"
	"github.com/Rrens/neuralizard/internal/metrics"
	"github.com/Rrens/neuralizard/internal/service"
)

// Dependencies are the services the router exposes.
type Dependencies struct {
	Store       handler.Pinger
	Completions *service.CompletionService
	Chat        *service.ChatService
	Metrics     *metrics.Metrics
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	if deps.Metrics != nil {
		r.Use(customMiddleware.Metrics(deps.Metrics))
	}
	r.Use(middleware.Recoverer)

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	chatHandler := handler.NewChatHandler(deps.Completions)

	r.Get("/", handler.Root)
	if deps.Metrics != nil && cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, deps.Metrics.Handler())
	}

	// Short requests share the middleware timeout; streams and sockets run unbounded.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeoutOr(cfg.Server.MiddlewareTimeout, 60*time.Second)))

		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Store))
		r.Get("/chat/ping", handler.Ping)
		r.Get("/chat/providers", chatHandler.Providers)
		r.Post("/chat/complete", chatHandler.Complete)
	})

	r.Post("/chat/stream", chatHandler.Stream)
	r.Get("/chat/ws", handler.WebSocket(deps.Chat))

	return r
}

func timeoutOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
