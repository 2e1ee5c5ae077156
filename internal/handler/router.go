package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"clickearn/internal/service"
)

// HealthFunc reports per-component status for the health endpoint
type HealthFunc func(ctx context.Context) (healthy bool, components map[string]string)

// Handlers bundles everything the router mounts
type Handlers struct {
	Auth       *AuthHandler
	Earning    *EarningHandler
	Withdrawal *WithdrawalHandler
	Catalog    *CatalogHandler
}

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(h Handlers, authService *service.AuthService, health HealthFunc, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	// Middleware stack
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggerMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", SessionHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Service banner
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, logger, http.StatusOK, map[string]string{
			"message": "ClickEarn Pro API",
			"status":  "running",
		})
	})

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		healthy, components := health(r.Context())
		status := http.StatusOK
		overall := "healthy"
		if !healthy {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}
		respondWithJSON(w, logger, status, map[string]interface{}{
			"status":     overall,
			"service":    "clickearn",
			"components": components,
		})
	})

	// API routes
	router.Route("/api", func(r chi.Router) {
		// Public surface
		h.Auth.RegisterRoutes(r)
		h.Catalog.RegisterRoutes(r)
		r.Get("/stats", h.Earning.Stats)

		// Authenticated surface
		r.Group(func(r chi.Router) {
			r.Use(RequireSession(authService, logger))
			h.Earning.RegisterRoutes(r)
			h.Withdrawal.RegisterRoutes(r)
		})
	})

	// 404 handler
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, logger, http.StatusNotFound, Detail{Detail: "endpoint not found"})
	})

	// Method not allowed handler
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, logger, http.StatusMethodNotAllowed, Detail{Detail: "method not allowed"})
	})

	return router
}
