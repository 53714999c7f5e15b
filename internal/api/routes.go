package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/recares/dme-matcher/internal/pkg/httputil"
)

// RouteConfig holds the router settings that come from configuration.
type RouteConfig struct {
	AllowedOrigins []string
	// IntakeToken, when set, is required as a bearer token on /api routes.
	IntakeToken string
	// RequestTimeout bounds each request, lock wait included.
	RequestTimeout time.Duration
}

// SetupRoutes configures all routes.
func SetupRoutes(h *Handlers, health *HealthChecker, cfg RouteConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check (no auth required)
	r.Get("/health", health.HandleHealth)

	r.Route("/api", func(r chi.Router) {
		if cfg.IntakeToken != "" {
			r.Use(requireBearer(cfg.IntakeToken))
		}
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}

		r.Post("/forms/{sheet}/responses", h.HandleFormResponse)
		r.Post("/sweeps/expiration", h.HandleExpirationSweep)
		r.Post("/sweeps/resync", h.HandleResync)
		r.Post("/schema", h.HandleEnsureSchema)
	})

	return r
}

// requireBearer rejects requests that do not carry the intake token.
func requireBearer(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			got, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				httputil.Error(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
