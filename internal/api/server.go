// Package api exposes the reconciliation service over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/ledgermatch/internal/api/handlers"
	"github.com/eshaffer321/ledgermatch/internal/api/middleware"
	"github.com/eshaffer321/ledgermatch/internal/domain/recon"
	"github.com/eshaffer321/ledgermatch/internal/infrastructure/storage"
	"github.com/eshaffer321/ledgermatch/internal/service"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string

	// Matching supplies the default reconciliation config for requests
	// that do not override it.
	Matching recon.Config
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		Matching:       recon.DefaultConfig(),
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	repo       storage.Repository
	svc        *service.ReconService
}

// NewServer creates a new API server.
// If repo is nil, the runs and stats endpoints are not available and
// reconcile requests cannot persist.
func NewServer(cfg Config, repo storage.Repository, svc *service.ReconService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		logger: logger,
		repo:   repo,
		svc:    svc,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	corsConfig := middleware.CORSConfig{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}
	s.router.Use(middleware.CORS(corsConfig))

	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler()
	s.router.Get("/health", healthHandler.ServeHTTP)

	s.router.Route("/api", func(r chi.Router) {
		base := handlers.NewBase(s.repo)

		reconcileHandler := handlers.NewReconcileHandler(base, s.svc, s.config.Matching)
		r.Post("/reconcile", reconcileHandler.Reconcile)

		if s.repo != nil {
			runsHandler := handlers.NewRunsHandler(s.repo)
			r.Get("/runs", runsHandler.List)
			r.Get("/runs/{id}", runsHandler.Get)

			statsHandler := handlers.NewStatsHandler(s.repo)
			r.Get("/stats", statsHandler.Get)
		}
	})
}

// Handler returns the configured router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening. It blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
