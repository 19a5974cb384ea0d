package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/roach88/mealsync/internal/store"
)

// Config configures a Server.
type Config struct {
	// Store is the authoritative backing store.
	Store *store.Store

	// Auth verifies bearer tokens.
	Auth *Authenticator

	// AllowedOrigins lists CORS origins; empty disables CORS headers.
	AllowedOrigins []string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server serves the meal log and vendor API.
type Server struct {
	store   *store.Store
	auth    *Authenticator
	metrics *Metrics
	logger  *slog.Logger
	origins []string
}

// New creates a Server.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("server: store is required")
	}
	if cfg.Auth == nil {
		return nil, errors.New("server: authenticator is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:   cfg.Store,
		auth:    cfg.Auth,
		metrics: NewMetrics(),
		logger:  logger,
		origins: cfg.AllowedOrigins,
	}, nil
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(instrument(s.logger, s.metrics))
	r.Use(middleware.Recoverer)
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.auth.requireUser)

		r.Post("/meallog", s.handleLogMeals)
		r.Get("/meallog", s.handleListMealLogs)
		r.Delete("/meallog", s.handleDeleteMealLog)
		r.Post("/meallog/upsert", s.handleUpsertMeals)

		r.Post("/vendor", s.handleCreateVendor)
		r.Get("/vendor", s.handleListVendors)
		r.Put("/vendor", s.handleUpdateVendor)
		r.Delete("/vendor", s.handleDeleteVendor)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr, "driver", s.store.Driver())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.logger.Info("server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// storageError logs err and writes a generic 500.
func (s *Server) storageError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.Error(op+" failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
	writeError(w, http.StatusInternalServerError, "Internal Server Error")
}
