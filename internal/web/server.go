// Package web serves stored run reports as a read-only JSON API.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/ridingcast/internal/debug"
	"github.com/ridingcast/internal/web/handlers"
	"github.com/ridingcast/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config     *Config
	store      handlers.ReportStore
	httpServer *http.Server
	router     *mux.Router
}

// NewServer creates a server over an open report store.
func NewServer(config *Config, store handlers.ReportStore) *Server {
	server := &Server{
		config: config,
		store:  store,
	}
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         config.Addr,
		Handler:      server.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return server
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()
	reports := &handlers.ReportHandler{Store: s.store}

	s.router.HandleFunc("/health", handlers.Health).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/runs", reports.ListRuns).Methods("GET", "OPTIONS")
	api.HandleFunc("/runs/{run}", reports.GetRun).Methods("GET", "OPTIONS")
	api.HandleFunc("/runs/{run}/dataset", reports.GetDataset).Methods("GET", "OPTIONS")
	api.HandleFunc("/models", reports.GetModels).Methods("GET", "OPTIONS")
	api.HandleFunc("/features", reports.GetFeatures).Methods("GET", "OPTIONS")
	api.HandleFunc("/predictions", reports.GetPredictions).Methods("GET", "OPTIONS")
	api.HandleFunc("/predictions/{district}", reports.GetPrediction).Methods("GET", "OPTIONS")

	s.router.Use(middleware.CORS())
	s.router.Use(middleware.RequestLogging())
	api.Use(middleware.Authentication(s.config.APIKey))
}

// Start serves until ctx is cancelled or the process receives SIGINT or
// SIGTERM, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		debug.Step("serving reports", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	debug.Step("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}
