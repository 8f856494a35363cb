// Package api exposes the scan engine over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tmarcus/lookalike/internal/api/handlers"
	"github.com/tmarcus/lookalike/internal/config"
	"github.com/tmarcus/lookalike/internal/scan"
	"github.com/tmarcus/lookalike/internal/scheduler"
)

// Server holds the HTTP server and all handler dependencies.
type Server struct {
	addr string
	srv  *http.Server
}

// New wires all routes and returns a Server ready to Run.
func New(
	addr string,
	cfg *config.Config,
	mgr *scan.Manager,
	sched *scheduler.Scheduler,
	version string,
) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	statusH := &handlers.StatusHandler{Manager: mgr, Sched: sched, Version: version}
	scansH := &handlers.ScansHandler{Manager: mgr, Cfg: cfg}
	groupsH := &handlers.GroupsHandler{Manager: mgr}
	filesH := &handlers.FilesHandler{Manager: mgr}
	configH := &handlers.ConfigHandler{Cfg: cfg}

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", statusH.ServeHTTP)

		r.Post("/scans", scansH.Create)
		r.Delete("/scans/current", scansH.Cancel)

		r.Get("/groups", groupsH.List)
		r.Get("/groups/{key}", groupsH.Get)

		r.Get("/files/info", filesH.Info)
		r.Get("/files/thumbnail", filesH.Thumbnail)

		r.Get("/config", configH.ServeHTTP)
	})

	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: r},
	}
}

// Handler returns the routed handler, for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down HTTP server")
		return s.srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
