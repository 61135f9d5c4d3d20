// internal/server/server.go
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rovshanmuradov/raffle-monitor/internal/events"
	"github.com/rovshanmuradov/raffle-monitor/internal/export"
	"github.com/rovshanmuradov/raffle-monitor/internal/monitor"
	"go.uber.org/zap"
)

// StatusSource is the read side of a running monitor.
type StatusSource interface {
	Snapshot() monitor.Snapshot
}

// EventSource returns recent domain events, newest first.
type EventSource interface {
	Recent(limit int) []events.Record
}

// JournalSource returns recent announcements, newest last. A limit <= 0
// returns everything retained.
type JournalSource interface {
	Recent(limit int) []monitor.JournalEntry
}

// Deps are the collaborators served over HTTP. Nil sources disable their route.
type Deps struct {
	Status   StatusSource
	Events   EventSource
	Journal  JournalSource
	Registry *prometheus.Registry
}

// Server exposes health, metrics and status endpoints.
type Server struct {
	http   *http.Server
	logger *zap.Logger
}

// New creates a server listening on addr.
func New(addr string, deps Deps, logger *zap.Logger) *Server {
	logger = logger.Named("server")
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(deps, logger),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// NewRouter builds the route table.
func NewRouter(deps Deps, logger *zap.Logger) http.Handler {
	h := &handler{deps: deps, exporter: export.NewExporter(logger), logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", h.health)
	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}
	if deps.Status != nil {
		r.Get("/status", h.status)
		r.Get("/raffles/{id}", h.raffle)
	}
	if deps.Events != nil {
		r.Get("/events", h.events)
	}
	if deps.Journal != nil {
		r.Get("/announcements", h.announcements)
		r.Get("/announcements/export", h.exportAnnouncements)
		r.Get("/announcements/report", h.dailyReport)
	}
	return r
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}
	s.logger.Info("Status server listening", zap.String("addr", ln.Addr().String()))

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Status server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
