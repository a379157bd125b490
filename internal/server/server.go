// Package server exposes the monitoring state over HTTP for the frontend.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"platform-pulse/internal/plays"
	"platform-pulse/internal/status"
	"platform-pulse/internal/ticker"
)

// Options tune the HTTP listener.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server serves the status API. Requesting /api/v1/status counts as
// observer interest and keeps the status polls alive, mirroring the
// panel-open condition in the frontend.
type Server struct {
	opts     Options
	logger   zerolog.Logger
	monitor  *status.Monitor
	tracker  *ticker.Tracker
	queue    *plays.Queue
	gatherer prometheus.Gatherer

	httpServer *http.Server
}

// New assembles the server and its routes.
func New(opts Options, monitor *status.Monitor, tracker *ticker.Tracker, queue *plays.Queue, gatherer prometheus.Gatherer, logger zerolog.Logger) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8089"
	}

	s := &Server{
		opts:     opts,
		logger:   logger.With().Str("component", "server").Logger(),
		monitor:  monitor,
		tracker:  tracker,
		queue:    queue,
		gatherer: gatherer,
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/healthz", s.handleHealthz)
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/ticker", s.handleTicker)
		r.Get("/plays", s.handlePlays)
	})
	if gatherer != nil {
		router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      router,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.opts.Addr).Msg("http server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.monitor.Touch()
	s.writeJSON(w, s.monitor.Snapshot())
}

func (s *Server) handleTicker(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.tracker.Entries())
}

func (s *Server) handlePlays(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.queue.Snapshot())
}

func (s *Server) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("encode response")
	}
}
