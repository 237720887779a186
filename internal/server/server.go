// Package server exposes the goal ledger over HTTP: a JSON API, file
// exports, a WebSocket live feed and the embedded calendar page.
package server

import (
	"bufio"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/nhle/goal-tracker/internal/export"
	"github.com/nhle/goal-tracker/internal/store"
)

//go:embed static
var staticFiles embed.FS

// Config holds server configuration.
type Config struct {
	// Addr is the host:port to listen on; port 0 picks a free port.
	Addr string

	Ledger store.Ledger

	// Logger for request and lifecycle logging (default: slog.Default()).
	Logger *slog.Logger

	// Now stamps export filenames (default: time.Now).
	Now func() time.Time
}

// Server serves the ledger API and calendar UI.
type Server struct {
	addr     string
	ledger   store.Ledger
	exporter *export.Exporter
	hub      *Hub
	logger   *slog.Logger
	now      func() time.Time

	listener net.Listener
	server   *http.Server
	done     chan struct{}
}

// New creates a server. It does not listen until Start is called.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Server{
		addr:     cfg.Addr,
		ledger:   cfg.Ledger,
		exporter: export.New(cfg.Ledger).WithClock(cfg.Now),
		hub:      NewHub(cfg.Logger),
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
}

// Handler returns the HTTP routes and starts the live feed. Call Stop (or
// Hub().Close) to release it.
func (s *Server) Handler() http.Handler {
	s.hub.Run()

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("embedded static dir: %v", err))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/days", s.handleListDays)
	mux.HandleFunc("POST /api/days/{date}", s.handleToggleDay)
	mux.HandleFunc("GET /api/export/{format}", s.handleExport)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.Handle("GET /api/live", s.hub)

	return s.logRequests(mux)
}

// Start begins listening and serving in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.logger.Info("goal tracker listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the listener and live feed.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping goal tracker")

	// Hijacked WebSocket connections are not tracked by Shutdown.
	s.hub.Close()

	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	<-s.done
	return nil
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Hub exposes the live feed.
func (s *Server) Hub() *Hub {
	return s.hub
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack is required by the WebSocket upgrade on /api/live.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
