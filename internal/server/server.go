package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"subtitler/internal/api"
	"subtitler/internal/history"
	"subtitler/internal/logging"
	"subtitler/internal/models"
	"subtitler/internal/transcribe"
)

// JobStore is the read side of the history ledger.
type JobStore interface {
	List(ctx context.Context, limit int) ([]*history.Job, error)
	Get(ctx context.Context, id string) (*history.Job, error)
	Stats(ctx context.Context) (history.Stats, error)
}

// StatusFunc reports daemon-level state for /api/status.
type StatusFunc func(ctx context.Context) api.DaemonStatus

// Options configure the HTTP server.
type Options struct {
	Bind           string
	Token          string
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	WorkDir        string
	Defaults       transcribe.Defaults
}

// Server exposes the subtitle endpoint and the status API.
type Server struct {
	opts        Options
	transcriber *transcribe.Service
	jobs        JobStore
	status      StatusFunc
	logger      *slog.Logger
	active      atomic.Int64
	stopOnce    sync.Once

	listener net.Listener
	server   *http.Server
}

// New builds a server. jobs and status may be nil.
func New(opts Options, transcriber *transcribe.Service, jobs JobStore, status StatusFunc, logger *slog.Logger) *Server {
	if opts.Defaults == (transcribe.Defaults{}) {
		opts.Defaults = transcribe.DefaultDefaults()
	}
	s := &Server{
		opts:        opts,
		transcriber: transcriber,
		jobs:        jobs,
		status:      status,
		logger:      logging.NewComponentLogger(logger, "api-server"),
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler with authentication applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/subtitles", authMiddleware(s.opts.Token, s.handleSubtitles))
	mux.HandleFunc("/api/status", authMiddleware(s.opts.Token, s.handleStatus))
	mux.HandleFunc("/api/models", authMiddleware(s.opts.Token, s.handleModels))
	mux.HandleFunc("/api/jobs", authMiddleware(s.opts.Token, s.handleJobs))
	mux.HandleFunc("/api/jobs/", authMiddleware(s.opts.Token, s.handleJob))
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Start listens on the configured address and serves until ctx is done or
// Stop is called.
func (s *Server) Start(ctx context.Context) error {
	bind := strings.TrimSpace(s.opts.Bind)
	if bind == "" {
		return errors.New("api bind address required")
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ActiveRequests counts subtitle requests in flight.
func (s *Server) ActiveRequests() int {
	return int(s.active.Load())
}

// Stop shuts the server down, waiting briefly for in-flight responses.
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	s.stopOnce.Do(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("api server shutdown incomplete", logging.Error(err))
		}
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var payload api.DaemonStatus
	if s.status != nil {
		payload = s.status(r.Context())
	}
	payload.Running = true
	payload.ActiveRequests = s.ActiveRequests()
	payload.LoadedModels = loadedNames(s.transcriber)
	if s.jobs != nil && payload.Jobs == nil {
		if stats, err := s.jobs.Stats(r.Context()); err == nil {
			payload.Jobs = api.FromStats(stats)
		}
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var loaded []models.Size
	if s.transcriber != nil {
		loaded = s.transcriber.Cache().Loaded()
	}
	s.writeJSON(w, http.StatusOK, api.ModelsResponse{Models: api.ModelCatalog(loaded, s.opts.Defaults.ModelSize)})
}

func loadedNames(svc *transcribe.Service) []string {
	names := []string{}
	if svc == nil {
		return names
	}
	for _, size := range svc.Cache().Loaded() {
		names = append(names, string(size))
	}
	return names
}
