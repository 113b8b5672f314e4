package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"subtitler/internal/api"
	"subtitler/internal/config"
	"subtitler/internal/history"
	"subtitler/internal/logging"
	"subtitler/internal/models"
	"subtitler/internal/preflight"
	"subtitler/internal/server"
	"subtitler/internal/staging"
	"subtitler/internal/transcribe"
)

// Daemon owns the model cache, the job ledger and the HTTP server, and
// enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *history.Store
	service *transcribe.Service
	server  *server.Server

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt time.Time
	cancel    context.CancelFunc
	preloads  sync.WaitGroup
}

// New constructs a daemon. load produces model handles; production callers
// pass transcribe.WhisperLoader.
func New(cfg *config.Config, load models.LoadFunc[transcribe.Model], logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || load == nil {
		return nil, errors.New("daemon requires config and model loader")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	logger = logging.NewComponentLogger(logger, "daemon")

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}

	var recorder transcribe.Recorder
	var jobs server.JobStore
	if cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		d.store = store
		recorder = store
		jobs = store
	}

	cache := models.NewCache(load, logger)
	d.service = transcribe.NewService(cache, recorder, transcribe.Timeout(cfg), logger)
	d.server = server.New(server.Options{
		Bind:           cfg.Server.Bind,
		Token:          cfg.Server.Token,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		WorkDir:        cfg.Paths.WorkDir,
		Defaults:       transcribe.DefaultsFromConfig(cfg),
	}, d.service, jobs, d.Status, logger)
	return d, nil
}

// Start acquires the lock, tidies state left by a previous run, starts the
// API server and warms the configured models in the background.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another subtitler daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.recover(runCtx)
	d.reportPreflight(runCtx)

	if err := d.server.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	d.cancel = cancel
	d.startedAt = time.Now()
	d.running.Store(true)
	d.preload(runCtx)

	d.logger.Info("subtitler daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.server.Addr()),
	)
	return nil
}

// recover sweeps stale workspaces and settles history left by a crash.
func (d *Daemon) recover(ctx context.Context) {
	staging.CleanStale(ctx, d.cfg.Paths.WorkDir, 0, d.logger)
	if d.store == nil {
		return
	}
	if count, err := d.store.FailInterrupted(ctx); err != nil {
		logging.WarnWithContext(d.logger, "failed to settle interrupted jobs", "history_recover_failed", logging.Error(err))
	} else if count > 0 {
		d.logger.Info("marked interrupted jobs failed", logging.Int64("count", count))
	}
	if days := d.cfg.History.RetentionDays; days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days)
		if removed, err := d.store.Prune(ctx, cutoff); err != nil {
			logging.WarnWithContext(d.logger, "failed to prune history", "history_prune_failed", logging.Error(err))
		} else if removed > 0 {
			d.logger.Info("pruned job history", logging.Int64("removed", removed), logging.Int("retention_days", days))
		}
	}
}

func (d *Daemon) reportPreflight(ctx context.Context) {
	for _, result := range preflight.Failed(preflight.RunAll(ctx, d.cfg)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run subtitler status for details"),
			logging.String(logging.FieldImpact, "requests needing this dependency will fail"),
		)
	}
}

func (d *Daemon) preload(ctx context.Context) {
	sizes := transcribe.PreloadSizes(d.cfg)
	if len(sizes) == 0 {
		return
	}
	d.preloads.Add(1)
	go func() {
		defer d.preloads.Done()
		if err := d.service.Cache().Preload(ctx, sizes...); err != nil && ctx.Err() == nil {
			logging.WarnWithContext(d.logger, "model preload failed", "model_preload_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "first request for the model loads it instead"),
			)
		}
	}()
}

// Stop shuts the server down and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("subtitler daemon stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	d.preloads.Wait()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the address the API server is bound to.
func (d *Daemon) Addr() string {
	return d.server.Addr()
}

// Service exposes the transcription service.
func (d *Daemon) Service() *transcribe.Service {
	return d.service
}

// Status reports runtime information for /api/status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Bind:         d.cfg.Server.Bind,
		LockFilePath: d.lockPath,
		Dependencies: api.FromDependencies(preflight.CheckSystemDeps(ctx, d.cfg)),
	}
	if !d.startedAt.IsZero() {
		status.StartedAt = d.startedAt.UTC().Format(time.RFC3339)
	}
	if d.store != nil {
		status.HistoryDBPath = d.store.Path()
		if stats, err := d.store.Stats(ctx); err == nil {
			status.Jobs = api.FromStats(stats)
		}
	}
	if dirs, err := staging.ListWorkspaces(d.cfg.Paths.WorkDir); err == nil {
		status.Workspaces = len(dirs)
	}
	return status
}
