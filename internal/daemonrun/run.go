package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"subtitler/internal/config"
	"subtitler/internal/daemon"
	"subtitler/internal/logging"
	"subtitler/internal/models"
	"subtitler/internal/services/whisper"
	"subtitler/internal/transcribe"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level from the config when set.
	LogLevel string
	// Load replaces the whisper-backed model loader.
	Load models.LoadFunc[transcribe.Model]
	// Logger replaces the config-derived logger.
	Logger *slog.Logger
	// Ready is called with the bound address once the API is serving.
	Ready func(addr string)
}

// Run starts the subtitler daemon and blocks until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := opts.Logger
	if logger == nil {
		effective := *cfg
		if level := strings.TrimSpace(opts.LogLevel); level != "" {
			effective.Logging.Level = level
		}
		var err error
		logger, err = logging.NewFromConfig(&effective)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
	}

	load := opts.Load
	if load == nil {
		load = transcribe.WhisperLoader(whisper.NewService(transcribe.WhisperConfig(cfg)))
	}

	d, err := daemon.New(cfg, load, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	// The lock is held from here on, so the pid file belongs to this process.
	pidPath := PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	if opts.Ready != nil {
		opts.Ready(d.Addr())
	}

	<-signalCtx.Done()
	logger.Info("subtitler daemon shutting down")
	return nil
}

// PIDPath returns where a running daemon records its process id.
func PIDPath(cfg *config.Config) string {
	if cfg == nil || cfg.Paths.DataDir == "" {
		return ""
	}
	return filepath.Join(cfg.Paths.DataDir, "subtitlerd.pid")
}

// ReadPID returns the process id recorded at path, or 0 when none is recorded.
func ReadPID(path string) int {
	if path == "" {
		return 0
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
