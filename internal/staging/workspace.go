package staging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"subtitler/internal/logging"
)

// WorkspacePrefix marks directories created by New so sweeps leave other
// content in the work directory alone.
const WorkspacePrefix = "req-"

// Workspace is a per-request scratch directory holding the upload and the
// rendered document. Close removes it.
type Workspace struct {
	ID     string
	Dir    string
	logger *slog.Logger
	closed bool
}

// New creates a workspace under root named after id (a new UUID when empty).
func New(root, id string, logger *slog.Logger) (*Workspace, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("staging: work directory required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("ensure work directory: %w", err)
	}
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}
	dir := filepath.Join(root, WorkspacePrefix+id)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{
		ID:     id,
		Dir:    dir,
		logger: logging.NewComponentLogger(logger, "staging"),
	}, nil
}

// Path joins name onto the workspace directory, discarding any directory
// components so client-supplied names cannot escape it.
func (w *Workspace) Path(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == ".." || base == "" {
		base = "upload"
	}
	return filepath.Join(w.Dir, base)
}

// Store copies r into a file named name inside the workspace.
func (w *Workspace) Store(name string, r io.Reader) (string, int64, error) {
	path := w.Path(name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	written, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil {
		return "", written, fmt.Errorf("write %s: %w", filepath.Base(path), copyErr)
	}
	if closeErr != nil {
		return "", written, fmt.Errorf("close %s: %w", filepath.Base(path), closeErr)
	}
	return path, written, nil
}

// Close removes the workspace. Failures are logged, never returned.
func (w *Workspace) Close() {
	if w == nil || w.closed {
		return
	}
	w.closed = true
	if err := os.RemoveAll(w.Dir); err != nil {
		logging.WarnWithContext(w.logger, "failed to remove workspace", "workspace_cleanup_failed",
			logging.String("path", w.Dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check work_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed until the next sweep"),
		)
		return
	}
	w.logger.Debug("workspace removed", logging.String("path", w.Dir))
}
