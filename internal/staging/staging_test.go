package staging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"subtitler/internal/logging"
)

func TestWorkspaceLifecycle(t *testing.T) {
	root := filepath.Join(t.TempDir(), "work")
	ws, err := New(root, "abc", logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if filepath.Base(ws.Dir) != "req-abc" {
		t.Fatalf("unexpected workspace dir %q", ws.Dir)
	}

	path, n, err := ws.Store("clip.mp4", strings.NewReader("media bytes"))
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if n != int64(len("media bytes")) || filepath.Dir(path) != ws.Dir {
		t.Fatalf("unexpected store result: %s (%d bytes)", path, n)
	}

	ws.Close()
	if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
		t.Fatalf("expected workspace removed, stat err=%v", err)
	}
	ws.Close()
}

func TestWorkspaceGeneratesID(t *testing.T) {
	ws, err := New(t.TempDir(), "", nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer ws.Close()
	if ws.ID == "" || !strings.HasPrefix(filepath.Base(ws.Dir), WorkspacePrefix) {
		t.Fatalf("unexpected workspace: %+v", ws)
	}
}

func TestWorkspacePathStaysInside(t *testing.T) {
	ws, err := New(t.TempDir(), "p", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()
	cases := map[string]string{
		"../../etc/passwd":     "passwd",
		`C:\Users\me\a.wav`:    "a.wav",
		"":                     "upload",
		"..":                   "upload",
		"nested/dir/video.mkv": "video.mkv",
	}
	for input, want := range cases {
		if got := ws.Path(input); got != filepath.Join(ws.Dir, want) {
			t.Errorf("Path(%q) = %q, want %q", input, got, filepath.Join(ws.Dir, want))
		}
	}
}

func TestNewRequiresRoot(t *testing.T) {
	if _, err := New("  ", "x", nil); err == nil {
		t.Fatal("expected error for empty root")
	}
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldWorkspaces(t *testing.T) {
	tmpDir := t.TempDir()

	oldDir := filepath.Join(tmpDir, "req-old")
	recentDir := filepath.Join(tmpDir, "req-recent")
	foreignDir := filepath.Join(tmpDir, "keep-me")
	for _, dir := range []string{oldDir, recentDir, foreignDir} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	for _, dir := range []string{oldDir, foreignDir} {
		if err := os.Chtimes(dir, oldTime, oldTime); err != nil {
			t.Fatalf("set old time: %v", err)
		}
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("expected only %s removed, got %v", oldDir, result.Removed)
	}
	for _, dir := range []string{recentDir, foreignDir} {
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("expected %s to survive: %v", dir, err)
		}
	}

	dirs, err := ListWorkspaces(tmpDir)
	if err != nil || len(dirs) != 1 || dirs[0].Name != "req-recent" {
		t.Fatalf("unexpected workspace listing: %v (%v)", dirs, err)
	}
}

func TestCleanStaleZeroAgeRemovesAll(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"req-a", "req-b"} {
		if err := os.Mkdir(filepath.Join(tmpDir, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	result := CleanStale(context.Background(), tmpDir, 0, nil)
	if len(result.Removed) != 2 {
		t.Fatalf("expected both workspaces removed, got %v", result.Removed)
	}
}
