package daemon_test

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"subtitler/internal/api"
	"subtitler/internal/daemon"
	"subtitler/internal/history"
	"subtitler/internal/logging"
	"subtitler/internal/models"
	"subtitler/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPreload("tiny"))
	if err := os.MkdirAll(filepath.Join(cfg.Paths.WorkDir, "req-stale"), 0o755); err != nil {
		t.Fatal(err)
	}
	var loads atomic.Int32
	loader := testsupport.Loader(testsupport.StaticModel{}, &loads)

	d, err := daemon.New(cfg, loader, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail")
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.WorkDir, "req-stale")); !os.IsNotExist(err) {
		t.Fatalf("expected stale workspace swept, stat err=%v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !d.Service().Cache().Contains(models.SizeTiny) {
		if time.Now().After(deadline) {
			t.Fatal("preload did not finish")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Get("http://" + d.Addr() + "/api/status")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}
	defer resp.Body.Close()
	var status api.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running || status.PID != os.Getpid() || len(status.LoadedModels) != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.Jobs == nil || status.HistoryDBPath != cfg.HistoryPath() {
		t.Fatalf("expected history stats in status: %+v", status)
	}

	d.Stop()
	if d.Status(context.Background()).Running {
		t.Fatal("expected daemon to report stopped")
	}
	if loads.Load() != 1 {
		t.Fatalf("expected a single preload, got %d", loads.Load())
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	loader := testsupport.Loader(testsupport.StaticModel{}, nil)

	first, err := daemon.New(cfg, loader, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = first.Close() })
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}

	second, err := daemon.New(cfg, loader, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = second.Close() })
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("expected lock contention error")
	}
}

func TestDaemonSettlesInterruptedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatal(err)
	}
	job, err := store.Begin(context.Background(), history.Job{Filename: "a.wav", ModelSize: "small", Task: "transcribe", Format: "srt", MaxChars: 42})
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	d, err := daemon.New(cfg, testsupport.Loader(testsupport.StaticModel{}, nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	_ = d.Close()

	got, err := testsupport.MustOpenHistory(t, cfg).Get(context.Background(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != history.StatusFailed {
		t.Fatalf("expected interrupted job failed, got %s", got.Status)
	}
}

func TestNewRequiresLoader(t *testing.T) {
	if _, err := daemon.New(testsupport.NewConfig(t), nil, nil); err == nil {
		t.Fatal("expected error without loader")
	}
}

func TestDaemonWithoutHistoryRequiresToken(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutHistory(), testsupport.WithToken("s3cret"))
	d, err := daemon.New(cfg, testsupport.Loader(testsupport.StaticModel{}, nil), logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	resp, err := http.Get("http://" + d.Addr() + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, "http://"+d.Addr()+"/api/status", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var status api.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Jobs != nil || status.HistoryDBPath != "" {
		t.Fatalf("expected no history in status: %+v", status)
	}
	if _, err := os.Stat(cfg.HistoryPath()); !os.IsNotExist(err) {
		t.Fatalf("expected no history database, stat err=%v", err)
	}
}
