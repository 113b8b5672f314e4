package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subtitler/internal/config"
	"subtitler/internal/daemon"
	"subtitler/internal/logging"
	"subtitler/internal/models"
	"subtitler/internal/testsupport"
	"subtitler/internal/transcribe"
)

func sampleLoader() models.LoadFunc[transcribe.Model] {
	return testsupport.Loader(testsupport.StaticModel{Result: testsupport.SampleResult()}, nil)
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	daemon     *daemon.Daemon
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	// Nothing listens on port 1, so commands see the daemon as down.
	cfg.Server.Bind = "127.0.0.1:1"
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("SUBTITLER_API_TOKEN", "")

	configPath := filepath.Join(homeDir, ".config", "subtitler", "config.toml")
	writeTestConfig(t, configPath, cfg)

	original := localLoader
	localLoader = func(*config.Config) models.LoadFunc[transcribe.Model] { return sampleLoader() }
	t.Cleanup(func() { localLoader = original })

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

// startDaemon runs a daemon on an ephemeral port with a fake model loader
// and returns its address.
func (env *cliTestEnv) startDaemon(t *testing.T) string {
	t.Helper()
	cfg := *env.cfg
	cfg.Server.Bind = "127.0.0.1:0"
	d, err := daemon.New(&cfg, sampleLoader(), logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		_ = d.Close()
	})
	env.daemon = d
	return d.Addr()
}

func (env *cliTestEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(env.baseDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	content := fmt.Sprintf(
		"[paths]\nwork_dir = %q\nlog_dir = %q\ndata_dir = %q\nmodel_dir = %q\n\n[server]\nbind = %q\n",
		cfg.Paths.WorkDir,
		cfg.Paths.LogDir,
		cfg.Paths.DataDir,
		cfg.Paths.ModelDir,
		cfg.Server.Bind,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
