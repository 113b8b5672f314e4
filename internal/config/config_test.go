package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"subtitler/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("SUBTITLER_API_TOKEN", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWork := filepath.Join(tempHome, ".cache", "subtitler", "work")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.Server.Bind != "127.0.0.1:7488" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if cfg.Whisper.DefaultModel != "small" {
		t.Fatalf("unexpected default model: %q", cfg.Whisper.DefaultModel)
	}
	if cfg.Captions.MaxChars != 42 || cfg.Captions.Format != "srt" {
		t.Fatalf("unexpected caption defaults: %+v", cfg.Captions)
	}
	if !cfg.History.Enabled {
		t.Fatal("expected history enabled by default")
	}
	if cfg.HistoryPath() != filepath.Join(tempHome, ".local", "share", "subtitler", "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
	if cfg.MaxUploadBytes() != 1024<<20 {
		t.Fatalf("unexpected upload limit: %d", cfg.MaxUploadBytes())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.LogDir, cfg.Paths.DataDir, cfg.Paths.ModelDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "subtitler.toml")

	type payload struct {
		Paths struct {
			WorkDir string `toml:"work_dir"`
		} `toml:"paths"`
		Whisper struct {
			Device  string   `toml:"device"`
			Preload []string `toml:"preload"`
		} `toml:"whisper"`
		Captions struct {
			MaxChars int    `toml:"max_chars"`
			Format   string `toml:"format"`
		} `toml:"captions"`
	}
	custom := payload{}
	custom.Paths.WorkDir = filepath.Join(tempDir, "work")
	custom.Whisper.Device = "CUDA"
	custom.Whisper.Preload = []string{" Small ", "", "tiny"}
	custom.Captions.MaxChars = 32
	custom.Captions.Format = "VTT"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.WorkDir != filepath.Join(tempDir, "work") {
		t.Fatalf("unexpected work dir: %q", cfg.Paths.WorkDir)
	}
	if cfg.Whisper.Device != "cuda" {
		t.Fatalf("expected normalized device, got %q", cfg.Whisper.Device)
	}
	if strings.Join(cfg.Whisper.Preload, ",") != "small,tiny" {
		t.Fatalf("unexpected preload list: %v", cfg.Whisper.Preload)
	}
	if cfg.Captions.MaxChars != 32 || cfg.Captions.Format != "vtt" {
		t.Fatalf("unexpected captions: %+v", cfg.Captions)
	}
}

func TestLoadUsesTokenFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SUBTITLER_API_TOKEN", " secret ")
	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Token != "secret" {
		t.Fatalf("expected token from env, got %q", cfg.Server.Token)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "subtitler.toml")
	if err := os.WriteFile(configPath, []byte("[server]\nbnid = \"x\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected parse error for unknown key")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"max chars low", func(c *config.Config) { c.Captions.MaxChars = 10 }, "captions.max_chars"},
		{"max chars high", func(c *config.Config) { c.Captions.MaxChars = 81 }, "captions.max_chars"},
		{"format", func(c *config.Config) { c.Captions.Format = "ass" }, "captions.format"},
		{"model", func(c *config.Config) { c.Whisper.DefaultModel = "huge" }, "whisper.default_model"},
		{"preload", func(c *config.Config) { c.Whisper.Preload = []string{"xl"} }, "whisper.preload"},
		{"device", func(c *config.Config) { c.Whisper.Device = "tpu" }, "whisper.device"},
		{"bind", func(c *config.Config) { c.Server.Bind = "localhost" }, "server.bind"},
		{"upload", func(c *config.Config) { c.Server.MaxUploadMB = 0 }, "server.max_upload_mb"},
		{"retention", func(c *config.Config) { c.History.RetentionDays = -1 }, "history.retention_days"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !strings.Contains(encoded, "max_chars = 42") {
		t.Fatalf("expected encoded config to include caption width, got:\n%s", encoded)
	}
}
