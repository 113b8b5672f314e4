package whisper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestLoadBuildsPrefetchCommand(t *testing.T) {
	modelDir := filepath.Join(t.TempDir(), "models")
	svc := NewService(Config{ModelDir: modelDir})
	var gotName string
	var gotArgs []string
	svc.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		return nil
	})

	model, err := svc.Load(context.Background(), "tiny")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if model.Size() != "tiny" {
		t.Fatalf("unexpected size %q", model.Size())
	}
	if gotName != DefaultCommand {
		t.Fatalf("expected %q command, got %q", DefaultCommand, gotName)
	}
	if gotArgs[0] != "--from" || gotArgs[1] != DefaultPackage || gotArgs[2] != "python" {
		t.Fatalf("unexpected args: %v", gotArgs)
	}
	script := gotArgs[len(gotArgs)-1]
	if !strings.Contains(script, `load_model("tiny"`) || !strings.Contains(script, modelDir) {
		t.Fatalf("unexpected load script: %s", script)
	}
	if info, err := os.Stat(modelDir); err != nil || !info.IsDir() {
		t.Fatalf("expected model dir to be created: %v", err)
	}
}

func TestLoadPropagatesRunnerError(t *testing.T) {
	svc := NewService(Config{})
	svc.WithCommandRunner(func(context.Context, string, ...string) error {
		return errors.New("CUDA out of memory")
	})
	if _, err := svc.Load(context.Background(), "large"); err == nil || !strings.Contains(err.Error(), "CUDA out of memory") {
		t.Fatalf("expected runner error, got %v", err)
	}
}

func TestTranscribeParsesOutput(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "clip.mp3")
	if err := os.WriteFile(source, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "out")

	svc := NewService(Config{Device: CPUDevice})
	var transcribeArgs []string
	svc.WithCommandRunner(func(_ context.Context, _ string, args ...string) error {
		if slices.Contains(args, "python") {
			return nil
		}
		transcribeArgs = args
		payload := `{"text":"Hello there.","language":"en","segments":[{"id":0,"start":0.0,"end":1.5,"text":" Hello"},{"id":1,"start":1.5,"end":2.25,"text":" there."}]}`
		return os.WriteFile(filepath.Join(outDir, "clip.json"), []byte(payload), 0o644)
	})

	model, err := svc.Load(context.Background(), "base")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	result, err := model.Transcribe(context.Background(), source, Options{Task: TaskTranslate, Language: "de", OutputDir: outDir})
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if result.Language != "en" || len(result.Segments) != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Segments[1].Start != 1.5 || result.Segments[1].Text != " there." {
		t.Fatalf("unexpected segment: %+v", result.Segments[1])
	}

	joined := strings.Join(transcribeArgs, " ")
	for _, want := range []string{"whisper " + source, "--model base", "--task translate", "--language de", "--output_format json", "--fp16 False"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in args: %s", want, joined)
		}
	}
}

func TestTranscribeDefaultsTaskAndSkipsLanguage(t *testing.T) {
	svc := NewService(Config{Device: CUDADevice})
	args := svc.buildTranscribeArgs("small", "/tmp/a.wav", "/tmp", Options{})
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--task transcribe") {
		t.Fatalf("expected default task: %s", joined)
	}
	if strings.Contains(joined, "--language") || strings.Contains(joined, "--fp16") {
		t.Fatalf("unexpected flags for cuda auto-detect: %s", joined)
	}
}

func TestTranscribeMissingOutput(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(Config{})
	svc.WithCommandRunner(func(context.Context, string, ...string) error { return nil })
	model, err := svc.Load(context.Background(), "tiny")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := model.Transcribe(context.Background(), filepath.Join(dir, "x.wav"), Options{}); err == nil {
		t.Fatal("expected error when whisper json is missing")
	}
}

func TestLastLine(t *testing.T) {
	got := lastLine([]byte("Traceback...\n  File x\nRuntimeError: bad input\n\n"))
	if got != "RuntimeError: bad input" {
		t.Fatalf("unexpected last line %q", got)
	}
}
