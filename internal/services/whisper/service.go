package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandRunner executes an external command and returns its error.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Service drives the whisper command line through uvx.
type Service struct {
	cfg           Config
	commandRunner CommandRunner
}

// NewService creates a whisper service with the given configuration.
func NewService(cfg Config) *Service {
	if strings.TrimSpace(cfg.Command) == "" {
		cfg.Command = DefaultCommand
	}
	if strings.TrimSpace(cfg.Package) == "" {
		cfg.Package = DefaultPackage
	}
	if strings.TrimSpace(cfg.Device) == "" {
		cfg.Device = CPUDevice
	}
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner CommandRunner) {
	s.commandRunner = runner
}

// Command returns the configured launcher binary.
func (s *Service) Command() string {
	return s.cfg.Command
}

// run executes a command, using the custom runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true; whisper
	// checkpoints still need the legacy behaviour.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, lastLine(output))
	}
	return nil
}

// Load downloads (if needed) and verifies the weights for size, returning a
// handle that transcribes with them.
func (s *Service) Load(ctx context.Context, size string) (*Model, error) {
	size = strings.TrimSpace(size)
	if size == "" {
		return nil, fmt.Errorf("load model: size required")
	}
	if s.cfg.ModelDir != "" {
		if err := os.MkdirAll(s.cfg.ModelDir, 0o755); err != nil {
			return nil, fmt.Errorf("load model: ensure model dir: %w", err)
		}
	}
	if err := s.run(ctx, s.cfg.Command, s.buildLoadArgs(size)...); err != nil {
		return nil, fmt.Errorf("load model %s: %w", size, err)
	}
	return &Model{size: size, service: s}, nil
}

// Options control a single transcription.
type Options struct {
	// Task is "transcribe" or "translate" (to English).
	Task string
	// Language is an ISO code; empty lets the model detect it.
	Language string
	// OutputDir receives the runtime's JSON output. Defaults to the source dir.
	OutputDir string
}

// Result is the parsed output of one transcription.
type Result struct {
	Language string
	Segments []Segment
	JSONPath string
}

// Model is a loaded model size bound to its service.
type Model struct {
	size    string
	service *Service
}

// Size returns the model size this handle was loaded for.
func (m *Model) Size() string {
	return m.size
}

// Transcribe runs the model over source and returns its timed segments.
func (m *Model) Transcribe(ctx context.Context, source string, opts Options) (Result, error) {
	var result Result
	if strings.TrimSpace(source) == "" {
		return result, fmt.Errorf("transcribe: source path required")
	}
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return result, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	args := m.service.buildTranscribeArgs(m.size, source, outputDir, opts)
	if err := m.service.run(ctx, m.service.cfg.Command, args...); err != nil {
		return result, err
	}

	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	result.JSONPath = filepath.Join(outputDir, baseName+".json")
	payload, err := loadPayload(result.JSONPath)
	if err != nil {
		return result, fmt.Errorf("transcribe: %w", err)
	}
	result.Language = payload.Language
	result.Segments = payload.Segments
	return result, nil
}

func (s *Service) buildLoadArgs(size string) []string {
	script := fmt.Sprintf("import whisper; whisper.load_model(%q, device=%q, download_root=%s)",
		size, s.cfg.Device, pythonOptionalString(s.cfg.ModelDir))
	return []string{"--from", s.cfg.Package, "python", "-c", script}
}

func (s *Service) buildTranscribeArgs(size, source, outputDir string, opts Options) []string {
	args := make([]string, 0, 24)
	args = append(args,
		"--from", s.cfg.Package,
		"whisper",
		source,
		"--model", size,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--verbose", "False",
		"--device", s.cfg.Device,
	)
	if s.cfg.ModelDir != "" {
		args = append(args, "--model_dir", s.cfg.ModelDir)
	}
	task := strings.TrimSpace(opts.Task)
	if task == "" {
		task = TaskTranscribe
	}
	args = append(args, "--task", task)
	if lang := strings.TrimSpace(opts.Language); lang != "" {
		args = append(args, "--language", lang)
	}
	if s.cfg.Device == CPUDevice {
		args = append(args, "--fp16", "False")
	}
	return args
}

// Segment represents a transcribed segment from whisper JSON output.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// payload is the JSON structure whisper writes.
type payload struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// LoadSegments loads segments from a whisper JSON file.
func LoadSegments(jsonPath string) ([]Segment, error) {
	p, err := loadPayload(jsonPath)
	if err != nil {
		return nil, err
	}
	return p.Segments, nil
}

func loadPayload(jsonPath string) (payload, error) {
	var p payload
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return p, fmt.Errorf("read whisper json: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse whisper json: %w", err)
	}
	return p, nil
}

func pythonOptionalString(value string) string {
	if value == "" {
		return "None"
	}
	return fmt.Sprintf("%q", value)
}

// lastLine keeps the tail of combined output, where Python puts the exception.
func lastLine(output []byte) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
