package whisper

// Config captures runtime settings for the whisper command line.
type Config struct {
	// Command launches the runtime (e.g., "uvx").
	Command string
	// Package is the Python distribution providing the whisper CLI.
	Package string
	// Device is "cpu" or "cuda".
	Device string
	// ModelDir holds downloaded model weights.
	ModelDir string
}

// Whisper CLI constants.
const (
	DefaultCommand = "uvx"
	DefaultPackage = "openai-whisper"
	CPUDevice      = "cpu"
	CUDADevice     = "cuda"
	OutputFormat   = "json"
	TaskTranscribe = "transcribe"
	TaskTranslate  = "translate"
)
