package transcribe

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"subtitler/internal/captions"
	"subtitler/internal/language"
	"subtitler/internal/models"
	"subtitler/internal/services"
	"subtitler/internal/services/whisper"
)

// Caption width bounds accepted from clients.
const (
	MinMaxChars = 20
	MaxMaxChars = 80
)

// RawOptions holds request parameters exactly as the client sent them.
type RawOptions struct {
	ModelSize string
	Language  string
	Task      string
	MaxChars  string
	Format    string
}

// Defaults fill in options a request leaves empty.
type Defaults struct {
	ModelSize models.Size
	MaxChars  int
	Format    captions.Format
}

// DefaultDefaults mirrors the public API defaults.
func DefaultDefaults() Defaults {
	return Defaults{ModelSize: models.DefaultSize, MaxChars: 42, Format: captions.FormatSRT}
}

// Params are validated transcription and rendering options.
type Params struct {
	ModelSize models.Size
	Language  string
	Task      string
	MaxChars  int
	Format    captions.Format
}

// ParseOptions validates raw against the accepted ranges. Every failure
// matches services.ErrValidation.
func ParseOptions(raw RawOptions, def Defaults) (Params, error) {
	var p Params

	size := def.ModelSize
	if strings.TrimSpace(raw.ModelSize) != "" {
		parsed, err := models.ParseSize(raw.ModelSize)
		if err != nil {
			return p, invalid("model_size", err)
		}
		size = parsed
	}
	if size == "" {
		size = models.DefaultSize
	}
	p.ModelSize = size

	lang, err := language.Normalize(raw.Language)
	if err != nil {
		return p, invalid("language", err)
	}
	p.Language = lang

	switch task := strings.ToLower(strings.TrimSpace(raw.Task)); task {
	case "", whisper.TaskTranscribe:
		p.Task = whisper.TaskTranscribe
	case whisper.TaskTranslate:
		p.Task = whisper.TaskTranslate
	default:
		return p, invalid("task", fmt.Errorf("must be %s or %s, got %q", whisper.TaskTranscribe, whisper.TaskTranslate, raw.Task))
	}

	p.MaxChars = def.MaxChars
	if p.MaxChars == 0 {
		p.MaxChars = 42
	}
	if value := strings.TrimSpace(raw.MaxChars); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil {
			return p, invalid("max_chars", fmt.Errorf("not an integer: %q", raw.MaxChars))
		}
		p.MaxChars = n
	}
	if p.MaxChars < MinMaxChars || p.MaxChars > MaxMaxChars {
		return p, invalid("max_chars", fmt.Errorf("must be between %d and %d, got %d", MinMaxChars, MaxMaxChars, p.MaxChars))
	}

	p.Format = def.Format
	if p.Format == "" {
		p.Format = captions.FormatSRT
	}
	if strings.TrimSpace(raw.Format) != "" {
		format, err := captions.ParseFormat(raw.Format)
		if err != nil {
			return p, invalid("response_format", err)
		}
		p.Format = format
	}
	return p, nil
}

func invalid(field string, err error) error {
	return fmt.Errorf("%w: %s: %w", services.ErrValidation, field, err)
}

// IsValidation reports whether err came from ParseOptions or input checks.
func IsValidation(err error) bool {
	return errors.Is(err, services.ErrValidation)
}
