package transcribe

import (
	"time"

	"subtitler/internal/captions"
	"subtitler/internal/config"
	"subtitler/internal/models"
	"subtitler/internal/services/whisper"
)

// DefaultsFromConfig derives request defaults from the [whisper] and
// [captions] sections.
func DefaultsFromConfig(cfg *config.Config) Defaults {
	if cfg == nil {
		return DefaultDefaults()
	}
	return Defaults{
		ModelSize: models.Size(cfg.Whisper.DefaultModel),
		MaxChars:  cfg.Captions.MaxChars,
		Format:    captions.Format(cfg.Captions.Format),
	}
}

// WhisperConfig maps the [whisper] section onto the runtime adapter.
func WhisperConfig(cfg *config.Config) whisper.Config {
	return whisper.Config{
		Command:  cfg.Whisper.Command,
		Package:  cfg.Whisper.Package,
		Device:   cfg.Whisper.Device,
		ModelDir: cfg.Paths.ModelDir,
	}
}

// Timeout returns the per-transcription cap, zero meaning none.
func Timeout(cfg *config.Config) time.Duration {
	if cfg == nil || cfg.Whisper.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(cfg.Whisper.TimeoutSeconds) * time.Second
}

// PreloadSizes parses the configured preload list, skipping unknown names.
func PreloadSizes(cfg *config.Config) []models.Size {
	if cfg == nil {
		return nil
	}
	var sizes []models.Size
	for _, name := range cfg.Whisper.Preload {
		if size, err := models.ParseSize(name); err == nil {
			sizes = append(sizes, size)
		}
	}
	return sizes
}
