package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	modelSizes   = []string{"tiny", "base", "small", "medium", "large"}
	devices      = []string{"cpu", "cuda"}
	formats      = []string{"srt", "vtt"}
	logFormats   = []string{"console", "json"}
	logLevels    = []string{"debug", "info", "warn", "warning", "error"}
	errEmptyBind = errors.New("server.bind must be set")
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateWhisper(); err != nil {
		return err
	}
	if err := c.validateCaptions(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Bind == "" {
		return errEmptyBind
	}
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind %q: %w", c.Server.Bind, err)
	}
	return ensurePositiveMap(map[string]int{
		"server.max_upload_mb":         c.Server.MaxUploadMB,
		"server.read_timeout_seconds":  c.Server.ReadTimeoutSeconds,
		"server.write_timeout_seconds": c.Server.WriteTimeoutSeconds,
	})
}

func (c *Config) validateWhisper() error {
	if c.Whisper.Command == "" {
		return errors.New("whisper.command must be set")
	}
	if c.Whisper.Package == "" {
		return errors.New("whisper.package must be set")
	}
	if !contains(devices, c.Whisper.Device) {
		return fmt.Errorf("whisper.device must be one of %s, got %q", strings.Join(devices, ", "), c.Whisper.Device)
	}
	if !contains(modelSizes, c.Whisper.DefaultModel) {
		return fmt.Errorf("whisper.default_model must be one of %s, got %q", strings.Join(modelSizes, ", "), c.Whisper.DefaultModel)
	}
	for _, size := range c.Whisper.Preload {
		if !contains(modelSizes, size) {
			return fmt.Errorf("whisper.preload: unknown model size %q", size)
		}
	}
	if c.Whisper.TimeoutSeconds < 0 {
		return errors.New("whisper.timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateCaptions() error {
	if c.Captions.MaxChars < MinMaxChars || c.Captions.MaxChars > MaxMaxChars {
		return fmt.Errorf("captions.max_chars must be between %d and %d", MinMaxChars, MaxMaxChars)
	}
	if !contains(formats, c.Captions.Format) {
		return fmt.Errorf("captions.format must be one of %s, got %q", strings.Join(formats, ", "), c.Captions.Format)
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !contains(logFormats, c.Logging.Format) {
		return fmt.Errorf("logging.format must be one of %s, got %q", strings.Join(logFormats, ", "), c.Logging.Format)
	}
	if !contains(logLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
