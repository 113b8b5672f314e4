package config

const (
	defaultConfigPath          = "~/.config/subtitler/config.toml"
	defaultWorkDir             = "~/.cache/subtitler/work"
	defaultLogDir              = "~/.local/share/subtitler/logs"
	defaultDataDir             = "~/.local/share/subtitler"
	defaultModelDir            = "~/.cache/subtitler/models"
	defaultBind                = "127.0.0.1:7488"
	defaultMaxUploadMB         = 1024
	defaultReadTimeoutSeconds  = 300
	defaultWriteTimeoutSeconds = 3600
	defaultWhisperCommand      = "uvx"
	defaultWhisperPackage      = "openai-whisper"
	defaultWhisperDevice       = "cpu"
	defaultWhisperModel        = "small"
	defaultMaxChars            = 42
	defaultCaptionFormat       = "srt"
	defaultHistoryRetention    = 30
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"

	// MinMaxChars and MaxMaxChars bound the caption line width.
	MinMaxChars = 20
	MaxMaxChars = 80
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			LogDir:   defaultLogDir,
			DataDir:  defaultDataDir,
			ModelDir: defaultModelDir,
		},
		Server: Server{
			Bind:                defaultBind,
			MaxUploadMB:         defaultMaxUploadMB,
			ReadTimeoutSeconds:  defaultReadTimeoutSeconds,
			WriteTimeoutSeconds: defaultWriteTimeoutSeconds,
		},
		Whisper: Whisper{
			Command:      defaultWhisperCommand,
			Package:      defaultWhisperPackage,
			Device:       defaultWhisperDevice,
			DefaultModel: defaultWhisperModel,
		},
		Captions: Captions{
			MaxChars: defaultMaxChars,
			Format:   defaultCaptionFormat,
		},
		History: History{
			Enabled:       true,
			RetentionDays: defaultHistoryRetention,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
