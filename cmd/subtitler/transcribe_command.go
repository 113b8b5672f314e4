package main

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"subtitler/internal/config"
	"subtitler/internal/language"
	"subtitler/internal/models"
	"subtitler/internal/services/whisper"
	"subtitler/internal/staging"
	"subtitler/internal/transcribe"
)

// localLoader builds the model loader for in-process transcription. Tests
// replace it to avoid launching the runtime.
var localLoader = func(cfg *config.Config) models.LoadFunc[transcribe.Model] {
	return transcribe.WhisperLoader(whisper.NewService(transcribe.WhisperConfig(cfg)))
}

type transcribeFlags struct {
	model    string
	language string
	task     string
	maxChars string
	format   string
	output   string
	toStdout bool
	remote   bool
}

func (f transcribeFlags) raw() transcribe.RawOptions {
	return transcribe.RawOptions{
		ModelSize: f.model,
		Language:  f.language,
		Task:      f.task,
		MaxChars:  f.maxChars,
		Format:    f.format,
	}
}

func (f transcribeFlags) query() url.Values {
	values := url.Values{}
	set := func(key, value string) {
		if v := strings.TrimSpace(value); v != "" {
			values.Set(key, v)
		}
	}
	set("model_size", f.model)
	set("language", f.language)
	set("task", f.task)
	set("max_chars", f.maxChars)
	set("response_format", f.format)
	return values
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var flags transcribeFlags

	cmd := &cobra.Command{
		Use:   "transcribe <media-file>",
		Short: "Generate subtitles for an audio or video file",
		Long: "Generate subtitles for an audio or video file.\n\n" +
			"By default the file is transcribed in-process with the configured runtime.\n" +
			"With --remote it is uploaded to the running daemon instead.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("provide the path to a media file. Example: subtitler transcribe talk.mp4\nRun subtitler transcribe --help for more details")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := resolveSource(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			// Validate before uploading.
			params, err := transcribe.ParseOptions(flags.raw(), transcribe.DefaultsFromConfig(cfg))
			if err != nil {
				return err
			}
			if flags.remote {
				return runRemoteTranscribe(cmd, ctx, cfg, source, flags)
			}
			return runLocalTranscribe(cmd, ctx, cfg, source, params, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.model, "model", "m", "", "Model size (tiny, base, small, medium, large)")
	cmd.Flags().StringVarP(&flags.language, "language", "l", "", "Spoken language code or name (default: detect)")
	cmd.Flags().StringVar(&flags.task, "task", "", "transcribe or translate (to English)")
	cmd.Flags().StringVar(&flags.maxChars, "max-chars", "", "Maximum characters per caption line")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "Output format (srt or vtt)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file or directory (default: next to the source)")
	cmd.Flags().BoolVar(&flags.toStdout, "stdout", false, "Write subtitles to stdout instead of a file")
	cmd.Flags().BoolVar(&flags.remote, "remote", false, "Upload to the running daemon instead of transcribing locally")
	return cmd
}

func runLocalTranscribe(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, source string, params transcribe.Params, flags transcribeFlags) error {
	logger, err := ctx.commandLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	cache := models.NewCache(localLoader(cfg), logger)
	service := transcribe.NewService(cache, nil, transcribe.Timeout(cfg), logger)

	ws, err := staging.New(cfg.Paths.WorkDir, "", logger)
	if err != nil {
		return err
	}
	defer ws.Close()

	doc, err := service.Generate(cmd.Context(), transcribe.Job{
		Filename: filepath.Base(source),
		Source:   source,
		WorkDir:  ws.Dir,
		Params:   params,
	})
	if err != nil {
		return err
	}

	if flags.toStdout {
		_, err := io.WriteString(cmd.OutOrStdout(), doc.Content)
		return err
	}
	target, err := writeOutput(flags.output, source, doc.Filename, []byte(doc.Content))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d segments, %s)\n",
		target, len(doc.Segments), language.DisplayName(doc.Language))
	return nil
}

func runRemoteTranscribe(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, source string, flags transcribeFlags) error {
	timeout := time.Duration(cfg.Server.WriteTimeoutSeconds)*time.Second + time.Minute
	client, err := ctx.apiClient(timeout)
	if err != nil {
		return err
	}
	result, err := client.Upload(cmd.Context(), source, flags.query())
	if err != nil {
		return wrapAPIError(err, cfg.Server.Bind)
	}

	if flags.toStdout {
		_, err := cmd.OutOrStdout().Write(result.Content)
		return err
	}
	name := result.Filename
	if name == "" {
		format := strings.TrimSpace(flags.format)
		if format == "" {
			format = cfg.Captions.Format
		}
		name = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source)) + "." + strings.ToLower(format)
	}
	target, err := writeOutput(flags.output, source, name, result.Content)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (job %s)\n", target, result.JobID)
	return nil
}

func resolveSource(arg string) (string, error) {
	source := strings.TrimSpace(arg)
	if source == "" {
		return "", fmt.Errorf("source file path is required")
	}
	expanded, err := config.ExpandPath(source)
	if err != nil {
		return "", fmt.Errorf("resolve source path: %w", err)
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("source file %q not found", source)
		}
		return "", fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("source path %q is a directory", source)
	}
	return expanded, nil
}

// writeOutput writes content to output, which may be a file or an existing
// directory. An empty output places the file next to source.
func writeOutput(output, source, name string, content []byte) (string, error) {
	target := strings.TrimSpace(output)
	switch {
	case target == "":
		target = filepath.Join(filepath.Dir(source), name)
	default:
		expanded, err := config.ExpandPath(target)
		if err != nil {
			return "", fmt.Errorf("resolve output path: %w", err)
		}
		target = expanded
		if info, err := os.Stat(target); err == nil && info.IsDir() {
			target = filepath.Join(target, name)
		}
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("ensure output directory: %w", err)
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return "", fmt.Errorf("write subtitles: %w", err)
	}
	return target, nil
}
