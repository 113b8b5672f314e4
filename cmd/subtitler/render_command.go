package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"subtitler/internal/captions"
	"subtitler/internal/services/whisper"
	"subtitler/internal/transcribe"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var maxChars string
	var format string
	var output string
	var toStdout bool

	cmd := &cobra.Command{
		Use:   "render <whisper-json>",
		Short: "Render subtitles from a saved whisper JSON transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := resolveSource(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			params, err := transcribe.ParseOptions(transcribe.RawOptions{
				MaxChars: maxChars,
				Format:   format,
			}, transcribe.DefaultsFromConfig(cfg))
			if err != nil {
				return err
			}

			raw, err := whisper.LoadSegments(source)
			if err != nil {
				return err
			}
			segments := make([]captions.Segment, len(raw))
			for i, seg := range raw {
				segments[i] = captions.Segment{Start: seg.Start, End: seg.End, Text: seg.Text}
			}
			segments, adjusted := captions.Sanitize(segments)
			content, err := captions.Build(segments, params.Format, params.MaxChars)
			if err != nil {
				return err
			}

			if toStdout {
				_, err := io.WriteString(cmd.OutOrStdout(), content)
				return err
			}
			name := transcribe.OutputName(strings.TrimSuffix(source, ".json"), params.Format)
			target, err := writeOutput(output, source, name, []byte(content))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d segments", target, len(segments))
			if adjusted > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), ", %d timings adjusted", adjusted)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ")")
			return nil
		},
	}

	cmd.Flags().StringVar(&maxChars, "max-chars", "", "Maximum characters per caption line")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format (srt or vtt)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file or directory (default: next to the transcript)")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Write subtitles to stdout instead of a file")
	return cmd
}
