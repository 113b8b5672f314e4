package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"subtitler/internal/captions"
)

type inspectReport struct {
	File   string   `json:"file"`
	Format string   `json:"format"`
	Cues   int      `json:"cues"`
	First  string   `json:"first"`
	Last   string   `json:"last"`
	Issues []string `json:"issues"`
}

func newInspectCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "inspect <subtitle-file>",
		Short:       "Check an SRT or WebVTT file for structural problems",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveSource(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read subtitles: %w", err)
			}
			summary := captions.Inspect(string(data))
			report := inspectReport{
				File:   path,
				Format: string(summary.Format),
				Cues:   summary.Cues,
				First:  captions.SRTTimestamp(float64(summary.FirstMillis) / 1000),
				Last:   captions.SRTTimestamp(float64(summary.LastMillis) / 1000),
				Issues: summary.Issues,
			}
			if report.Issues == nil {
				report.Issues = []string{}
			}

			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintf(out, "File:   %s\n", report.File)
				fmt.Fprintf(out, "Format: %s\n", report.Format)
				fmt.Fprintf(out, "Cues:   %d\n", report.Cues)
				fmt.Fprintf(out, "Span:   %s --> %s\n", report.First, report.Last)
				if len(report.Issues) == 0 {
					fmt.Fprintln(out, renderStatusLine("Structure", statusOK, "no issues", colorize))
				}
				for _, issue := range report.Issues {
					fmt.Fprintln(out, renderStatusLine("Issue", statusError, issue, colorize))
				}
			}
			if len(report.Issues) > 0 {
				return errors.New("subtitle file has issues")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
