package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"subtitler/internal/api"
	"subtitler/internal/history"
	"subtitler/internal/jobaccess"
	"subtitler/internal/language"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List recent subtitle jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJobAccess(cmd, ctx, func(access jobaccess.Access) error {
				jobs, err := access.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.JobListResponse{Jobs: jobs})
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "No jobs recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "File", "Model", "Format", "Status", "Segments", "Duration", "Created"},
					jobRows(jobs),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.AddCommand(newJobShowCommand(ctx))
	return cmd
}

func newJobShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show details for a single job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return withJobAccess(cmd, ctx, func(access jobaccess.Access) error {
				job, err := access.Describe(cmd.Context(), id)
				if errors.Is(err, jobaccess.ErrJobNotFound) {
					return fmt.Errorf("job %s not found", id)
				}
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.JobResponse{Job: job})
				}
				printJob(cmd, job)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func withJobAccess(cmd *cobra.Command, ctx *commandContext, fn func(jobaccess.Access) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	session, err := jobaccess.OpenWithFallback(cmd.Context(),
		func() (*api.Client, error) { return ctx.apiClient(statusTimeout) },
		func() (*history.Store, error) {
			path := cfg.HistoryPath()
			if _, err := os.Stat(path); err != nil {
				return nil, fmt.Errorf("no job history at %s", path)
			}
			return history.Open(path)
		},
	)
	if err != nil {
		return err
	}
	defer session.Close()
	return fn(session.Access)
}

func jobRows(jobs []api.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			shortID(job.ID),
			job.Filename,
			job.ModelSize,
			job.Format,
			job.Status,
			strconv.Itoa(job.Segments),
			formatDurationMillis(job.DurationMillis),
			formatCreated(job.CreatedAt),
		})
	}
	return rows
}

func printJob(cmd *cobra.Command, job api.Job) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:        %s\n", job.ID)
	fmt.Fprintf(out, "File:      %s\n", job.Filename)
	fmt.Fprintf(out, "Status:    %s\n", job.Status)
	fmt.Fprintf(out, "Model:     %s (%s)\n", job.ModelSize, job.Task)
	fmt.Fprintf(out, "Language:  %s\n", language.DisplayName(job.Language))
	if job.DetectedLanguage != "" {
		fmt.Fprintf(out, "Detected:  %s\n", language.DisplayName(job.DetectedLanguage))
	}
	fmt.Fprintf(out, "Output:    %s, %d chars/line\n", job.Format, job.MaxChars)
	fmt.Fprintf(out, "Segments:  %d", job.Segments)
	if job.Adjusted > 0 {
		fmt.Fprintf(out, " (%d adjusted)", job.Adjusted)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Created:   %s\n", formatCreated(job.CreatedAt))
	if job.FinishedAt != "" {
		fmt.Fprintf(out, "Finished:  %s (%s)\n", formatCreated(job.FinishedAt), formatDurationMillis(job.DurationMillis))
	}
	if job.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:     %s\n", job.ErrorMessage)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDurationMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return (time.Duration(ms) * time.Millisecond).Round(100 * time.Millisecond).String()
}

func formatCreated(value string) string {
	if value == "" {
		return "-"
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return parsed.Local().Format("2006-01-02 15:04:05")
}
