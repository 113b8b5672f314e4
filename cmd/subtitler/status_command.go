package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"subtitler/internal/api"
	"subtitler/internal/daemonrun"
	"subtitler/internal/preflight"
)

type statusReport struct {
	Daemon    *api.DaemonStatus `json:"daemon,omitempty"`
	Reachable bool              `json:"reachable"`
	Bind      string            `json:"bind"`
	Checks    []checkReport     `json:"checks"`
}

type checkReport struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon state and local environment checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := statusReport{Bind: cfg.Server.Bind}
			if client, err := ctx.apiClient(statusTimeout); err == nil {
				reqCtx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
				status, err := client.Status(reqCtx)
				cancel()
				if err == nil {
					report.Daemon = &status
					report.Reachable = true
				}
			}
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				report.Checks = append(report.Checks, checkReport(result))
			}

			if jsonOutput {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			lines := renderSectionHeader("Daemon", colorize)
			if report.Reachable {
				lines = append(lines, daemonLines(report.Daemon, colorize)...)
			} else {
				message := "not reachable at " + cfg.Server.Bind
				if pid := daemonrun.ReadPID(daemonrun.PIDPath(cfg)); pid > 0 {
					message += fmt.Sprintf(" (pid file names %d)", pid)
				}
				lines = append(lines, renderStatusLine("API", statusWarn, message, colorize))
			}
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Environment", colorize)...)
			for _, check := range report.Checks {
				lines = append(lines, renderStatusLine(check.Name, checkKind(check.Passed, false), check.Detail, colorize))
			}
			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func daemonLines(status *api.DaemonStatus, colorize bool) []string {
	lines := []string{
		renderStatusLine("API", statusOK, fmt.Sprintf("running at %s (pid %d)", status.Bind, status.PID), colorize),
	}
	if status.StartedAt != "" {
		lines = append(lines, renderStatusLine("Started", statusInfo, formatCreated(status.StartedAt), colorize))
	}
	loaded := "none"
	if len(status.LoadedModels) > 0 {
		loaded = strings.Join(status.LoadedModels, ", ")
	}
	lines = append(lines,
		renderStatusLine("Loaded models", statusInfo, loaded, colorize),
		renderStatusLine("Active requests", statusInfo, fmt.Sprintf("%d", status.ActiveRequests), colorize),
		renderStatusLine("Workspaces", statusInfo, fmt.Sprintf("%d", status.Workspaces), colorize),
	)
	if status.Jobs != nil {
		lines = append(lines, renderStatusLine("Jobs", statusInfo,
			fmt.Sprintf("%d total, %d running, %d succeeded, %d failed",
				status.Jobs.Total, status.Jobs.Running, status.Jobs.Succeeded, status.Jobs.Failed), colorize))
	} else {
		lines = append(lines, renderStatusLine("Jobs", statusInfo, "history disabled", colorize))
	}
	for _, dep := range status.Dependencies {
		message := dep.Command
		if !dep.Available {
			message = dep.Detail
		}
		lines = append(lines, renderStatusLine(dep.Name, checkKind(dep.Available, dep.Optional), message, colorize))
	}
	return lines
}
