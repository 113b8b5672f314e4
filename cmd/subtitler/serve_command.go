package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subtitler/internal/daemonrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the subtitle API daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel: ctx.logLevel(cfg),
				Ready: func(addr string) {
					fmt.Fprintf(out, "Listening on http://%s\n", addr)
				},
			})
		},
	}
}
