package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"subtitler/internal/api"
	"subtitler/internal/models"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List model sizes and which ones the daemon has loaded",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			catalog, live := fetchModels(cmd.Context(), ctx)
			if catalog == nil {
				defaultSize, err := models.ParseSize(cfg.Whisper.DefaultModel)
				if err != nil {
					defaultSize = models.DefaultSize
				}
				catalog = api.ModelCatalog(nil, defaultSize)
			}

			if jsonOutput {
				return writeJSON(cmd, api.ModelsResponse{Models: catalog})
			}

			rows := make([][]string, 0, len(catalog))
			for _, info := range catalog {
				loaded := "-"
				if live {
					loaded = yesNo(info.Loaded)
				}
				def := ""
				if info.Default {
					def = "*"
				}
				rows = append(rows, []string{info.Size, info.Parameters, def, loaded, info.Description})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Size", "Params", "Default", "Loaded", "Notes"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			))
			if !live {
				fmt.Fprintln(out, "Daemon not reachable; load state unknown.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// fetchModels asks the daemon for its catalog. live reports whether it answered.
func fetchModels(parent context.Context, ctx *commandContext) (catalog []api.ModelInfo, live bool) {
	client, err := ctx.apiClient(statusTimeout)
	if err != nil {
		return nil, false
	}
	reqCtx, cancel := context.WithTimeout(parent, statusTimeout)
	defer cancel()
	catalog, err = client.Models(reqCtx)
	if err != nil {
		return nil, false
	}
	return catalog, true
}
