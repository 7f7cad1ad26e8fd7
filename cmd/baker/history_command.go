package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"baker/internal/history"
)

func newHistoryCommand(cmdCtx *commandContext) *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent workflow runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRecent(cmd.Context(), limitFlag)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					humanize.Time(run.StartedAt),
					run.Title,
					run.State.Label(),
					fmt.Sprintf("%d%%", run.Progress),
					run.Destination,
					run.Error,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Title", "State", "Progress", "Destination", "Error"},
				rows, 4))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 20, "Maximum number of runs to show")
	return cmd
}
