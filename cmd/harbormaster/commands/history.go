package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ecairns22/harbormaster/internal/history"
)

func historyCmd() *cobra.Command {
	var limit int
	var target string
	var prune bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show actions run by harbormaster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if cfg.History.Disable {
				return fmt.Errorf("history is disabled in the configuration")
			}
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			if prune {
				ctl, cleanup, err := buildController(cmd)
				if err != nil {
					return err
				}
				defer cleanup()
				n, err := ctl.PruneHistory(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "pruned %d entries older than %d days\n", n, cfg.History.KeepDays)
				return nil
			}

			store, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			var entries []*history.Entry
			if target != "" {
				entries, err = store.ForTarget(ctx, target)
			} else {
				entries, err = store.Recent(ctx, limit)
			}
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(w, "No actions recorded.")
				return nil
			}

			t := newTable(w)
			t.AppendHeader(table.Row{"TIME", "ACTION", "TARGET", "RESULT", "COMMAND"})
			for _, e := range entries {
				result := okColor.Sprint("ok")
				if !e.Success {
					result = failColor.Sprint("failed")
				}
				t.AppendRow(table.Row{
					e.Timestamp.Format("2006-01-02 15:04:05"),
					e.Action,
					e.Target,
					result,
					truncate(e.Command, 60),
				})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to show (0 for all)")
	cmd.Flags().StringVar(&target, "target", "", "only show actions on this container or project")
	cmd.Flags().BoolVar(&prune, "prune", false, "delete entries older than history.keep_days")
	return cmd
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
