package commands

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ecairns22/harbormaster/internal/containers"
)

func listCmd() *cobra.Command {
	var asJSON, grouped bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show all containers, stopped ones included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, cleanup, err := buildController(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			records, err := ctl.List(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if records == nil {
					records = []containers.Record{}
				}
				return enc.Encode(records)
			}

			if len(records) == 0 {
				fmt.Fprintln(w, "No containers found.")
				return nil
			}

			if grouped {
				for _, g := range containers.GroupByProject(records) {
					name := g.Project
					if name == "" {
						name = "(standalone)"
					}
					fmt.Fprintf(w, "=== %s ===\n", name)
					renderRecords(cmd, g.Records)
				}
				return nil
			}
			renderRecords(cmd, records)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	cmd.Flags().BoolVar(&grouped, "group", false, "group containers by compose project")
	return cmd
}

func renderRecords(cmd *cobra.Command, records []containers.Record) {
	t := newTable(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"NAME", "STATUS", "PROJECT", "SERVICE"})
	for _, r := range records {
		project, service := "", ""
		if r.Compose != nil {
			project, service = r.Compose.Project, r.Compose.Service
		}
		t.AppendRow(table.Row{r.Name, colorStatus(r.Status), dash(project), dash(service)})
	}
	t.Render()
}

func countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of running containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, cleanup, err := buildController(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := ctl.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}
