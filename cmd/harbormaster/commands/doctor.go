package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ecairns22/harbormaster/internal/probe"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the container runtime, its daemon and available terminals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, cleanup, err := buildController(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			st := ctl.Status(cmd.Context())
			w := cmd.OutOrStdout()

			t := newTable(w)
			t.AppendHeader(table.Row{"CHECK", "RESULT"})
			for _, rt := range probe.Runtimes {
				t.AppendRow(table.Row{rt + " binary", yesNo(st.Snapshot.Binaries[rt])})
			}
			t.AppendRow(table.Row{"selected runtime", dash(st.Snapshot.Runtime)})
			t.AppendRow(table.Row{"group membership", yesNo(st.Snapshot.Authorized)})
			daemon := yesNo(st.DaemonRunning)
			if st.DaemonErr != nil {
				daemon = failColor.Sprintf("unknown (%v)", st.DaemonErr)
			}
			if !st.Snapshot.HasRuntime() {
				daemon = dash("")
			}
			t.AppendRow(table.Row{"daemon running", daemon})
			for _, a := range st.Terminals {
				t.AppendRow(table.Row{"terminal " + a.ID, yesNo(a.Available)})
			}
			t.Render()

			if !st.Snapshot.HasRuntime() {
				return fmt.Errorf("no usable container runtime; install docker or podman")
			}
			return nil
		},
	}
}
