package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ecairns22/harbormaster/internal/dispatch"
	"github.com/ecairns22/harbormaster/internal/runner"
)

var lifecycleVerbs = []dispatch.Verb{
	dispatch.Start,
	dispatch.Restart,
	dispatch.Stop,
	dispatch.Pause,
	dispatch.Unpause,
}

// runAction dispatches action, or prints its command line with --dry-run.
func runAction(cmd *cobra.Command, action dispatch.Action, target string, dryRun bool) error {
	ctl, cleanup, err := buildController(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	w := cmd.OutOrStdout()
	if dryRun {
		argv, err := ctl.Plan(action, target)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, runner.Join(argv[0], argv[1:]...))
		return nil
	}

	o := ctl.Run(cmd.Context(), action, target)
	if !o.Success {
		if o.Command == "" {
			return fmt.Errorf("%s %s: %s", action.Label(), target, o.Output)
		}
		return fmt.Errorf("failed: %s: %s", o.Command, o.Output)
	}
	fmt.Fprintf(w, "%s %s\n", okColor.Sprint("ok:"), o.Command)
	if out := strings.TrimSpace(o.Output); out != "" && !action.Interactive() {
		fmt.Fprintln(w, out)
	}
	return nil
}

func lifecycleCmd(v dispatch.Verb) *cobra.Command {
	var dryRun bool
	var extra []string
	action := dispatch.Simple(v)
	cmd := &cobra.Command{
		Use:   string(v) + " <container>",
		Short: action.Label() + " a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, action.WithArgs(extra...), args[0], dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the command instead of running it")
	cmd.Flags().StringArrayVar(&extra, "runtime-arg", nil, "extra argument passed to the runtime before the container (repeatable)")
	return cmd
}

func composeCmd() *cobra.Command {
	var dryRun bool
	var extra []string
	verbs := make([]string, len(lifecycleVerbs))
	for i, v := range lifecycleVerbs {
		verbs[i] = string(v)
	}
	cmd := &cobra.Command{
		Use:       "compose <" + strings.Join(verbs, "|") + "> <project>",
		Short:     "Run a lifecycle action on a whole compose project",
		Args:      cobra.ExactArgs(2),
		ValidArgs: verbs,
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := dispatch.ParseAction("compose " + args[0])
			if err != nil {
				return err
			}
			return runAction(cmd, action.WithArgs(extra...), args[1], dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the command instead of running it")
	cmd.Flags().StringArrayVar(&extra, "runtime-arg", nil, "extra argument appended to the compose subcommand (repeatable)")
	return cmd
}

func execCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "exec <container>",
		Short: "Open a shell in a container in a new terminal window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, dispatch.Simple(dispatch.Exec), args[0], dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the command instead of running it")
	return cmd
}

func logsCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "logs <container>",
		Short: "Follow container logs in a new terminal window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, dispatch.Simple(dispatch.Logs), args[0], dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the command instead of running it")
	return cmd
}

func actionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List the supported lifecycle actions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"ACTION", "LABEL", "TERMINAL"})
			for _, e := range dispatch.Catalog() {
				term := ""
				if e.Action.Interactive() {
					term = "yes"
				}
				t.AppendRow(table.Row{e.Action.ID(), e.Label, term})
			}
			t.Render()
		},
	}
}
