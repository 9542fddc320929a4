package commands

import (
	"github.com/spf13/cobra"
)

// global flags
var (
	configPath string
	logLevel   string
)

// Root returns the root cobra command with all subcommands attached.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harbormaster",
		Short: "List and control docker or podman containers",
		Long: "harbormaster lists the containers on this host through the docker or podman CLI\n" +
			"and runs lifecycle actions on them, opening a terminal for exec and logs.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $HARBORMASTER_CONFIG or ~/.config/harbormaster/harbormaster.toml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides log.level)")

	cmd.AddCommand(listCmd())
	cmd.AddCommand(countCmd())
	cmd.AddCommand(doctorCmd())
	for _, v := range lifecycleVerbs {
		cmd.AddCommand(lifecycleCmd(v))
	}
	cmd.AddCommand(composeCmd())
	cmd.AddCommand(execCmd())
	cmd.AddCommand(logsCmd())
	cmd.AddCommand(actionsCmd())
	cmd.AddCommand(historyCmd())
	cmd.AddCommand(initCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}
