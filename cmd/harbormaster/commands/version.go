package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ecairns22/harbormaster/internal/release"
)

// Version is set at build time via ldflags.
var Version = "dev"

func versionCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "harbormaster %s\n", Version)
			if !check {
				return nil
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			checker := release.New(os.Getenv("GITHUB_TOKEN"), cfg.Release.Owner, cfg.Release.Repo)
			latest, newer, err := checker.Newer(cmd.Context(), Version)
			if err != nil {
				return err
			}
			if newer {
				warnColor.Fprintf(w, "A newer release is available: %s\n", latest)
			} else {
				okColor.Fprintln(w, "You are running the latest release.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "check GitHub for a newer release")
	return cmd
}
