package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ecairns22/harbormaster/internal/config"
)

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = config.DefaultPath()
			}
			w := cmd.OutOrStdout()

			if _, err := os.Stat(path); err == nil && !force {
				fmt.Fprintf(w, "  config already exists at %s (use --force to overwrite)\n", path)
				return nil
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("creating directory %s: %w", filepath.Dir(path), err)
			}
			if err := os.WriteFile(path, []byte(config.TemplateConfig()), 0644); err != nil {
				return fmt.Errorf("writing config template: %w", err)
			}
			fmt.Fprintf(w, "  wrote config template to %s\n", path)
			fmt.Fprintln(w, "\nRun 'harbormaster doctor' to check the host.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}
