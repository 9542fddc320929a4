package commands

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ecairns22/harbormaster/internal/config"
	"github.com/ecairns22/harbormaster/internal/control"
	"github.com/ecairns22/harbormaster/internal/history"
	"github.com/ecairns22/harbormaster/internal/runner"
)

// Process and PATH seams, replaced in tests.
var (
	newRunner = func() runner.CommandRunner { return &runner.OSRunner{} }
	lookPath  = exec.LookPath
)

// loadConfig reads --config when given, otherwise the default location.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}

// setupLogging applies the --log-level flag, falling back to the config.
func setupLogging(flagLevel string) error {
	level := flagLevel
	if level == "" {
		if cfg, err := loadConfig(); err == nil {
			level = cfg.Log.Level
		}
	}
	if level == "" {
		level = "warn"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)
	return nil
}

// openHistory opens the action log, or returns nil when it is disabled.
func openHistory(cfg *config.Config) (*history.Store, error) {
	if cfg.History.Disable {
		return nil, nil
	}
	if cfg.History.Path == "" {
		return nil, fmt.Errorf("history path unavailable; set history.path in the config")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return store, nil
}

// buildController loads config, opens the history store and probes the host.
// The caller is responsible for calling the returned cleanup function.
func buildController(cmd *cobra.Command) (*control.Controller, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	store, err := openHistory(cfg)
	if err != nil {
		// Actions still run without a history.
		log.Warn("history disabled", "err", err)
		store = nil
	}

	ctl, err := control.New(cmd.Context(), cfg, control.Deps{
		Runner:   newRunner(),
		LookPath: lookPath,
		History:  store,
	})
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		if store != nil {
			store.Close()
		}
	}
	return ctl, cleanup, nil
}
