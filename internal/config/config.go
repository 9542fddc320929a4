package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/ecairns22/harbormaster/internal/terminal"
)

const envOverride = "HARBORMASTER_CONFIG"

type Config struct {
	Runtime  RuntimeConfig  `toml:"runtime"`
	Compose  ComposeConfig  `toml:"compose"`
	Terminal TerminalConfig `toml:"terminal"`
	Dispatch DispatchConfig `toml:"dispatch"`
	Listing  ListingConfig  `toml:"listing"`
	History  HistoryConfig  `toml:"history"`
	Log      LogConfig      `toml:"log"`
	Release  ReleaseConfig  `toml:"release"`
}

type RuntimeConfig struct {
	Name           string        `toml:"name"`
	Group          string        `toml:"group"`
	DaemonProcess  string        `toml:"daemon_process"`
	CommandTimeout string        `toml:"command_timeout"`
	Timeout        time.Duration `toml:"-"` // parsed from CommandTimeout
}

type ComposeConfig struct {
	LabelPrefix string `toml:"label_prefix"`
}

type TerminalConfig struct {
	Order []string `toml:"order"`
	Shell string   `toml:"shell"`
}

type DispatchConfig struct {
	LogsTail int `toml:"logs_tail"`
}

type ListingConfig struct {
	IsolateInspectErrors bool `toml:"isolate_inspect_errors"`
}

type HistoryConfig struct {
	Disable  bool   `toml:"disable"`
	Path     string `toml:"path"`
	KeepDays int    `toml:"keep_days"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type ReleaseConfig struct {
	Owner string `toml:"owner"`
	Repo  string `toml:"repo"`
}

var runtimeNames = []string{"auto", "docker", "podman"}

var logLevels = []string{"debug", "info", "warn", "error"}

// DefaultPath returns the configuration file path, honoring the
// HARBORMASTER_CONFIG override.
func DefaultPath() string {
	if p := os.Getenv(envOverride); p != "" {
		return p
	}
	return filepath.Join(configHome(), "harbormaster", "harbormaster.toml")
}

func configHome() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return filepath.Join(os.TempDir(), "harbormaster")
}

// DefaultHistoryPath is where the action log lives unless configured.
func DefaultHistoryPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "harbormaster", "history.db")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "harbormaster", "history.db")
	}
	return ""
}

// Load reads configuration from the default path. A missing file yields the
// defaults.
func Load() (*Config, error) {
	cfg, err := LoadFrom(DefaultPath())
	if errors.Is(err, os.ErrNotExist) {
		return Default()
	}
	return cfg, err
}

// Default returns the configuration used when no file exists.
func Default() (*Config, error) {
	var cfg Config
	if err := finish(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFrom reads configuration from the given path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := finish(&cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func finish(cfg *Config) error {
	// Apply defaults
	if cfg.Runtime.Name == "" {
		cfg.Runtime.Name = "auto"
	}
	if cfg.Compose.LabelPrefix == "" {
		cfg.Compose.LabelPrefix = "com.docker.compose"
	}
	if len(cfg.Terminal.Order) == 0 {
		cfg.Terminal.Order = terminal.DefaultOrder()
	}
	if cfg.Terminal.Shell == "" {
		cfg.Terminal.Shell = "bash"
	}
	if cfg.Dispatch.LogsTail == 0 {
		cfg.Dispatch.LogsTail = 2000
	}
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath()
	}
	if cfg.History.KeepDays == 0 {
		cfg.History.KeepDays = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}
	if cfg.Release.Owner == "" {
		cfg.Release.Owner = "ecairns22"
	}
	if cfg.Release.Repo == "" {
		cfg.Release.Repo = "harbormaster"
	}

	// Validate
	if !slices.Contains(runtimeNames, cfg.Runtime.Name) {
		return fmt.Errorf("runtime.name %q must be one of %v", cfg.Runtime.Name, runtimeNames)
	}
	if cfg.Runtime.CommandTimeout != "" {
		d, err := time.ParseDuration(cfg.Runtime.CommandTimeout)
		if err != nil || d < 0 {
			return fmt.Errorf("runtime.command_timeout %q is not a valid duration", cfg.Runtime.CommandTimeout)
		}
		cfg.Runtime.Timeout = d
	}
	for _, id := range cfg.Terminal.Order {
		if _, ok := terminal.Lookup(id); !ok {
			return fmt.Errorf("terminal.order: unknown terminal %q; known: %v", id, terminal.DefaultOrder())
		}
	}
	if cfg.Dispatch.LogsTail < 0 {
		return fmt.Errorf("dispatch.logs_tail must not be negative, got %d", cfg.Dispatch.LogsTail)
	}
	if cfg.History.KeepDays < 0 {
		return fmt.Errorf("history.keep_days must not be negative, got %d", cfg.History.KeepDays)
	}
	if !slices.Contains(logLevels, cfg.Log.Level) {
		return fmt.Errorf("log.level %q must be one of %v", cfg.Log.Level, logLevels)
	}
	return nil
}

// TemplateConfig returns a commented TOML template for first-time setup.
func TemplateConfig() string {
	return `[runtime]
# auto, docker or podman
name = "auto"
# defaults to docker for docker and none for podman
# group = "docker"
# daemon_process = "dockerd"
# command_timeout = "30s"

[compose]
label_prefix = "com.docker.compose"

[terminal]
order = ["gnome-terminal", "kgx", "konsole", "xterm"]
shell = "bash"

[dispatch]
logs_tail = 2000

[listing]
isolate_inspect_errors = false

[history]
disable = false
# path = "~/.local/state/harbormaster/history.db"
keep_days = 30

[log]
level = "warn"
`
}
