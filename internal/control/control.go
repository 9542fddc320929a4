package control

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ecairns22/harbormaster/internal/config"
	"github.com/ecairns22/harbormaster/internal/containers"
	"github.com/ecairns22/harbormaster/internal/dispatch"
	"github.com/ecairns22/harbormaster/internal/history"
	"github.com/ecairns22/harbormaster/internal/probe"
	"github.com/ecairns22/harbormaster/internal/runner"
	"github.com/ecairns22/harbormaster/internal/terminal"
)

// ErrNoRuntime is returned when neither docker nor podman is usable.
var ErrNoRuntime = errors.New("no container runtime found")

// Deps are the collaborators a Controller is built from.
type Deps struct {
	Runner runner.CommandRunner
	// LookPath overrides PATH lookups for runtimes and terminals.
	LookPath func(string) (string, error)
	// History may be nil, in which case actions are not recorded.
	History *history.Store
}

// Controller coordinates probing, listing and dispatching for one runtime.
type Controller struct {
	cfg        *config.Config
	runner     runner.CommandRunner
	prober     *probe.Prober
	terminals  *terminal.Resolver
	history    *history.Store
	snapshot   probe.Snapshot
	lister     *containers.Lister
	dispatcher *dispatch.Dispatcher
}

// New probes the host and builds the lister and dispatcher for the selected
// runtime.
func New(ctx context.Context, cfg *config.Config, deps Deps) (*Controller, error) {
	if deps.Runner == nil {
		deps.Runner = &runner.OSRunner{}
	}

	prober := probe.New(deps.Runner, probe.Options{
		Runtime:       cfg.Runtime.Name,
		Group:         cfg.Runtime.Group,
		DaemonProcess: cfg.Runtime.DaemonProcess,
	})
	terminals, err := terminal.NewResolver(cfg.Terminal.Order)
	if err != nil {
		return nil, fmt.Errorf("configuring terminals: %w", err)
	}
	if deps.LookPath != nil {
		prober.LookPath = deps.LookPath
		terminals.LookPath = deps.LookPath
	}

	c := &Controller{
		cfg:       cfg,
		runner:    deps.Runner,
		prober:    prober,
		terminals: terminals,
		history:   deps.History,
	}
	c.apply(prober.Snapshot(ctx))
	return c, nil
}

// Refresh re-probes the host, picking up a runtime installed or removed
// since the controller was built.
func (c *Controller) Refresh(ctx context.Context) probe.Snapshot {
	c.apply(c.prober.Refresh(ctx))
	return c.snapshot
}

func (c *Controller) apply(s probe.Snapshot) {
	c.snapshot = s
	c.lister = containers.New(c.runner, s.Runtime, c.cfg.Compose.LabelPrefix)
	c.lister.Isolate = c.cfg.Listing.IsolateInspectErrors
	c.dispatcher = dispatch.New(c.runner, c.terminals, dispatch.Options{
		Runtime:  s.Runtime,
		Shell:    c.cfg.Terminal.Shell,
		LogsTail: c.cfg.Dispatch.LogsTail,
	})
	log.Debug("probed runtime", "runtime", s.Runtime, "binaries", s.Binaries, "authorized", s.Authorized)
}

// Snapshot returns the capabilities probed at construction or last Refresh.
func (c *Controller) Snapshot() probe.Snapshot {
	return c.snapshot
}

func (c *Controller) requireRuntime() error {
	if !c.snapshot.HasRuntime() {
		if c.snapshot.Runtime != "" {
			return fmt.Errorf("%w: %s is not installed", ErrNoRuntime, c.snapshot.Runtime)
		}
		return fmt.Errorf("%w (checked %s)", ErrNoRuntime, strings.Join(probe.Runtimes, ", "))
	}
	return nil
}

// bounded applies the configured command timeout to non-interactive calls.
func (c *Controller) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Runtime.Timeout > 0 {
		return context.WithTimeout(ctx, c.cfg.Runtime.Timeout)
	}
	return context.WithCancel(ctx)
}

// List returns all containers.
func (c *Controller) List(ctx context.Context) ([]containers.Record, error) {
	if err := c.requireRuntime(); err != nil {
		return nil, err
	}
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	return c.lister.ListAll(ctx)
}

// Count returns the number of running containers.
func (c *Controller) Count(ctx context.Context) (int, error) {
	if err := c.requireRuntime(); err != nil {
		return 0, err
	}
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	return c.lister.RunningCount(ctx)
}

// Plan returns the command line Run would execute.
func (c *Controller) Plan(action dispatch.Action, target string) ([]string, error) {
	if err := c.requireRuntime(); err != nil {
		return nil, err
	}
	return c.dispatcher.Plan(action, target)
}

// Run dispatches action against target and records it in the history.
func (c *Controller) Run(ctx context.Context, action dispatch.Action, target string) dispatch.Outcome {
	if err := c.requireRuntime(); err != nil {
		return dispatch.Outcome{Action: action, Target: target, Err: err, Output: err.Error()}
	}

	// Interactive sessions live as long as the user keeps them open.
	if !action.Interactive() {
		var cancel context.CancelFunc
		ctx, cancel = c.bounded(ctx)
		defer cancel()
	}

	o := c.dispatcher.Dispatch(ctx, action, target)
	if o.Success {
		log.Info("action succeeded", "action", action.ID(), "target", target)
	} else {
		log.Warn("action failed", "action", action.ID(), "target", target, "err", o.Err)
	}
	c.record(ctx, o)
	return o
}

func (c *Controller) record(ctx context.Context, o dispatch.Outcome) {
	if c.history == nil || o.Command == "" {
		return
	}
	entry := &history.Entry{
		Action:    o.Action.ID(),
		Target:    o.Target,
		Command:   o.Command,
		Args:      o.Action.Args,
		Success:   o.Success,
		Output:    o.Output,
		Timestamp: time.Now(),
	}
	// Record even when ctx was canceled mid-action.
	if err := c.history.Append(context.WithoutCancel(ctx), entry); err != nil {
		log.Warn("recording history", "err", err)
	}
}

// Status is a point-in-time health report of the host.
type Status struct {
	Snapshot      probe.Snapshot
	DaemonRunning bool
	DaemonErr     error
	Terminals     []terminal.Availability
}

// Status checks the daemon and terminals; both are re-evaluated on every call.
func (c *Controller) Status(ctx context.Context) Status {
	s := Status{Snapshot: c.snapshot, Terminals: c.terminals.Resolve()}
	if c.snapshot.HasRuntime() {
		s.DaemonRunning, s.DaemonErr = c.prober.DaemonRunning(ctx)
	}
	return s
}

// PruneHistory drops history entries older than the configured retention.
func (c *Controller) PruneHistory(ctx context.Context) (int64, error) {
	if c.history == nil {
		return 0, nil
	}
	before := time.Now().AddDate(0, 0, -c.cfg.History.KeepDays)
	return c.history.Prune(ctx, before)
}
