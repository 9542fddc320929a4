// Package probe inspects the host for a usable container runtime.
//
// A Snapshot captures the slowly changing facts (which runtime binaries are
// installed, whether the user belongs to the runtime group) once; callers
// hold on to it and ask for a Refresh when they want fresh values. Whether
// the daemon is running is volatile and is checked on every call.
package probe

import (
	"context"
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"github.com/ecairns22/harbormaster/internal/runner"
)

// Known runtimes in detection order.
var Runtimes = []string{"docker", "podman"}

// Auto selects the first installed runtime.
const Auto = "auto"

// Options configures a Prober.
type Options struct {
	// Runtime is "auto", "docker" or "podman".
	Runtime string
	// Group is the group that grants access to the runtime socket. Empty
	// means the default for the selected runtime.
	Group string
	// DaemonProcess is the process name of the runtime daemon. Empty means
	// the default for the selected runtime.
	DaemonProcess string
}

// Snapshot is the probed runtime capability of the host.
type Snapshot struct {
	Runtime    string
	Binaries   map[string]bool
	Authorized bool
}

// DefaultDaemon returns the daemon process name for a runtime.
func DefaultDaemon(runtime string) string {
	if runtime == "docker" {
		return "dockerd"
	}
	return ""
}

// DefaultGroup returns the group required to use a runtime. Podman runs
// rootless and needs none.
func DefaultGroup(runtime string) string {
	if runtime == "docker" {
		return "docker"
	}
	return ""
}

// HasRuntime reports whether the selected runtime binary is installed.
func (s Snapshot) HasRuntime() bool {
	return s.Runtime != "" && s.Binaries[s.Runtime]
}

// Prober runs host checks through a command runner.
type Prober struct {
	runner   runner.CommandRunner
	opts     Options
	runtime  string
	LookPath func(string) (string, error)
}

// New creates a Prober.
func New(r runner.CommandRunner, opts Options) *Prober {
	if opts.Runtime == "" {
		opts.Runtime = Auto
	}
	p := &Prober{runner: r, opts: opts, LookPath: exec.LookPath}
	if opts.Runtime != Auto {
		p.runtime = opts.Runtime
	}
	return p
}

// HasBinary reports whether name resolves on PATH.
func (p *Prober) HasBinary(name string) bool {
	_, err := p.LookPath(name)
	return err == nil
}

// Snapshot probes binaries and group membership.
func (p *Prober) Snapshot(ctx context.Context) Snapshot {
	s := Snapshot{Binaries: make(map[string]bool, len(Runtimes))}
	for _, rt := range Runtimes {
		s.Binaries[rt] = p.HasBinary(rt)
	}

	switch p.opts.Runtime {
	case Auto:
		for _, rt := range Runtimes {
			if s.Binaries[rt] {
				s.Runtime = rt
				break
			}
		}
	default:
		s.Runtime = p.opts.Runtime
	}

	p.runtime = s.Runtime
	s.Authorized = p.IsUserAuthorized(ctx)
	return s
}

// Refresh probes the host again and returns a new snapshot.
func (p *Prober) Refresh(ctx context.Context) Snapshot {
	return p.Snapshot(ctx)
}

// IsUserAuthorized reports whether the current user is a member of the
// runtime group. A runtime without a group requirement always passes.
func (p *Prober) IsUserAuthorized(ctx context.Context) bool {
	group := p.opts.Group
	if group == "" {
		group = DefaultGroup(p.runtime)
	}
	if group == "" {
		return true
	}
	out, err := runner.Capture(ctx, p.runner, "id", "-Gn")
	if err != nil {
		return false
	}
	return slices.Contains(strings.Fields(out), group)
}

// DaemonRunning reports whether the runtime daemon process is alive. A
// daemonless runtime is always reported as running; no selected runtime
// never is.
func (p *Prober) DaemonRunning(ctx context.Context) (bool, error) {
	if p.runtime == "" {
		return false, nil
	}
	process := p.opts.DaemonProcess
	if process == "" {
		process = DefaultDaemon(p.runtime)
	}
	if process == "" {
		return true, nil
	}
	out, err := runner.Capture(ctx, p.runner, "ps", "cax")
	if err != nil {
		return false, fmt.Errorf("listing processes: %w", err)
	}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		// ps c prints the bare executable name in the last column.
		if fields[len(fields)-1] == process {
			return true, nil
		}
	}
	return false, nil
}
