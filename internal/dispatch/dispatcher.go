package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/ecairns22/harbormaster/internal/runner"
	"github.com/ecairns22/harbormaster/internal/terminal"
)

// DefaultLogsTail is how many log lines are shown before following.
const DefaultLogsTail = 2000

// ErrNoTerminal is reported when exec or logs finds no terminal emulator.
var ErrNoTerminal = errors.New("no terminal emulator found")

// Options configures a Dispatcher.
type Options struct {
	// Runtime is the runtime binary, docker or podman.
	Runtime string
	// Shell runs the wrapped command and stays open afterwards.
	Shell string
	// LogsTail is the --tail value for logs.
	LogsTail int
}

// Outcome is the result of one dispatched action. Output is stdout on
// success and the failure text otherwise.
type Outcome struct {
	Action  Action
	Target  string
	Success bool
	Command string
	Output  string
	Err     error
}

// Dispatcher turns actions into runtime command lines and runs them.
type Dispatcher struct {
	runner    runner.CommandRunner
	terminals *terminal.Resolver
	opts      Options
}

// New creates a Dispatcher.
func New(r runner.CommandRunner, terminals *terminal.Resolver, opts Options) *Dispatcher {
	if opts.Shell == "" {
		opts.Shell = "bash"
	}
	if opts.LogsTail <= 0 {
		opts.LogsTail = DefaultLogsTail
	}
	return &Dispatcher{runner: r, terminals: terminals, opts: opts}
}

// Plan returns the argv Dispatch would run for action on target.
func (d *Dispatcher) Plan(action Action, target string) ([]string, error) {
	if err := action.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(target) == "" {
		return nil, fmt.Errorf("%s: empty target", action)
	}

	rt := d.opts.Runtime
	switch {
	case action.Verb == Exec:
		return d.wrap([]string{rt, "exec", "-it", target, "sh"})
	case action.Verb == Logs:
		return d.wrap([]string{rt, "logs", "-f", "--tail", strconv.Itoa(d.opts.LogsTail), target})
	case action.Compose:
		argv := []string{rt, "compose", "-p", target, string(action.Verb)}
		return append(argv, action.Args...), nil
	default:
		argv := []string{rt, string(action.Verb)}
		argv = append(argv, action.Args...)
		return append(argv, target), nil
	}
}

func (d *Dispatcher) wrap(argv []string) ([]string, error) {
	term, ok := d.terminals.First()
	if !ok {
		return nil, fmt.Errorf("%w; checked: %s", ErrNoTerminal, strings.Join(d.terminals.Order(), ", "))
	}
	return term.Wrap(d.opts.Shell, argv), nil
}

// Dispatch runs action against target and reports the outcome. It never
// retries.
func (d *Dispatcher) Dispatch(ctx context.Context, action Action, target string) Outcome {
	o := Outcome{Action: action, Target: target}

	argv, err := d.Plan(action, target)
	if err != nil {
		o.Err = err
		o.Output = err.Error()
		return o
	}
	o.Command = runner.Join(argv[0], argv[1:]...)

	log.Debug("dispatch", "action", action.ID(), "target", target)
	out, err := runner.Capture(ctx, d.runner, argv[0], argv[1:]...)
	if err != nil {
		o.Err = err
		var re *runner.Error
		if errors.As(err, &re) {
			o.Output = re.Detail()
		} else {
			o.Output = err.Error()
		}
		return o
	}
	o.Success = true
	o.Output = out
	return o
}
