package dispatch

import (
	"errors"
	"fmt"
	"strings"
)

// Verb is a lifecycle operation understood by the runtime CLI.
type Verb string

const (
	Start   Verb = "start"
	Restart Verb = "restart"
	Stop    Verb = "stop"
	Pause   Verb = "pause"
	Unpause Verb = "unpause"
	Exec    Verb = "exec"
	Logs    Verb = "logs"
)

const composeKeyword = "compose"

// ErrUnknownAction is returned for an action outside the fixed set.
var ErrUnknownAction = errors.New("unknown action")

// Action is one lifecycle command. Compose actions target a compose project
// instead of a single container. Args are extra runtime CLI arguments placed
// before the target.
type Action struct {
	Verb    Verb
	Compose bool
	Args    []string
}

// Simple returns the container-scoped action for v.
func Simple(v Verb) Action { return Action{Verb: v} }

// ComposeScoped returns the project-scoped action for v.
func ComposeScoped(v Verb) Action { return Action{Verb: v, Compose: true} }

// WithArgs returns a copy of a carrying extra CLI arguments.
func (a Action) WithArgs(args ...string) Action {
	a.Args = append([]string(nil), args...)
	return a
}

// ID is the textual identifier of the action, e.g. "stop" or "compose stop".
func (a Action) ID() string {
	if a.Compose {
		return composeKeyword + " " + string(a.Verb)
	}
	return string(a.Verb)
}

func (a Action) String() string { return a.ID() }

// Interactive reports whether the action runs inside a terminal emulator.
func (a Action) Interactive() bool {
	return a.Verb == Exec || a.Verb == Logs
}

// Label is the human readable name of the action.
func (a Action) Label() string {
	for _, e := range catalog {
		if e.Action.Verb == a.Verb && e.Action.Compose == a.Compose {
			return e.Label
		}
	}
	return a.ID()
}

// Validate checks that a belongs to the fixed action set.
func (a Action) Validate() error {
	for _, e := range catalog {
		if e.Action.Verb == a.Verb && e.Action.Compose == a.Compose {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownAction, a.ID())
}

// Entry pairs an action with its label.
type Entry struct {
	Action Action
	Label  string
}

var catalog = []Entry{
	{Simple(Start), "Start"},
	{Simple(Restart), "Restart"},
	{Simple(Stop), "Stop"},
	{Simple(Pause), "Pause"},
	{Simple(Unpause), "Unpause"},
	{ComposeScoped(Start), "Compose start"},
	{ComposeScoped(Restart), "Compose restart"},
	{ComposeScoped(Stop), "Compose stop"},
	{ComposeScoped(Pause), "Compose pause"},
	{ComposeScoped(Unpause), "Compose unpause"},
	{Simple(Exec), "Open shell"},
	{Simple(Logs), "Follow logs"},
}

// Catalog returns every supported action with its label.
func Catalog() []Entry {
	out := make([]Entry, len(catalog))
	copy(out, catalog)
	return out
}

// ParseAction parses an action id such as "restart" or "compose restart".
// Ids with more than two words are rejected; extra CLI arguments go through
// Action.WithArgs.
func ParseAction(s string) (Action, error) {
	fields := strings.Fields(s)
	var a Action
	switch {
	case len(fields) == 1:
		a = Simple(Verb(fields[0]))
	case len(fields) == 2 && fields[0] == composeKeyword:
		a = ComposeScoped(Verb(fields[1]))
	default:
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	if err := a.Validate(); err != nil {
		return Action{}, err
	}
	return a, nil
}
