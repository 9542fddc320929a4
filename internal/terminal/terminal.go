package terminal

import (
	"fmt"
	"os/exec"

	"github.com/kballard/go-shellquote"
)

// Terminal is a terminal emulator that can run a command in a new window.
type Terminal struct {
	ID string
	// ExecFlag precedes the program the terminal should run.
	ExecFlag string
}

// Known terminals, in default preference order.
var Known = []Terminal{
	{ID: "gnome-terminal", ExecFlag: "--"},
	{ID: "kgx", ExecFlag: "-e"},
	{ID: "konsole", ExecFlag: "-e"},
	{ID: "xterm", ExecFlag: "-e"},
}

// DefaultOrder returns the ids of Known in preference order.
func DefaultOrder() []string {
	ids := make([]string, len(Known))
	for i, t := range Known {
		ids[i] = t.ID
	}
	return ids
}

// Lookup returns the known terminal with the given id.
func Lookup(id string) (Terminal, bool) {
	for _, t := range Known {
		if t.ID == id {
			return t, true
		}
	}
	return Terminal{}, false
}

// Wrap builds the argv that opens the terminal, runs argv through shell and
// leaves an interactive shell behind once argv exits.
func (t Terminal) Wrap(shell string, argv []string) []string {
	script := fmt.Sprintf("%s; exec %s", shellquote.Join(argv...), shell)
	return []string{t.ID, t.ExecFlag, shell, "-c", script}
}

// Availability is whether one terminal is installed.
type Availability struct {
	ID        string
	Available bool
}

// Resolver finds installed terminals. It does not cache; every call looks
// at PATH again.
type Resolver struct {
	order    []Terminal
	LookPath func(string) (string, error)
}

// NewResolver creates a resolver checking the given ids in order. Unknown
// ids are rejected; an empty order means DefaultOrder.
func NewResolver(order []string) (*Resolver, error) {
	if len(order) == 0 {
		order = DefaultOrder()
	}
	r := &Resolver{LookPath: exec.LookPath}
	for _, id := range order {
		t, ok := Lookup(id)
		if !ok {
			return nil, fmt.Errorf("unknown terminal %q", id)
		}
		r.order = append(r.order, t)
	}
	return r, nil
}

// Order returns the ids checked, in preference order.
func (r *Resolver) Order() []string {
	ids := make([]string, len(r.order))
	for i, t := range r.order {
		ids[i] = t.ID
	}
	return ids
}

// Resolve reports the availability of every terminal in preference order.
func (r *Resolver) Resolve() []Availability {
	out := make([]Availability, len(r.order))
	for i, t := range r.order {
		_, err := r.LookPath(t.ID)
		out[i] = Availability{ID: t.ID, Available: err == nil}
	}
	return out
}

// First returns the most preferred installed terminal.
func (r *Resolver) First() (Terminal, bool) {
	for i, a := range r.Resolve() {
		if a.Available {
			return r.order[i], true
		}
	}
	return Terminal{}, false
}
