package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
)

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// OSRunner executes commands via os/exec.
type OSRunner struct{}

func (r *OSRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	log.Debug("exec", "cmd", Join(name, args...))
	cmd := exec.CommandContext(ctx, name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

// Join renders a command line the way it is reported back to callers.
func Join(name string, args ...string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

// Capture runs a command and returns its stdout. Any failure is returned
// as a *Error classified by Kind.
func Capture(ctx context.Context, r CommandRunner, name string, args ...string) (string, error) {
	stdout, stderr, err := r.Run(ctx, name, args...)
	if err != nil {
		return "", classify(ctx, Join(name, args...), stderr, err)
	}
	return stdout, nil
}

// Kind tells apart the ways an external command can fail.
type Kind int

const (
	// KindSpawn means the program could not be launched at all.
	KindSpawn Kind = iota
	// KindExit means the program ran and returned a non-zero status.
	KindExit
	// KindCanceled means the context ended before the program finished.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindSpawn:
		return "spawn"
	case KindExit:
		return "exit"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error describes a failed external command.
type Error struct {
	Kind    Kind
	Command string
	Status  int
	Stderr  string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Command, e.Detail())
}

// Detail is the human-facing failure text: trimmed stderr when the program
// wrote any, otherwise the status or system error.
func (e *Error) Detail() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	if e.Kind == KindExit && e.Status > 0 {
		return fmt.Sprintf("exit status %d", e.Status)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, k Kind) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == k
}

// exitCoder is satisfied by *exec.ExitError and StatusError.
type exitCoder interface {
	ExitCode() int
}

func classify(ctx context.Context, command, stderr string, err error) *Error {
	e := &Error{Command: command, Stderr: strings.TrimSpace(stderr), Err: err}
	var ec exitCoder
	switch {
	case ctx.Err() != nil:
		e.Kind = KindCanceled
		e.Err = fmt.Errorf("%w: %w", ctx.Err(), err)
	case errors.As(err, &ec):
		e.Kind = KindExit
		e.Status = ec.ExitCode()
	default:
		e.Kind = KindSpawn
	}
	return e
}

// StatusError is an error carrying only an exit status. FakeRunner
// responses use it to stand in for *exec.ExitError.
type StatusError int

func (s StatusError) Error() string { return fmt.Sprintf("exit status %d", int(s)) }

func (s StatusError) ExitCode() int { return int(s) }
