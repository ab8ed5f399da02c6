// Package command runs companion CLI executables with a hard deadline and
// classifies every outcome into the collector state taxonomy. It never
// returns an unclassified failure: a missing binary, a nonzero exit, a
// permission error, and an overrun deadline each map to a distinct state
// so collectors can translate them into complete result records.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/agent-pulse/pkg/collectors"
)

// DefaultTimeout bounds a Run call when the Runner carries no explicit
// timeout. Per-source timeouts in practice range from 2s to 15s.
const DefaultTimeout = 10 * time.Second

// Error is a classified invocation failure. It travels across collector
// boundaries so the refresh loop can translate any error back into a
// state and error-type without string matching.
type Error struct {
	State collectors.State
	Type  string
	msg   string
}

// Error implements the error interface.
func (e *Error) Error() string { return e.msg }

// StateOf extracts the classification from err. Errors that did not
// originate here (JSON decode failures, wrapped call errors) map to
// StateError / "exit_error".
func StateOf(err error) (collectors.State, string) {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.State, cerr.Type
	}
	return collectors.StateError, "exit_error"
}

// Runner invokes external processes. The zero value is usable.
type Runner struct {
	// Timeout is the per-call deadline. Zero uses DefaultTimeout.
	Timeout time.Duration

	// Dir is the working directory for invoked processes. Empty uses
	// the caller's working directory.
	Dir string
}

// Outcome is the classified result of one process invocation.
type Outcome struct {
	// Stdout holds the process standard output on success, empty otherwise.
	Stdout string

	// Stderr holds whatever the process wrote to standard error.
	Stderr string

	// State classifies the invocation.
	State collectors.State

	// Err is the classified failure, nil when State is StateOK.
	Err error

	// Duration is how long the invocation took.
	Duration time.Duration
}

// Run executes name with args under the runner's deadline and returns a
// classified Outcome. It never panics and never retries; callers wanting
// retries wrap it with pkg/retry.
func (r *Runner) Run(ctx context.Context, name string, args ...string) Outcome {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Give the process a short grace window after the kill signal so
	// its pipes are not left dangling.
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	err := cmd.Run()
	took := time.Since(start)

	if err == nil {
		return Outcome{
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			State:    collectors.StateOK,
			Duration: took,
		}
	}

	return classify(err, name, timeout, ctx, stderr.String(), took)
}

// classify maps an exec failure onto the state taxonomy.
func classify(err error, name string, timeout time.Duration, ctx context.Context, stderr string, took time.Duration) Outcome {
	out := Outcome{Stderr: stderr, Duration: took}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		out.State = collectors.StateTimeout
		out.Err = &Error{
			State: collectors.StateTimeout,
			Type:  "timeout",
			msg:   fmt.Sprintf("timed out after %gs", timeout.Seconds()),
		}

	case errors.Is(err, exec.ErrNotFound):
		out.State = collectors.StateUnavailable
		out.Err = &Error{
			State: collectors.StateUnavailable,
			Type:  "not_found",
			msg:   fmt.Sprintf("not found: %s", name),
		}

	case errors.Is(err, fs.ErrPermission):
		out.State = collectors.StateError
		out.Err = &Error{
			State: collectors.StateError,
			Type:  "permission_denied",
			msg:   fmt.Sprintf("permission denied: %s", name),
		}

	default:
		msg := err.Error()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg = strings.TrimSpace(stderr)
			if msg == "" {
				msg = fmt.Sprintf("exit code %d", exitErr.ExitCode())
			}
		}
		out.State = collectors.StateError
		out.Err = &Error{State: collectors.StateError, Type: "exit_error", msg: msg}
	}

	return out
}

// ErrType names the outcome's failure class for result records.
func (o Outcome) ErrType() string {
	if o.Err == nil {
		return ""
	}
	_, typ := StateOf(o.Err)
	return typ
}
