// Package executor provides the subprocess-based reference
// implementation of the engine's Executor contract.
//
// The engine core never shells out itself; this adapter is wired in by
// the CLI front-end and can be swapped for anything that satisfies
// contract.Executor (tests use deterministic stubs).
package executor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/pkg/contract"
)

// maxOutputBytes caps captured combined output per execution.
const maxOutputBytes = 64 * 1024

// Local runs candidate commands through the shell on the local host.
type Local struct {
	// Shell is the interpreter, "sh" when empty.
	Shell string

	// PreStepCommand is run before the candidate when the request
	// carries a protection-downgrade pre-step. When empty, such requests
	// are refused with an error (which the engine turns into a
	// blacklist).
	PreStepCommand string

	// Logger may be nil.
	Logger *zap.Logger
}

// Execute implements contract.Executor. A non-zero exit status is an
// ordinary result; the error return is reserved for missing tools,
// refusal to honor a pre-step, and timeouts.
func (l *Local) Execute(ctx context.Context, req contract.ExecRequest) (contract.ExecResult, error) {
	shell := l.Shell
	if shell == "" {
		shell = "sh"
	}
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if req.PreStep != "" {
		if l.PreStepCommand == "" {
			return contract.ExecResult{}, fmt.Errorf("executor: cannot honor pre-step %q", req.PreStep)
		}
		if err := l.runStep(ctx, shell, l.PreStepCommand, req.Timeout); err != nil {
			return contract.ExecResult{}, fmt.Errorf("executor: pre-step: %w", err)
		}
	}

	start := time.Now()
	runCtx := ctx
	var cancel context.CancelFunc
	if req.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, shell, "-c", req.Command)
	out, err := cmd.CombinedOutput()
	res := contract.ExecResult{
		Output:   truncate(string(out)),
		Duration: time.Since(start),
	}

	if runCtx.Err() != nil {
		// Awaited up to the timeout; a timeout is an environment error,
		// not a command failure.
		return res, fmt.Errorf("executor: %q timed out after %s", req.Command, req.Timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitStatus = exitErr.ExitCode()
			logger.Debug("candidate exited non-zero",
				zap.String("command", req.Command),
				zap.Int("exit", res.ExitStatus),
			)
			return res, nil
		}
		// Shell or tool missing entirely.
		return res, fmt.Errorf("executor: run %q: %w", req.Command, err)
	}
	return res, nil
}

func (l *Local) runStep(ctx context.Context, shell, command string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return exec.CommandContext(ctx, shell, "-c", command).Run()
}

func truncate(s string) string {
	if len(s) <= maxOutputBytes {
		return strings.ToValidUTF8(s, "")
	}
	return strings.ToValidUTF8(s[:maxOutputBytes], "") + "\n[truncated]"
}
