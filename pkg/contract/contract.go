// Package contract defines the collaborator interfaces the remediation
// engine depends on but does not implement.
//
// The engine searches for how to remediate; actually performing an action
// is delegated to an Executor supplied by the embedding process. Goal
// verification and critical-condition detection are likewise external so
// the engine can be exercised against stubs without a real target system.
package contract

import (
	"context"
	"time"
)

// ExecRequest describes one candidate execution handed to an Executor.
type ExecRequest struct {
	// Command is the fully rendered command line, mutators applied.
	Command string `json:"command"`

	// Location is the execution location selected for the candidate
	// (working directory, remote host alias, container name; the
	// executor decides how to interpret it).
	Location string `json:"location"`

	// PreStep is a protection-downgrade annotation composed by escalation
	// tiers at or above the configured threshold. Empty for low tiers.
	// Executors that cannot honor it must return an error, not ignore it.
	PreStep string `json:"pre_step,omitempty"`

	// Timeout bounds the execution. The engine classifies a timeout as an
	// execution error, not a failure.
	Timeout time.Duration `json:"timeout"`
}

// ExecResult is the raw result of one candidate execution.
type ExecResult struct {
	// ExitStatus is the process exit code (0 = success by convention,
	// but the engine never trusts it for goal verification).
	ExitStatus int `json:"exit_status"`

	// Output is combined stdout/stderr, possibly truncated by the
	// executor.
	Output string `json:"output"`

	// Duration is wall-clock execution time.
	Duration time.Duration `json:"duration"`
}

// Executor runs one candidate against the target system.
//
// A non-zero exit status is an ordinary result, not an error. The error
// return is reserved for environment-level conditions: tool missing,
// location unreachable, timeout. Implementations must be safe to call
// repeatedly.
type Executor interface {
	Execute(ctx context.Context, req ExecRequest) (ExecResult, error)
}

// GoalPredicate reports whether the goal state has been reached.
// Implementations must be side-effect-free and independent of the
// executor's exit status.
type GoalPredicate interface {
	Achieved(ctx context.Context) bool
}

// CriticalCheck reports whether a critical condition requires the run to
// abort. It must be cheap; the engine polls it every cycle and before
// every candidate execution.
type CriticalCheck interface {
	Critical(ctx context.Context) bool
}

// FactSource provides read-only key/value facts about the environment
// (capability flags, version strings, privilege level). A source that
// cannot produce some facts returns what it has; the collector tolerates
// partial results.
type FactSource interface {
	// Name identifies the source in logs and audit entries.
	Name() string

	Facts(ctx context.Context) (map[string]string, error)
}

// GoalFunc adapts a plain function to GoalPredicate.
type GoalFunc func(ctx context.Context) bool

// Achieved implements GoalPredicate.
func (f GoalFunc) Achieved(ctx context.Context) bool { return f(ctx) }

// CriticalFunc adapts a plain function to CriticalCheck.
type CriticalFunc func(ctx context.Context) bool

// Critical implements CriticalCheck.
func (f CriticalFunc) Critical(ctx context.Context) bool { return f(ctx) }
