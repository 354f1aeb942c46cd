package engine

import (
	"errors"
	"time"
)

// Status is the orchestrator's state-machine state. Transitions are
// monotonic: idle → running → one terminal status; terminal states are
// final.
type Status string

const (
	StatusIdle             Status = "idle"
	StatusRunning          Status = "running"
	StatusConverged        Status = "converged"
	StatusMaxCyclesReached Status = "max_cycles_reached"
	StatusCriticalAbort    Status = "critical_abort"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusConverged, StatusMaxCyclesReached, StatusCriticalAbort:
		return true
	}
	return false
}

// ErrCriticalCondition is the only condition that crosses the
// orchestrator boundary as run-terminating. Everything else is recorded
// and absorbed; no-stop-on-fail is a contract, not incidental behavior.
var ErrCriticalCondition = errors.New("engine: critical condition")

// CycleState is the orchestrator-owned progress record.
type CycleState struct {
	CycleIndex           int     `json:"cycle_index"`
	ConsecutiveSuccesses int     `json:"consecutive_successes"`
	EffectivenessRatio   float64 `json:"effectiveness_ratio"`
	TierLevel            int     `json:"tier_level"`
	Sampled              int     `json:"sampled"`
	Status               Status  `json:"status"`
}

// Options tunes one engine run. Zero values select the documented
// defaults.
type Options struct {
	// Target is substituted into command templates.
	Target string

	// MaxCycles bounds the run; default 10.
	MaxCycles int

	// StepBudget bounds plan→execute→observe→reflect steps per cycle;
	// default 25.
	StepBudget int

	// SampleBudget bounds candidate selections per run; default 1000.
	SampleBudget int

	// ConvergenceThreshold is the consecutive-successful-cycles count
	// that converges the run; default 3.
	ConvergenceThreshold int

	// SuccessRatio is the per-cycle effectiveness at or above which a
	// cycle counts as successful; default 0.5.
	SuccessRatio float64

	// CandidateTimeout bounds each execution; default 30s.
	CandidateTimeout time.Duration

	// Seed drives the planner's sampling. Runs with equal seeds, inputs
	// and a deterministic executor produce identical candidate
	// sequences. Zero means derive from the clock.
	Seed int64

	// StateDir receives the persisted cycle-state and reflection
	// artifacts; empty disables persistence.
	StateDir string
}

// withDefaults returns a copy with zero values replaced.
func (o Options) withDefaults() Options {
	if o.MaxCycles <= 0 {
		o.MaxCycles = 10
	}
	if o.StepBudget <= 0 {
		o.StepBudget = 25
	}
	if o.SampleBudget <= 0 {
		o.SampleBudget = 1000
	}
	if o.ConvergenceThreshold <= 0 {
		o.ConvergenceThreshold = 3
	}
	if o.SuccessRatio <= 0 {
		o.SuccessRatio = 0.5
	}
	if o.CandidateTimeout <= 0 {
		o.CandidateTimeout = 30 * time.Second
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	return o
}

// Result summarizes a finished run.
type Result struct {
	Status     Status     `json:"status"`
	Cycles     int        `json:"cycles"`
	Attempts   int        `json:"attempts"`
	Successes  int        `json:"successes"`
	RunID      string     `json:"run_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	State      CycleState `json:"state"`
}
