// Package observer classifies the results of externally executed
// candidates.
//
// Goal achievement is always re-evaluated through the caller-supplied
// goal predicate; the executor's exit status is never trusted on its
// own. Environment-level errors (missing tool, unreachable location,
// timeout) are a distinct class from ordinary failures because they feed
// the blacklist rather than the narrow penalty.
package observer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/catalog"
	"github.com/fyrsmithlabs/remedyd/pkg/contract"
)

// Class is the outcome classification of one candidate execution.
type Class string

const (
	ClassGoalAchieved    Class = "goal_achieved"
	ClassPartialProgress Class = "partial_progress"
	ClassFailure         Class = "failure"
	ClassError           Class = "error"
)

// Outcome is the append-only record of one classified execution.
type Outcome struct {
	Candidate    catalog.Candidate `json:"candidate"`
	ExitStatus   int               `json:"exit_status"`
	RawOutput    string            `json:"raw_output"`
	GoalAchieved bool              `json:"goal_achieved"`
	Class        Class             `json:"class"`
	ExecError    string            `json:"exec_error,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}

// ProgressFunc reports a scalar degradation measure (typically the open
// gap count). A drop between consecutive observations upgrades a
// non-zero-exit result to partial progress.
type ProgressFunc func(ctx context.Context) int

// Observer classifies executor results against the goal predicate.
type Observer struct {
	goal     contract.GoalPredicate
	progress ProgressFunc
	lastGaps int
	hasLast  bool
	logger   *zap.Logger
}

// New creates an observer. progress may be nil.
func New(goal contract.GoalPredicate, progress ProgressFunc, logger *zap.Logger) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{goal: goal, progress: progress, logger: logger}
}

// Observe classifies one execution result. execErr is the executor's
// error return; when non-nil the outcome is ClassError regardless of the
// result payload.
func (o *Observer) Observe(ctx context.Context, cand catalog.Candidate, res contract.ExecResult, execErr error) Outcome {
	out := Outcome{
		Candidate:  cand,
		ExitStatus: res.ExitStatus,
		RawOutput:  res.Output,
		Timestamp:  time.Now().UTC(),
	}

	if execErr != nil {
		out.Class = ClassError
		out.ExecError = execErr.Error()
		o.logger.Debug("candidate errored",
			zap.String("candidate", cand.String()),
			zap.Error(execErr),
		)
		return out
	}

	// Independent goal check, never the exit status alone.
	if o.goal != nil && o.goal.Achieved(ctx) {
		out.GoalAchieved = true
		out.Class = ClassGoalAchieved
		return out
	}

	if res.ExitStatus == 0 {
		out.Class = ClassPartialProgress
		o.noteProgress(ctx)
		return out
	}

	if o.improved(ctx) {
		out.Class = ClassPartialProgress
		return out
	}
	out.Class = ClassFailure
	return out
}

// noteProgress records the current progress measure as the comparison
// baseline for later observations.
func (o *Observer) noteProgress(ctx context.Context) {
	if o.progress == nil {
		return
	}
	o.lastGaps = o.progress(ctx)
	o.hasLast = true
}

// improved reports whether the progress measure dropped since the last
// observation, updating the baseline either way.
func (o *Observer) improved(ctx context.Context) bool {
	if o.progress == nil {
		return false
	}
	now := o.progress(ctx)
	improved := o.hasLast && now < o.lastGaps
	o.lastGaps = now
	o.hasLast = true
	return improved
}
