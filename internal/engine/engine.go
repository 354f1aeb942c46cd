// Package engine implements the convergence tracker / orchestrator: the
// top-level cyclic state machine that coordinates probing, shortcut
// detection, planning, execution, observation, and reflection.
//
// The orchestrator absorbs every non-critical condition. A candidate
// failure, an exhausted budget, an incomplete probe: none of them stop
// the run; they are recorded and the loop proceeds. The only transition
// allowed to interrupt an in-progress batch is the critical-condition
// abort.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/audit"
	"github.com/fyrsmithlabs/remedyd/internal/catalog"
	"github.com/fyrsmithlabs/remedyd/internal/monitor"
	"github.com/fyrsmithlabs/remedyd/internal/observer"
	"github.com/fyrsmithlabs/remedyd/internal/planner"
	"github.com/fyrsmithlabs/remedyd/internal/probe"
	"github.com/fyrsmithlabs/remedyd/internal/reflection"
	"github.com/fyrsmithlabs/remedyd/internal/scoring"
	"github.com/fyrsmithlabs/remedyd/internal/shortcut"
	"github.com/fyrsmithlabs/remedyd/pkg/contract"
)

// Engine drives one remediation run. Construct with New; a single Engine
// value runs once.
type Engine struct {
	opts      Options
	cat       *catalog.Catalog
	collector *probe.Collector
	detector  *shortcut.Detector
	scores    *scoring.Table
	plan      *planner.Planner
	obs       *observer.Observer
	reflect   *reflection.Engine
	exec      contract.Executor
	goal      contract.GoalPredicate
	critical  contract.CriticalCheck
	trail     *audit.Trail
	metrics   *monitor.Metrics
	logger    *zap.Logger

	// mu guards state: Run mutates it while the status server reads.
	mu        sync.RWMutex
	state     CycleState
	stateFile *StateFile
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Catalog   *catalog.Catalog
	Collector *probe.Collector
	Executor  contract.Executor
	Goal      contract.GoalPredicate
	Critical  contract.CriticalCheck
	Trail     *audit.Trail
	Metrics   *monitor.Metrics
	Logger    *zap.Logger

	// Progress optionally supplies the observer's degradation measure
	// (typically the open gap count); nil disables the partial-progress
	// upgrade on non-zero exits.
	Progress observer.ProgressFunc

	// Reflection tunes the update rule; zero value selects defaults.
	Reflection reflection.Config
}

// New wires an engine. Catalog, Collector, Executor, Goal and Trail are
// required; Critical, Metrics and Logger may be nil.
func New(opts Options, deps Deps) (*Engine, error) {
	if deps.Catalog == nil {
		return nil, fmt.Errorf("engine: catalog is required")
	}
	if deps.Collector == nil {
		return nil, fmt.Errorf("engine: probe collector is required")
	}
	if deps.Executor == nil {
		return nil, fmt.Errorf("engine: executor is required")
	}
	if deps.Goal == nil {
		return nil, fmt.Errorf("engine: goal predicate is required")
	}
	if deps.Trail == nil {
		return nil, fmt.Errorf("engine: audit trail is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()

	scores := scoring.New()
	plan := planner.New(deps.Catalog, scores, opts.Seed, opts.SampleBudget, logger)
	refl := reflection.New(deps.Reflection, deps.Catalog, scores, plan, logger)
	obs := observer.New(deps.Goal, deps.Progress, logger)

	e := &Engine{
		opts:      opts,
		cat:       deps.Catalog,
		collector: deps.Collector,
		detector:  shortcut.NewDetector(deps.Catalog, logger),
		scores:    scores,
		plan:      plan,
		obs:       obs,
		reflect:   refl,
		exec:      deps.Executor,
		goal:      deps.Goal,
		critical:  deps.Critical,
		trail:     deps.Trail,
		metrics:   deps.Metrics,
		logger:    logger,
		state:     CycleState{Status: StatusIdle, TierLevel: plan.TierFloor()},
	}
	if opts.StateDir != "" {
		e.stateFile = NewStateFile(opts.StateDir)
	}
	return e, nil
}

// State returns a copy of the current cycle state.
func (e *Engine) State() CycleState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Scores exposes the score table for the status server.
func (e *Engine) Scores() *scoring.Table { return e.scores }

// SpaceSize returns the catalog's combinatorial space size.
func (e *Engine) SpaceSize() int { return e.cat.SpaceSize() }

// Run executes the full cyclic state machine until a terminal status is
// reached. The returned error is non-nil only for ErrCriticalCondition
// and context cancellation; all other conditions are absorbed into the
// terminal status.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	res := Result{
		RunID:     e.trail.RunID(),
		StartedAt: time.Now().UTC(),
	}
	e.mu.Lock()
	e.state.Status = StatusRunning
	e.mu.Unlock()
	e.logger.Info("run started",
		zap.String("run_id", res.RunID),
		zap.Int("space_size", e.cat.SpaceSize()),
		zap.Int("max_cycles", e.opts.MaxCycles),
	)

	for e.state.CycleIndex < e.opts.MaxCycles && !e.state.Status.Terminal() {
		// External stop signal is honored at the start of every cycle.
		if err := ctx.Err(); err != nil {
			res.FinishedAt = time.Now().UTC()
			res.State = e.state
			res.Status = e.state.Status
			return res, err
		}
		if e.isCritical(ctx) {
			e.transition(StatusCriticalAbort, "critical condition at cycle start")
			break
		}

		e.mu.Lock()
		e.state.CycleIndex++
		e.mu.Unlock()
		e.runCycle(ctx, &res)
		e.persist()
	}

	if !e.state.Status.Terminal() {
		e.transition(StatusMaxCyclesReached, "cycle budget spent without convergence")
	}
	e.persist()

	res.Status = e.state.Status
	res.State = e.state
	res.Cycles = e.state.CycleIndex
	res.FinishedAt = time.Now().UTC()

	e.logger.Info("run finished",
		zap.String("run_id", res.RunID),
		zap.String("status", string(res.Status)),
		zap.Int("cycles", res.Cycles),
		zap.Int("attempts", res.Attempts),
	)
	if res.Status == StatusCriticalAbort {
		return res, ErrCriticalCondition
	}
	return res, nil
}

// runCycle performs one full cycle: probe + shortcut, then a bounded
// batch of plan→execute→observe→reflect steps.
func (e *Engine) runCycle(ctx context.Context, res *Result) {
	attempts, successes := 0, 0

	snap := e.collector.Collect(ctx)
	if snap.Incomplete {
		e.logger.Debug("probe snapshot incomplete", zap.Int("cycle", e.state.CycleIndex))
	}

	// A shortcut bypasses sampling, not eligibility: an exhausted or
	// blacklisted candidate falls through to the batch.
	if cand := e.detector.Detect(snap); cand != nil && e.plan.Eligible(*cand) {
		out, aborted := e.attempt(ctx, *cand, res)
		if aborted {
			return
		}
		attempts++
		if out.Class == observer.ClassGoalAchieved {
			e.finishCycle(res, attempts, 1, true)
			e.transition(StatusConverged, "goal achieved via shortcut")
			return
		}
		if out.Class == observer.ClassPartialProgress {
			successes++
		}
	}

	for step := 0; step < e.opts.StepBudget && !e.state.Status.Terminal(); step++ {
		if ctx.Err() != nil {
			return
		}
		// The critical check is the only thing allowed to interrupt an
		// in-progress batch.
		if e.isCritical(ctx) {
			e.transition(StatusCriticalAbort, "critical condition during batch")
			return
		}

		cand, err := e.plan.Next()
		if err != nil {
			// Budget or pool exhaustion ends the cycle early, nothing
			// more. No-stop-on-fail.
			e.logger.Debug("cycle ended early", zap.Error(err), zap.Int("cycle", e.state.CycleIndex))
			break
		}

		out, aborted := e.attempt(ctx, *cand, res)
		if aborted {
			return
		}
		attempts++
		switch out.Class {
		case observer.ClassGoalAchieved:
			e.finishCycle(res, attempts, successes+1, true)
			e.transition(StatusConverged, "goal achieved")
			return
		case observer.ClassPartialProgress:
			successes++
		}
	}

	// The goal may have been reached out-of-band (another operator, a
	// scheduled job); honor it regardless of attempt outcomes.
	if e.goal.Achieved(ctx) {
		e.finishCycle(res, attempts, successes, true)
		e.transition(StatusConverged, "goal verified at cycle end")
		return
	}

	cycleSuccess := attempts > 0 && float64(successes)/float64(attempts) >= e.opts.SuccessRatio
	e.finishCycle(res, attempts, successes, cycleSuccess)

	if e.state.ConsecutiveSuccesses >= e.opts.ConvergenceThreshold {
		e.transition(StatusConverged, "consecutive successful cycles reached threshold")
	}
}

// attempt runs one candidate end to end. The aborted return is true only
// when the critical check fired immediately before execution.
func (e *Engine) attempt(ctx context.Context, cand catalog.Candidate, res *Result) (observer.Outcome, bool) {
	if e.isCritical(ctx) {
		e.transition(StatusCriticalAbort, "critical condition before candidate execution")
		return observer.Outcome{}, true
	}

	req := contract.ExecRequest{
		Command:  e.cat.Render(cand, e.opts.Target),
		Location: cand.Location,
		PreStep:  e.cat.PreStepFor(cand),
		Timeout:  e.opts.CandidateTimeout,
	}
	execRes, execErr := e.exec.Execute(ctx, req)
	e.plan.MarkExecuted(cand)

	out := e.obs.Observe(ctx, cand, execRes, execErr)
	e.reflect.Reflect(out)
	e.mu.Lock()
	e.state.TierLevel = e.plan.TierFloor()
	e.state.Sampled = e.plan.Sampled()
	e.mu.Unlock()
	res.Attempts++
	if out.Class == observer.ClassGoalAchieved || out.Class == observer.ClassPartialProgress {
		res.Successes++
	}

	e.metrics.RecordAttempt(ctx, string(out.Class), cand.Tier.Level, execRes.Duration)
	e.auditOutcome(cand, out)
	return out, false
}

// finishCycle updates effectiveness and the consecutive-success counter.
func (e *Engine) finishCycle(res *Result, attempts, successes int, success bool) {
	e.mu.Lock()
	if attempts > 0 {
		e.state.EffectivenessRatio = float64(successes) / float64(attempts)
	} else {
		e.state.EffectivenessRatio = 0
	}
	if success {
		e.state.ConsecutiveSuccesses++
	} else {
		e.state.ConsecutiveSuccesses = 0
	}
	e.mu.Unlock()
	e.metrics.RecordCycle(context.Background(), e.state.EffectivenessRatio)
	e.logger.Info("cycle finished",
		zap.Int("cycle", e.state.CycleIndex),
		zap.Int("attempts", attempts),
		zap.Int("successes", successes),
		zap.Float64("effectiveness", e.state.EffectivenessRatio),
		zap.Int("consecutive_successes", e.state.ConsecutiveSuccesses),
	)
}

// transition moves the state machine to a terminal status and audits it.
// Monotonicity: a terminal status is never overwritten.
func (e *Engine) transition(to Status, reason string) {
	e.mu.Lock()
	if e.state.Status.Terminal() {
		e.mu.Unlock()
		return
	}
	e.state.Status = to
	e.mu.Unlock()
	e.trail.Append(audit.Entry{
		Severity:   audit.SeverityInfo,
		Component:  "engine",
		Message:    reason,
		CycleIndex: e.state.CycleIndex,
		Outcome:    string(to),
		Context: map[string]any{
			"consecutive_successes": e.state.ConsecutiveSuccesses,
			"effectiveness_ratio":   e.state.EffectivenessRatio,
		},
	})
	e.logger.Info("state transition",
		zap.String("to", string(to)),
		zap.String("reason", reason),
		zap.Int("cycle", e.state.CycleIndex),
	)
}

// auditOutcome writes exactly one audit entry per outcome record.
func (e *Engine) auditOutcome(cand catalog.Candidate, out observer.Outcome) {
	sev := audit.SeverityInfo
	if out.Class == observer.ClassError {
		sev = audit.SeverityWarn
	}
	e.trail.Append(audit.Entry{
		Severity:   sev,
		Component:  "observer",
		Message:    "candidate outcome",
		CycleIndex: e.state.CycleIndex,
		Candidate:  &cand,
		Outcome:    string(out.Class),
		Scores:     e.scores.Snapshot(),
		Context: map[string]any{
			"exit_status": out.ExitStatus,
			"exec_error":  out.ExecError,
		},
	})
}

func (e *Engine) isCritical(ctx context.Context) bool {
	return e.critical != nil && e.critical.Critical(ctx)
}

// persist atomically rewrites the cycle-state and reflection artifacts.
// Persistence failures are logged and absorbed.
func (e *Engine) persist() {
	if e.stateFile == nil {
		return
	}
	if err := e.stateFile.WriteCycleState(e.state); err != nil {
		e.logger.Warn("persist cycle state", zap.Error(err))
	}
	if err := e.stateFile.WriteReflection(ReflectionSnapshot{
		CycleIndex: e.state.CycleIndex,
		ChosenTier: e.reflect.CurrentTier(),
		Timestamp:  time.Now().UTC(),
	}); err != nil {
		e.logger.Warn("persist reflection snapshot", zap.Error(err))
	}
}
