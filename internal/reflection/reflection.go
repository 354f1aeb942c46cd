// Package reflection updates sampling bias from observed outcomes and
// drives the escalation ramp.
//
// The update rule is deliberately asymmetric: a win rewards every
// dimension value of the winning tuple (broad reward), while a failure
// penalizes only the command-template value (narrow penalty) so a
// location or mutator that might pair well elsewhere is not
// over-punished. An execution error blacklists the full tuple for the
// rest of the run; a missing capability will not appear mid-run.
package reflection

import (
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/catalog"
	"github.com/fyrsmithlabs/remedyd/internal/observer"
	"github.com/fyrsmithlabs/remedyd/internal/planner"
	"github.com/fyrsmithlabs/remedyd/internal/scoring"
)

// Config tunes the additive update rule and the escalation ramp.
type Config struct {
	// RewardIncrement is added to every dimension value of a winning
	// candidate, clipped at 1.0.
	RewardIncrement float64

	// FailurePenalty is subtracted from the command-template value of a
	// failed candidate, clipped at 0.0.
	FailurePenalty float64

	// RampThreshold is the number of consecutive failures at the current
	// tier that shifts preference one tier up.
	RampThreshold int
}

// DefaultConfig returns the standard update parameters.
func DefaultConfig() Config {
	return Config{
		RewardIncrement: 0.15,
		FailurePenalty:  0.05,
		RampThreshold:   3,
	}
}

// Engine applies outcome-driven updates to the score table and owns the
// tier ramp. It is the score table's only writer.
type Engine struct {
	cfg     Config
	cat     *catalog.Catalog
	scores  *scoring.Table
	plan    *planner.Planner
	tier    int
	streak  int
	logger  *zap.Logger
}

// New creates a reflection engine. The ramp starts at the catalog's
// lowest tier.
func New(cfg Config, cat *catalog.Catalog, scores *scoring.Table, plan *planner.Planner, logger *zap.Logger) *Engine {
	if cfg.RewardIncrement <= 0 {
		cfg.RewardIncrement = DefaultConfig().RewardIncrement
	}
	if cfg.FailurePenalty <= 0 {
		cfg.FailurePenalty = DefaultConfig().FailurePenalty
	}
	if cfg.RampThreshold <= 0 {
		cfg.RampThreshold = DefaultConfig().RampThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:    cfg,
		cat:    cat,
		scores: scores,
		plan:   plan,
		tier:   cat.MinTierLevel(),
		logger: logger,
	}
}

// CurrentTier returns the ramp's current preferred tier level.
func (e *Engine) CurrentTier() int { return e.tier }

// Reflect applies the update rule for one outcome.
func (e *Engine) Reflect(out observer.Outcome) {
	switch out.Class {
	case observer.ClassGoalAchieved:
		for _, d := range catalog.AllDimensions() {
			e.scores.Adjust(d, out.Candidate.Value(d), e.cfg.RewardIncrement)
		}
		e.streak = 0

	case observer.ClassPartialProgress:
		// Progress is neither rewarded nor penalized, but it breaks a
		// failure streak.
		e.streak = 0

	case observer.ClassFailure:
		e.scores.Adjust(catalog.DimCommand, out.Candidate.Value(catalog.DimCommand), -e.cfg.FailurePenalty)
		e.ramp(out.Candidate)

	case observer.ClassError:
		e.scores.Blacklist(out.Candidate)
		e.logger.Info("candidate blacklisted",
			zap.String("candidate", out.Candidate.String()),
			zap.String("reason", out.ExecError),
		)
	}
}

// ramp counts consecutive failures at the current preferred tier and
// shifts preference one tier up when the threshold is reached. Tiers are
// never skipped.
func (e *Engine) ramp(cand catalog.Candidate) {
	if cand.Tier.Level != e.tier {
		return
	}
	e.streak++
	if e.streak < e.cfg.RampThreshold {
		return
	}
	next := e.cat.NextTierLevel(e.tier)
	if next == e.tier {
		// Already at the most aggressive tier.
		e.streak = 0
		return
	}
	e.logger.Info("escalation ramp",
		zap.Int("from_tier", e.tier),
		zap.Int("to_tier", next),
		zap.Int("consecutive_failures", e.streak),
	)
	e.tier = next
	e.streak = 0
	if e.plan != nil {
		e.plan.SetTierFloor(next)
	}
}
