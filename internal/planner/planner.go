// Package planner selects the next candidate action by weighted random
// sampling over the catalog's combinatorial space.
//
// Sampling is deterministic under a fixed seed: the candidate pool has a
// stable order (tiers ascending, then catalog declaration order) and the
// only randomness is an explicitly seeded source. The planner never
// assumes the space can be exhausted: a sample budget bounds attempts
// per run, and exhaustion is a non-fatal signal, not an error path that
// terminates the run.
package planner

import (
	"errors"
	"math/rand"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/catalog"
	"github.com/fyrsmithlabs/remedyd/internal/scoring"
)

// ErrBudgetExhausted signals the per-run sample budget has been spent.
// The orchestrator ends the cycle early; it is not a failure.
var ErrBudgetExhausted = errors.New("planner: sample budget exhausted")

// ErrPoolExhausted signals no eligible candidate remains: everything is
// executed, blacklisted, or below the tier floor.
var ErrPoolExhausted = errors.New("planner: candidate pool exhausted")

// DefaultSampleBudget bounds candidate selections per run.
const DefaultSampleBudget = 1000

// Planner performs weighted sampling with exclusion of executed and
// blacklisted candidates.
type Planner struct {
	cat        *catalog.Catalog
	scores     *scoring.Table
	rng        *rand.Rand
	pool       []catalog.Candidate
	executions map[string]int
	budget     int
	sampled    int
	tierFloor  int
	logger     *zap.Logger
}

// New creates a planner over the catalog space. budget <= 0 selects
// DefaultSampleBudget.
func New(cat *catalog.Catalog, scores *scoring.Table, seed int64, budget int, logger *zap.Logger) *Planner {
	if budget <= 0 {
		budget = DefaultSampleBudget
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{
		cat:        cat,
		scores:     scores,
		rng:        rand.New(rand.NewSource(seed)),
		pool:       cat.Candidates(),
		executions: make(map[string]int),
		budget:     budget,
		tierFloor:  cat.MinTierLevel(),
		logger:     logger,
	}
}

// SetTierFloor raises the minimum escalation tier sampled. The ramp only
// moves the floor upward, one tier at a time; Next never selects below
// the floor afterwards.
func (p *Planner) SetTierFloor(level int) {
	if level > p.tierFloor {
		p.tierFloor = level
	}
}

// TierFloor returns the current minimum tier level.
func (p *Planner) TierFloor() int { return p.tierFloor }

// Sampled returns how many candidates have been handed out this run.
func (p *Planner) Sampled() int { return p.sampled }

// Eligible reports whether the candidate may still execute this run:
// its attempt budget is not spent and its tuple is not blacklisted. The
// shortcut path consults this before bypassing sampling; the at-most-once
// and never-reselect-after-error rules hold on every execution path.
func (p *Planner) Eligible(c catalog.Candidate) bool {
	return p.executions[c.Key()] < c.Mutator.RetryCount() && !p.scores.Blacklisted(c)
}

// Next selects one candidate by weighted sampling:
// weight(c) = Π weight(dimension, value), normalized over the eligible
// pool. When every eligible weight is zero the lowest-tier eligible
// candidate is chosen, preferring the least invasive action.
func (p *Planner) Next() (*catalog.Candidate, error) {
	if p.sampled >= p.budget {
		return nil, ErrBudgetExhausted
	}

	var (
		eligible []int
		weights  []float64
		total    float64
	)
	for i, c := range p.pool {
		if c.Tier.Level < p.tierFloor {
			continue
		}
		if !p.Eligible(c) {
			continue
		}
		w := p.scores.CandidateWeight(c)
		eligible = append(eligible, i)
		weights = append(weights, w)
		total += w
	}
	if len(eligible) == 0 {
		return nil, ErrPoolExhausted
	}

	p.sampled++

	// Zero total: deterministic fallback to the first eligible entry,
	// which is the lowest tier in the stable pool order.
	if total <= 0 {
		c := p.pool[eligible[0]]
		return &c, nil
	}

	r := p.rng.Float64() * total
	for j, idx := range eligible {
		r -= weights[j]
		if r < 0 {
			c := p.pool[idx]
			return &c, nil
		}
	}
	// Floating point slack lands on the last eligible entry.
	c := p.pool[eligible[len(eligible)-1]]
	return &c, nil
}

// MarkExecuted records that the candidate ran once. Candidates are
// executed at most once per run unless their mutator encodes retries.
func (p *Planner) MarkExecuted(c catalog.Candidate) {
	p.executions[c.Key()]++
}

// PoolSize returns the total candidate pool size.
func (p *Planner) PoolSize() int { return len(p.pool) }
