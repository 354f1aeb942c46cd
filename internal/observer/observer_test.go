package observer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/remedyd/internal/catalog"
	"github.com/fyrsmithlabs/remedyd/pkg/contract"
)

var cand = catalog.Candidate{
	Category: "service",
	Command:  "systemctl restart {target}",
	Location: "local",
	Mutator:  catalog.Mutator{Name: "plain", Kind: catalog.MutatorNone},
	Tier:     catalog.Tier{Name: "restart", Level: 2},
}

func goalIs(v bool) contract.GoalPredicate {
	return contract.GoalFunc(func(context.Context) bool { return v })
}

func TestObserveExecutionError(t *testing.T) {
	o := New(goalIs(true), nil, nil)

	out := o.Observe(context.Background(), cand, contract.ExecResult{}, errors.New("sh: command not found"))
	assert.Equal(t, ClassError, out.Class)
	assert.Equal(t, "sh: command not found", out.ExecError)
	// The goal predicate is irrelevant when the environment itself failed.
	assert.False(t, out.GoalAchieved)
}

func TestObserveGoalAchievedOverridesExitStatus(t *testing.T) {
	o := New(goalIs(true), nil, nil)

	// Even a non-zero exit classifies as goal_achieved when the
	// independent check passes.
	out := o.Observe(context.Background(), cand, contract.ExecResult{ExitStatus: 1}, nil)
	assert.Equal(t, ClassGoalAchieved, out.Class)
	assert.True(t, out.GoalAchieved)
	assert.Equal(t, 1, out.ExitStatus)
}

func TestObserveZeroExitWithoutGoalIsPartialProgress(t *testing.T) {
	o := New(goalIs(false), nil, nil)

	out := o.Observe(context.Background(), cand, contract.ExecResult{ExitStatus: 0, Output: "ok"}, nil)
	assert.Equal(t, ClassPartialProgress, out.Class)
	assert.False(t, out.GoalAchieved)
	assert.Equal(t, "ok", out.RawOutput)
}

func TestObserveNonZeroExitIsFailure(t *testing.T) {
	o := New(goalIs(false), nil, nil)

	out := o.Observe(context.Background(), cand, contract.ExecResult{ExitStatus: 2}, nil)
	assert.Equal(t, ClassFailure, out.Class)
}

func TestObserveProgressMeasureUpgradesFailure(t *testing.T) {
	gaps := 3
	progress := func(context.Context) int { return gaps }
	o := New(goalIs(false), progress, nil)

	// First failing observation records the baseline.
	out := o.Observe(context.Background(), cand, contract.ExecResult{ExitStatus: 1}, nil)
	require.Equal(t, ClassFailure, out.Class)

	// The gap count dropped: failure upgrades to partial progress.
	gaps = 1
	out = o.Observe(context.Background(), cand, contract.ExecResult{ExitStatus: 1}, nil)
	assert.Equal(t, ClassPartialProgress, out.Class)

	// Unchanged gap count stays a failure.
	out = o.Observe(context.Background(), cand, contract.ExecResult{ExitStatus: 1}, nil)
	assert.Equal(t, ClassFailure, out.Class)
}
