package engine

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/remedyd/internal/audit"
	"github.com/fyrsmithlabs/remedyd/internal/probe"
	"github.com/fyrsmithlabs/remedyd/pkg/contract"
)

func TestBackgroundMonitorReturnsOnGoal(t *testing.T) {
	trail := audit.NewWriter(&bytes.Buffer{}, "mon")
	m := NewBackgroundMonitor(
		probe.NewCollector(nil),
		contract.GoalFunc(func(context.Context) bool { return true }),
		nil,
		trail,
		time.Millisecond,
		nil,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, m.Run(ctx))
	assert.Equal(t, 1, trail.Count())
}

func TestBackgroundMonitorAbortsOnCritical(t *testing.T) {
	trail := audit.NewWriter(&bytes.Buffer{}, "mon")
	m := NewBackgroundMonitor(
		probe.NewCollector(nil),
		contract.GoalFunc(func(context.Context) bool { return false }),
		contract.CriticalFunc(func(context.Context) bool { return true }),
		trail,
		time.Millisecond,
		nil,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.ErrorIs(t, m.Run(ctx), ErrCriticalCondition)
	assert.Equal(t, 1, trail.Count())
}

func TestBackgroundMonitorHonorsCancellation(t *testing.T) {
	trail := audit.NewWriter(&bytes.Buffer{}, "mon")
	m := NewBackgroundMonitor(
		probe.NewCollector(nil),
		contract.GoalFunc(func(context.Context) bool { return false }),
		nil,
		trail,
		time.Millisecond,
		nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	assert.ErrorIs(t, m.Run(ctx), context.Canceled)
}
