package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/remedyd/internal/audit"
	"github.com/fyrsmithlabs/remedyd/internal/probe"
	"github.com/fyrsmithlabs/remedyd/pkg/contract"
)

// BackgroundMonitor is the lower-frequency task a run hands off to after
// reaching max cycles. It only reads the probe collector and the
// critical-condition check. It never plans, executes, or mutates the
// score table. The run lock keeps it out of the way of a foreground run.
type BackgroundMonitor struct {
	collector *probe.Collector
	critical  contract.CriticalCheck
	goal      contract.GoalPredicate
	trail     *audit.Trail
	interval  time.Duration
	logger    *zap.Logger
}

// NewBackgroundMonitor creates a monitor. interval <= 0 selects 60s.
func NewBackgroundMonitor(
	collector *probe.Collector,
	goal contract.GoalPredicate,
	critical contract.CriticalCheck,
	trail *audit.Trail,
	interval time.Duration,
	logger *zap.Logger,
) *BackgroundMonitor {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackgroundMonitor{
		collector: collector,
		critical:  critical,
		goal:      goal,
		trail:     trail,
		interval:  interval,
		logger:    logger,
	}
}

// Run observes until the context is cancelled, the goal is verified, or
// a critical condition appears. The limiter paces observation so the
// monitor stays low-priority even when probes are fast.
func (m *BackgroundMonitor) Run(ctx context.Context) error {
	limiter := rate.NewLimiter(rate.Every(m.interval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if m.critical != nil && m.critical.Critical(ctx) {
			m.trail.Append(audit.Entry{
				Severity:  audit.SeverityError,
				Component: "monitor",
				Message:   "critical condition observed",
			})
			return ErrCriticalCondition
		}
		snap := m.collector.Collect(ctx)
		if m.goal != nil && m.goal.Achieved(ctx) {
			m.trail.Append(audit.Entry{
				Severity:  audit.SeverityInfo,
				Component: "monitor",
				Message:   "goal verified during background monitoring",
			})
			return nil
		}
		m.logger.Debug("background observation",
			zap.Int("facts", len(snap.Facts)),
			zap.Bool("incomplete", snap.Incomplete),
		)
	}
}
