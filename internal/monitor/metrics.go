// Package monitor instruments the engine with OpenTelemetry metrics.
package monitor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/remedyd/internal/monitor"

// Metrics holds the engine's instruments. A nil *Metrics is a valid
// no-op receiver so the engine never branches on instrumentation.
type Metrics struct {
	meter       metric.Meter
	logger      *zap.Logger
	attempts    metric.Int64Counter
	cycles      metric.Int64Counter
	execDur     metric.Float64Histogram
	currentTier metric.Int64Gauge
}

// New creates engine metrics against the global meter provider.
func New(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.attempts, err = m.meter.Int64Counter(
		"remedyd.engine.attempts_total",
		metric.WithDescription("Candidate executions labeled by outcome class (goal_achieved, partial_progress, failure, error) and escalation tier."),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		m.logger.Warn("failed to create attempts counter", zap.Error(err))
	}

	m.cycles, err = m.meter.Int64Counter(
		"remedyd.engine.cycles_total",
		metric.WithDescription("Completed remediation cycles."),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		m.logger.Warn("failed to create cycles counter", zap.Error(err))
	}

	m.execDur, err = m.meter.Float64Histogram(
		"remedyd.engine.execution_duration_seconds",
		metric.WithDescription("Candidate execution wall-clock duration in seconds."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.currentTier, err = m.meter.Int64Gauge(
		"remedyd.engine.current_tier",
		metric.WithDescription("Current escalation tier level preferred by the reflection ramp."),
		metric.WithUnit("{tier}"),
	)
	if err != nil {
		m.logger.Warn("failed to create tier gauge", zap.Error(err))
	}
}

// RecordAttempt records one candidate execution.
func (m *Metrics) RecordAttempt(ctx context.Context, class string, tier int, dur time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("class", class),
		attribute.Int("tier", tier),
	)
	if m.attempts != nil {
		m.attempts.Add(ctx, 1, attrs)
	}
	if m.execDur != nil {
		m.execDur.Record(ctx, dur.Seconds(), attrs)
	}
	if m.currentTier != nil {
		m.currentTier.Record(ctx, int64(tier))
	}
}

// RecordCycle records one completed cycle.
func (m *Metrics) RecordCycle(ctx context.Context, effectiveness float64) {
	if m == nil {
		return
	}
	if m.cycles != nil {
		m.cycles.Add(ctx, 1, metric.WithAttributes(
			attribute.Float64("effectiveness", effectiveness),
		))
	}
}
