package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/remedyd/internal/config"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"trace", TraceLevel},
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := LevelFromString(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := LevelFromString("shout")
	assert.Error(t, err)
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "bogus", Format: "json"}, nil)
	assert.Error(t, err)
}

func TestNewBuildsLoggerForBothFormats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := New(config.LoggingConfig{Level: "info", Format: format}, nil)
		require.NoError(t, err, format)
		require.NotNil(t, logger)
	}
}

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ContextFields(ctx))

	ctx = WithRunID(ctx, "run-42")
	ctx = WithCycle(ctx, 3)

	fields := ContextFields(ctx)
	require.Len(t, fields, 2)
	assert.Equal(t, zap.String("run_id", "run-42"), fields[0])
	assert.Equal(t, zap.Int("cycle", 3), fields[1])

	assert.Equal(t, "run-42", RunIDFromContext(ctx))
	cycle, ok := CycleFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, 3, cycle)
}

func TestTestLoggerObservesEntries(t *testing.T) {
	tl := NewTestLogger()
	tl.Info("cycle finished", zap.Int("cycle", 1))
	tl.Debug("sampling decision")

	tl.AssertLogged(t, zapcore.InfoLevel, "cycle finished")
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "cycle finished")
	assert.Len(t, tl.All(), 2)
	assert.Equal(t, 1, tl.FilterMessage("sampling decision").Len())
}
