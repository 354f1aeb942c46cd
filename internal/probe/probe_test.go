package probe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSource struct{}

func (failingSource) Name() string { return "failing" }
func (failingSource) Facts(context.Context) (map[string]string, error) {
	return nil, errors.New("probe tool missing")
}

func TestCollectMergesSourcesInOrder(t *testing.T) {
	c := NewCollector(nil,
		StaticSource{SourceName: "base", Values: map[string]string{
			"service.state": "running",
			"disk.free":     "10G",
		}},
		StaticSource{SourceName: "override", Values: map[string]string{
			"service.state": "failed",
		}},
	)

	snap := c.Collect(context.Background())
	require.False(t, snap.Incomplete)
	assert.Len(t, snap.Facts, 2)

	// Later sources win on key collision.
	v, ok := snap.Get("service.state")
	require.True(t, ok)
	assert.Equal(t, "failed", v)
}

func TestCollectAbsorbsSourceFailures(t *testing.T) {
	c := NewCollector(nil,
		failingSource{},
		StaticSource{Values: map[string]string{"a": "1"}},
	)

	snap := c.Collect(context.Background())
	assert.True(t, snap.Incomplete)

	// The surviving source still contributes.
	v, ok := snap.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestCollectWithNoSources(t *testing.T) {
	snap := NewCollector(nil).Collect(context.Background())
	assert.False(t, snap.Incomplete)
	assert.Empty(t, snap.Facts)
	assert.False(t, snap.Timestamp.IsZero())
}

func TestAnalyzeGaps(t *testing.T) {
	snap := Snapshot{Facts: map[string]string{
		"service.state": "failed",
		"disk.free":     "10G",
	}}

	gaps := AnalyzeGaps(snap, []Expectation{
		{Fact: "service.state", Value: "running"},
		{Fact: "disk.free"}, // presence only
		{Fact: "package.ok", Value: "yes"},
	})

	require.Len(t, gaps, 2)
	// Sorted by fact name.
	assert.Equal(t, GapMissing, gaps[0].Kind)
	assert.Equal(t, "package.ok", gaps[0].Target)
	assert.Equal(t, GapMismatch, gaps[1].Kind)
	assert.Equal(t, "service.state", gaps[1].Target)
	assert.Equal(t, "failed", gaps[1].Actual)
}

func TestAnalyzeGapsCleanSnapshot(t *testing.T) {
	snap := Snapshot{Facts: map[string]string{"service.state": "running"}}
	gaps := AnalyzeGaps(snap, []Expectation{{Fact: "service.state", Value: "running"}})
	assert.Empty(t, gaps)
}
