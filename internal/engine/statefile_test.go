package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateFileColdStart(t *testing.T) {
	s := NewStateFile(t.TempDir())

	doc, err := s.ReadCycleState()
	require.NoError(t, err)
	assert.Nil(t, doc)

	snap, err := s.ReadReflection()
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestStateFileCycleStateRoundTrip(t *testing.T) {
	s := NewStateFile(t.TempDir())

	require.NoError(t, s.WriteCycleState(CycleState{
		Status:               StatusRunning,
		CycleIndex:           4,
		ConsecutiveSuccesses: 2,
	}))

	doc, err := s.ReadCycleState()
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, StatusRunning, doc.Status)
	assert.Equal(t, 4, doc.CycleIndex)
	assert.Equal(t, 2, doc.ConsecutiveSuccesses)
	assert.Equal(t, os.Getpid(), doc.OwnerPID)
	assert.False(t, doc.Timestamp.IsZero())
}

func TestStateFileReflectionRoundTrip(t *testing.T) {
	s := NewStateFile(t.TempDir())

	require.NoError(t, s.WriteReflection(ReflectionSnapshot{CycleIndex: 2, ChosenTier: 1}))

	snap, err := s.ReadReflection()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 2, snap.CycleIndex)
	assert.Equal(t, 1, snap.ChosenTier)
}

func TestStateFileRewriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStateFile(dir)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.WriteCycleState(CycleState{Status: StatusRunning, CycleIndex: i}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cycle-state.json", entries[0].Name())
}

func TestStateFileCorruptDocumentErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cycle-state.json"), []byte("{not json"), 0o600))

	_, err := NewStateFile(dir).ReadCycleState()
	assert.Error(t, err)
}
