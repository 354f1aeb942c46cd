package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CycleStateDoc is the persisted cycle-state artifact, atomically
// rewritten once per cycle. Safe to be absent on cold start.
type CycleStateDoc struct {
	Status               Status    `json:"status"`
	CycleIndex           int       `json:"cycle_index"`
	ConsecutiveSuccesses int       `json:"consecutive_successes"`
	Timestamp            time.Time `json:"timestamp"`
	OwnerPID             int       `json:"owner_pid"`
}

// ReflectionSnapshot is the persisted reflection/mutation artifact.
type ReflectionSnapshot struct {
	CycleIndex int       `json:"cycle_index"`
	ChosenTier int       `json:"chosen_tier"`
	Timestamp  time.Time `json:"timestamp"`
}

const (
	cycleStateName = "cycle-state.json"
	reflectionName = "reflection.json"
	lockName       = "run.lock"
)

// StateFile persists run artifacts under a state directory.
type StateFile struct {
	dir string
}

// NewStateFile creates a state-file handler for dir.
func NewStateFile(dir string) *StateFile {
	return &StateFile{dir: dir}
}

// WriteCycleState atomically rewrites the cycle-state document.
func (s *StateFile) WriteCycleState(state CycleState) error {
	return s.writeAtomic(cycleStateName, CycleStateDoc{
		Status:               state.Status,
		CycleIndex:           state.CycleIndex,
		ConsecutiveSuccesses: state.ConsecutiveSuccesses,
		Timestamp:            time.Now().UTC(),
		OwnerPID:             os.Getpid(),
	})
}

// ReadCycleState loads the persisted document. A missing file returns
// (nil, nil): cold start is not an error.
func (s *StateFile) ReadCycleState() (*CycleStateDoc, error) {
	var doc CycleStateDoc
	ok, err := s.readJSON(cycleStateName, &doc)
	if err != nil || !ok {
		return nil, err
	}
	return &doc, nil
}

// WriteReflection atomically rewrites the reflection snapshot.
func (s *StateFile) WriteReflection(snap ReflectionSnapshot) error {
	return s.writeAtomic(reflectionName, snap)
}

// ReadReflection loads the persisted snapshot, nil on cold start.
func (s *StateFile) ReadReflection() (*ReflectionSnapshot, error) {
	var snap ReflectionSnapshot
	ok, err := s.readJSON(reflectionName, &snap)
	if err != nil || !ok {
		return nil, err
	}
	return &snap, nil
}

// writeAtomic writes JSON to a temp file in the same directory and
// renames it over the target, so readers never see a torn document.
func (s *StateFile) writeAtomic(name string, v any) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("state dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

func (s *StateFile) readJSON(name string, v any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parse %s: %w", name, err)
	}
	return true, nil
}
