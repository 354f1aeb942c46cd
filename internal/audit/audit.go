// Package audit writes the append-only structured trail of engine
// events.
//
// Every outcome record and every state transition produces exactly one
// entry. The trail is the sole externally consumed artifact for post-hoc
// analysis: entries are JSONL so external tooling can stream them
// without loading the whole file.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/remedyd/internal/catalog"
	"github.com/fyrsmithlabs/remedyd/internal/scoring"
)

// Severity grades an audit entry.
type Severity string

const (
	SeverityDebug Severity = "debug"
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Entry is one audit record.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	Severity  Severity  `json:"severity"`
	Component string    `json:"component"`
	Message   string    `json:"message"`

	// RunID is the run-scoped correlation id shared by all entries of
	// one run.
	RunID string `json:"run_id"`

	CycleIndex int                `json:"cycle_index"`
	Candidate  *catalog.Candidate `json:"candidate,omitempty"`
	Outcome    string             `json:"outcome,omitempty"`
	Scores     []scoring.Entry    `json:"scores,omitempty"`
	Context    map[string]any     `json:"context,omitempty"`
}

// Trail is an append-only audit sink. Safe for use from the engine loop
// and the background monitor.
type Trail struct {
	mu    sync.Mutex
	w     io.Writer
	c     io.Closer
	runID string
	count int
}

// NewRunID returns a fresh correlation id.
func NewRunID() string { return uuid.NewString() }

// Open appends to the JSONL file at path, creating it if needed.
func Open(path, runID string) (*Trail, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit trail: %w", err)
	}
	return &Trail{w: f, c: f, runID: runID}, nil
}

// NewWriter wraps an arbitrary writer; used by tests and by embedders
// that route the trail elsewhere.
func NewWriter(w io.Writer, runID string) *Trail {
	return &Trail{w: w, runID: runID}
}

// RunID returns the trail's correlation id.
func (t *Trail) RunID() string { return t.runID }

// Count returns how many entries have been appended.
func (t *Trail) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Append writes one entry. The timestamp and run id are filled in when
// absent. Append never fails the caller: a write error is reported on
// stderr and the engine continues; losing an audit line must not abort
// a remediation run.
func (t *Trail) Append(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.RunID == "" {
		e.RunID = t.runID
	}
	data, err := json.Marshal(e)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit: marshal entry: %v\n", err)
		return
	}
	if _, err := t.w.Write(append(data, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "audit: write entry: %v\n", err)
		return
	}
	t.count++
}

// Close closes the underlying file when the trail owns one.
func (t *Trail) Close() error {
	if t.c == nil {
		return nil
	}
	return t.c.Close()
}
