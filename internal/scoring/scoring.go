// Package scoring owns the Score Table: per-(dimension, value) sampling
// weights in [0,1] plus the per-run candidate blacklist.
//
// The table has exactly one writer, the Reflection Engine, and two
// readers: the Search Planner and the status server. All mutation goes
// through clamping setters, so the [0,1] invariant holds after every
// update by construction.
package scoring

import (
	"sort"
	"sync"

	"github.com/fyrsmithlabs/remedyd/internal/catalog"
)

// DefaultWeight is the prior for values never rewarded or penalized.
const DefaultWeight = 0.5

// Table maps (dimension, value) to a sampling weight in [0,1] and tracks
// blacklisted candidate tuples. The zero value is not usable; use New.
type Table struct {
	mu        sync.RWMutex
	weights   map[catalog.Dimension]map[string]float64
	blacklist map[string]bool
}

// New returns an empty table. Unset values read as DefaultWeight.
func New() *Table {
	return &Table{
		weights:   make(map[catalog.Dimension]map[string]float64),
		blacklist: make(map[string]bool),
	}
}

// Weight returns the weight for a dimension value.
func (t *Table) Weight(d catalog.Dimension, value string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.weightLocked(d, value)
}

func (t *Table) weightLocked(d catalog.Dimension, value string) float64 {
	if vals, ok := t.weights[d]; ok {
		if w, ok := vals[value]; ok {
			return w
		}
	}
	return DefaultWeight
}

// Set stores a weight, clamped to [0,1].
func (t *Table) Set(d catalog.Dimension, value string, w float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setLocked(d, value, w)
}

func (t *Table) setLocked(d catalog.Dimension, value string, w float64) {
	if w < 0 {
		w = 0
	}
	if w > 1 {
		w = 1
	}
	vals, ok := t.weights[d]
	if !ok {
		vals = make(map[string]float64)
		t.weights[d] = vals
	}
	vals[value] = w
}

// Adjust adds delta to the current weight, clamped to [0,1].
func (t *Table) Adjust(d catalog.Dimension, value string, delta float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setLocked(d, value, t.weightLocked(d, value)+delta)
}

// CandidateWeight returns the product of the tuple's dimension weights,
// or 0 for a blacklisted candidate.
func (t *Table) CandidateWeight(c catalog.Candidate) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.blacklist[c.Key()] {
		return 0
	}
	w := 1.0
	for _, d := range catalog.AllDimensions() {
		w *= t.weightLocked(d, c.Value(d))
	}
	return w
}

// Blacklist permanently zero-weights the candidate for the rest of the
// run. There is no un-blacklist: a missing capability will not appear
// mid-run.
func (t *Table) Blacklist(c catalog.Candidate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.blacklist[c.Key()] = true
}

// Blacklisted reports whether the candidate has been blacklisted.
func (t *Table) Blacklisted(c catalog.Candidate) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.blacklist[c.Key()]
}

// BlacklistSize returns the number of blacklisted tuples.
func (t *Table) BlacklistSize() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.blacklist)
}

// Entry is one (dimension, value, weight) row of a snapshot.
type Entry struct {
	Dimension catalog.Dimension `json:"dimension"`
	Value     string            `json:"value"`
	Weight    float64           `json:"weight"`
}

// Snapshot returns all explicitly set weights in stable order, for audit
// entries and the status API.
func (t *Table) Snapshot() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Entry
	for d, vals := range t.weights {
		for v, w := range vals {
			out = append(out, Entry{Dimension: d, Value: v, Weight: w})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Dimension != out[j].Dimension {
			return out[i].Dimension < out[j].Dimension
		}
		return out[i].Value < out[j].Value
	})
	return out
}
