package probe

import (
	"sort"
	"time"
)

// GapKind classifies how a fact deviates from its expectation.
type GapKind string

const (
	// GapMissing means the expected fact is absent from the snapshot.
	GapMissing GapKind = "missing"
	// GapMismatch means the fact is present with the wrong value.
	GapMismatch GapKind = "mismatch"
)

// Gap is one detected deviation. Gaps are ephemeral: they are regenerated
// on every analysis pass and never persisted.
type Gap struct {
	Kind       GapKind   `json:"kind"`
	Target     string    `json:"target"`
	Expected   string    `json:"expected"`
	Actual     string    `json:"actual,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
}

// Expectation states the required value for one fact. An empty Value
// requires only presence.
type Expectation struct {
	Fact  string `yaml:"fact"`
	Value string `yaml:"value,omitempty"`
}

// AnalyzeGaps compares a snapshot against the expectation table and
// returns the deviations in fact-name order.
func AnalyzeGaps(snap Snapshot, expectations []Expectation) []Gap {
	now := time.Now().UTC()
	var gaps []Gap
	for _, e := range expectations {
		actual, ok := snap.Get(e.Fact)
		if !ok {
			gaps = append(gaps, Gap{
				Kind:       GapMissing,
				Target:     e.Fact,
				Expected:   e.Value,
				DetectedAt: now,
			})
			continue
		}
		if e.Value != "" && actual != e.Value {
			gaps = append(gaps, Gap{
				Kind:       GapMismatch,
				Target:     e.Fact,
				Expected:   e.Value,
				Actual:     actual,
				DetectedAt: now,
			})
		}
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i].Target < gaps[j].Target })
	return gaps
}
