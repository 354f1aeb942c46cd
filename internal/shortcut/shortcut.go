// Package shortcut matches probe facts against the catalog's prioritized
// direct-remedy table.
//
// A shortcut is a pure optimization: it yields at most one high-prior
// candidate, and the absence of a match never blocks the fallback to
// full search.
package shortcut

import (
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/catalog"
	"github.com/fyrsmithlabs/remedyd/internal/probe"
)

// Detector evaluates shortcut rules against snapshots.
type Detector struct {
	cat    *catalog.Catalog
	logger *zap.Logger
}

// NewDetector creates a detector over the catalog's rule table.
func NewDetector(cat *catalog.Catalog, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{cat: cat, logger: logger}
}

// Detect returns the candidate of the highest-priority matching rule, or
// nil when no rule matches. Rules are pre-sorted by the catalog.
func (d *Detector) Detect(snap probe.Snapshot) *catalog.Candidate {
	for _, rule := range d.cat.Shortcuts {
		if !matches(rule, snap) {
			continue
		}
		cand := d.cat.ResolveShortcut(rule)
		d.logger.Debug("shortcut matched",
			zap.Int("priority", rule.Priority),
			zap.String("candidate", cand.String()),
		)
		return &cand
	}
	return nil
}

// matches requires every pattern fact to be present and to match.
// Pattern values ending in '*' are prefix matches.
func matches(rule catalog.ShortcutRule, snap probe.Snapshot) bool {
	for fact, want := range rule.Match {
		actual, ok := snap.Get(fact)
		if !ok {
			return false
		}
		if prefix, isPrefix := strings.CutSuffix(want, "*"); isPrefix {
			if !strings.HasPrefix(actual, prefix) {
				return false
			}
			continue
		}
		if actual != want {
			return false
		}
	}
	return true
}
