// Package probe gathers read-only environment facts and derives gap
// records from them.
//
// The collector is a pure read: it never mutates the target and never
// returns an error to its caller. Sources that fail contribute nothing
// and are logged at low severity; a partial snapshot only degrades
// shortcut quality, it does not block the run.
package probe

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/pkg/contract"
)

// Snapshot is a read-only set of facts gathered at one point in time.
type Snapshot struct {
	// Facts maps fact name to value ("privilege.level" → "root").
	Facts map[string]string `json:"facts"`

	// Timestamp is when collection finished.
	Timestamp time.Time `json:"timestamp"`

	// Incomplete is set when at least one source failed, so consumers
	// can tell a sparse environment from a failed collection.
	Incomplete bool `json:"incomplete"`
}

// Get returns a fact value and whether it is present.
func (s Snapshot) Get(name string) (string, bool) {
	v, ok := s.Facts[name]
	return v, ok
}

// Collector aggregates fact sources into snapshots.
type Collector struct {
	sources []contract.FactSource
	logger  *zap.Logger
}

// NewCollector creates a collector over the given sources. A nil logger
// is replaced with a no-op.
func NewCollector(logger *zap.Logger, sources ...contract.FactSource) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{sources: sources, logger: logger}
}

// Collect gathers facts from every source. Later sources win on key
// collision. Per-source failures mark the snapshot incomplete; Collect
// itself never fails.
func (c *Collector) Collect(ctx context.Context) Snapshot {
	snap := Snapshot{
		Facts:     make(map[string]string),
		Timestamp: time.Now().UTC(),
	}
	for _, src := range c.sources {
		facts, err := src.Facts(ctx)
		if err != nil {
			snap.Incomplete = true
			c.logger.Debug("probe source failed",
				zap.String("source", src.Name()),
				zap.Error(err),
			)
			continue
		}
		for k, v := range facts {
			snap.Facts[k] = v
		}
	}
	c.logger.Debug("probe snapshot collected",
		zap.Int("facts", len(snap.Facts)),
		zap.Bool("incomplete", snap.Incomplete),
	)
	return snap
}
