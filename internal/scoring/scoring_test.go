package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/remedyd/internal/catalog"
)

func testCandidate() catalog.Candidate {
	return catalog.Candidate{
		Category: "service",
		Command:  "systemctl restart {target}",
		Location: "local",
		Mutator:  catalog.Mutator{Name: "plain", Kind: catalog.MutatorNone},
		Tier:     catalog.Tier{Name: "restart", Level: 2},
	}
}

func TestWeightDefaultsToPrior(t *testing.T) {
	tbl := New()
	assert.Equal(t, DefaultWeight, tbl.Weight(catalog.DimCommand, "never-seen"))
}

func TestSetClampsToUnitInterval(t *testing.T) {
	tbl := New()

	tbl.Set(catalog.DimCommand, "a", 1.7)
	assert.Equal(t, 1.0, tbl.Weight(catalog.DimCommand, "a"))

	tbl.Set(catalog.DimCommand, "a", -0.3)
	assert.Equal(t, 0.0, tbl.Weight(catalog.DimCommand, "a"))
}

func TestAdjustClampsFromPrior(t *testing.T) {
	tbl := New()

	tbl.Adjust(catalog.DimLocation, "local", 0.2)
	assert.InDelta(t, 0.7, tbl.Weight(catalog.DimLocation, "local"), 1e-9)

	// Repeated rewards saturate at 1.
	for i := 0; i < 10; i++ {
		tbl.Adjust(catalog.DimLocation, "local", 0.2)
	}
	assert.Equal(t, 1.0, tbl.Weight(catalog.DimLocation, "local"))

	// Repeated penalties saturate at 0.
	for i := 0; i < 20; i++ {
		tbl.Adjust(catalog.DimLocation, "local", -0.3)
	}
	assert.Equal(t, 0.0, tbl.Weight(catalog.DimLocation, "local"))
}

func TestCandidateWeightIsDimensionProduct(t *testing.T) {
	tbl := New()
	cand := testCandidate()

	// All defaults: 0.5^5.
	assert.InDelta(t, 0.03125, tbl.CandidateWeight(cand), 1e-9)

	tbl.Set(catalog.DimCommand, cand.Command, 1.0)
	assert.InDelta(t, 0.0625, tbl.CandidateWeight(cand), 1e-9)
}

func TestBlacklistZeroesCandidateWeight(t *testing.T) {
	tbl := New()
	cand := testCandidate()

	require.False(t, tbl.Blacklisted(cand))
	tbl.Blacklist(cand)

	assert.True(t, tbl.Blacklisted(cand))
	assert.Equal(t, 0.0, tbl.CandidateWeight(cand))
	assert.Equal(t, 1, tbl.BlacklistSize())

	// Blacklisting is per-tuple: a sibling tuple is unaffected.
	other := cand
	other.Location = "container"
	assert.False(t, tbl.Blacklisted(other))
	assert.Greater(t, tbl.CandidateWeight(other), 0.0)
}

func TestSnapshotIsSortedAndExplicitOnly(t *testing.T) {
	tbl := New()
	tbl.Set(catalog.DimLocation, "local", 0.9)
	tbl.Set(catalog.DimCommand, "b", 0.2)
	tbl.Set(catalog.DimCommand, "a", 0.4)

	snap := tbl.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, Entry{Dimension: catalog.DimCommand, Value: "a", Weight: 0.4}, snap[0])
	assert.Equal(t, Entry{Dimension: catalog.DimCommand, Value: "b", Weight: 0.2}, snap[1])
	assert.Equal(t, Entry{Dimension: catalog.DimLocation, Value: "local", Weight: 0.9}, snap[2])
}
