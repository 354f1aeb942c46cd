package shortcut

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/remedyd/internal/catalog"
	"github.com/fyrsmithlabs/remedyd/internal/probe"
)

func snapshot(facts map[string]string) probe.Snapshot {
	return probe.Snapshot{Facts: facts}
}

func TestDetectHighestPriorityWins(t *testing.T) {
	cat := catalog.Default()
	d := NewDetector(cat, nil)

	// Both rules match; the service rule has the higher priority.
	cand := d.Detect(snapshot(map[string]string{
		"service.state": "failed",
		"dpkg.state":    "interrupted-config",
	}))
	require.NotNil(t, cand)
	assert.Equal(t, "service", cand.Category)
	assert.Equal(t, "systemctl restart {target}", cand.Command)
}

func TestDetectPrefixMatch(t *testing.T) {
	cat := catalog.Default()
	d := NewDetector(cat, nil)

	cand := d.Detect(snapshot(map[string]string{"dpkg.state": "interrupted-install"}))
	require.NotNil(t, cand)
	assert.Equal(t, "package", cand.Category)
	assert.Equal(t, "dpkg --configure -a", cand.Command)
}

func TestDetectRequiresEveryPatternFact(t *testing.T) {
	cat := catalog.Default()
	cat.Shortcuts = []catalog.ShortcutRule{{
		Priority: 1,
		Match: map[string]string{
			"service.state": "failed",
			"disk.full":     "true",
		},
		Category: "service",
		Command:  "systemctl restart {target}",
		Location: "local",
		Tier:     "restart",
	}}
	d := NewDetector(cat, nil)

	assert.Nil(t, d.Detect(snapshot(map[string]string{"service.state": "failed"})))
	assert.NotNil(t, d.Detect(snapshot(map[string]string{
		"service.state": "failed",
		"disk.full":     "true",
	})))
}

func TestDetectNoMatchReturnsNil(t *testing.T) {
	d := NewDetector(catalog.Default(), nil)
	assert.Nil(t, d.Detect(snapshot(map[string]string{"service.state": "running"})))
	assert.Nil(t, d.Detect(snapshot(nil)))
}
