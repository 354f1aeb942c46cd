package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
categories:
  - name: service
    commands:
      - "systemctl status {target}"
      - "systemctl restart {target}"
  - name: package
    commands:
      - "dpkg --configure -a"
locations: [local, container]
mutators:
  - name: plain
    kind: none
  - name: force
    kind: append_flag
    param: "--force"
tiers:
  - name: restart
    level: 2
  - name: observe
    level: 0
downgrade_level: 2
pre_step: protection-downgrade
shortcuts:
  - priority: 10
    match:
      service.state: failed
    category: service
    command: "systemctl restart {target}"
    location: local
    tier: restart
  - priority: 90
    match:
      dpkg.state: "interrupted*"
    category: package
    command: "dpkg --configure -a"
    location: local
    tier: observe
`

func TestParseNormalizesOrder(t *testing.T) {
	c, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	// Tiers sorted ascending by level regardless of file order.
	require.Len(t, c.Tiers, 2)
	assert.Equal(t, 0, c.Tiers[0].Level)
	assert.Equal(t, 2, c.Tiers[1].Level)

	// Shortcuts sorted by descending priority.
	require.Len(t, c.Shortcuts, 2)
	assert.Equal(t, 90, c.Shortcuts[0].Priority)
	assert.Equal(t, 10, c.Shortcuts[1].Priority)
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no categories", `
locations: [local]
mutators: [{name: plain, kind: none}]
tiers: [{name: t, level: 0}]
`},
		{"category without commands", `
categories: [{name: service}]
locations: [local]
mutators: [{name: plain, kind: none}]
tiers: [{name: t, level: 0}]
`},
		{"duplicate tier level", `
categories: [{name: service, commands: ["true"]}]
locations: [local]
mutators: [{name: plain, kind: none}]
tiers: [{name: a, level: 0}, {name: b, level: 0}]
`},
		{"unknown mutator kind", `
categories: [{name: service, commands: ["true"]}]
locations: [local]
mutators: [{name: odd, kind: quantum}]
tiers: [{name: t, level: 0}]
`},
		{"shortcut references unknown command", `
categories: [{name: service, commands: ["true"]}]
locations: [local]
mutators: [{name: plain, kind: none}]
tiers: [{name: t, level: 0}]
shortcuts:
  - priority: 1
    match: {x: y}
    category: service
    command: "false"
    location: local
    tier: t
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestSpaceSizeAndCandidates(t *testing.T) {
	c, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	// 3 commands x 2 locations x 2 mutators x 2 tiers.
	assert.Equal(t, 24, c.SpaceSize())

	pool := c.Candidates()
	require.Len(t, pool, 24)

	// Stable order: tiers ascending first.
	assert.Equal(t, 0, pool[0].Tier.Level)
	assert.Equal(t, 2, pool[len(pool)-1].Tier.Level)

	// Re-enumeration yields the identical sequence.
	again := c.Candidates()
	for i := range pool {
		assert.Equal(t, pool[i].Key(), again[i].Key())
	}
}

func TestRenderSubstitutesTargetThenMutates(t *testing.T) {
	c, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	cand := Candidate{
		Category: "service",
		Command:  "systemctl restart {target}",
		Location: "local",
		Mutator:  Mutator{Name: "force", Kind: MutatorAppendFlag, Param: "--force"},
		Tier:     Tier{Name: "restart", Level: 2},
	}
	assert.Equal(t, "systemctl restart nginx --force", c.Render(cand, "nginx"))
}

func TestPreStepForDowngradeTiers(t *testing.T) {
	c, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	low := Candidate{Tier: Tier{Name: "observe", Level: 0}}
	high := Candidate{Tier: Tier{Name: "restart", Level: 2}}

	assert.Equal(t, "", c.PreStepFor(low))
	assert.Equal(t, "protection-downgrade", c.PreStepFor(high))
}

func TestTierLevelNavigation(t *testing.T) {
	c, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, 0, c.MinTierLevel())
	assert.Equal(t, 2, c.MaxTierLevel())
	assert.Equal(t, 2, c.NextTierLevel(0))
	// Top tier has no successor.
	assert.Equal(t, 2, c.NextTierLevel(2))
}

func TestResolveShortcutDefaultsMutator(t *testing.T) {
	c, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	// Rule with priority 10 names no mutator; the first declared mutator
	// is used.
	cand := c.ResolveShortcut(c.Shortcuts[1])
	assert.Equal(t, "service", cand.Category)
	assert.Equal(t, "systemctl restart {target}", cand.Command)
	assert.Equal(t, "plain", cand.Mutator.Name)
	assert.Equal(t, 2, cand.Tier.Level)
}

func TestDefaultCatalogIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Greater(t, c.SpaceSize(), 0)
	assert.NotEmpty(t, c.Shortcuts)
}

func TestCandidateKeyAndValue(t *testing.T) {
	cand := Candidate{
		Category: "service",
		Command:  "systemctl restart {target}",
		Location: "local",
		Mutator:  Mutator{Name: "plain", Kind: MutatorNone},
		Tier:     Tier{Name: "restart", Level: 2},
	}
	assert.Equal(t, "service|systemctl restart {target}|local|plain|restart", cand.Key())
	assert.Equal(t, "service", cand.Value(DimCategory))
	assert.Equal(t, "plain", cand.Value(DimMutator))
	assert.Equal(t, "restart", cand.Value(DimTier))
}
