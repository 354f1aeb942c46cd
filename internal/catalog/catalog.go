package catalog

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ShortcutRule maps a probe fact pattern to a single direct-remedy
// candidate. Rules are evaluated in descending priority; the first match
// wins. Match values ending in '*' are prefix matches.
type ShortcutRule struct {
	// Priority orders rules; higher runs first.
	Priority int `yaml:"priority"`

	// Match is the fact pattern: every listed fact must be present and
	// match for the rule to fire.
	Match map[string]string `yaml:"match"`

	// Category, Command, Location, Mutator, Tier name the candidate the
	// rule produces. Command is a template that must exist in Category;
	// Mutator is optional and defaults to the no-op mutator.
	Category string `yaml:"category"`
	Command  string `yaml:"command"`
	Location string `yaml:"location"`
	Mutator  string `yaml:"mutator,omitempty"`
	Tier     string `yaml:"tier"`
}

// Catalog is the full definition of the search space plus the shortcut
// rule table. Catalogs are immutable after Load/Default; hot reload
// replaces the whole value.
type Catalog struct {
	Categories []Category     `yaml:"categories"`
	Locations  []string       `yaml:"locations"`
	Mutators   []Mutator      `yaml:"mutators"`
	Tiers      []Tier         `yaml:"tiers"`
	Shortcuts  []ShortcutRule `yaml:"shortcuts,omitempty"`

	// DowngradeLevel is the tier level at or above which candidates carry
	// a protection-downgrade pre-step annotation.
	DowngradeLevel int `yaml:"downgrade_level"`

	// PreStep is the annotation composed for downgrade-level tiers.
	PreStep string `yaml:"pre_step,omitempty"`
}

// Load reads and validates a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.normalize()
	return &c, nil
}

// Validate checks structural requirements: non-empty dimensions, unique
// names, tiers strictly ordered, shortcut references resolvable.
func (c *Catalog) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("catalog: at least one category is required")
	}
	seen := map[string]bool{}
	for _, cat := range c.Categories {
		if cat.Name == "" {
			return fmt.Errorf("catalog: category name is required")
		}
		if seen[cat.Name] {
			return fmt.Errorf("catalog: duplicate category %q", cat.Name)
		}
		seen[cat.Name] = true
		if len(cat.Commands) == 0 {
			return fmt.Errorf("catalog: category %q has no commands", cat.Name)
		}
	}
	if len(c.Locations) == 0 {
		return fmt.Errorf("catalog: at least one location is required")
	}
	if len(c.Mutators) == 0 {
		return fmt.Errorf("catalog: at least one mutator is required")
	}
	names := map[string]bool{}
	for _, m := range c.Mutators {
		if err := m.validate(); err != nil {
			return fmt.Errorf("catalog: %w", err)
		}
		if names[m.Name] {
			return fmt.Errorf("catalog: duplicate mutator %q", m.Name)
		}
		names[m.Name] = true
	}
	if len(c.Tiers) == 0 {
		return fmt.Errorf("catalog: at least one tier is required")
	}
	levels := map[int]bool{}
	for _, t := range c.Tiers {
		if t.Name == "" {
			return fmt.Errorf("catalog: tier name is required")
		}
		if levels[t.Level] {
			return fmt.Errorf("catalog: duplicate tier level %d", t.Level)
		}
		levels[t.Level] = true
	}
	for i, r := range c.Shortcuts {
		if len(r.Match) == 0 {
			return fmt.Errorf("catalog: shortcut %d has empty match", i)
		}
		if _, err := c.resolveRule(r); err != nil {
			return fmt.Errorf("catalog: shortcut %d: %w", i, err)
		}
	}
	return nil
}

// normalize sorts tiers by level and shortcut rules by priority so
// downstream iteration order is stable regardless of file order.
func (c *Catalog) normalize() {
	sort.Slice(c.Tiers, func(i, j int) bool { return c.Tiers[i].Level < c.Tiers[j].Level })
	sort.SliceStable(c.Shortcuts, func(i, j int) bool { return c.Shortcuts[i].Priority > c.Shortcuts[j].Priority })
}

// resolveRule materializes the candidate a shortcut rule names.
func (c *Catalog) resolveRule(r ShortcutRule) (Candidate, error) {
	var cand Candidate
	found := false
	for _, cat := range c.Categories {
		if cat.Name != r.Category {
			continue
		}
		for _, cmd := range cat.Commands {
			if cmd == r.Command {
				cand.Category = cat.Name
				cand.Command = cmd
				found = true
			}
		}
	}
	if !found {
		return cand, fmt.Errorf("unknown category/command %q/%q", r.Category, r.Command)
	}
	locOK := false
	for _, l := range c.Locations {
		if l == r.Location {
			locOK = true
		}
	}
	if !locOK {
		return cand, fmt.Errorf("unknown location %q", r.Location)
	}
	cand.Location = r.Location

	mName := r.Mutator
	if mName == "" {
		mName = c.Mutators[0].Name
	}
	mOK := false
	for _, m := range c.Mutators {
		if m.Name == mName {
			cand.Mutator = m
			mOK = true
		}
	}
	if !mOK {
		return cand, fmt.Errorf("unknown mutator %q", mName)
	}
	tOK := false
	for _, t := range c.Tiers {
		if t.Name == r.Tier {
			cand.Tier = t
			tOK = true
		}
	}
	if !tOK {
		return cand, fmt.Errorf("unknown tier %q", r.Tier)
	}
	return cand, nil
}

// ResolveShortcut materializes the candidate for a validated rule. It
// panics only if called with a rule that did not pass Validate.
func (c *Catalog) ResolveShortcut(r ShortcutRule) Candidate {
	cand, err := c.resolveRule(r)
	if err != nil {
		panic(fmt.Sprintf("catalog: unvalidated shortcut rule: %v", err))
	}
	return cand
}

// SpaceSize returns the product of all dimension cardinalities.
func (c *Catalog) SpaceSize() int {
	cmds := 0
	for _, cat := range c.Categories {
		cmds += len(cat.Commands)
	}
	return cmds * len(c.Locations) * len(c.Mutators) * len(c.Tiers)
}

// Candidates enumerates the space in stable order: tiers ascending, then
// categories, commands, locations, mutators in declared order. The
// planner materializes this pool once per run; the stable order is what
// makes seeded sampling reproducible.
func (c *Catalog) Candidates() []Candidate {
	out := make([]Candidate, 0, c.SpaceSize())
	for _, tier := range c.Tiers {
		for _, cat := range c.Categories {
			for _, cmd := range cat.Commands {
				for _, loc := range c.Locations {
					for _, m := range c.Mutators {
						out = append(out, Candidate{
							Category: cat.Name,
							Command:  cmd,
							Location: loc,
							Mutator:  m,
							Tier:     tier,
						})
					}
				}
			}
		}
	}
	return out
}

// Render produces the final command line for a candidate: the template
// with {target} substituted, then the mutator applied.
func (c *Catalog) Render(cand Candidate, target string) string {
	cmd := renderTemplate(cand.Command, target)
	return cand.Mutator.Apply(cmd)
}

// PreStepFor returns the protection-downgrade annotation for the
// candidate's tier, or "" below the downgrade level.
func (c *Catalog) PreStepFor(cand Candidate) string {
	if cand.Tier.Level < c.DowngradeLevel {
		return ""
	}
	if c.PreStep != "" {
		return c.PreStep
	}
	return "protection-downgrade"
}

// MinTierLevel returns the lowest tier level in the catalog.
func (c *Catalog) MinTierLevel() int {
	return c.Tiers[0].Level
}

// MaxTierLevel returns the highest tier level in the catalog.
func (c *Catalog) MaxTierLevel() int {
	return c.Tiers[len(c.Tiers)-1].Level
}

// NextTierLevel returns the next tier level above lvl, or lvl when
// already at the top. The ramp moves one tier at a time, never skipping.
func (c *Catalog) NextTierLevel(lvl int) int {
	for _, t := range c.Tiers {
		if t.Level > lvl {
			return t.Level
		}
	}
	return lvl
}
