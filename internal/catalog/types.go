package catalog

import (
	"fmt"
	"strings"
)

// Dimension names a search axis. Score Table weights are keyed by
// (dimension, value).
type Dimension string

const (
	DimCategory Dimension = "category"
	DimCommand  Dimension = "command"
	DimLocation Dimension = "location"
	DimMutator  Dimension = "mutator"
	DimTier     Dimension = "tier"
)

// AllDimensions returns the search axes in canonical order.
func AllDimensions() []Dimension {
	return []Dimension{DimCategory, DimCommand, DimLocation, DimMutator, DimTier}
}

// Category groups an ordered list of command templates under a name.
type Category struct {
	// Name identifies the category ("service", "package", ...).
	Name string `yaml:"name"`

	// Commands are ordered command templates. Templates may contain the
	// {target} placeholder, substituted at render time.
	Commands []string `yaml:"commands"`
}

// Tier is one escalation level. Higher levels are more aggressive.
type Tier struct {
	// Name is a human-readable label ("observe", "restart", ...).
	Name string `yaml:"name"`

	// Level orders tiers; the ramp moves one level at a time.
	Level int `yaml:"level"`
}

// Candidate is one concrete point in the combinatorial space. It is
// immutable; identity is the tuple itself.
type Candidate struct {
	Category string  `json:"category"`
	Command  string  `json:"command"`
	Location string  `json:"location"`
	Mutator  Mutator `json:"mutator"`
	Tier     Tier    `json:"tier"`
}

// Key returns the stable identity string for the tuple.
func (c Candidate) Key() string {
	return strings.Join([]string{
		c.Category, c.Command, c.Location, c.Mutator.Name, c.Tier.Name,
	}, "|")
}

// Value returns the candidate's value on the given dimension, as keyed in
// the Score Table.
func (c Candidate) Value(d Dimension) string {
	switch d {
	case DimCategory:
		return c.Category
	case DimCommand:
		return c.Command
	case DimLocation:
		return c.Location
	case DimMutator:
		return c.Mutator.Name
	case DimTier:
		return c.Tier.Name
	}
	return ""
}

// String renders a short human-readable form for logs.
func (c Candidate) String() string {
	return fmt.Sprintf("%s/%s@%s[%s,t%d]", c.Category, c.Command, c.Location, c.Mutator.Name, c.Tier.Level)
}
