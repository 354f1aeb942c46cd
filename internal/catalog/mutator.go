package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// MutatorKind selects the transformation a mutator applies.
type MutatorKind string

const (
	// MutatorNone leaves the command unchanged.
	MutatorNone MutatorKind = "none"
	// MutatorAppendFlag appends Param to the command line.
	MutatorAppendFlag MutatorKind = "append_flag"
	// MutatorWrapRetry wraps the command in a bounded retry loop. Param
	// is the attempt count. Candidates carrying a retry mutator are the
	// only ones eligible for re-selection after a failure.
	MutatorWrapRetry MutatorKind = "wrap_retry"
	// MutatorSubstitute replaces a parameter. Param is "old=new".
	MutatorSubstitute MutatorKind = "substitute_param"
	// MutatorTimeoutVerbose prefixes a timeout and appends a verbose
	// flag. Param is the timeout in seconds.
	MutatorTimeoutVerbose MutatorKind = "timeout_verbose"
)

// Mutator deterministically transforms a rendered command.
type Mutator struct {
	// Name identifies the mutator value on the mutator dimension.
	Name string `yaml:"name" json:"name"`

	// Kind selects the transformation.
	Kind MutatorKind `yaml:"kind" json:"kind"`

	// Param parameterizes the transformation; meaning depends on Kind.
	Param string `yaml:"param,omitempty" json:"param,omitempty"`
}

// Apply transforms cmd according to the mutator kind. Unknown kinds are
// treated as none so a newer catalog file degrades instead of failing.
func (m Mutator) Apply(cmd string) string {
	switch m.Kind {
	case MutatorAppendFlag:
		if m.Param == "" {
			return cmd
		}
		return cmd + " " + m.Param
	case MutatorWrapRetry:
		n := m.RetryCount()
		return fmt.Sprintf("for i in $(seq 1 %d); do %s && break; sleep 1; done", n, cmd)
	case MutatorSubstitute:
		old, new, ok := strings.Cut(m.Param, "=")
		if !ok || old == "" {
			return cmd
		}
		return strings.ReplaceAll(cmd, old, new)
	case MutatorTimeoutVerbose:
		secs := m.Param
		if secs == "" {
			secs = "30"
		}
		return fmt.Sprintf("timeout %s %s --verbose", secs, cmd)
	}
	return cmd
}

// Retry reports whether the mutator makes its candidate retry-eligible.
func (m Mutator) Retry() bool {
	return m.Kind == MutatorWrapRetry
}

// RetryCount returns the attempt budget a retry mutator encodes.
// Non-retry mutators and unparsable params count as a single attempt.
func (m Mutator) RetryCount() int {
	if m.Kind != MutatorWrapRetry {
		return 1
	}
	n, err := strconv.Atoi(m.Param)
	if err != nil || n < 1 {
		return 3
	}
	return n
}

func (m Mutator) validate() error {
	if m.Name == "" {
		return fmt.Errorf("mutator name is required")
	}
	switch m.Kind {
	case MutatorNone, MutatorAppendFlag, MutatorWrapRetry, MutatorSubstitute, MutatorTimeoutVerbose:
		return nil
	}
	return fmt.Errorf("mutator %q: unknown kind %q", m.Name, m.Kind)
}
