// Package catalog defines the combinatorial action space the engine
// samples from: categories of command templates, execution locations,
// mutators, and escalation tiers.
//
// A Candidate is one concrete point in the space: an immutable
// (category, command, location, mutator, tier) tuple. The space size is
// the product of the dimension cardinalities; the engine only ever
// samples it, never enumerates it exhaustively as a matter of contract.
//
// Catalogs are static but externally extensible: a YAML catalog file can
// replace or extend the built-in defaults, and each dimension has
// variable cardinality.
//
// # Escalation tiers
//
// Tiers are ordered by increasing aggressiveness. Tiers at or above the
// catalog's downgrade level compose a protection-downgrade pre-step
// annotation into the candidate's execution request; the engine itself
// never performs the downgrade; that is the executor's decision.
//
// # Mutators
//
// Mutators deterministically transform a rendered command: append a
// flag, wrap with retry, substitute a parameter, or add timeout+verbose.
// A retry mutator is the only mechanism by which a candidate may execute
// more than once per run.
package catalog
