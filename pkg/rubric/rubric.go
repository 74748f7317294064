// Package rubric models versioned check definitions grouped into ordered
// tiers, and loads them from human-authored YAML suites into an immutable
// in-process registry.
//
// Tier 1 is the universal constitution, Tier 2 holds domain invariants,
// Tier 3 holds task benchmarks. The ordering 1 → 2 → 3 is fixed.
package rubric

import (
	"errors"
	"fmt"
)

// Severity classifies how a check failure affects its tier verdict.
type Severity string

const (
	// SeverityBlock marks a failure that blocks the artifact outright.
	SeverityBlock Severity = "block"
	// SeverityRevise marks a failure that requests revision.
	SeverityRevise Severity = "revise"
)

// Kind enumerates the closed set of check kinds this process can execute.
// New kinds are added by extending this set, never by ad hoc scripting;
// that keeps evaluation deterministic and auditable.
type Kind string

const (
	// KindPresence checks that an evidence or artifact field is present
	// and non-empty.
	KindPresence Kind = "presence"
	// KindRange checks that a numeric evidence value lies within [min, max].
	KindRange Kind = "range"
	// KindExecutorRan checks that the artifact declares a deterministic
	// executor and that the named boolean evidence reports a completed run.
	KindExecutorRan Kind = "executor_ran"
	// KindOverlapMetric checks a pre-computed overlap scalar (e.g. cohort
	// Jaccard) against a threshold. The scalar comes from Context; the
	// executor never performs dataset I/O itself.
	KindOverlapMetric Kind = "overlap_metric"
	// KindSchema validates the artifact payload against an inline JSON Schema.
	KindSchema Kind = "schema"
	// KindForbiddenTerms checks that a text field contains none of the
	// configured markers (e.g. PHI indicators).
	KindForbiddenTerms Kind = "forbidden_terms"
)

// knownKinds is the dispatch allowlist consulted at load time.
var knownKinds = map[Kind]bool{
	KindPresence:       true,
	KindRange:          true,
	KindExecutorRan:    true,
	KindOverlapMetric:  true,
	KindSchema:         true,
	KindForbiddenTerms: true,
}

// KnownKind reports whether k is executable by this process.
func KnownKind(k Kind) bool {
	return knownKinds[k]
}

// Check is a single rubric check definition.
type Check struct {
	ID          string         `json:"id" yaml:"id"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Kind        Kind           `json:"kind" yaml:"kind"`
	Severity    Severity       `json:"severity" yaml:"severity"`
	Params      map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// Tier owns the checks for one stage of the gate. Order of checks within a
// tier does not affect the decision, only which checks ran.
type Tier struct {
	Number  int     `json:"tier" yaml:"tier"`
	ID      string  `json:"id" yaml:"id"`
	Version string  `json:"version" yaml:"version"`
	Purpose string  `json:"purpose,omitempty" yaml:"purpose,omitempty"`
	Checks  []Check `json:"checks" yaml:"checks"`
}

// TierNumbers is the fixed tier walk order.
var TierNumbers = []int{1, 2, 3}

// Sentinel reasons for registry construction failures. Wrapped inside
// *LoadError; match with errors.Is.
var (
	ErrUnsupportedCheckKind = errors.New("unsupported check kind")
	ErrDuplicateTier        = errors.New("duplicate tier")
	ErrMissingTier          = errors.New("missing tier")
	ErrInvalidTierNumber    = errors.New("tier number out of range")
	ErrDuplicateCheckID     = errors.New("duplicate check id")
	ErrInvalidVersion       = errors.New("invalid semantic version")
	ErrInvalidSeverity      = errors.New("invalid severity")
	ErrSuiteSchema          = errors.New("suite schema violation")
)

// LoadError reports that the registry could not be constructed. It is fatal:
// no evaluation is possible without a valid registry.
type LoadError struct {
	Source string // file path or logical source name
	Err    error
}

func (e *LoadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("rubric load: %v", e.Err)
	}
	return fmt.Sprintf("rubric load: %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
