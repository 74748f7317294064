package rubric

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// Registry is the immutable, versioned collection of check definitions,
// grouped by tier. Constructed once (per process or per rubric version) and
// read-only afterwards, so concurrent reads need no synchronization.
//
// Registries are plain values passed by reference, never process-wide
// singletons; issuer and verifier may hold different versions side by side,
// which is what makes decision-drift detection possible.
type Registry struct {
	tiers map[int]Tier
}

func newRegistry(tiers map[int]Tier) (*Registry, error) {
	// Validate in tier order so the surfaced error is stable when more
	// than one suite is invalid.
	numbers := make([]int, 0, len(tiers))
	for n := range tiers {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	seen := make(map[string]int)
	for _, n := range numbers {
		tier := tiers[n]
		if n < 1 || n > 3 {
			return nil, &LoadError{Source: tier.ID, Err: fmt.Errorf("%w: %d", ErrInvalidTierNumber, n)}
		}
		if _, err := semver.NewVersion(tier.Version); err != nil {
			return nil, &LoadError{Source: tier.ID, Err: fmt.Errorf("%w: tier %d version %q", ErrInvalidVersion, n, tier.Version)}
		}
		for _, check := range tier.Checks {
			if !KnownKind(check.Kind) {
				return nil, &LoadError{Source: tier.ID, Err: fmt.Errorf("%w: %q (check %s)", ErrUnsupportedCheckKind, check.Kind, check.ID)}
			}
			if check.Severity != SeverityBlock && check.Severity != SeverityRevise {
				return nil, &LoadError{Source: tier.ID, Err: fmt.Errorf("%w: %q (check %s)", ErrInvalidSeverity, check.Severity, check.ID)}
			}
			if prev, dup := seen[check.ID]; dup {
				return nil, &LoadError{Source: tier.ID, Err: fmt.Errorf("%w: %s (tiers %d and %d)", ErrDuplicateCheckID, check.ID, prev, n)}
			}
			seen[check.ID] = n
		}
	}
	for _, n := range TierNumbers {
		if _, ok := tiers[n]; !ok {
			return nil, &LoadError{Err: fmt.Errorf("%w: tier %d", ErrMissingTier, n)}
		}
	}

	return &Registry{tiers: tiers}, nil
}

// Checks returns a copy of the check definitions for the given tier.
func (r *Registry) Checks(tier int) []Check {
	t, ok := r.tiers[tier]
	if !ok {
		return nil
	}
	out := make([]Check, len(t.Checks))
	copy(out, t.Checks)
	return out
}

// Tier returns the full tier definition.
func (r *Registry) Tier(tier int) (Tier, bool) {
	t, ok := r.tiers[tier]
	return t, ok
}

// Version returns the semantic version of the suite backing the given tier.
func (r *Registry) Version(tier int) string {
	return r.tiers[tier].Version
}

// Versions returns the per-tier version map in the shape certificates embed.
func (r *Registry) Versions() map[string]string {
	out := make(map[string]string, len(TierNumbers))
	for _, n := range TierNumbers {
		out[fmt.Sprintf("tier%d", n)] = r.tiers[n].Version
	}
	return out
}
