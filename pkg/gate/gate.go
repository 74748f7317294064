// Package gate implements the tiered rubric evaluation engine: it runs every
// check in tier order, aggregates per-tier verdicts, and applies the
// cross-tier gate policy to produce an approve / revise / block decision.
//
// Evaluation is a pure function of (artifact, context, registry). It performs
// no I/O, reads no clock, and draws no randomness, so identical inputs yield
// bit-identical decisions. Overlap-style evidence (SQL execution status,
// cohort Jaccard) is pre-computed upstream and injected via the Context.
package gate

import (
	"fmt"
	"strings"

	"github.com/Medtwin-ai/rubric-gates/pkg/artifact"
	"github.com/Medtwin-ai/rubric-gates/pkg/rubric"
)

// TierStatus is the derived verdict for one tier.
type TierStatus string

const (
	// TierClean means every check in the tier passed.
	TierClean TierStatus = "clean"
	// TierRevise means at least one revise-severity failure and no
	// block-severity failure.
	TierRevise TierStatus = "revise"
	// TierBlock means at least one block-severity failure.
	TierBlock TierStatus = "block"
)

// Outcome is the overall gate decision. Precedence is strict:
// block > revise > approve.
type Outcome string

const (
	OutcomeApprove Outcome = "approve"
	OutcomeRevise  Outcome = "revise"
	OutcomeBlock   Outcome = "block"
)

// CheckResult records one check execution, including the literal evidence
// values consulted so an auditor can reconstruct the judgment.
type CheckResult struct {
	ID       string         `json:"id"`
	Pass     bool           `json:"pass"`
	Reason   string         `json:"reason,omitempty"`
	Evidence map[string]any `json:"evidence,omitempty"`
	// ExecutionError marks a check that could not produce evidence (missing
	// or mistyped context field, bad parameters). Such failures are treated
	// as block-severity regardless of the check's declared severity: an
	// artifact that cannot be evaluated is refused, never approved.
	ExecutionError bool `json:"execution_error,omitempty"`
}

// TierVerdict is the aggregate result for one executed tier.
type TierVerdict struct {
	Tier   int           `json:"tier"`
	Status TierStatus    `json:"status"`
	Checks []CheckResult `json:"checks"`
}

// Decision is the final gate outcome. Tiers holds only the tiers that
// actually executed: a block short-circuits the walk, so later tiers are
// absent from the list, not merely marked skipped.
type Decision struct {
	Overall Outcome       `json:"overall"`
	Tiers   []TierVerdict `json:"tiers"`
	Reason  string        `json:"reason,omitempty"`
}

// Evaluate walks tiers 1 → 2 → 3 in fixed order, running every check in each
// tier and aggregating verdicts.
//
// A block verdict stops the walk immediately: a constitutional failure makes
// domain and task checks meaningless. A revise verdict continues to later
// tiers for diagnostic completeness (a task-level revision request must not
// hide a downstream block), but the overall decision stays revise unless a
// later tier blocks.
func Evaluate(art artifact.Artifact, ctx artifact.Context, reg *rubric.Registry) Decision {
	overall := OutcomeApprove
	tiers := make([]TierVerdict, 0, len(rubric.TierNumbers))

	for _, n := range rubric.TierNumbers {
		checks := reg.Checks(n)
		verdict := TierVerdict{
			Tier:   n,
			Status: TierClean,
			Checks: make([]CheckResult, 0, len(checks)),
		}

		for _, check := range checks {
			res := Run(check, art, ctx)
			verdict.Checks = append(verdict.Checks, res)
			if res.Pass {
				continue
			}
			severity := check.Severity
			if res.ExecutionError {
				severity = rubric.SeverityBlock
			}
			if severity == rubric.SeverityBlock {
				verdict.Status = TierBlock
			} else if verdict.Status != TierBlock {
				verdict.Status = TierRevise
			}
		}

		tiers = append(tiers, verdict)

		if verdict.Status == TierBlock {
			overall = OutcomeBlock
			break
		}
		if verdict.Status == TierRevise {
			overall = OutcomeRevise
		}
	}

	return Decision{
		Overall: overall,
		Tiers:   tiers,
		Reason:  aggregateReason(overall, tiers),
	}
}

// aggregateReason builds the human-readable summary from failing checks, in
// execution order so the text is as deterministic as the decision itself.
func aggregateReason(overall Outcome, tiers []TierVerdict) string {
	if overall == OutcomeApprove {
		return "all checks passed"
	}

	var parts []string
	for _, tv := range tiers {
		for _, res := range tv.Checks {
			if res.Pass {
				continue
			}
			part := fmt.Sprintf("tier %d: %s", tv.Tier, res.ID)
			if res.Reason != "" {
				part += " (" + res.Reason + ")"
			}
			parts = append(parts, part)
		}
	}
	return fmt.Sprintf("%s: %s", overall, strings.Join(parts, "; "))
}
