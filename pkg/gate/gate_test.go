package gate_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Medtwin-ai/rubric-gates/pkg/artifact"
	"github.com/Medtwin-ai/rubric-gates/pkg/gate"
	"github.com/Medtwin-ai/rubric-gates/pkg/rubric"
)

// The fixture rubric mirrors the cohort-selection gate: Tier 1 constitution,
// Tier 2 clinical invariants, Tier 3 task benchmarks.
func testRegistry(t *testing.T) *rubric.Registry {
	t.Helper()
	reg, err := rubric.LoadFromBytes(map[string][]byte{
		"tier1.yaml": []byte(`
rubric_suite:
  id: tier1_constitution
  tier: 1
  version: "1.0.0"
  checks:
    - id: tier1.determinism_required
      kind: presence
      severity: block
      params:
        field: deterministic_executor
        source: artifact
    - id: tier1.audit_trace_complete
      kind: presence
      severity: block
      params:
        field: audit_trace_id
        source: provenance
`),
		"tier2.yaml": []byte(`
rubric_suite:
  id: tier2_clinical_invariants
  tier: 2
  version: "1.1.0"
  checks:
    - id: tier2.no_phi_in_artifacts
      kind: forbidden_terms
      severity: block
      params:
        field: inputs_summary
        terms: ["ssn", "patient name", "mrn"]
    - id: tier2.temporal_coherence
      kind: presence
      severity: revise
      params:
        field: index_time
`),
		"tier3.yaml": []byte(`
rubric_suite:
  id: tier3_task_benchmarks
  tier: 3
  version: "2.0.0"
  checks:
    - id: tier3.sql_executes
      kind: executor_ran
      severity: revise
      params:
        field: sql_executed
    - id: tier3.cohort_overlap_jaccard
      kind: overlap_metric
      severity: revise
      params:
        field: cohort_jaccard
        threshold: 0.7
`),
	})
	require.NoError(t, err)
	return reg
}

func cohortArtifact() artifact.Artifact {
	return artifact.Artifact{
		Type:                  "cohort_spec",
		Version:               "1.0.0",
		DeterministicExecutor: "duckdb+sql",
		Payload:               map[string]any{"inputs_summary": "aggregate labs and vitals"},
	}
}

func cleanContext() artifact.Context {
	return artifact.Context{
		Evidence: map[string]any{
			"sql_executed":   true,
			"cohort_jaccard": 0.85,
			"index_time":     "2024-06-01T00:00:00Z",
		},
		Provenance: map[string]any{"audit_trace_id": "trace_001"},
	}
}

func TestEvaluate_AllClean(t *testing.T) {
	reg := testRegistry(t)

	d := gate.Evaluate(cohortArtifact(), cleanContext(), reg)

	assert.Equal(t, gate.OutcomeApprove, d.Overall)
	require.Len(t, d.Tiers, 3)
	for _, tv := range d.Tiers {
		assert.Equal(t, gate.TierClean, tv.Status, "tier %d", tv.Tier)
	}
	assert.Equal(t, "all checks passed", d.Reason)
}

func TestEvaluate_Tier3ReviseKeepsEarlierTiers(t *testing.T) {
	reg := testRegistry(t)
	ctx := cleanContext()
	ctx.Evidence["cohort_jaccard"] = 0.5

	d := gate.Evaluate(cohortArtifact(), ctx, reg)

	assert.Equal(t, gate.OutcomeRevise, d.Overall)
	require.Len(t, d.Tiers, 3)
	assert.Equal(t, gate.TierClean, d.Tiers[0].Status)
	assert.Equal(t, gate.TierClean, d.Tiers[1].Status)
	assert.Equal(t, gate.TierRevise, d.Tiers[2].Status)
	assert.Contains(t, d.Reason, "tier3.cohort_overlap_jaccard")
}

func TestEvaluate_Tier1BlockShortCircuits(t *testing.T) {
	reg := testRegistry(t)
	art := cohortArtifact()
	art.DeterministicExecutor = ""

	d := gate.Evaluate(art, cleanContext(), reg)

	assert.Equal(t, gate.OutcomeBlock, d.Overall)
	// Tiers 2 and 3 are absent from the decision, not merely skipped.
	require.Len(t, d.Tiers, 1)
	assert.Equal(t, 1, d.Tiers[0].Tier)
	assert.Equal(t, gate.TierBlock, d.Tiers[0].Status)
	assert.Contains(t, d.Reason, "tier1.determinism_required")
}

func TestEvaluate_ReviseContinuesToLaterBlock(t *testing.T) {
	reg := testRegistry(t)
	ctx := cleanContext()
	// Tier 2 revise (missing index_time) must not hide the Tier 3 walk.
	delete(ctx.Evidence, "index_time")
	// A missing boolean evidence field at Tier 3 is an execution error,
	// escalated to block severity regardless of the declared revise severity.
	delete(ctx.Evidence, "sql_executed")

	d := gate.Evaluate(cohortArtifact(), ctx, reg)

	assert.Equal(t, gate.OutcomeBlock, d.Overall)
	require.Len(t, d.Tiers, 3)
	assert.Equal(t, gate.TierRevise, d.Tiers[1].Status)
	assert.Equal(t, gate.TierBlock, d.Tiers[2].Status)
}

func TestEvaluate_BlockPrecedesRevise(t *testing.T) {
	reg := testRegistry(t)
	ctx := cleanContext()
	delete(ctx.Evidence, "index_time") // tier 2 revise

	art := cohortArtifact()
	art.Payload["inputs_summary"] = "cohort keyed by Patient Name" // tier 2 block

	d := gate.Evaluate(art, ctx, reg)

	assert.Equal(t, gate.OutcomeBlock, d.Overall)
	require.Len(t, d.Tiers, 2)
	assert.Equal(t, gate.TierBlock, d.Tiers[1].Status)
}

func TestEvaluate_FailClosedOnMissingEvidence(t *testing.T) {
	reg := testRegistry(t)
	ctx := cleanContext()
	delete(ctx.Evidence, "cohort_jaccard")

	d := gate.Evaluate(cohortArtifact(), ctx, reg)

	// The overlap check is declared revise, but an unevaluable check is
	// refused, never approved.
	assert.Equal(t, gate.OutcomeBlock, d.Overall)
	last := d.Tiers[len(d.Tiers)-1]
	assert.Equal(t, gate.TierBlock, last.Status)

	var found bool
	for _, res := range last.Checks {
		if res.ID == "tier3.cohort_overlap_jaccard" {
			found = true
			assert.False(t, res.Pass)
			assert.True(t, res.ExecutionError)
		}
	}
	assert.True(t, found)
}

func TestEvaluate_Deterministic(t *testing.T) {
	reg := testRegistry(t)
	ctx := cleanContext()
	ctx.Evidence["cohort_jaccard"] = 0.5

	first, err := json.Marshal(gate.Evaluate(cohortArtifact(), ctx, reg))
	require.NoError(t, err)
	for i := 0; i < 25; i++ {
		again, err := json.Marshal(gate.Evaluate(cohortArtifact(), ctx, reg))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestEvaluate_BlockedDecisionNamesFailingChecks(t *testing.T) {
	reg := testRegistry(t)
	ctx := cleanContext()
	ctx.Provenance = nil

	d := gate.Evaluate(cohortArtifact(), ctx, reg)

	assert.Equal(t, gate.OutcomeBlock, d.Overall)
	assert.Contains(t, d.Reason, "tier1.audit_trace_complete")
}
