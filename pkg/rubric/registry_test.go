package rubric

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tier1Suite = `
rubric_suite:
  id: tier1_constitution
  tier: 1
  version: "1.0.0"
  purpose: Universal constitution checks
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
`

const tier2Suite = `
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
`

const tier3Suite = `
rubric_suite:
  id: tier3_task_benchmarks
  tier: 3
  version: "2.0.0"
  checks:
    - id: tier3.cohort_overlap_jaccard
      kind: overlap_metric
      severity: revise
      params:
        field: cohort_jaccard
        threshold: 0.7
`

func testSources() map[string][]byte {
	return map[string][]byte{
		"tier1.yaml": []byte(tier1Suite),
		"tier2.yaml": []byte(tier2Suite),
		"tier3.yaml": []byte(tier3Suite),
	}
}

func TestLoadFromBytes_Valid(t *testing.T) {
	reg, err := LoadFromBytes(testSources())
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", reg.Version(1))
	assert.Equal(t, "1.1.0", reg.Version(2))
	assert.Equal(t, "2.0.0", reg.Version(3))

	checks := reg.Checks(1)
	require.Len(t, checks, 2)
	assert.Equal(t, "tier1.determinism_required", checks[0].ID)
	assert.Equal(t, KindPresence, checks[0].Kind)
	assert.Equal(t, SeverityBlock, checks[0].Severity)

	versions := reg.Versions()
	assert.Equal(t, map[string]string{
		"tier1": "1.0.0",
		"tier2": "1.1.0",
		"tier3": "2.0.0",
	}, versions)
}

func TestLoadFromBytes_ChecksReturnsCopy(t *testing.T) {
	reg, err := LoadFromBytes(testSources())
	require.NoError(t, err)

	checks := reg.Checks(3)
	checks[0].ID = "mutated"

	again := reg.Checks(3)
	assert.Equal(t, "tier3.cohort_overlap_jaccard", again[0].ID)
}

func TestLoadFromBytes_MissingTier(t *testing.T) {
	sources := testSources()
	delete(sources, "tier2.yaml")

	_, err := LoadFromBytes(sources)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingTier))

	var le *LoadError
	require.True(t, errors.As(err, &le))
}

func TestLoadFromBytes_DuplicateTier(t *testing.T) {
	sources := testSources()
	sources["tier1_again.yaml"] = []byte(tier1Suite)

	_, err := LoadFromBytes(sources)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateTier))
}

func TestLoadFromBytes_UnsupportedKind(t *testing.T) {
	sources := testSources()
	sources["tier3.yaml"] = []byte(`
rubric_suite:
  id: tier3_task_benchmarks
  tier: 3
  version: "2.0.0"
  checks:
    - id: tier3.custom_script
      kind: shell_script
      severity: block
      params:
        cmd: "run.sh"
`)

	_, err := LoadFromBytes(sources)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedCheckKind))
	assert.Contains(t, err.Error(), "shell_script")
}

func TestLoadFromBytes_DuplicateCheckID(t *testing.T) {
	sources := testSources()
	sources["tier2.yaml"] = []byte(`
rubric_suite:
  id: tier2_clinical_invariants
  tier: 2
  version: "1.1.0"
  checks:
    - id: tier1.determinism_required
      kind: presence
      severity: block
      params:
        field: version
        source: artifact
`)

	_, err := LoadFromBytes(sources)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateCheckID))
}

func TestLoadFromBytes_InvalidVersion(t *testing.T) {
	sources := testSources()
	sources["tier1.yaml"] = []byte(`
rubric_suite:
  id: tier1_constitution
  tier: 1
  version: "not-a-version"
  checks:
    - id: tier1.determinism_required
      kind: presence
      severity: block
      params:
        field: version
        source: artifact
`)

	_, err := LoadFromBytes(sources)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidVersion))
}

func TestLoadFromBytes_MultipleInvalidTiersStableError(t *testing.T) {
	sources := testSources()
	sources["tier1.yaml"] = []byte(`
rubric_suite:
  id: tier1_constitution
  tier: 1
  version: "not-a-version"
  checks:
    - id: tier1.determinism_required
      kind: presence
      severity: block
      params:
        field: version
        source: artifact
`)
	sources["tier3.yaml"] = []byte(`
rubric_suite:
  id: tier3_task_benchmarks
  tier: 3
  version: "2.0.0"
  checks:
    - id: tier3.custom_script
      kind: shell_script
      severity: block
`)

	// Tiers are validated in ascending order, so the tier 1 version error
	// surfaces on every load, never the tier 3 kind error.
	for i := 0; i < 10; i++ {
		_, err := LoadFromBytes(sources)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidVersion))
		assert.False(t, errors.Is(err, ErrUnsupportedCheckKind))
	}
}

func TestLoadFromBytes_SchemaViolation(t *testing.T) {
	sources := testSources()
	// severity outside the enum is caught by the suite schema before any
	// registry-level validation runs.
	sources["tier1.yaml"] = []byte(`
rubric_suite:
  id: tier1_constitution
  tier: 1
  version: "1.0.0"
  checks:
    - id: tier1.determinism_required
      kind: presence
      severity: warn
`)

	_, err := LoadFromBytes(sources)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSuiteSchema))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"tier1", "tier2", "tier3"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tier1", "constitution.yaml"), []byte(tier1Suite), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tier2", "clinical.yaml"), []byte(tier2Suite), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tier3", "benchmarks.yaml"), []byte(tier3Suite), 0o644))
	// Non-suite files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# rubrics"), 0o644))

	reg, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", reg.Version(3))
}

func TestLoadDir_MissingDir(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)

	var le *LoadError
	assert.True(t, errors.As(err, &le))
}
