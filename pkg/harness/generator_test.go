package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileGenerator(t *testing.T) {
	source := t.TempDir()
	samplesDir := filepath.Join(source, "samples")
	require.NoError(t, os.MkdirAll(samplesDir, 0o755))

	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(samplesDir, name), []byte(content), 0o644))
	}
	write("002.json", `{
		"artifact": {"type": "cohort_spec", "version": "1.0.0", "deterministic_executor": "duckdb+sql"},
		"context": {"sql_executed": true, "provenance": {"audit_trace_id": "trace_002"}}
	}`)
	write("001.json", `{
		"artifact": {"type": "cohort_spec", "version": "1.0.0"},
		"context": {"cohort_jaccard": 0.85}
	}`)
	write("notes.txt", "not a sample")

	gen := FileGenerator()
	samples, err := gen(DatasetSpec{ID: "mimic_iv_demo", Source: source})
	require.NoError(t, err)
	require.Len(t, samples, 2)

	// Sorted by filename, non-JSON files skipped.
	assert.Equal(t, 0.85, samples[0].Context.Evidence["cohort_jaccard"])
	assert.Equal(t, "duckdb+sql", samples[1].Artifact.DeterministicExecutor)
	assert.Equal(t, true, samples[1].Context.Evidence["sql_executed"])
	assert.Equal(t, "trace_002", samples[1].Context.Provenance["audit_trace_id"])
}

func TestFileGenerator_MissingDir(t *testing.T) {
	gen := FileGenerator()
	_, err := gen(DatasetSpec{ID: "absent", Source: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent")
}

func TestFileGenerator_MalformedSample(t *testing.T) {
	source := t.TempDir()
	samplesDir := filepath.Join(source, "samples")
	require.NoError(t, os.MkdirAll(samplesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(samplesDir, "bad.json"), []byte("{{"), 0o644))

	gen := FileGenerator()
	_, err := gen(DatasetSpec{ID: "ds", Source: source})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.json")
}
