package dataset_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Medtwin-ai/rubric-gates/pkg/dataset"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestCreateVerify_Clean(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"samples/001.json": `{"artifact": {}}`,
		"samples/002.json": `{"artifact": {}}`,
		"README.md":        "demo dataset\n",
	})

	m, err := dataset.Create(dir, "mimic_iv_demo", "1.2.0", "local")
	require.NoError(t, err)

	assert.Equal(t, "mimic_iv_demo", m.DatasetID)
	assert.Equal(t, 3, m.TotalFiles)
	assert.Len(t, m.RootHash, 64)
	// Sorted by path, so ordering is stable run to run.
	assert.Equal(t, "README.md", m.Files[0].Path)
	assert.Equal(t, "samples/001.json", m.Files[1].Path)

	assert.Empty(t, m.Verify(dir))
}

func TestCreate_ExcludesManifestFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"samples/001.json": `{}`,
		"manifest.json":    `{"dataset_id": "stale"}`,
	})

	m, err := dataset.Create(dir, "d", "1.0.0", "")
	require.NoError(t, err)
	require.Equal(t, 1, m.TotalFiles)
	assert.Equal(t, "samples/001.json", m.Files[0].Path)
}

func TestVerify_DetectsTamperAndDeletion(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"samples/001.json": `{"cohort": "a"}`,
		"samples/002.json": `{"cohort": "b"}`,
	})

	m, err := dataset.Create(dir, "d", "1.0.0", "")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "samples", "001.json"), []byte(`{"cohort": "tampered"}`), 0o644))
	require.NoError(t, os.Remove(filepath.Join(dir, "samples", "002.json")))

	issues := m.Verify(dir)
	require.Len(t, issues, 3) // hash mismatch, size drift, missing file
	assert.Contains(t, issues[0], "hash mismatch")
	assert.Contains(t, issues[1], "size changed")
	assert.Contains(t, issues[2], "samples/002.json")
}

func TestVerify_DetectsManifestEdit(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.json": `{}`})

	m, err := dataset.Create(dir, "d", "1.0.0", "")
	require.NoError(t, err)

	// An attacker rewriting a file entry invalidates the root hash.
	m.Files[0].SHA256 = m.RootHash

	issues := m.Verify(dir)
	require.NotEmpty(t, issues)
	assert.Contains(t, issues[len(issues)-1], "root hash mismatch")
}

func TestManifest_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.json": `{}`})

	m, err := dataset.Create(dir, "d", "1.0.0", "synthetic")
	require.NoError(t, err)

	path := filepath.Join(dir, dataset.ManifestName)
	require.NoError(t, m.Save(path))

	loaded, err := dataset.LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m.RootHash, loaded.RootHash)
	assert.Equal(t, m.Files, loaded.Files)
	assert.Empty(t, loaded.Verify(dir))
}

func seedRegistry(t *testing.T, root string, datasetID string, versions ...string) {
	t.Helper()
	for _, v := range versions {
		dir := filepath.Join(root, datasetID, v)
		writeFiles(t, dir, map[string]string{"data.json": `{"v": "` + v + `"}`})
		m, err := dataset.Create(dir, datasetID, v, "")
		require.NoError(t, err)
		require.NoError(t, m.Save(filepath.Join(dir, dataset.ManifestName)))
	}
}

func TestFSRegistry_VersionsSemverOrder(t *testing.T) {
	root := t.TempDir()
	seedRegistry(t, root, "mimic_iv_demo", "1.10.0", "1.2.0", "1.9.1")
	// Non-semver directories are ignored.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "mimic_iv_demo", "scratch"), 0o755))

	reg := dataset.NewFSRegistry(root)
	versions, err := reg.Versions("mimic_iv_demo")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.2.0", "1.9.1", "1.10.0"}, versions)
}

func TestFSRegistry_Latest(t *testing.T) {
	root := t.TempDir()
	seedRegistry(t, root, "eicu_subset", "0.3.0", "0.10.0")

	reg := dataset.NewFSRegistry(root)
	m, err := reg.Latest("eicu_subset")
	require.NoError(t, err)
	assert.Equal(t, "0.10.0", m.Version)

	got, err := reg.Get("eicu_subset", "0.3.0")
	require.NoError(t, err)
	assert.Equal(t, "0.3.0", got.Version)

	assert.Equal(t, filepath.Join(root, "eicu_subset", "0.3.0"), reg.Dir("eicu_subset", "0.3.0"))
}

func TestFSRegistry_UnknownDataset(t *testing.T) {
	reg := dataset.NewFSRegistry(t.TempDir())

	versions, err := reg.Versions("nope")
	require.NoError(t, err)
	assert.Empty(t, versions)

	_, err = reg.Latest("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
