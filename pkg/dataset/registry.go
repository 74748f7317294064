package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// FSRegistry locates dataset manifests on a filesystem laid out as
// <root>/<dataset_id>/<version>/manifest.json.
type FSRegistry struct {
	rootDir string
}

// NewFSRegistry creates a registry rooted at rootDir.
func NewFSRegistry(rootDir string) *FSRegistry {
	return &FSRegistry{rootDir: rootDir}
}

// Versions returns the available versions for a dataset, semver-ascending.
// Directories that do not parse as semantic versions are skipped.
func (r *FSRegistry) Versions(datasetID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.rootDir, datasetID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("dataset: list versions for %s: %w", datasetID, err)
	}

	parsed := make([]*semver.Version, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		v, err := semver.NewVersion(entry.Name())
		if err != nil {
			continue
		}
		parsed = append(parsed, v)
	}
	sort.Sort(semver.Collection(parsed))

	out := make([]string, len(parsed))
	for i, v := range parsed {
		out[i] = v.Original()
	}
	return out, nil
}

// Latest returns the manifest of the highest available version.
func (r *FSRegistry) Latest(datasetID string) (*Manifest, error) {
	versions, err := r.Versions(datasetID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("dataset: not found: %s", datasetID)
	}
	return r.Get(datasetID, versions[len(versions)-1])
}

// Get returns the manifest for an exact (dataset, version) pair.
func (r *FSRegistry) Get(datasetID, version string) (*Manifest, error) {
	return LoadManifest(filepath.Join(r.rootDir, datasetID, version, ManifestName))
}

// Dir returns the on-disk directory holding a dataset version.
func (r *FSRegistry) Dir(datasetID, version string) string {
	return filepath.Join(r.rootDir, datasetID, version)
}
