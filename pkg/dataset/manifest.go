// Package dataset provides integrity manifests for benchmark datasets and a
// versioned filesystem registry for locating them.
//
// A manifest pins every file's SHA-256 plus a root hash over the whole file
// list, so a run manifest referencing (dataset id, version, root hash) is
// enough to prove later which bytes an evaluation consumed.
package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Medtwin-ai/rubric-gates/pkg/canonical"
)

// FileInfo records one file's identity within a dataset.
type FileInfo struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	SHA256    string `json:"sha256"`
}

// Manifest is the persisted dataset integrity record.
type Manifest struct {
	DatasetID      string     `json:"dataset_id"`
	Version        string     `json:"version"`
	CreatedAt      string     `json:"created_at"`
	Source         string     `json:"source,omitempty"`
	TotalFiles     int        `json:"total_files"`
	TotalSizeBytes int64      `json:"total_size_bytes"`
	RootHash       string     `json:"root_hash"`
	Files          []FileInfo `json:"files"`
}

// ManifestName is the conventional manifest filename inside a dataset dir.
const ManifestName = "manifest.json"

// Create scans dir, hashes every regular file, and returns the manifest.
// File order is sorted by path so the root hash is reproducible.
func Create(dir, datasetID, version, source string) (*Manifest, error) {
	var files []FileInfo
	var totalSize int64

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() == ManifestName {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		sum, size, err := hashFile(path)
		if err != nil {
			return err
		}
		files = append(files, FileInfo{
			Path:      filepath.ToSlash(rel),
			SizeBytes: size,
			SHA256:    sum,
		})
		totalSize += size
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: scan %s: %w", dir, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	root, err := rootHash(files)
	if err != nil {
		return nil, err
	}

	return &Manifest{
		DatasetID:      datasetID,
		Version:        version,
		CreatedAt:      canonical.FormatTime(time.Now()),
		Source:         source,
		TotalFiles:     len(files),
		TotalSizeBytes: totalSize,
		RootHash:       root,
		Files:          files,
	}, nil
}

// Verify re-hashes the files under dir and reports every divergence from the
// manifest: changed content, missing files, size drift.
func (m *Manifest) Verify(dir string) []string {
	var issues []string
	for _, f := range m.Files {
		path := filepath.Join(dir, filepath.FromSlash(f.Path))
		sum, size, err := hashFile(path)
		if err != nil {
			issues = append(issues, fmt.Sprintf("%s: %v", f.Path, err))
			continue
		}
		if sum != f.SHA256 {
			issues = append(issues, fmt.Sprintf("%s: hash mismatch: expected %s, got %s", f.Path, f.SHA256, sum))
		}
		if size != f.SizeBytes {
			issues = append(issues, fmt.Sprintf("%s: size changed: expected %d, got %d", f.Path, f.SizeBytes, size))
		}
	}

	root, err := rootHash(m.Files)
	if err != nil {
		issues = append(issues, fmt.Sprintf("root hash: %v", err))
	} else if root != m.RootHash {
		issues = append(issues, fmt.Sprintf("root hash mismatch: expected %s, got %s", m.RootHash, root))
	}
	return issues
}

// Save writes the manifest as indented JSON.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("dataset: marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("dataset: write manifest: %w", err)
	}
	return nil
}

// LoadManifest reads a manifest from a JSON file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("dataset: parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// rootHash covers the canonical file list (paths + hashes + sizes).
func rootHash(files []FileInfo) (string, error) {
	return canonical.Hash(files)
}

func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
