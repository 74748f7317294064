package harness

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Medtwin-ai/rubric-gates/pkg/artifact"
)

// sampleFile is the wire form an external artifact generator writes: one
// artifact plus the flat context carrying its execution evidence.
type sampleFile struct {
	Artifact artifact.Artifact `json:"artifact"`
	Context  json.RawMessage   `json:"context"`
}

// FileGenerator returns a Generator that reads pre-generated samples from
// <spec.Source>/samples/*.json. Artifact generation itself is an external
// collaborator; this generator only consumes its captured output, keeping all
// dataset I/O outside the evaluation core.
func FileGenerator() Generator {
	return func(spec DatasetSpec) ([]Sample, error) {
		dir := filepath.Join(spec.Source, "samples")
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read samples for %s: %w", spec.ID, err)
		}

		var paths []string
		for _, entry := range entries {
			if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
				paths = append(paths, filepath.Join(dir, entry.Name()))
			}
		}
		sort.Strings(paths)

		samples := make([]Sample, 0, len(paths))
		for _, path := range paths {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read sample %s: %w", path, err)
			}
			var sf sampleFile
			if err := json.Unmarshal(data, &sf); err != nil {
				return nil, fmt.Errorf("parse sample %s: %w", path, err)
			}
			ctx := artifact.Context{}
			if len(sf.Context) > 0 {
				ctx, err = artifact.ParseContext(sf.Context)
				if err != nil {
					return nil, fmt.Errorf("parse sample %s: %w", path, err)
				}
			}
			samples = append(samples, Sample{Artifact: sf.Artifact, Context: ctx})
		}
		return samples, nil
	}
}
