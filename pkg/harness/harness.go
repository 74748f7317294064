// Package harness orchestrates benchmark runs: datasets × artifacts fed
// through the gate evaluator, with certificates, a run manifest, and
// aggregate outcome statistics written per run.
//
// The harness is orchestration only. Anything requiring I/O against a
// dataset (SQL execution, cohort materialization, overlap computation)
// happens in the caller-supplied generator, which injects the results into
// each sample's Context as already-computed evidence.
package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Medtwin-ai/rubric-gates/pkg/artifact"
	"github.com/Medtwin-ai/rubric-gates/pkg/canonical"
	"github.com/Medtwin-ai/rubric-gates/pkg/certificate"
	"github.com/Medtwin-ai/rubric-gates/pkg/gate"
	"github.com/Medtwin-ai/rubric-gates/pkg/rubric"
)

// DatasetSpec identifies one benchmark dataset.
type DatasetSpec struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Source  string `json:"source" yaml:"source"`
	Version string `json:"version" yaml:"version"`
	Hash    string `json:"hash,omitempty" yaml:"hash,omitempty"`
	Adapter string `json:"adapter,omitempty" yaml:"adapter,omitempty"`
}

// RunConfig configures a benchmark run.
type RunConfig struct {
	RunID     string        `yaml:"run_id"`
	Datasets  []DatasetSpec `yaml:"datasets"`
	RubricDir string        `yaml:"rubric_dir"`
	OutputDir string        `yaml:"output_dir"`
	Seed      int64         `yaml:"seed"`
	Parallel  bool          `yaml:"parallel"`
}

// Sample pairs an artifact with the evaluation context its generator produced.
type Sample struct {
	Artifact artifact.Artifact
	Context  artifact.Context
}

// Generator produces the samples to evaluate for one dataset. It is the only
// place dataset I/O may happen.
type Generator func(spec DatasetSpec) ([]Sample, error)

// DatasetResult aggregates outcomes for one dataset.
type DatasetResult struct {
	DatasetID       string  `json:"dataset_id"`
	ArtifactCount   int     `json:"artifact_count"`
	ApproveCount    int     `json:"approve_count"`
	ReviseCount     int     `json:"revise_count"`
	BlockCount      int     `json:"block_count"`
	DurationSeconds float64 `json:"duration_seconds"`

	certs []*certificate.Certificate
}

// Result is the complete benchmark outcome.
type Result struct {
	RunID          string            `json:"run_id"`
	StartedAt      string            `json:"started_at"`
	CompletedAt    string            `json:"completed_at"`
	RubricVersions map[string]string `json:"rubric_versions"`
	Datasets       []DatasetResult   `json:"datasets"`
	Summary        Summary           `json:"summary"`
}

// Summary holds run-level rates.
type Summary struct {
	TotalDatasets  int     `json:"total_datasets"`
	TotalArtifacts int     `json:"total_artifacts"`
	ApproveRate    float64 `json:"approve_rate"`
	ReviseRate     float64 `json:"revise_rate"`
	BlockRate      float64 `json:"block_rate"`
}

// Harness runs benchmark evaluations over an immutable registry. Datasets may
// be evaluated in parallel; each evaluation call owns its own artifact,
// context, and decision, and tiers stay strictly sequential inside a call.
type Harness struct {
	cfg      RunConfig
	registry *rubric.Registry
	builder  *certificate.Builder
	logger   *slog.Logger
	store    *Store
	clock    func() time.Time
}

// New creates a harness for the given config and registry.
func New(cfg RunConfig, reg *rubric.Registry) *Harness {
	if cfg.RunID == "" {
		cfg.RunID = "run_" + uuid.NewString()[:8]
	}
	return &Harness{
		cfg:      cfg,
		registry: reg,
		builder:  certificate.NewBuilder(),
		logger:   slog.Default(),
		clock:    time.Now,
	}
}

// WithLogger overrides the progress logger.
func (h *Harness) WithLogger(logger *slog.Logger) *Harness {
	h.logger = logger
	return h
}

// WithStore attaches a certificate store the harness indexes into.
func (h *Harness) WithStore(store *Store) *Harness {
	h.store = store
	return h
}

// WithClock overrides the run clock for deterministic tests.
func (h *Harness) WithClock(clock func() time.Time) *Harness {
	h.clock = clock
	return h
}

// Run executes the benchmark: every dataset's samples through the evaluator,
// certificates built and persisted, stats aggregated, run manifest and
// summary written under OutputDir/<run_id>.
func (h *Harness) Run(ctx context.Context, gen Generator) (*Result, error) {
	startedAt := h.clock()
	runDir := filepath.Join(h.cfg.OutputDir, h.cfg.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("harness: create run dir: %w", err)
	}

	h.logger.Info("benchmark run starting",
		"run_id", h.cfg.RunID,
		"datasets", len(h.cfg.Datasets),
		"parallel", h.cfg.Parallel)

	results := make([]DatasetResult, len(h.cfg.Datasets))

	if h.cfg.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i, spec := range h.cfg.Datasets {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, err := h.runDataset(spec, gen)
				if err != nil {
					return err
				}
				results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, spec := range h.cfg.Datasets {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			res, err := h.runDataset(spec, gen)
			if err != nil {
				return nil, err
			}
			results[i] = res
		}
	}

	result := &Result{
		RunID:          h.cfg.RunID,
		StartedAt:      canonical.FormatTime(startedAt),
		CompletedAt:    canonical.FormatTime(h.clock()),
		RubricVersions: h.registry.Versions(),
		Datasets:       results,
		Summary:        summarize(results),
	}

	if err := h.save(runDir, result); err != nil {
		return nil, err
	}

	h.logger.Info("benchmark run complete",
		"run_id", h.cfg.RunID,
		"artifacts", result.Summary.TotalArtifacts,
		"approve_rate", result.Summary.ApproveRate)
	return result, nil
}

func (h *Harness) runDataset(spec DatasetSpec, gen Generator) (DatasetResult, error) {
	start := h.clock()
	res := DatasetResult{DatasetID: spec.ID}

	samples, err := gen(spec)
	if err != nil {
		return res, fmt.Errorf("harness: generate artifacts for %s: %w", spec.ID, err)
	}

	for _, sample := range samples {
		sctx := sample.Context
		sctx.Provenance = withDatasetProvenance(sctx.Provenance, spec)

		decision := gate.Evaluate(sample.Artifact, sctx, h.registry)
		cert, err := h.builder.Build(sample.Artifact, sctx, decision, h.registry)
		if err != nil {
			return res, fmt.Errorf("harness: certificate for %s: %w", spec.ID, err)
		}

		res.certs = append(res.certs, cert)
		res.ArtifactCount++
		switch decision.Overall {
		case gate.OutcomeApprove:
			res.ApproveCount++
		case gate.OutcomeRevise:
			res.ReviseCount++
		case gate.OutcomeBlock:
			res.BlockCount++
		}

		if h.store != nil {
			if err := h.store.Insert(h.cfg.RunID, spec.ID, cert); err != nil {
				return res, fmt.Errorf("harness: index certificate: %w", err)
			}
		}
	}

	res.DurationSeconds = h.clock().Sub(start).Seconds()
	h.logger.Info("dataset evaluated",
		"dataset", spec.ID,
		"artifacts", res.ArtifactCount,
		"approve", res.ApproveCount,
		"revise", res.ReviseCount,
		"block", res.BlockCount)
	return res, nil
}

func withDatasetProvenance(prov map[string]any, spec DatasetSpec) map[string]any {
	out := make(map[string]any, len(prov)+2)
	for k, v := range prov {
		out[k] = v
	}
	out["dataset_id"] = spec.ID
	out["dataset_version"] = spec.Version
	return out
}

func summarize(results []DatasetResult) Summary {
	s := Summary{TotalDatasets: len(results)}
	var approve, revise, block int
	for _, r := range results {
		s.TotalArtifacts += r.ArtifactCount
		approve += r.ApproveCount
		revise += r.ReviseCount
		block += r.BlockCount
	}
	if s.TotalArtifacts > 0 {
		n := float64(s.TotalArtifacts)
		s.ApproveRate = float64(approve) / n
		s.ReviseRate = float64(revise) / n
		s.BlockRate = float64(block) / n
	}
	return s
}

func (h *Harness) save(runDir string, result *Result) error {
	if err := writeJSON(filepath.Join(runDir, "summary.json"), result); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(runDir, "run_manifest.json"), h.Manifest()); err != nil {
		return err
	}

	for _, ds := range result.Datasets {
		dsDir := filepath.Join(runDir, ds.DatasetID)
		if err := os.MkdirAll(dsDir, 0o755); err != nil {
			return fmt.Errorf("harness: create dataset dir: %w", err)
		}
		for i, cert := range ds.certs {
			path := filepath.Join(dsDir, fmt.Sprintf("certificate_%04d.json", i))
			if err := writeJSON(path, cert); err != nil {
				return err
			}
		}
	}
	return nil
}

// Manifest builds the run manifest: dataset identities, rubric versions, and
// the seed. The core treats this as provenance to embed, never as input to
// validate.
func (h *Harness) Manifest() map[string]any {
	datasets := make([]map[string]any, 0, len(h.cfg.Datasets))
	for _, ds := range h.cfg.Datasets {
		datasets = append(datasets, map[string]any{
			"id":      ds.ID,
			"name":    ds.Name,
			"source":  ds.Source,
			"version": ds.Version,
			"hash":    ds.Hash,
		})
	}
	return map[string]any{
		"run_id":          h.cfg.RunID,
		"created_at":      canonical.FormatTime(h.clock()),
		"datasets":        datasets,
		"rubric_versions": h.registry.Versions(),
		"config": map[string]any{
			"seed":       h.cfg.Seed,
			"rubric_dir": h.cfg.RubricDir,
		},
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("harness: marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("harness: write %s: %w", filepath.Base(path), err)
	}
	return nil
}
