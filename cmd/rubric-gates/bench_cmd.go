package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/Medtwin-ai/rubric-gates/pkg/harness"
	"github.com/Medtwin-ai/rubric-gates/pkg/rubric"
)

// runBenchCmd implements `rubric-gates bench`: run the benchmark harness over
// the datasets declared in a YAML run config, reading pre-generated samples
// from each dataset's source directory.
func runBenchCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("bench", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		configPath string
		storePath  string
	)
	cmd.StringVar(&configPath, "config", "", "Path to run config YAML (REQUIRED)")
	cmd.StringVar(&storePath, "store", "", "Optional SQLite path to index certificates into")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if configPath == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --config is required")
		return 2
	}

	cfg, err := harness.LoadConfig(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	registry, err := rubric.LoadDir(cfg.RubricDir)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	h := harness.New(cfg, registry)
	if storePath != "" {
		store, err := harness.OpenStore(storePath)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		defer store.Close()
		h = h.WithStore(store)
	}

	result, err := h.Run(context.Background(), harness.FileGenerator())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	_, _ = fmt.Fprintf(stdout, "Run %s: %d artifacts across %d datasets\n",
		result.RunID, result.Summary.TotalArtifacts, result.Summary.TotalDatasets)
	_, _ = fmt.Fprintf(stdout, "  approve %.1f%%  revise %.1f%%  block %.1f%%\n",
		result.Summary.ApproveRate*100, result.Summary.ReviseRate*100, result.Summary.BlockRate*100)
	return 0
}
