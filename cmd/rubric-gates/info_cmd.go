package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/Medtwin-ai/rubric-gates/pkg/rubric"
)

// runInfoCmd implements `rubric-gates info`: list the loaded suites, their
// versions, and every check with its kind and severity.
func runInfoCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("info", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var rubricsDir string
	cmd.StringVar(&rubricsDir, "rubrics", "rubrics", "Rubric suites directory")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	registry, err := rubric.LoadDir(rubricsDir)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	total := 0
	for _, n := range rubric.TierNumbers {
		tier, _ := registry.Tier(n)
		_, _ = fmt.Fprintf(stdout, "Tier %d: %s v%s\n", n, tier.ID, tier.Version)
		if tier.Purpose != "" {
			_, _ = fmt.Fprintf(stdout, "  %s\n", tier.Purpose)
		}
		for _, check := range tier.Checks {
			_, _ = fmt.Fprintf(stdout, "  - %s [%s/%s]\n", check.ID, check.Kind, check.Severity)
			total++
		}
	}
	_, _ = fmt.Fprintf(stdout, "Total checks: %d\n", total)
	return 0
}
