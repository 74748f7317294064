package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Medtwin-ai/rubric-gates/pkg/artifact"
	"github.com/Medtwin-ai/rubric-gates/pkg/certificate"
	"github.com/Medtwin-ai/rubric-gates/pkg/gate"
	"github.com/Medtwin-ai/rubric-gates/pkg/rubric"
)

// runEvaluateCmd implements `rubric-gates evaluate`.
//
// Exit codes:
//
//	0 = evaluation completed (approve, revise, and block are all successful
//	    evaluations; the decision itself is in the certificate)
//	2 = load failure or malformed input
func runEvaluateCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		contextPath string
		rubricsDir  string
		outputPath  string
	)
	cmd.StringVar(&contextPath, "context", "", "Path to evaluation context JSON")
	cmd.StringVar(&rubricsDir, "rubrics", "rubrics", "Rubric suites directory")
	cmd.StringVar(&outputPath, "o", "", "Write the certificate to this file instead of stdout")

	positionals, err := parseWithPositionals(cmd, args)
	if err != nil {
		return 2
	}
	if len(positionals) != 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: rubric-gates evaluate <artifact.json> [flags]")
		return 2
	}

	artData, err := os.ReadFile(positionals[0])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: read artifact: %v\n", err)
		return 2
	}
	art, err := artifact.ParseArtifact(artData)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	var ctx artifact.Context
	if contextPath != "" {
		ctxData, err := os.ReadFile(contextPath)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: read context: %v\n", err)
			return 2
		}
		ctx, err = artifact.ParseContext(ctxData)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
	}

	registry, err := rubric.LoadDir(rubricsDir)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	decision := gate.Evaluate(art, ctx, registry)
	cert, err := certificate.NewBuilder().Build(art, ctx, decision, registry)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	certJSON, err := json.MarshalIndent(cert, "", "  ")
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: encode certificate: %v\n", err)
		return 2
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, append(certJSON, '\n'), 0o644); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: write certificate: %v\n", err)
			return 2
		}
		_, _ = fmt.Fprintf(stdout, "Certificate written to %s\n", outputPath)
	} else {
		_, _ = fmt.Fprintln(stdout, string(certJSON))
	}

	_, _ = fmt.Fprintf(stdout, "Gate decision: %s\n", decision.Overall)
	if decision.Overall != gate.OutcomeApprove {
		_, _ = fmt.Fprintf(stdout, "Reason: %s\n", decision.Reason)
	}
	return 0
}
