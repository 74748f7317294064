package main

import (
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Medtwin-ai/rubric-gates/pkg/artifact"
	"github.com/Medtwin-ai/rubric-gates/pkg/certificate"
	"github.com/Medtwin-ai/rubric-gates/pkg/rubric"
)

// runVerifyCmd implements `rubric-gates verify`.
//
// Exit codes:
//
//	0 = certificate verified
//	2 = runtime error (unreadable input)
//	3 = malformed certificate
//	4 = integrity hash mismatch (tamper or corruption)
//	5 = decision drift (rubric-version skew; certificate itself is intact)
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		artifactPath string
		artifactJSON string
		contextPath  string
		rubricsDir   string
	)
	cmd.StringVar(&artifactPath, "artifact", "", "Optional artifact file; its SHA-256 is compared with the embedded content hash")
	cmd.StringVar(&rubricsDir, "rubrics", "", "Re-evaluate with this rubric directory and report decision drift")
	cmd.StringVar(&artifactJSON, "artifact-json", "", "Artifact document for the drift re-evaluation")
	cmd.StringVar(&contextPath, "context", "", "Context document for the drift re-evaluation")

	positionals, err := parseWithPositionals(cmd, args)
	if err != nil {
		return 2
	}
	if len(positionals) != 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: rubric-gates verify <certificate.json> [flags]")
		return 2
	}

	data, err := os.ReadFile(positionals[0])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: read certificate: %v\n", err)
		return 2
	}

	cert, err := certificate.VerifyBytes(data)
	if err != nil {
		return reportVerifyError(err, stderr)
	}

	if artifactPath != "" {
		sum, err := fileSHA256(artifactPath)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: hash artifact: %v\n", err)
			return 2
		}
		if sum != cert.Artifact.ContentHash {
			_, _ = fmt.Fprintf(stderr, "Verification failed: integrity_mismatch: artifact hash %s does not match embedded %s\n",
				sum, cert.Artifact.ContentHash)
			return 4
		}
	}

	if rubricsDir != "" {
		if artifactJSON == "" {
			_, _ = fmt.Fprintln(stderr, "Error: --rubrics requires --artifact-json")
			return 2
		}
		if code := checkDrift(cert, rubricsDir, artifactJSON, contextPath, stderr); code != 0 {
			return code
		}
	}

	_, _ = fmt.Fprintf(stdout, "Certificate %s verified: decision %s, issued %s\n",
		cert.CertificateID, cert.Decision.Overall, cert.IssuedAt)
	return 0
}

// checkDrift re-runs evaluation with a local rubric set and compares the
// resulting decision against the embedded one. Runs only after the integrity
// checks passed; drift on a tampered certificate would be meaningless.
func checkDrift(cert *certificate.Certificate, rubricsDir, artifactJSON, contextPath string, stderr io.Writer) int {
	registry, err := rubric.LoadDir(rubricsDir)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	artData, err := os.ReadFile(artifactJSON)
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

	if err := certificate.CheckDrift(cert, art, ctx, registry); err != nil {
		return reportVerifyError(err, stderr)
	}
	return 0
}

func reportVerifyError(err error, stderr io.Writer) int {
	kind, ok := certificate.KindOf(err)
	if !ok {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	_, _ = fmt.Fprintf(stderr, "Verification failed: %v\n", err)
	switch kind {
	case certificate.KindMalformed:
		return 3
	case certificate.KindIntegrityMismatch:
		return 4
	case certificate.KindDecisionDrift:
		return 5
	default:
		return 2
	}
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
