package certificate

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Medtwin-ai/rubric-gates/pkg/artifact"
	"github.com/Medtwin-ai/rubric-gates/pkg/canonical"
	"github.com/Medtwin-ai/rubric-gates/pkg/gate"
	"github.com/Medtwin-ai/rubric-gates/pkg/rubric"
)

// ErrorKind names which verification stage failed. The three kinds are never
// conflated: callers (and exit codes) distinguish a structurally broken
// record from a tampered one from a rubric-version skew.
type ErrorKind string

const (
	// KindMalformed means the record fails the published certificate schema.
	KindMalformed ErrorKind = "malformed_certificate"
	// KindIntegrityMismatch means the recomputed hash differs from the
	// embedded one: tamper or corruption.
	KindIntegrityMismatch ErrorKind = "integrity_mismatch"
	// KindDecisionDrift means an independent re-evaluation disagrees with
	// the embedded decision. Non-fatal: it signals rubric-version skew
	// between issuer and verifier, not a broken certificate.
	KindDecisionDrift ErrorKind = "decision_drift"
)

// VerificationError reports a failed verification with its specific kind.
type VerificationError struct {
	Kind   ErrorKind
	Detail string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("certificate verification: %s: %s", e.Kind, e.Detail)
}

// KindOf extracts the verification error kind, if err is one.
func KindOf(err error) (ErrorKind, bool) {
	var ve *VerificationError
	if !errors.As(err, &ve) {
		return "", false
	}
	return ve.Kind, true
}

//go:embed certificate.schema.json
var certSchemaJSON []byte

const certSchemaURL = "https://rubric-gates.medtwin.dev/schemas/certificate.schema.json"

var certSchema = mustCompileCertSchema()

func mustCompileCertSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(certSchemaURL, bytes.NewReader(certSchemaJSON)); err != nil {
		panic(fmt.Sprintf("certificate: embedded schema load failed: %v", err))
	}
	s, err := c.Compile(certSchemaURL)
	if err != nil {
		panic(fmt.Sprintf("certificate: embedded schema compile failed: %v", err))
	}
	return s
}

// VerifyBytes verifies a persisted certificate without needing the evaluator:
// structural conformance against the published schema, then hash recomputation
// over the canonical payload. Verification is read-only and idempotent.
func VerifyBytes(data []byte) (*Certificate, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, &VerificationError{Kind: KindMalformed, Detail: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if err := certSchema.Validate(generic); err != nil {
		return nil, &VerificationError{Kind: KindMalformed, Detail: err.Error()}
	}

	var cert Certificate
	if err := json.Unmarshal(data, &cert); err != nil {
		return nil, &VerificationError{Kind: KindMalformed, Detail: fmt.Sprintf("decode: %v", err)}
	}

	if err := Verify(&cert); err != nil {
		return nil, err
	}
	return &cert, nil
}

// Verify recomputes the integrity hash of an in-memory certificate and
// compares it with the embedded one.
func Verify(cert *Certificate) error {
	recomputed, err := ComputeHash(cert)
	if err != nil {
		return &VerificationError{Kind: KindMalformed, Detail: fmt.Sprintf("canonicalize: %v", err)}
	}
	if recomputed != cert.IntegrityHash {
		return &VerificationError{
			Kind:   KindIntegrityMismatch,
			Detail: fmt.Sprintf("embedded %s, recomputed %s", cert.IntegrityHash, recomputed),
		}
	}
	return nil
}

// CheckDrift independently re-runs evaluation with the verifier's own
// registry and compares the resulting decision to the embedded one byte for
// byte. A mismatch is DecisionDrift, a distinct non-fatal signal for
// rubric-version skew between issuer and verifier. Callers should run
// VerifyBytes or Verify first; drift on a tampered certificate is meaningless.
func CheckDrift(cert *Certificate, art artifact.Artifact, ctx artifact.Context, reg *rubric.Registry) error {
	ours := gate.Evaluate(art, ctx, reg)

	ourBytes, err := canonical.Canonical(ours)
	if err != nil {
		return fmt.Errorf("certificate: drift check: %w", err)
	}
	theirBytes, err := canonical.Canonical(cert.Decision)
	if err != nil {
		return fmt.Errorf("certificate: drift check: %w", err)
	}

	if !bytes.Equal(ourBytes, theirBytes) {
		return &VerificationError{
			Kind: KindDecisionDrift,
			Detail: fmt.Sprintf("embedded decision %q (rubrics %v) diverges from re-evaluation %q (rubrics %v)",
				cert.Decision.Overall, cert.RubricVersions, ours.Overall, reg.Versions()),
		}
	}
	return nil
}
