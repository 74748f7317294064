package certificate

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Medtwin-ai/rubric-gates/pkg/artifact"
	"github.com/Medtwin-ai/rubric-gates/pkg/canonical"
	"github.com/Medtwin-ai/rubric-gates/pkg/gate"
	"github.com/Medtwin-ai/rubric-gates/pkg/rubric"
)

// Builder assembles certificates from evaluation results. Clock and id source
// are injectable so tests (and replay tooling) can pin issuance metadata.
type Builder struct {
	clock func() time.Time
	newID func() string
}

// NewBuilder returns a Builder using the wall clock and random UUIDs.
func NewBuilder() *Builder {
	return &Builder{
		clock: time.Now,
		newID: uuid.NewString,
	}
}

// WithClock overrides the issuance clock.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

// WithIDSource overrides the certificate id generator.
func (b *Builder) WithIDSource(newID func() string) *Builder {
	b.newID = newID
	return b
}

// Build assembles a certificate for the given evaluation.
//
// Only the context's provenance block is embedded. Raw evidence never leaves
// the context wholesale: the values the executed checks actually consulted
// are already echoed inside the decision's check results, and everything else
// stays out of the record.
func (b *Builder) Build(art artifact.Artifact, ctx artifact.Context, decision gate.Decision, reg *rubric.Registry) (*Certificate, error) {
	ref, err := art.Ref()
	if err != nil {
		return nil, err
	}

	cert := &Certificate{
		CertificateID:  b.newID(),
		Artifact:       ref,
		Decision:       decision,
		RubricVersions: reg.Versions(),
		Provenance:     copyProvenance(ctx.Provenance),
		IssuedAt:       canonical.FormatTime(b.clock()),
	}

	hash, err := ComputeHash(cert)
	if err != nil {
		return nil, fmt.Errorf("certificate: build: %w", err)
	}
	cert.IntegrityHash = hash
	return cert, nil
}

func copyProvenance(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
