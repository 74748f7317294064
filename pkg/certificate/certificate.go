// Package certificate builds and verifies the tamper-evident record of a
// gate evaluation: which checks ran, against which rubric versions, with what
// evidence, and what decision resulted.
//
// The integrity hash is computed over the RFC 8785 canonical form of the
// record with the hash field excluded, so any third party can recompute and
// compare it without shared secrets and without trusting the issuer.
// Certificates are write-once: a new evaluation produces a new certificate,
// never an edit.
package certificate

import (
	"fmt"

	"github.com/Medtwin-ai/rubric-gates/pkg/artifact"
	"github.com/Medtwin-ai/rubric-gates/pkg/canonical"
	"github.com/Medtwin-ai/rubric-gates/pkg/gate"
)

// Certificate is the persisted JSON record. Field order here is for humans;
// canonicalization sorts keys before hashing.
type Certificate struct {
	CertificateID  string            `json:"certificate_id"`
	Artifact       artifact.Ref      `json:"artifact"`
	Decision       gate.Decision     `json:"decision"`
	RubricVersions map[string]string `json:"rubric_versions"`
	Provenance     map[string]any    `json:"provenance,omitempty"`
	IssuedAt       string            `json:"issued_at"`
	IntegrityHash  string            `json:"integrity_hash"`
}

// hashable mirrors Certificate minus the integrity hash. Hashing a dedicated
// struct, rather than zeroing the field in a copy, keeps the "hash excludes
// the hash field" rule visible in the type system.
type hashable struct {
	CertificateID  string            `json:"certificate_id"`
	Artifact       artifact.Ref      `json:"artifact"`
	Decision       gate.Decision     `json:"decision"`
	RubricVersions map[string]string `json:"rubric_versions"`
	Provenance     map[string]any    `json:"provenance,omitempty"`
	IssuedAt       string            `json:"issued_at"`
}

// ComputeHash returns the integrity hash for c's current payload.
func ComputeHash(c *Certificate) (string, error) {
	h, err := canonical.Hash(hashable{
		CertificateID:  c.CertificateID,
		Artifact:       c.Artifact,
		Decision:       c.Decision,
		RubricVersions: c.RubricVersions,
		Provenance:     c.Provenance,
		IssuedAt:       c.IssuedAt,
	})
	if err != nil {
		return "", fmt.Errorf("certificate: hash: %w", err)
	}
	return h, nil
}
