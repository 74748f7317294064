// Package artifact defines the submission model for rubric evaluation:
// the artifact under judgment and the runtime context carrying the
// pre-computed evidence that checks consult.
package artifact

import (
	"encoding/json"
	"fmt"

	"github.com/Medtwin-ai/rubric-gates/pkg/canonical"
)

// Artifact is the machine-generated thing being judged (e.g. a cohort
// specification). Immutable once submitted to evaluation.
type Artifact struct {
	Type                  string         `json:"type"`
	Version               string         `json:"version"`
	ContentHash           string         `json:"content_hash,omitempty"`
	DeterministicExecutor string         `json:"deterministic_executor,omitempty"`
	Payload               map[string]any `json:"payload,omitempty"`
}

// Ref is the artifact reference embedded into certificates.
type Ref struct {
	Type                  string `json:"type"`
	Version               string `json:"version"`
	ContentHash           string `json:"content_hash"`
	DeterministicExecutor string `json:"deterministic_executor,omitempty"`
}

// Ref returns the certificate-embeddable reference for a. If the caller did
// not supply a content hash, one is computed over the canonical payload.
// A supplied hash must already be in certificate form (64 lowercase hex
// characters); anything else is rejected rather than embedded into a
// certificate that would fail its own schema on verification.
func (a Artifact) Ref() (Ref, error) {
	hash := a.ContentHash
	if hash == "" {
		h, err := canonical.Hash(a.Payload)
		if err != nil {
			return Ref{}, fmt.Errorf("artifact: content hash: %w", err)
		}
		hash = h
	} else if !ValidContentHash(hash) {
		return Ref{}, fmt.Errorf("artifact: content hash: %q is not 64 lowercase hex characters", hash)
	}
	return Ref{
		Type:                  a.Type,
		Version:               a.Version,
		ContentHash:           hash,
		DeterministicExecutor: a.DeterministicExecutor,
	}, nil
}

// ValidContentHash reports whether s is a lowercase hex SHA-256 digest.
func ValidContentHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Context carries runtime facts needed by checks but not part of the artifact:
// executed-check evidence and provenance. Supplied fresh per evaluation call
// and never persisted as-is; only evidence actually consulted by checks is
// echoed into the certificate.
type Context struct {
	Evidence   map[string]any `json:"evidence,omitempty"`
	Provenance map[string]any `json:"provenance,omitempty"`
}

// Bool returns a boolean evidence value.
func (c Context) Bool(field string) (bool, bool) {
	v, ok := c.Evidence[field]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Float returns a numeric evidence value. JSON numbers decode as float64 or
// json.Number depending on the decoder; both are accepted, as are ints from
// programmatic callers.
func (c Context) Float(field string) (float64, bool) {
	v, ok := c.Evidence[field]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// String returns a string evidence value.
func (c Context) String(field string) (string, bool) {
	v, ok := c.Evidence[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Value returns a raw evidence value.
func (c Context) Value(field string) (any, bool) {
	v, ok := c.Evidence[field]
	return v, ok
}
