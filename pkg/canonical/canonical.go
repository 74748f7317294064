// Package canonical provides RFC 8785 (JSON Canonicalization Scheme) compliant
// serialization for deterministic hashing of certificates and manifests.
//
// The canonical-encoding rule is part of the external contract: any two
// implementations hashing the same logical record must produce the same bytes.
// The rule is: marshal to JSON, apply RFC 8785 transform (lexicographic key
// ordering, shortest round-trip number form, no HTML escaping), hash with
// SHA-256, encode lowercase hex. Timestamps are RFC 3339 UTC at second
// precision so that re-marshaling cannot change the digest.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"
)

// TimeFormat is the canonical timestamp layout embedded in hashed records.
const TimeFormat = "2006-01-02T15:04:05Z"

// Canonical returns the RFC 8785 canonical JSON representation of v.
func Canonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal failed: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonical: jcs transform failed: %w", err)
	}
	return out, nil
}

// Hash returns the SHA-256 hex digest of the canonical JSON representation of v.
func Hash(v any) (string, error) {
	b, err := Canonical(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes computes the SHA-256 hash of raw bytes and returns lowercase hex.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FormatTime renders t in the canonical timestamp layout (UTC, second precision).
func FormatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimeFormat)
}
