// Package fingerprint computes the deterministic per-row digest used to
// detect duplicates across sync runs.
//
// The digest is a SHA-256 over the row's values joined with '|' in column
// order, rendered as lowercase hex. It depends only on positional values:
// if the column order changes between files the fingerprint semantics
// silently change with it. That is a documented limitation, not corrected
// here.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Separator joins row values in the canonical pre-hash form.
const Separator = "|"

// Size is the hex length of a fingerprint.
const Size = sha256.Size * 2

// Sum returns the fingerprint of a row. Two rows with identical value
// sequences always produce identical fingerprints; this is the sole
// correctness property the duplicate detection relies on.
func Sum(values []string) string {
	var b strings.Builder
	n := len(values)
	for _, v := range values {
		n += len(v)
	}
	b.Grow(n)

	for i, v := range values {
		if i > 0 {
			b.WriteString(Separator)
		}
		b.WriteString(v)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
