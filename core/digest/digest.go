// Package digest computes the content hashes recorded for every emitted
// segment: SHA-256 as the primary identity and BLAKE3 alongside it.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"

	"github.com/zeebo/blake3"
)

// Hashes contains both digests of one blob.
type Hashes struct {
	SHA256 string `json:"sha256"`
	BLAKE3 string `json:"blake3"`
}

// hexPattern matches a valid lowercase 256-bit hex digest (64 characters).
var hexPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Sum returns both digests of data.
func Sum(data []byte) Hashes {
	return Hashes{
		SHA256: SHA256(data),
		BLAKE3: Blake3(data),
	}
}

// SHA256 returns the hex SHA-256 digest of data.
func SHA256(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Blake3 returns the hex BLAKE3-256 digest of data.
func Blake3(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Verify reports whether data matches both recorded digests.
func (h Hashes) Verify(data []byte) bool {
	return Sum(data) == h
}

// IsValid reports whether s looks like a 256-bit hex digest.
func IsValid(s string) bool {
	return hexPattern.MatchString(s)
}
