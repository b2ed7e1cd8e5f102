package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Digest returns the SHA-256 hex digest of b. Deterministic, no secret
// material: this is corruption/tamper detection, not authentication.
func Digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// VerifyDigest recomputes the digest of b and compares it with expected.
func VerifyDigest(b []byte, expected string) bool {
	got := Digest(b)
	if len(got) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}
