package token

import (
	"crypto/sha256"
	"encoding/hex"
)

// FingerprintLength is the number of hex characters in a fingerprint.
const FingerprintLength = 12

// Fingerprint returns a short SHA-256 prefix identifying token in logs.
// The empty token has the empty fingerprint.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])[:FingerprintLength]
}
