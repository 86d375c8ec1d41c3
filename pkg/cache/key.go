package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint derives a fixed-length cache key from free-form input text.
//
// The text is normalized (lower-cased, whitespace runs collapsed to a
// single space, leading/trailing whitespace stripped) before hashing so
// that trivially different submissions of the same news blurb share a
// key. The result is the hex-encoded SHA-256 digest of the normalized
// text.
func Fingerprint(text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
