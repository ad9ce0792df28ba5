package utils

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// HashString returns a short stable hex digest, used for cache and
// idempotency keys.
func HashString(input string) string {
	sum := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", sum[:16])
}

// HashKey joins parts with ':' before hashing so that ("a","bc") and
// ("ab","c") produce different keys.
func HashKey(parts ...string) string {
	return HashString(strings.Join(parts, ":"))
}
