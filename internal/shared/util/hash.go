package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashOwnerKey returns a filesystem-safe identifier for an owner such as a
// customer email. Case and surrounding whitespace are ignored.
func HashOwnerKey(owner string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(owner))))
	return hex.EncodeToString(sum[:])
}
