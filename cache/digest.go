package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest computes the cache key for a fully-qualified download URL. Keys
// derive from the URL alone, never from declared checksums: two sources
// serving identical bytes at different URLs cache as distinct entries.
func Digest(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
