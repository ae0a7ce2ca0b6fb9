package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// keyCheckLen is the number of hex characters revealed by KeyCheck.
const keyCheckLen = 8

// Fingerprint returns a short hex fingerprint of a public key.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(pub []byte) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:10])
}

// KeyCheck returns a short key-check value for secret key material so an
// operator can confirm which key is active. It reveals a BLAKE3 digest
// prefix, never key bytes.
func KeyCheck(key []byte) string {
	sum := blake3.Sum256(key)
	return hex.EncodeToString(sum[:])[:keyCheckLen]
}
