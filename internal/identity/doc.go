// Package identity creates identity key pairs and the pre-key bundles
// built from them.
//
// The identity contains:
//   - X25519 key pair for Diffie-Hellman (X3DH and Double Ratchet).
//   - Ed25519 key pair for signing (for example, signing the Signed Pre-Key).
package identity
