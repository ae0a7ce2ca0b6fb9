// Package crypto exposes the primitives keyward is built on.
//
// Contents
//
//   - X25519 key generation and Diffie–Hellman (GenerateX25519, DH)
//   - Ed25519 key generation, signing and verification (GenerateEd25519,
//     SignEd25519, VerifyEd25519)
//   - Argon2id pass-phrase derivation into protected buffers (DeriveKey)
//   - The ChaCha20-Poly1305 cipher parameterised by a master key source (AEAD)
//   - Short public-key fingerprints and key-check values for display
//     (Fingerprint, KeyCheck)
//
// # Notes
//
// Key pairs are returned as fixed-size array types defined in
// internal/domain. Master keys never leave a secret.Buffer; the AEAD
// resolves a fresh key for every call and closes it before returning.
package crypto
