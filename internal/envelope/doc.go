// Package envelope wraps any serializable value in an authenticated
// ciphertext so it can be stored as a single opaque string.
//
// A Sealed[T] token has the form
//
//	kw1.<base64url(nonce || ciphertext || tag)>
//
// with a fresh random 12-byte nonce per value. The "kw1." prefix is
// bound into the tag as associated data. Any failure to recover the
// value (bad encoding, wrong key, tampering, undecodable payload) is
// reported as domain.ErrDecryptionFailed and nothing else.
package envelope
