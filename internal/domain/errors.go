package domain

import "errors"

// Master key errors.
var (
	// ErrNoMasterKey is returned when no key source holds a master key.
	ErrNoMasterKey = errors.New("no master key configured")

	// ErrKeyAlreadyExists is returned when initialisation would overwrite a key.
	ErrKeyAlreadyExists = errors.New("master key already exists")

	// ErrWeakPassphrase is returned when a pass-phrase fails the strength policy.
	ErrWeakPassphrase = errors.New(
		"passphrase is too weak (must be at least 12 characters and include upper, lower, number, and symbol)",
	)

	// ErrProviderFailure is returned when OS secure storage is unavailable.
	ErrProviderFailure = errors.New("secure storage unavailable")
)

// Cryptographic errors.
var (
	// ErrInvalidNonceLength is returned for a nonce that is not 12 bytes.
	ErrInvalidNonceLength = errors.New("invalid nonce length")

	// ErrCryptoFailure is returned when authenticated decryption fails.
	ErrCryptoFailure = errors.New("authentication failed")

	// ErrDecryptionFailed is the single opaque error for any failure to
	// recover a sealed value.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrCodec is returned when a payload cannot be encoded or decoded.
	ErrCodec = errors.New("codec failure")
)

// Session store errors.
var (
	// ErrNoIdentity is returned for operations that need an identity key.
	ErrNoIdentity = errors.New("no identity key provisioned")

	// ErrIdentityExists is returned when provisioning over an existing identity.
	ErrIdentityExists = errors.New("identity key already provisioned")

	// ErrSessionNotFound is returned when a session id is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrMalformedBundle is returned for a peer pre-key bundle missing keys.
	ErrMalformedBundle = errors.New("malformed pre-key bundle")

	// ErrBadSignedPreKey is returned when the signed pre-key signature fails to verify.
	ErrBadSignedPreKey = errors.New("signed pre-key signature invalid")
)

// Storage errors.
var (
	// ErrIO is returned for filesystem failures.
	ErrIO = errors.New("filesystem failure")
)
