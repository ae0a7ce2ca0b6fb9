package crypto

import (
	"context"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"keyward/internal/domain"
)

// NonceBytes is the only nonce length the cipher accepts.
const NonceBytes = chacha20poly1305.NonceSize

// AEAD is ChaCha20-Poly1305 keyed by a master key source. The key is
// resolved on every call and closed before the call returns.
type AEAD struct {
	keys domain.KeySource
}

// NewAEAD returns a cipher that draws its key from keys.
func NewAEAD(keys domain.KeySource) *AEAD {
	return &AEAD{keys: keys}
}

// NewNonce returns a fresh random nonce.
func NewNonce() ([]byte, error) {
	nonce := make([]byte, NonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return nonce, nil
}

// Encrypt seals plaintext under nonce with optional associated data.
func (a *AEAD) Encrypt(ctx context.Context, nonce, plaintext, ad []byte) ([]byte, error) {
	if len(nonce) != NonceBytes {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", domain.ErrInvalidNonceLength, len(nonce), NonceBytes)
	}
	key, err := a.keys.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	defer key.Close()

	aead, err := chacha20poly1305.New(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCryptoFailure, err)
	}
	return aead.Seal(nil, nonce, plaintext, ad), nil
}

// Decrypt opens ciphertext. Any authentication failure, including a
// wrong key, returns ErrCryptoFailure and no plaintext.
func (a *AEAD) Decrypt(ctx context.Context, nonce, ciphertext, ad []byte) ([]byte, error) {
	if len(nonce) != NonceBytes {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", domain.ErrInvalidNonceLength, len(nonce), NonceBytes)
	}
	key, err := a.keys.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	defer key.Close()

	aead, err := chacha20poly1305.New(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCryptoFailure, err)
	}
	pt, err := aead.Open(nil, nonce, ciphertext, ad)
	if err != nil {
		return nil, domain.ErrCryptoFailure
	}
	return pt, nil
}
