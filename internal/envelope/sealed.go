package envelope

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"keyward/internal/crypto"
	"keyward/internal/domain"
	"keyward/internal/logging"
	"keyward/internal/util/memzero"
)

// Prefix starts every token and versions the format.
const Prefix = "kw1."

var encoding = base64.RawURLEncoding.Strict()

// Cipher is the authenticated cipher a Sealer encrypts with.
// *crypto.AEAD satisfies it.
type Cipher interface {
	Encrypt(ctx context.Context, nonce, plaintext, ad []byte) ([]byte, error)
	Decrypt(ctx context.Context, nonce, ciphertext, ad []byte) ([]byte, error)
}

// Sealed is the encrypted form of a T. The zero value holds nothing.
type Sealed[T any] string

// IsZero reports whether the token is empty.
func (s Sealed[T]) IsZero() bool { return s == "" }

// Sealer seals and opens values of type T.
type Sealer[T any] struct {
	cipher Cipher
	codec  Codec
	log    logging.Logger
}

// NewSealer returns a sealer. A nil codec selects CBOR.
func NewSealer[T any](cipher Cipher, codec Codec, log logging.Logger) *Sealer[T] {
	if codec == nil {
		codec = CBOR()
	}
	return &Sealer[T]{cipher: cipher, codec: codec, log: log}
}

// Seal encodes v and encrypts it under a fresh nonce.
func (s *Sealer[T]) Seal(ctx context.Context, v T) (Sealed[T], error) {
	plaintext, err := s.codec.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: encoding %T: %v", domain.ErrCodec, v, err)
	}
	defer memzero.Zero(plaintext)

	nonce, err := crypto.NewNonce()
	if err != nil {
		return "", err
	}
	ciphertext, err := s.cipher.Encrypt(ctx, nonce, plaintext, []byte(Prefix))
	if err != nil {
		return "", err
	}

	raw := make([]byte, 0, len(nonce)+len(ciphertext))
	raw = append(raw, nonce...)
	raw = append(raw, ciphertext...)
	return Sealed[T](Prefix + encoding.EncodeToString(raw)), nil
}

// Open decrypts and decodes token. Errors from resolving the key are
// returned as they are; every other failure is domain.ErrDecryptionFailed.
func (s *Sealer[T]) Open(ctx context.Context, token Sealed[T]) (T, error) {
	var zero T

	body, ok := strings.CutPrefix(string(token), Prefix)
	if !ok {
		s.log.Debugf("envelope: token lacks %q prefix", Prefix)
		return zero, domain.ErrDecryptionFailed
	}
	raw, err := encoding.DecodeString(body)
	if err != nil {
		s.log.Debugf("envelope: token body is not base64url: %v", err)
		return zero, domain.ErrDecryptionFailed
	}
	if len(raw) < crypto.NonceBytes {
		s.log.Debugf("envelope: token too short (%d bytes)", len(raw))
		return zero, domain.ErrDecryptionFailed
	}

	nonce, ciphertext := raw[:crypto.NonceBytes], raw[crypto.NonceBytes:]
	plaintext, err := s.cipher.Decrypt(ctx, nonce, ciphertext, []byte(Prefix))
	if err != nil {
		if errors.Is(err, domain.ErrCryptoFailure) || errors.Is(err, domain.ErrInvalidNonceLength) {
			s.log.Debugf("envelope: %v", err)
			return zero, domain.ErrDecryptionFailed
		}
		return zero, err
	}
	defer memzero.Zero(plaintext)

	var v T
	if err := s.codec.Unmarshal(plaintext, &v); err != nil {
		s.log.Debugf("envelope: decoding %T: %v", v, err)
		return zero, domain.ErrDecryptionFailed
	}
	return v, nil
}
