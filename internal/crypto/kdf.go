package crypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"

	"keyward/internal/secret"
)

const (
	// KeyBytes is the master key size.
	KeyBytes = 32
	// SaltBytes is the minimum accepted salt size.
	SaltBytes = 16
)

// defaultSalt is the application salt used when no salt is configured.
// A fixed salt keeps derivation deterministic per pass-phrase; a stored
// per-install salt may replace it through KDFParams.
var defaultSalt = []byte("keyward/master-key/argon2id/v1")

// KDFParams configures Argon2id pass-phrase derivation.
type KDFParams struct {
	Time      uint32 // passes over memory
	MemoryKiB uint32 // memory cost in KiB
	Threads   uint8  // parallelism
	Salt      []byte
}

// DefaultKDFParams returns the interactive-use parameters: 3 passes,
// 64 MiB, 4 lanes, application salt.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Time:      3,
		MemoryKiB: 64 * 1024,
		Threads:   4,
		Salt:      append([]byte(nil), defaultSalt...),
	}
}

// Validate rejects parameters argon2 would accept but that are unsafe
// or would panic.
func (p KDFParams) Validate() error {
	switch {
	case p.Time == 0:
		return errors.New("kdf: time cost must be positive")
	case p.Threads == 0:
		return errors.New("kdf: parallelism must be positive")
	case p.MemoryKiB < 8*uint32(p.Threads):
		return fmt.Errorf("kdf: memory cost must be at least %d KiB", 8*uint32(p.Threads))
	case len(p.Salt) < SaltBytes:
		return fmt.Errorf("kdf: salt must be at least %d bytes", SaltBytes)
	}
	return nil
}

// DeriveKey stretches passphrase into a 32-byte key with Argon2id. The
// result is moved into a secret.Buffer; the intermediate heap copy is
// zeroed. The caller must Close the buffer.
func DeriveKey(passphrase []byte, p KDFParams) (*secret.Buffer, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("kdf: empty passphrase")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	key := argon2.IDKey(passphrase, p.Salt, p.Time, p.MemoryKiB, p.Threads, KeyBytes)
	return secret.NewFromBytes(key)
}
