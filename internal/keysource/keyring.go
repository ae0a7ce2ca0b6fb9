package keysource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/99designs/keyring"

	"keyward/internal/domain"
)

// ServiceName is the keyring service all entries live under.
const ServiceName = "keyward"

// Keyring is a domain.SecretStore backed by the OS keyring. The backend
// is opened on first use.
type Keyring struct {
	cfg keyring.Config

	once sync.Once
	ring keyring.Keyring
	err  error
}

// EnvFilePassword names the environment variable holding the password
// for the encrypted file backend. Without it the password is prompted for.
const EnvFilePassword = "KEYWARD_KEYRING_PASSWORD"

// NewKeyring returns a store for the platform default backend, or for
// backend when it is non-empty (for example "pass", "secret-service" or
// "file"). dir holds the file backend's entries.
func NewKeyring(backend, dir string) *Keyring {
	cfg := keyring.Config{
		ServiceName:              ServiceName,
		KeychainTrustApplication: true,
		LibSecretCollectionName:  ServiceName,
		FileDir:                  dir,
		FilePasswordFunc:         filePassword,
	}
	if backend != "" {
		cfg.AllowedBackends = []keyring.BackendType{keyring.BackendType(backend)}
	}
	return &Keyring{cfg: cfg}
}

func filePassword(prompt string) (string, error) {
	if pw, ok := os.LookupEnv(EnvFilePassword); ok && pw != "" {
		return pw, nil
	}
	return keyring.TerminalPrompt(prompt)
}

// WrapKeyring returns a store over an already opened keyring.
func WrapKeyring(ring keyring.Keyring) *Keyring {
	k := &Keyring{ring: ring}
	k.once.Do(func() {})
	return k
}

func (k *Keyring) open() (keyring.Keyring, error) {
	k.once.Do(func() {
		k.ring, k.err = keyring.Open(k.cfg)
	})
	if k.err != nil {
		return nil, fmt.Errorf("%w: opening keyring: %v", domain.ErrProviderFailure, k.err)
	}
	return k.ring, nil
}

// Get returns a copy of the entry's bytes that the caller may zero. A
// missing entry is ok=false, not an error.
func (k *Keyring) Get(ctx context.Context, name string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	ring, err := k.open()
	if err != nil {
		return nil, false, err
	}
	item, err := ring.Get(name)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading %q: %v", domain.ErrProviderFailure, name, err)
	}
	return append([]byte(nil), item.Data...), true, nil
}

func (k *Keyring) Set(ctx context.Context, name string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ring, err := k.open()
	if err != nil {
		return err
	}
	err = ring.Set(keyring.Item{
		Key:         name,
		Data:        append([]byte(nil), value...),
		Label:       ServiceName + " " + name,
		Description: "keyward master key material",
	})
	if err != nil {
		return fmt.Errorf("%w: writing %q: %v", domain.ErrProviderFailure, name, err)
	}
	return nil
}

// Remove deletes the entry. Removing a missing entry succeeds.
func (k *Keyring) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ring, err := k.open()
	if err != nil {
		return err
	}
	err = ring.Remove(name)
	// The file backend reports a missing entry as a plain fs error.
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: removing %q: %v", domain.ErrProviderFailure, name, err)
	}
	return nil
}

var _ domain.SecretStore = (*Keyring)(nil)
