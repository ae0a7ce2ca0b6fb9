package keysource

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"unicode"

	"keyward/internal/crypto"
	"keyward/internal/domain"
	"keyward/internal/logging"
	"keyward/internal/secret"
	"keyward/internal/util/memzero"
)

const (
	// EnvPassphrase names the environment variable holding a pass-phrase.
	EnvPassphrase = "KEYWARD_PASSPHRASE"
	// EntryPassphrase is the keyring entry holding a pass-phrase.
	EntryPassphrase = "master-passphrase"
	// EntryRawKey is the keyring entry holding the hex-encoded key.
	EntryRawKey = "master-key"

	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
)

// Resolver implements domain.KeySource over the environment and a
// secret store.
type Resolver struct {
	store     domain.SecretStore
	kdf       crypto.KDFParams
	lookupEnv func(string) (string, bool)
	log       logging.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithKDF overrides the Argon2id parameters.
func WithKDF(p crypto.KDFParams) Option {
	return func(r *Resolver) { r.kdf = p }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(r *Resolver) { r.lookupEnv = fn }
}

// New returns a resolver reading from store.
func New(store domain.SecretStore, opts ...Option) *Resolver {
	r := &Resolver{
		store:     store,
		kdf:       crypto.DefaultKDFParams(),
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the master key from the first populated source.
func (r *Resolver) Resolve(ctx context.Context) (*secret.Buffer, error) {
	if pass, ok := r.envPassphrase(); ok {
		r.log.Debugf("master key: deriving from $%s", EnvPassphrase)
		return r.derive([]byte(pass))
	}

	pass, ok, err := r.store.Get(ctx, EntryPassphrase)
	if err != nil {
		return nil, err
	}
	if ok && len(pass) > 0 {
		r.log.Debugf("master key: deriving from keyring pass-phrase")
		return r.derive(pass)
	}

	raw, ok, err := r.store.Get(ctx, EntryRawKey)
	if err != nil {
		return nil, err
	}
	if ok && len(raw) > 0 {
		r.log.Debugf("master key: using keyring raw key")
		return decodeRawKey(raw)
	}

	return nil, domain.ErrNoMasterKey
}

// Initialize generates a random master key and stores it in the raw-key
// entry. Any existing key, including one supplied through the
// environment, blocks this unless force is set. The pass-phrase entry is
// removed afterwards.
func (r *Resolver) Initialize(ctx context.Context, force bool) error {
	if !force {
		origin, err := r.origin(ctx)
		if err != nil {
			return err
		}
		if origin != domain.KeyOriginNone {
			return fmt.Errorf("%w (source: %s)", domain.ErrKeyAlreadyExists, origin)
		}
	}

	key, err := secret.New(crypto.KeyBytes)
	if err != nil {
		return err
	}
	defer key.Close()
	if _, err := rand.Read(key.Bytes()); err != nil {
		return fmt.Errorf("generating master key: %w", err)
	}

	encoded := make([]byte, hex.EncodedLen(crypto.KeyBytes))
	defer memzero.Zero(encoded)
	hex.Encode(encoded, key.Bytes())

	if err := r.swap(ctx, EntryRawKey, encoded, EntryPassphrase); err != nil {
		return err
	}
	r.log.Infof("master key stored in keyring entry %q (check %s)", EntryRawKey, crypto.KeyCheck(key.Bytes()))
	if _, ok := r.envPassphrase(); ok {
		r.log.Warnf("$%s is set and still takes precedence over the keyring", EnvPassphrase)
	}
	return nil
}

// StorePassphrase saves passphrase in the pass-phrase entry after a
// strength check and removes the raw-key entry. passphrase is zeroed
// before return.
func (r *Resolver) StorePassphrase(ctx context.Context, passphrase []byte, force bool) error {
	defer memzero.Zero(passphrase)

	if !isSecurePassphrase(string(passphrase)) {
		return domain.ErrWeakPassphrase
	}
	if !force {
		origin, err := r.origin(ctx)
		if err != nil {
			return err
		}
		if origin != domain.KeyOriginNone {
			return fmt.Errorf("%w (source: %s)", domain.ErrKeyAlreadyExists, origin)
		}
	}

	if err := r.swap(ctx, EntryPassphrase, passphrase, EntryRawKey); err != nil {
		return err
	}
	r.log.Infof("pass-phrase stored in keyring entry %q", EntryPassphrase)
	return nil
}

// swap writes value to entry and removes stale. If the removal fails,
// entry is put back to what it held before so the active source does not
// change.
func (r *Resolver) swap(ctx context.Context, entry string, value []byte, stale string) error {
	prior, hadPrior, err := r.store.Get(ctx, entry)
	if err != nil {
		return err
	}
	defer memzero.Zero(prior)

	if err := r.store.Set(ctx, entry, value); err != nil {
		return err
	}
	removeErr := r.store.Remove(ctx, stale)
	if removeErr == nil {
		return nil
	}

	var restoreErr error
	if hadPrior {
		restoreErr = r.store.Set(ctx, entry, prior)
	} else {
		restoreErr = r.store.Remove(ctx, entry)
	}
	if restoreErr != nil {
		r.log.Errorf("keyring left inconsistent: %q written but %q not removed", entry, stale)
		return errors.Join(removeErr, fmt.Errorf("restoring %q: %w", entry, restoreErr))
	}
	r.log.Debugf("removing %q failed; %q restored", stale, entry)
	return removeErr
}

// Status reports which source is active. For a raw key it includes a
// short key-check value; the key itself is never exposed.
func (r *Resolver) Status(ctx context.Context) (domain.SourceDescriptor, error) {
	origin, err := r.origin(ctx)
	if err != nil {
		return domain.SourceDescriptor{}, err
	}
	desc := domain.SourceDescriptor{Origin: origin}
	if origin == domain.KeyOriginKeyringRaw {
		key, err := r.Resolve(ctx)
		if err != nil {
			return domain.SourceDescriptor{}, err
		}
		defer key.Close()
		desc.KeyCheck = crypto.KeyCheck(key.Bytes())
	}
	return desc, nil
}

// origin determines the active source without deriving a key.
func (r *Resolver) origin(ctx context.Context) (domain.KeyOrigin, error) {
	if _, ok := r.envPassphrase(); ok {
		return domain.KeyOriginEnv, nil
	}
	for _, slot := range []struct {
		entry  string
		origin domain.KeyOrigin
	}{
		{EntryPassphrase, domain.KeyOriginKeyringPassphrase},
		{EntryRawKey, domain.KeyOriginKeyringRaw},
	} {
		v, ok, err := r.store.Get(ctx, slot.entry)
		if err != nil {
			return domain.KeyOriginNone, err
		}
		present := ok && len(v) > 0
		memzero.Zero(v)
		if present {
			return slot.origin, nil
		}
	}
	return domain.KeyOriginNone, nil
}

func (r *Resolver) envPassphrase() (string, bool) {
	v, ok := r.lookupEnv(EnvPassphrase)
	return v, ok && v != ""
}

func (r *Resolver) derive(pass []byte) (*secret.Buffer, error) {
	defer memzero.Zero(pass)
	return crypto.DeriveKey(pass, r.kdf)
}

func decodeRawKey(encoded []byte) (*secret.Buffer, error) {
	defer memzero.Zero(encoded)

	if hex.DecodedLen(len(encoded)) != crypto.KeyBytes {
		return nil, fmt.Errorf("%w: keyring entry %q is not a %d-byte key", domain.ErrProviderFailure, EntryRawKey, crypto.KeyBytes)
	}
	raw := make([]byte, crypto.KeyBytes)
	if _, err := hex.Decode(raw, encoded); err != nil {
		memzero.Zero(raw)
		return nil, fmt.Errorf("%w: keyring entry %q is not valid hex", domain.ErrProviderFailure, EntryRawKey)
	}
	return secret.NewFromBytes(raw)
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len([]rune(passphrase)) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

var _ domain.KeySource = (*Resolver)(nil)
