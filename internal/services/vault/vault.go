package vault

import (
	"context"

	"keyward/internal/config"
	"keyward/internal/domain"
	"keyward/internal/envelope"
	"keyward/internal/logging"
	"keyward/internal/services/session"
)

// Vault is the load → open → mutate → seal → save pipeline over one
// configuration file.
type Vault struct {
	path      string
	sealer    *envelope.Sealer[domain.CryptoConfiguration]
	agreement domain.KeyAgreement
	log       logging.Logger
}

// New returns a vault for the configuration file at path.
func New(path string, cipher envelope.Cipher, agreement domain.KeyAgreement, log logging.Logger) *Vault {
	return &Vault{
		path:      path,
		sealer:    envelope.NewSealer[domain.CryptoConfiguration](cipher, envelope.CBOR(), log),
		agreement: agreement,
		log:       log,
	}
}

// Path returns the configuration file path.
func (v *Vault) Path() string { return v.path }

// View runs fn against the stored sessions without saving.
func (v *Vault) View(ctx context.Context, fn func(*session.Store) error) error {
	_, store, err := v.open(ctx)
	if err != nil {
		return err
	}
	return fn(store)
}

// Update runs fn and, if it succeeds, reseals the store and saves the
// configuration.
func (v *Vault) Update(ctx context.Context, fn func(*session.Store) error) error {
	cfg, store, err := v.open(ctx)
	if err != nil {
		return err
	}
	if err := fn(store); err != nil {
		return err
	}

	token, err := v.sealer.Seal(ctx, store.Snapshot())
	if err != nil {
		return err
	}
	cfg.Crypto = token
	if err := config.Save(v.path, cfg); err != nil {
		return err
	}
	v.log.Debugf("saved %s", v.path)
	return nil
}

func (v *Vault) open(ctx context.Context) (*config.Config, *session.Store, error) {
	cfg, err := config.Load(v.path)
	if err != nil {
		return nil, nil, err
	}
	var crypto domain.CryptoConfiguration
	if !cfg.Crypto.IsZero() {
		crypto, err = v.sealer.Open(ctx, cfg.Crypto)
		if err != nil {
			return nil, nil, err
		}
	}
	return cfg, session.New(crypto, v.agreement, v.log), nil
}
