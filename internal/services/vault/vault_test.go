package vault_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"keyward/internal/config"
	"keyward/internal/crypto"
	"keyward/internal/domain"
	"keyward/internal/envelope"
	"keyward/internal/identity"
	"keyward/internal/logging"
	"keyward/internal/protocol/x3dh"
	"keyward/internal/secret"
	"keyward/internal/services/session"
	"keyward/internal/services/vault"
)

type staticKey []byte

func (k staticKey) Resolve(context.Context) (*secret.Buffer, error) {
	return secret.NewFromBytes(append([]byte(nil), k...))
}

type noKey struct{}

func (noKey) Resolve(context.Context) (*secret.Buffer, error) { return nil, domain.ErrNoMasterKey }

func newVault(path string, key byte) *vault.Vault {
	aead := crypto.NewAEAD(staticKey(bytes.Repeat([]byte{key}, crypto.KeyBytes)))
	return vault.New(path, aead, x3dh.NewInitiator(), logging.Discard())
}

func bundle(t *testing.T) domain.PreKeyBundle {
	t.Helper()
	peer, err := identity.Generate()
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := identity.NewBundle(peer, "bob", 1, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestVault_EmptyConfig(t *testing.T) {
	v := newVault(filepath.Join(t.TempDir(), config.FileName), 1)

	err := v.View(context.Background(), func(s *session.Store) error {
		if _, err := s.Identity(); !errors.Is(err, domain.ErrNoIdentity) {
			t.Fatalf("want ErrNoIdentity, got %v", err)
		}
		if len(s.Sessions()) != 0 {
			t.Fatal("sessions in an empty config")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestVault_UpdatePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), config.FileName)
	v := newVault(path, 1)

	var (
		id   domain.Identity
		sess domain.Session
	)
	err := v.Update(ctx, func(s *session.Store) error {
		var err error
		if id, err = s.ProvisionIdentity(); err != nil {
			return err
		}
		_, sess, err = s.Establish(ctx, bundle(t), []byte("hi"))
		return err
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	err = newVault(path, 1).View(ctx, func(s *session.Store) error {
		got, err := s.Identity()
		if err != nil {
			return err
		}
		if got.XPub != id.XPub {
			t.Fatal("identity changed across save")
		}
		_, err = s.Lookup(sess.ID)
		return err
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestVault_FailedUpdateLeavesFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), config.FileName)
	v := newVault(path, 1)
	if err := v.Update(ctx, func(s *session.Store) error {
		_, err := s.ProvisionIdentity()
		return err
	}); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err = v.Update(ctx, func(s *session.Store) error {
		if _, _, err := s.RotateIdentity(); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	// A second identity provision fails, so nothing is written.
	err = v.Update(ctx, func(s *session.Store) error {
		_, err := s.ProvisionIdentity()
		return err
	})
	if !errors.Is(err, domain.ErrIdentityExists) {
		t.Fatalf("want ErrIdentityExists, got %v", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("failed update changed the file")
	}
}

func TestVault_WrongKeyOrTamper(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), config.FileName)
	if err := newVault(path, 1).Update(ctx, func(s *session.Store) error {
		_, err := s.ProvisionIdentity()
		return err
	}); err != nil {
		t.Fatal(err)
	}

	noop := func(*session.Store) error { return nil }
	if err := newVault(path, 2).View(ctx, noop); !errors.Is(err, domain.ErrDecryptionFailed) {
		t.Fatalf("wrong key: want ErrDecryptionFailed, got %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	token := []byte(cfg.Crypto)
	last := len(token) - 1
	if token[last] == 'A' {
		token[last] = 'B'
	} else {
		token[last] = 'A'
	}
	cfg.Crypto = envelope.Sealed[domain.CryptoConfiguration](token)
	if err := config.Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	if err := newVault(path, 1).View(ctx, noop); !errors.Is(err, domain.ErrDecryptionFailed) {
		t.Fatalf("tampered: want ErrDecryptionFailed, got %v", err)
	}
}

func TestVault_MissingKeyPropagates(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), config.FileName)
	if err := newVault(path, 1).Update(ctx, func(s *session.Store) error {
		_, err := s.ProvisionIdentity()
		return err
	}); err != nil {
		t.Fatal(err)
	}

	v := vault.New(path, crypto.NewAEAD(noKey{}), x3dh.NewInitiator(), logging.Discard())
	if err := v.View(ctx, func(*session.Store) error { return nil }); !errors.Is(err, domain.ErrNoMasterKey) {
		t.Fatalf("want ErrNoMasterKey, got %v", err)
	}
}
