package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/99designs/keyring"

	"keyward/internal/config"
	"keyward/internal/domain"
	"keyward/internal/keysource"
	"keyward/internal/logging"
	"keyward/internal/services/session"
)

func TestResolveHome(t *testing.T) {
	t.Setenv(EnvHome, "/from/env")
	if got, _ := ResolveHome("/from/flag"); got != "/from/flag" {
		t.Fatalf("flag not preferred: %q", got)
	}
	if got, _ := ResolveHome(""); got != "/from/env" {
		t.Fatalf("env not used: %q", got)
	}
	t.Setenv(EnvHome, "")
	got, err := ResolveHome("")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != ".keyward" {
		t.Fatalf("unexpected default home %q", got)
	}
}

func TestConfigPath(t *testing.T) {
	if p, _ := (Config{Home: "/h"}).Path(); p != filepath.Join("/h", config.FileName) {
		t.Fatalf("unexpected path %q", p)
	}
	if p, _ := (Config{Home: "/h", ConfigPath: "/c.json"}).Path(); p != "/c.json" {
		t.Fatalf("explicit path ignored: %q", p)
	}
	if _, err := (Config{}).Path(); err == nil {
		t.Fatal("expected error without home")
	}
}

func TestNewWire_EndToEnd(t *testing.T) {
	t.Setenv(keysource.EnvPassphrase, "")
	home := t.TempDir()
	path := filepath.Join(home, config.FileName)

	// Cheap KDF parameters keep the test fast.
	if err := os.WriteFile(path, []byte(`{"kdf": {"time": 1, "memory_kib": 1024, "threads": 1}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	secrets := keysource.WrapKeyring(keyring.NewArrayKeyring(nil))
	cfg := Config{Home: home, Log: logging.Discard()}

	w, err := NewWireWithStore(cfg, secrets)
	if err != nil {
		t.Fatalf("NewWireWithStore: %v", err)
	}
	ctx := context.Background()

	provision := func(s *session.Store) error {
		_, err := s.ProvisionIdentity()
		return err
	}
	if err := w.Vault.Update(ctx, provision); !errors.Is(err, domain.ErrNoMasterKey) {
		t.Fatalf("want ErrNoMasterKey before key init, got %v", err)
	}
	if err := w.Keys.Initialize(ctx, false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := w.Vault.Update(ctx, provision); err != nil {
		t.Fatalf("Update: %v", err)
	}

	w2, err := NewWireWithStore(cfg, secrets)
	if err != nil {
		t.Fatal(err)
	}
	if w2.Config.Crypto.IsZero() {
		t.Fatal("sealed crypto section not saved")
	}
	if w2.Config.KDF.Time != 1 {
		t.Fatal("kdf settings lost on save")
	}
	if err := w2.Vault.View(ctx, func(s *session.Store) error {
		_, err := s.Identity()
		return err
	}); err != nil {
		t.Fatalf("View: %v", err)
	}
}

func TestNewWire_FileKeyringUnderHome(t *testing.T) {
	t.Setenv(keysource.EnvPassphrase, "")
	t.Setenv(keysource.EnvFilePassword, "correct horse")
	home := t.TempDir()
	if got := (Config{Home: home}).KeyringDir(); got != filepath.Join(home, "keyring") {
		t.Fatalf("KeyringDir = %q", got)
	}

	path := filepath.Join(home, config.FileName)
	if err := os.WriteFile(path, []byte(`{"kdf": {"time": 1, "memory_kib": 1024, "threads": 1}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	w, err := NewWire(Config{Home: home, KeyringBackend: "file", Log: logging.Discard()})
	if err != nil {
		t.Fatalf("NewWire: %v", err)
	}
	ctx := context.Background()
	if err := w.Keys.Initialize(ctx, false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	desc, err := w.Keys.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if desc.Origin != domain.KeyOriginKeyringRaw {
		t.Fatalf("origin = %v", desc.Origin)
	}
	if _, err := os.Stat(filepath.Join(home, "keyring")); err != nil {
		t.Fatalf("keyring dir: %v", err)
	}
}
