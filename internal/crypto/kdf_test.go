package crypto_test

import (
	"testing"

	"keyward/internal/crypto"
)

func fastParams() crypto.KDFParams {
	p := crypto.DefaultKDFParams()
	p.Time = 1
	p.MemoryKiB = 1024
	p.Threads = 1
	return p
}

func TestDeriveKey_Deterministic(t *testing.T) {
	p := fastParams()

	a, err := crypto.DeriveKey([]byte("pass phrase"), p)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	defer a.Close()
	b, err := crypto.DeriveKey([]byte("pass phrase"), p)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	defer b.Close()

	if a.Len() != crypto.KeyBytes {
		t.Fatalf("want %d-byte key, got %d", crypto.KeyBytes, a.Len())
	}
	if !a.Equal(b) {
		t.Fatal("same pass-phrase and parameters produced different keys")
	}
}

func TestDeriveKey_SaltAndPassphraseMatter(t *testing.T) {
	p := fastParams()
	base, err := crypto.DeriveKey([]byte("pass phrase"), p)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	defer base.Close()

	other, err := crypto.DeriveKey([]byte("pass phrasf"), p)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	defer other.Close()
	if base.Equal(other) {
		t.Fatal("different pass-phrases produced the same key")
	}

	p.Salt = []byte("another-sixteen-byte-salt")
	salted, err := crypto.DeriveKey([]byte("pass phrase"), p)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	defer salted.Close()
	if base.Equal(salted) {
		t.Fatal("different salts produced the same key")
	}
}

func TestKDFParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*crypto.KDFParams)
	}{
		{"zero time", func(p *crypto.KDFParams) { p.Time = 0 }},
		{"zero threads", func(p *crypto.KDFParams) { p.Threads = 0 }},
		{"tiny memory", func(p *crypto.KDFParams) { p.MemoryKiB = 4 }},
		{"short salt", func(p *crypto.KDFParams) { p.Salt = []byte("short") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := fastParams()
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
			if _, err := crypto.DeriveKey([]byte("x"), p); err == nil {
				t.Fatal("DeriveKey accepted invalid parameters")
			}
		})
	}
	if err := crypto.DefaultKDFParams().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestDeriveKey_EmptyPassphrase(t *testing.T) {
	if _, err := crypto.DeriveKey(nil, fastParams()); err == nil {
		t.Fatal("expected error for empty pass-phrase")
	}
}

func TestKeyCheck(t *testing.T) {
	k := []byte("0123456789abcdef0123456789abcdef")
	got := crypto.KeyCheck(k)
	if len(got) != 8 {
		t.Fatalf("want 8 hex chars, got %q", got)
	}
	if got != crypto.KeyCheck(k) {
		t.Fatal("KeyCheck not deterministic")
	}
	if got == crypto.KeyCheck([]byte("0123456789abcdef0123456789abcdeF")) {
		t.Fatal("KeyCheck collided for different keys")
	}
}
