package interfaces

import (
	"context"

	"keyward/internal/secret"
)

// KeySource hands out the master key. The caller owns the returned
// buffer and must Close it as soon as the key is no longer needed.
type KeySource interface {
	Resolve(ctx context.Context) (*secret.Buffer, error)
}

// SecretStore is OS-level secure storage addressed by entry name.
// Get reports ok=false for a missing entry; Remove of a missing entry
// is not an error.
type SecretStore interface {
	Get(ctx context.Context, name string) (value []byte, ok bool, err error)
	Set(ctx context.Context, name string, value []byte) error
	Remove(ctx context.Context, name string) error
}
