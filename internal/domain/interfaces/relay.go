package interfaces

import (
	"context"

	domaintypes "keyward/internal/domain/types"
)

// RelayClient fetches published pre-key bundles from a relay server.
type RelayClient interface {
	FetchPreKeyBundle(
		ctx context.Context,
		username domaintypes.Username,
	) (domaintypes.PreKeyBundle, error)
}
