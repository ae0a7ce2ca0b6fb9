package identity

import (
	"fmt"
	"time"

	"keyward/internal/crypto"
	"keyward/internal/domain"
)

// Generate creates a fresh identity.
func Generate() (domain.Identity, error) {
	// Generate Diffie-Hellman keypair for X3DH.
	xPriv, xPub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.Identity{}, fmt.Errorf("generating agreement key: %w", err)
	}
	// Generate signing keypair.
	edPriv, edPub, err := crypto.GenerateEd25519()
	if err != nil {
		return domain.Identity{}, fmt.Errorf("generating signing key: %w", err)
	}
	return domain.Identity{XPub: xPub, XPriv: xPriv, EdPub: edPub, EdPriv: edPriv}, nil
}

// Fingerprint returns a short fingerprint of the X25519 public key.
func Fingerprint(id domain.Identity) domain.Fingerprint {
	return domain.Fingerprint(crypto.Fingerprint(id.XPub.Slice()))
}

// PreKeySecrets are the private halves of a published bundle.
type PreKeySecrets struct {
	SignedPreKey domain.X25519Private
	OneTime      map[domain.OneTimePreKeyID]domain.X25519Private
}

// NewBundle creates a signed pre-key and n one-time pre-keys for id and
// returns the public bundle alongside the private keys.
func NewBundle(id domain.Identity, username domain.Username, n int, now time.Time) (domain.PreKeyBundle, PreKeySecrets, error) {
	spkPriv, spkPub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.PreKeyBundle{}, PreKeySecrets{}, err
	}
	bundle := domain.PreKeyBundle{
		Username:              username,
		IdentityKey:           id.XPub,
		SigningKey:            id.EdPub,
		SignedPreKeyID:        domain.SignedPreKeyID(fmt.Sprintf("spk-%d", now.Unix())),
		SignedPreKey:          spkPub,
		SignedPreKeySignature: crypto.SignEd25519(id.EdPriv, spkPub[:]),
	}
	secrets := PreKeySecrets{
		SignedPreKey: spkPriv,
		OneTime:      make(map[domain.OneTimePreKeyID]domain.X25519Private, n),
	}
	for i := range n {
		priv, pub, err := crypto.GenerateX25519()
		if err != nil {
			return domain.PreKeyBundle{}, PreKeySecrets{}, err
		}
		opkID := domain.OneTimePreKeyID(fmt.Sprintf("opk-%d-%d", now.Unix(), i))
		bundle.OneTimePreKeys = append(bundle.OneTimePreKeys, domain.OneTimePreKeyPublic{ID: opkID, Pub: pub})
		secrets.OneTime[opkID] = priv
	}
	return bundle, secrets, nil
}
