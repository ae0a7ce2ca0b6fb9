package x3dh

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"keyward/internal/crypto"
	"keyward/internal/domain"
	"keyward/internal/protocol/ratchet"
	"keyward/internal/util/memzero"
)

// ErrTranscriptMismatch is returned by Respond when the handshake was
// not computed against the responder's keys.
var ErrTranscriptMismatch = errors.New("x3dh: handshake transcript mismatch")

// Initiator runs the initiator half of X3DH. It implements
// domain.KeyAgreement.
type Initiator struct {
	now func() time.Time
}

// NewInitiator returns an initiator stamping sessions with the wall clock.
func NewInitiator() *Initiator {
	return &Initiator{now: time.Now}
}

// Initiate verifies peer, derives the shared root key, and encrypts
// firstMessage under a Double Ratchet seeded from it. The first
// one-time pre-key in the bundle is used when present.
func (i *Initiator) Initiate(
	self domain.Identity,
	peer domain.PreKeyBundle,
	firstMessage []byte,
) (domain.HandshakeMessage, domain.Session, error) {
	if err := checkBundle(peer); err != nil {
		return domain.HandshakeMessage{}, domain.Session{}, err
	}
	if !VerifySPK(peer.SigningKey, peer.SignedPreKey, peer.SignedPreKeySignature) {
		return domain.HandshakeMessage{}, domain.Session{}, fmt.Errorf(
			"%w: bundle for %q", domain.ErrBadSignedPreKey, peer.Username,
		)
	}

	var (
		opk   *domain.X25519Public
		opkID domain.OneTimePreKeyID
	)
	if len(peer.OneTimePreKeys) > 0 {
		opk, opkID = &peer.OneTimePreKeys[0].Pub, peer.OneTimePreKeys[0].ID
	}

	ephPriv, ephPub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.HandshakeMessage{}, domain.Session{}, err
	}
	defer memzero.Zero(ephPriv[:])

	root, err := InitiatorRootKey(self.XPriv, ephPriv, peer.IdentityKey, peer.SignedPreKey, opk)
	if err != nil {
		return domain.HandshakeMessage{}, domain.Session{}, err
	}
	defer memzero.Zero(root)

	transcript := Transcript(self.XPub, ephPub, peer.IdentityKey, peer.SignedPreKey, opk)

	state, err := ratchet.InitAsInitiator(root, peer.SignedPreKey)
	if err != nil {
		return domain.HandshakeMessage{}, domain.Session{}, err
	}
	header, ciphertext, err := ratchet.Encrypt(&state, transcript[:], firstMessage)
	if err != nil {
		return domain.HandshakeMessage{}, domain.Session{}, err
	}

	msg := domain.HandshakeMessage{
		PreKey: domain.PreKeyMessage{
			InitiatorIdentityKey: self.XPub,
			InitiatorSigningKey:  self.EdPub,
			EphemeralKey:         ephPub,
			SignedPreKeyID:       peer.SignedPreKeyID,
			OneTimePreKeyID:      opkID,
			TranscriptSHA256:     transcript[:],
		},
		Header:     header,
		Ciphertext: ciphertext,
	}
	session := domain.Session{
		ID:              domain.SessionID(hex.EncodeToString(transcript[:])),
		Peer:            peer.Username,
		PeerIdentityKey: peer.IdentityKey,
		PeerSigningKey:  peer.SigningKey,
		SignedPreKeyID:  peer.SignedPreKeyID,
		OneTimePreKeyID: opkID,
		EphemeralKey:    ephPub,
		CreatedUTC:      i.now().UTC().Unix(),
		Ratchet:         state,
	}
	return msg, session, nil
}

// ResponderKeys are the private halves of the pre-keys a responder
// published. OneTimePreKey is nil when the handshake used none.
type ResponderKeys struct {
	Identity      domain.Identity
	SignedPreKey  domain.X25519Private
	OneTimePreKey *domain.X25519Private
}

// Respond completes a handshake on the responder side and returns the
// first message and the matching session.
func Respond(keys ResponderKeys, msg domain.HandshakeMessage, now time.Time) ([]byte, domain.Session, error) {
	if (msg.PreKey.OneTimePreKeyID != "") != (keys.OneTimePreKey != nil) {
		return nil, domain.Session{}, fmt.Errorf("%w: one-time pre-key usage differs", ErrTranscriptMismatch)
	}

	spkPub, err := crypto.PublicX25519(keys.SignedPreKey)
	if err != nil {
		return nil, domain.Session{}, err
	}
	var opkPub *domain.X25519Public
	if keys.OneTimePreKey != nil {
		pub, err := crypto.PublicX25519(*keys.OneTimePreKey)
		if err != nil {
			return nil, domain.Session{}, err
		}
		opkPub = &pub
	}

	transcript := Transcript(msg.PreKey.InitiatorIdentityKey, msg.PreKey.EphemeralKey, keys.Identity.XPub, spkPub, opkPub)
	if subtle.ConstantTimeCompare(transcript[:], msg.PreKey.TranscriptSHA256) != 1 {
		return nil, domain.Session{}, ErrTranscriptMismatch
	}

	root, err := ResponderRootKey(
		keys.Identity.XPriv,
		keys.SignedPreKey,
		keys.OneTimePreKey,
		msg.PreKey.InitiatorIdentityKey,
		msg.PreKey.EphemeralKey,
	)
	if err != nil {
		return nil, domain.Session{}, err
	}
	defer memzero.Zero(root)

	if len(msg.Header.DiffieHellmanPublicKey) != 32 {
		return nil, domain.Session{}, fmt.Errorf("%w: bad ratchet header", ErrTranscriptMismatch)
	}
	var senderRatchet domain.X25519Public
	copy(senderRatchet[:], msg.Header.DiffieHellmanPublicKey)

	state, err := ratchet.InitAsResponder(root, keys.SignedPreKey, senderRatchet)
	if err != nil {
		return nil, domain.Session{}, err
	}
	plaintext, err := ratchet.Decrypt(&state, transcript[:], msg.Header, msg.Ciphertext)
	if err != nil {
		return nil, domain.Session{}, err
	}

	return plaintext, domain.Session{
		ID:              domain.SessionID(hex.EncodeToString(transcript[:])),
		PeerIdentityKey: msg.PreKey.InitiatorIdentityKey,
		PeerSigningKey:  msg.PreKey.InitiatorSigningKey,
		SignedPreKeyID:  msg.PreKey.SignedPreKeyID,
		OneTimePreKeyID: msg.PreKey.OneTimePreKeyID,
		EphemeralKey:    msg.PreKey.EphemeralKey,
		CreatedUTC:      now.UTC().Unix(),
		Ratchet:         state,
	}, nil
}

// checkBundle rejects bundles missing a key or identifier.
func checkBundle(b domain.PreKeyBundle) error {
	switch {
	case b.IdentityKey.IsZero():
		return fmt.Errorf("%w: missing identity key", domain.ErrMalformedBundle)
	case b.SigningKey.IsZero():
		return fmt.Errorf("%w: missing signing key", domain.ErrMalformedBundle)
	case b.SignedPreKey.IsZero():
		return fmt.Errorf("%w: missing signed pre-key", domain.ErrMalformedBundle)
	case b.SignedPreKeyID == "":
		return fmt.Errorf("%w: missing signed pre-key id", domain.ErrMalformedBundle)
	case len(b.SignedPreKeySignature) == 0:
		return fmt.Errorf("%w: missing signed pre-key signature", domain.ErrMalformedBundle)
	}
	for _, opk := range b.OneTimePreKeys {
		if opk.Pub.IsZero() || opk.ID == "" {
			return fmt.Errorf("%w: incomplete one-time pre-key", domain.ErrMalformedBundle)
		}
	}
	return nil
}

var _ domain.KeyAgreement = (*Initiator)(nil)
