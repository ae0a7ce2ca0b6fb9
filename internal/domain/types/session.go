package types

// Session holds the negotiated state for one peer. It is keyed by ID in
// CryptoConfiguration.Sessions.
type Session struct {
	ID              SessionID       `json:"id"`
	Peer            Username        `json:"peer"`
	PeerIdentityKey X25519Public    `json:"peer_identity_key"`
	PeerSigningKey  Ed25519Public   `json:"peer_signing_key"`
	SignedPreKeyID  SignedPreKeyID  `json:"signed_pre_key_id"`
	OneTimePreKeyID OneTimePreKeyID `json:"one_time_pre_key_id,omitempty"`
	EphemeralKey    X25519Public    `json:"ephemeral_key"`
	CreatedUTC      int64           `json:"created_utc"`
	Ratchet         RatchetState    `json:"ratchet"`
}

// CryptoConfiguration is the sensitive part of the persisted
// configuration. Sessions are bound to Identity: replacing Identity
// must clear Sessions in the same operation.
type CryptoConfiguration struct {
	Identity *Identity              `json:"identity,omitempty"`
	Sessions map[SessionID]Session `json:"sessions"`
}
