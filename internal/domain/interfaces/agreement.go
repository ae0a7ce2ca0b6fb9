package interfaces

import domaintypes "keyward/internal/domain/types"

// KeyAgreement runs the initiator half of a session handshake. The
// returned Session carries an ID derived from the handshake transcript.
type KeyAgreement interface {
	Initiate(
		self domaintypes.Identity,
		peer domaintypes.PreKeyBundle,
		firstMessage []byte,
	) (domaintypes.HandshakeMessage, domaintypes.Session, error)
}
