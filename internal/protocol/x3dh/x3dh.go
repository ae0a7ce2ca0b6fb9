package x3dh

import (
	"bytes"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"keyward/internal/crypto"
	"keyward/internal/domain"
	"keyward/internal/util/memzero"
)

// info labels both the HKDF output and the transcript hash.
const info = "keyward/x3dh/v1"

// InitiatorRootKey derives the root key for the initiator using X3DH.
func InitiatorRootKey(
	ourIDPriv domain.X25519Private,
	ourEphPriv domain.X25519Private,
	peerIDPub domain.X25519Public,
	peerSPK domain.X25519Public,
	peerOPK *domain.X25519Public,
) ([]byte, error) {
	pairs := []dhPair{
		{ourIDPriv, peerSPK},    // DH(IKA, SPKB)
		{ourEphPriv, peerIDPub}, // DH(EKA, IKB)
		{ourEphPriv, peerSPK},   // DH(EKA, SPKB)
	}
	if peerOPK != nil {
		pairs = append(pairs, dhPair{ourEphPriv, *peerOPK}) // DH(EKA, OPKB)
	}

	return rootKey(pairs)
}

// ResponderRootKey derives the same root key on the responder side.
func ResponderRootKey(
	ourIDPriv domain.X25519Private,
	ourSPKPriv domain.X25519Private,
	ourOPKPriv *domain.X25519Private,
	peerIDPub domain.X25519Public,
	peerEphPub domain.X25519Public,
) ([]byte, error) {
	pairs := []dhPair{
		{ourSPKPriv, peerIDPub},  // DH(SPKB, IKA)
		{ourIDPriv, peerEphPub},  // DH(IKB, EKA)
		{ourSPKPriv, peerEphPub}, // DH(SPKB, EKA)
	}
	if ourOPKPriv != nil {
		pairs = append(pairs, dhPair{*ourOPKPriv, peerEphPub}) // DH(OPKB, EKA)
	}

	return rootKey(pairs)
}

// VerifySPK checks the signed prekey signature.
func VerifySPK(edPub domain.Ed25519Public, spk domain.X25519Public, sig []byte) bool {
	return crypto.VerifyEd25519(edPub, spk.Slice(), sig)
}

// Transcript hashes the public inputs of a handshake. Both sides compute
// the same value; its hex form is the session ID.
func Transcript(
	initiatorIK, ephemeral, responderIK, signedPreKey domain.X25519Public,
	oneTimePreKey *domain.X25519Public,
) [sha256.Size]byte {
	var buf bytes.Buffer
	buf.Write(initiatorIK[:])
	buf.Write(ephemeral[:])
	buf.Write(responderIK[:])
	buf.Write(signedPreKey[:])
	if oneTimePreKey != nil {
		buf.Write(oneTimePreKey[:])
	}
	buf.WriteString(info)
	return sha256.Sum256(buf.Bytes())
}

type dhPair struct {
	priv domain.X25519Private
	pub  domain.X25519Public
}

// rootKey runs HKDF-SHA256 over F || DH1 || ... || DHn with F = 32 0xFF
// bytes and a zero salt.
func rootKey(pairs []dhPair) ([]byte, error) {
	ikm := make([]byte, 0, 32*(len(pairs)+1))
	defer memzero.Zero(ikm[:cap(ikm)])
	ikm = append(ikm, bytes.Repeat([]byte{0xFF}, 32)...)
	for _, p := range pairs {
		out, err := crypto.DH(p.priv, p.pub)
		if err != nil {
			return nil, err
		}
		ikm = append(ikm, out[:]...)
		memzero.Zero(out[:])
	}

	root := make([]byte, 32)
	r := hkdf.New(sha256.New, ikm, make([]byte, sha256.Size), []byte(info))
	if _, err := io.ReadFull(r, root); err != nil {
		return nil, err
	}
	return root, nil
}
