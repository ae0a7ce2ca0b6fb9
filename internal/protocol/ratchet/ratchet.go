package ratchet

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"keyward/internal/crypto"
	"keyward/internal/domain"
	"keyward/internal/util/memzero"
)

const (
	chainKeySize = 32
	nonceSize    = chacha20poly1305.NonceSize
	maxSkipped   = 1000
)

var (
	// ErrTooManySkipped is returned when a header would require deriving
	// more skipped message keys than allowed.
	ErrTooManySkipped = errors.New("ratchet: too many skipped messages")
	// ErrDecrypt is returned when a message fails authentication.
	ErrDecrypt = errors.New("ratchet: message authentication failed")

	errChainUninitialised = errors.New("ratchet: chain key is uninitialised")
	errBadHeader          = errors.New("ratchet: malformed header")
)

// InitAsInitiator seeds the sending chain from root and the peer's
// current ratchet public key (for a fresh session, its signed pre-key).
func InitAsInitiator(root []byte, peerRatchetPub domain.X25519Public) (domain.RatchetState, error) {
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.RatchetState{}, err
	}
	dh, err := crypto.DH(priv, peerRatchetPub)
	if err != nil {
		return domain.RatchetState{}, err
	}
	rootKey, sendCK := kdfRK(root, dh[:])
	memzero.Zero(dh[:])

	return domain.RatchetState{
		RootKey:                 rootKey,
		DiffieHellmanPrivate:    priv,
		DiffieHellmanPublic:     pub,
		PeerDiffieHellmanPublic: peerRatchetPub,
		SendChainKey:            sendCK,
		SkippedKeys:             make(map[string][]byte),
	}, nil
}

// InitAsResponder seeds the receiving chain from root, our ratchet
// private key (the signed pre-key the initiator used) and the sender's
// ratchet public key from the first header.
func InitAsResponder(
	root []byte,
	ourPriv domain.X25519Private,
	senderRatchetPub domain.X25519Public,
) (domain.RatchetState, error) {
	dh, err := crypto.DH(ourPriv, senderRatchetPub)
	if err != nil {
		return domain.RatchetState{}, err
	}
	rootKey, recvCK := kdfRK(root, dh[:])
	memzero.Zero(dh[:])

	return domain.RatchetState{
		RootKey:                 rootKey,
		DiffieHellmanPrivate:    ourPriv,
		PeerDiffieHellmanPublic: senderRatchetPub,
		ReceiveChainKey:         recvCK,
		SkippedKeys:             make(map[string][]byte),
	}, nil
}

// Encrypt produces a header and ciphertext, stepping the DH ratchet on
// the first send after receiving.
func Encrypt(st *domain.RatchetState, ad, plaintext []byte) (domain.RatchetHeader, []byte, error) {
	if len(st.SendChainKey) == 0 {
		if err := stepSend(st); err != nil {
			return domain.RatchetHeader{}, nil, err
		}
	}

	mk, err := advance(&st.SendChainKey)
	if err != nil {
		return domain.RatchetHeader{}, nil, err
	}
	defer memzero.Zero(mk)

	h := domain.RatchetHeader{
		DiffieHellmanPublicKey: append([]byte(nil), st.DiffieHellmanPublic.Slice()...),
		PreviousChainLength:    st.PreviousChainLength,
		MessageIndex:           st.SendMessageIndex,
	}
	ct, err := seal(mk, h, ad, plaintext)
	if err != nil {
		return domain.RatchetHeader{}, nil, err
	}
	st.SendMessageIndex++
	return h, ct, nil
}

// Decrypt opens a message, using a stored skipped key or advancing the
// chains as the header requires. On error st is left unchanged.
func Decrypt(st *domain.RatchetState, ad []byte, header domain.RatchetHeader, ciphertext []byte) ([]byte, error) {
	if len(header.DiffieHellmanPublicKey) != 32 {
		return nil, errBadHeader
	}
	var peer domain.X25519Public
	copy(peer[:], header.DiffieHellmanPublicKey)

	id := skippedKeyID(peer, header.MessageIndex)
	if mk, ok := st.SkippedKeys[id]; ok {
		pt, err := open(mk, header, ad, ciphertext)
		if err != nil {
			return nil, err
		}
		memzero.Zero(mk)
		delete(st.SkippedKeys, id)
		return pt, nil
	}

	next := Clone(*st)
	if subtle.ConstantTimeCompare(peer[:], next.PeerDiffieHellmanPublic[:]) != 1 {
		if err := skipUntil(&next, header.PreviousChainLength); err != nil {
			return nil, err
		}
		if err := stepReceive(&next, peer); err != nil {
			return nil, err
		}
	}
	if err := skipUntil(&next, header.MessageIndex); err != nil {
		return nil, err
	}

	mk, err := advance(&next.ReceiveChainKey)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(mk)
	pt, err := open(mk, header, ad, ciphertext)
	if err != nil {
		return nil, err
	}
	next.ReceiveMessageIndex++
	*st = next
	return pt, nil
}

// stepSend replaces our ratchet key and derives a new sending chain.
func stepSend(st *domain.RatchetState) error {
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return err
	}
	dh, err := crypto.DH(priv, st.PeerDiffieHellmanPublic)
	if err != nil {
		return err
	}
	st.RootKey, st.SendChainKey = kdfRK(st.RootKey, dh[:])
	memzero.Zero(dh[:])

	st.PreviousChainLength = st.SendMessageIndex
	st.SendMessageIndex = 0
	st.DiffieHellmanPrivate, st.DiffieHellmanPublic = priv, pub
	return nil
}

// stepReceive adopts a new peer ratchet key. The sending chain is
// cleared so the next Encrypt steps our own key.
func stepReceive(st *domain.RatchetState, peer domain.X25519Public) error {
	dh, err := crypto.DH(st.DiffieHellmanPrivate, peer)
	if err != nil {
		return err
	}
	st.RootKey, st.ReceiveChainKey = kdfRK(st.RootKey, dh[:])
	memzero.Zero(dh[:])

	st.PeerDiffieHellmanPublic = peer
	st.ReceiveMessageIndex = 0
	st.SendChainKey = nil
	return nil
}

// skipUntil stores message keys for the current receiving chain up to n.
func skipUntil(st *domain.RatchetState, n uint32) error {
	if len(st.ReceiveChainKey) == 0 || st.ReceiveMessageIndex >= n {
		return nil
	}
	if n-st.ReceiveMessageIndex > maxSkipped || len(st.SkippedKeys)+int(n-st.ReceiveMessageIndex) > maxSkipped {
		return ErrTooManySkipped
	}
	for st.ReceiveMessageIndex < n {
		mk, err := advance(&st.ReceiveChainKey)
		if err != nil {
			return err
		}
		st.SkippedKeys[skippedKeyID(st.PeerDiffieHellmanPublic, st.ReceiveMessageIndex)] = mk
		st.ReceiveMessageIndex++
	}
	return nil
}

func seal(mk []byte, header domain.RatchetHeader, ad, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(mk)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, messageNonce(header), plaintext, associatedData(ad, header)), nil
}

func open(mk []byte, header domain.RatchetHeader, ad, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(mk)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, messageNonce(header), ciphertext, associatedData(ad, header))
	if err != nil {
		return nil, fmt.Errorf("%w (message %d)", ErrDecrypt, header.MessageIndex)
	}
	return pt, nil
}

// Each message key is used once, so a counter nonce is sufficient.
func messageNonce(h domain.RatchetHeader) []byte {
	nonce := make([]byte, nonceSize)
	binary.BigEndian.PutUint32(nonce[nonceSize-4:], h.MessageIndex)
	return nonce
}

func associatedData(ad []byte, h domain.RatchetHeader) []byte {
	out := make([]byte, 0, len(ad)+len(h.DiffieHellmanPublicKey)+8)
	out = append(out, ad...)
	out = append(out, h.DiffieHellmanPublicKey...)
	out = binary.BigEndian.AppendUint32(out, h.PreviousChainLength)
	out = binary.BigEndian.AppendUint32(out, h.MessageIndex)
	return out
}

// HKDF-based KDFs with labels.
func kdfRK(rk, dh []byte) (newRK, ck []byte) {
	r := hkdf.New(sha256.New, dh, rk, []byte("keyward/dr/rk"))
	newRK = make([]byte, chainKeySize)
	ck = make([]byte, chainKeySize)
	_, _ = io.ReadFull(r, newRK)
	_, _ = io.ReadFull(r, ck)
	return
}

func kdfCK(ck []byte) (nextCK, mk []byte) {
	r := hkdf.New(sha256.New, ck, nil, []byte("keyward/dr/ck"))
	nextCK = make([]byte, chainKeySize)
	mk = make([]byte, chainKeySize)
	_, _ = io.ReadFull(r, nextCK)
	_, _ = io.ReadFull(r, mk)
	return
}

// advance steps the chain in place and returns the next message key.
func advance(ck *[]byte) ([]byte, error) {
	if len(*ck) == 0 {
		return nil, errChainUninitialised
	}
	next, mk := kdfCK(*ck)
	memzero.Zero(*ck)
	*ck = next
	return mk, nil
}

func skippedKeyID(peer domain.X25519Public, n uint32) string {
	b := make([]byte, 0, 36)
	b = append(b, peer[:]...)
	b = binary.BigEndian.AppendUint32(b, n)
	return string(b)
}

// Clone returns a deep copy of st.
func Clone(st domain.RatchetState) domain.RatchetState {
	out := st
	out.RootKey = cloneBytes(st.RootKey)
	out.SendChainKey = cloneBytes(st.SendChainKey)
	out.ReceiveChainKey = cloneBytes(st.ReceiveChainKey)
	out.SkippedKeys = make(map[string][]byte, len(st.SkippedKeys))
	for k, v := range st.SkippedKeys {
		out.SkippedKeys[k] = append([]byte(nil), v...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
