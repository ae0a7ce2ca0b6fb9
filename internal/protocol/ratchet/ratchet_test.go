package ratchet_test

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"keyward/internal/crypto"
	"keyward/internal/domain"
	"keyward/internal/protocol/ratchet"
)

// pair returns initiator and responder states sharing a root key, as
// they would after X3DH with the responder's signed pre-key.
func pair(t *testing.T) (a, b domain.RatchetState, first domain.RatchetHeader, firstCT []byte) {
	t.Helper()
	rk := bytes.Repeat([]byte{0x42}, 32)

	spkPriv, spkPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	a, err = ratchet.InitAsInitiator(rk, spkPub)
	if err != nil {
		t.Fatalf("InitAsInitiator: %v", err)
	}
	first, firstCT, err = ratchet.Encrypt(&a, nil, []byte("hi"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	var senderPub domain.X25519Public
	copy(senderPub[:], first.DiffieHellmanPublicKey)
	b, err = ratchet.InitAsResponder(rk, spkPriv, senderPub)
	if err != nil {
		t.Fatalf("InitAsResponder: %v", err)
	}
	return a, b, first, firstCT
}

func TestDoubleRatchet_OneRoundTrip(t *testing.T) {
	_, b, header, ct := pair(t)

	pt, err := ratchet.Decrypt(&b, nil, header, ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(pt) != "hi" {
		t.Fatalf("got %q, want %q", pt, "hi")
	}
}

func TestDoubleRatchet_Conversation(t *testing.T) {
	a, b, h, ct := pair(t)
	if _, err := ratchet.Decrypt(&b, nil, h, ct); err != nil {
		t.Fatalf("Decrypt first: %v", err)
	}

	send := func(from, to *domain.RatchetState, msg string) {
		t.Helper()
		h, ct, err := ratchet.Encrypt(from, []byte("ad"), []byte(msg))
		if err != nil {
			t.Fatalf("Encrypt %q: %v", msg, err)
		}
		pt, err := ratchet.Decrypt(to, []byte("ad"), h, ct)
		if err != nil {
			t.Fatalf("Decrypt %q: %v", msg, err)
		}
		if string(pt) != msg {
			t.Fatalf("got %q, want %q", pt, msg)
		}
	}

	send(&b, &a, "reply 1")
	send(&b, &a, "reply 2")
	send(&a, &b, "second from a")
	send(&b, &a, "reply 3")
	send(&a, &b, "third from a")
}

func TestDoubleRatchet_OutOfOrder(t *testing.T) {
	a, b, h0, ct0 := pair(t)

	type msg struct {
		h  domain.RatchetHeader
		ct []byte
	}
	msgs := []msg{{h0, ct0}}
	for i := 1; i < 4; i++ {
		h, ct, err := ratchet.Encrypt(&a, nil, []byte(fmt.Sprintf("m%d", i)))
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		msgs = append(msgs, msg{h, ct})
	}

	for _, i := range []int{0, 3, 1, 2} {
		pt, err := ratchet.Decrypt(&b, nil, msgs[i].h, msgs[i].ct)
		if err != nil {
			t.Fatalf("Decrypt m%d: %v", i, err)
		}
		want := fmt.Sprintf("m%d", i)
		if i == 0 {
			want = "hi"
		}
		if string(pt) != want {
			t.Fatalf("got %q, want %q", pt, want)
		}
	}
	if len(b.SkippedKeys) != 0 {
		t.Fatalf("skipped keys not consumed: %d left", len(b.SkippedKeys))
	}

	// Replaying a consumed message fails.
	if _, err := ratchet.Decrypt(&b, nil, msgs[1].h, msgs[1].ct); err == nil {
		t.Fatal("replayed message decrypted")
	}
}

func TestDoubleRatchet_TamperLeavesStateUnchanged(t *testing.T) {
	_, b, h, ct := pair(t)

	bad := append([]byte(nil), ct...)
	bad[0] ^= 1
	before := ratchet.Clone(b)
	if _, err := ratchet.Decrypt(&b, nil, h, bad); !errors.Is(err, ratchet.ErrDecrypt) {
		t.Fatalf("want ErrDecrypt, got %v", err)
	}
	if !bytes.Equal(before.ReceiveChainKey, b.ReceiveChainKey) || before.ReceiveMessageIndex != b.ReceiveMessageIndex {
		t.Fatal("failed decrypt mutated state")
	}
	if _, err := ratchet.Decrypt(&b, nil, h, ct); err != nil {
		t.Fatalf("genuine message rejected after tamper attempt: %v", err)
	}
}

func TestDoubleRatchet_TooManySkipped(t *testing.T) {
	_, b, h, ct := pair(t)

	h.MessageIndex = 5000
	if _, err := ratchet.Decrypt(&b, nil, h, ct); !errors.Is(err, ratchet.ErrTooManySkipped) {
		t.Fatalf("want ErrTooManySkipped, got %v", err)
	}
}

func TestClone_IsDeep(t *testing.T) {
	a, _, _, _ := pair(t)
	a.SkippedKeys["k"] = []byte{1, 2, 3}

	c := ratchet.Clone(a)
	c.SendChainKey[0] ^= 0xff
	c.RootKey[0] ^= 0xff
	c.SkippedKeys["k"][0] = 9

	if a.SendChainKey[0] == c.SendChainKey[0] || a.RootKey[0] == c.RootKey[0] || a.SkippedKeys["k"][0] != 1 {
		t.Fatal("Clone shares memory with the original")
	}
}
