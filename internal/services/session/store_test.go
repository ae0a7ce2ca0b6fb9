package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"keyward/internal/domain"
	"keyward/internal/identity"
	"keyward/internal/logging"
	"keyward/internal/protocol/x3dh"
	"keyward/internal/services/session"
)

func newStore(t *testing.T) *session.Store {
	t.Helper()
	return session.New(domain.CryptoConfiguration{}, x3dh.NewInitiator(), logging.Discard())
}

func peerBundle(t *testing.T, name domain.Username) domain.PreKeyBundle {
	t.Helper()
	id, err := identity.Generate()
	if err != nil {
		t.Fatal(err)
	}
	bundle, _, err := identity.NewBundle(id, name, 1, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return bundle
}

func TestStore_RequiresIdentity(t *testing.T) {
	s := newStore(t)

	if _, err := s.Identity(); !errors.Is(err, domain.ErrNoIdentity) {
		t.Fatalf("Identity: want ErrNoIdentity, got %v", err)
	}
	if _, _, err := s.RotateIdentity(); !errors.Is(err, domain.ErrNoIdentity) {
		t.Fatalf("RotateIdentity: want ErrNoIdentity, got %v", err)
	}
	if _, _, err := s.Establish(context.Background(), peerBundle(t, "bob"), nil); !errors.Is(err, domain.ErrNoIdentity) {
		t.Fatalf("Establish: want ErrNoIdentity, got %v", err)
	}
}

func TestStore_ProvisionOnce(t *testing.T) {
	s := newStore(t)

	id, err := s.ProvisionIdentity()
	if err != nil {
		t.Fatalf("ProvisionIdentity: %v", err)
	}
	if _, err := s.ProvisionIdentity(); !errors.Is(err, domain.ErrIdentityExists) {
		t.Fatalf("want ErrIdentityExists, got %v", err)
	}
	got, err := s.Identity()
	if err != nil || got != id {
		t.Fatalf("Identity = %v, %v", got.XPub, err)
	}
}

func TestStore_EstablishAndLookup(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if _, err := s.ProvisionIdentity(); err != nil {
		t.Fatal(err)
	}

	msg, sess, err := s.Establish(ctx, peerBundle(t, "bob"), []byte("hello"))
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}
	if len(msg.Ciphertext) == 0 {
		t.Fatal("no first message ciphertext")
	}

	got, err := s.Lookup(sess.ID)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.ID != sess.ID || got.Peer != "bob" {
		t.Fatalf("Lookup returned %+v", got)
	}
	if _, err := s.Lookup("unknown"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
}

func TestStore_RotationInvalidatesSessions(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	old, err := s.ProvisionIdentity()
	if err != nil {
		t.Fatal(err)
	}

	var ids []domain.SessionID
	for _, peer := range []domain.Username{"bob", "carol"} {
		_, sess, err := s.Establish(ctx, peerBundle(t, peer), nil)
		if err != nil {
			t.Fatalf("Establish %s: %v", peer, err)
		}
		ids = append(ids, sess.ID)
	}

	fresh, dropped, err := s.RotateIdentity()
	if err != nil {
		t.Fatalf("RotateIdentity: %v", err)
	}
	if dropped != 2 {
		t.Fatalf("want 2 sessions dropped, got %d", dropped)
	}
	if fresh.XPub == old.XPub {
		t.Fatal("rotation kept the old identity")
	}
	for _, id := range ids {
		if _, err := s.Lookup(id); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("session %s survived rotation: %v", id, err)
		}
	}
	if got := s.Snapshot(); len(got.Sessions) != 0 || got.Identity.XPub != fresh.XPub {
		t.Fatal("snapshot does not reflect rotation")
	}
}

func TestStore_FailedEstablishLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if _, err := s.ProvisionIdentity(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Establish(ctx, peerBundle(t, "bob"), nil); err != nil {
		t.Fatal(err)
	}

	bad := peerBundle(t, "mallory")
	bad.SignedPreKeySignature[0] ^= 0xff
	if _, _, err := s.Establish(ctx, bad, nil); !errors.Is(err, domain.ErrBadSignedPreKey) {
		t.Fatalf("want ErrBadSignedPreKey, got %v", err)
	}

	incomplete := peerBundle(t, "mallory")
	incomplete.IdentityKey = domain.X25519Public{}
	if _, _, err := s.Establish(ctx, incomplete, nil); !errors.Is(err, domain.ErrMalformedBundle) {
		t.Fatalf("want ErrMalformedBundle, got %v", err)
	}

	if n := len(s.Sessions()); n != 1 {
		t.Fatalf("want 1 session, got %d", n)
	}
}

func TestStore_ForgetAndList(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if _, err := s.ProvisionIdentity(); err != nil {
		t.Fatal(err)
	}
	var ids []domain.SessionID
	for i := range 3 {
		_, sess, err := s.Establish(ctx, peerBundle(t, domain.Username(fmt.Sprintf("peer-%d", i))), nil)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, sess.ID)
	}

	if err := s.Forget(ids[1]); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if err := s.Forget(ids[1]); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("second Forget: want ErrSessionNotFound, got %v", err)
	}

	list := s.Sessions()
	if len(list) != 2 {
		t.Fatalf("want 2 sessions, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		a, b := list[i-1], list[i]
		if a.CreatedUTC > b.CreatedUTC || (a.CreatedUTC == b.CreatedUTC && a.ID > b.ID) {
			t.Fatal("sessions not sorted by creation then id")
		}
	}
}

func TestStore_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if _, err := s.ProvisionIdentity(); err != nil {
		t.Fatal(err)
	}
	_, sess, err := s.Establish(ctx, peerBundle(t, "bob"), nil)
	if err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()
	snap.Sessions[sess.ID].Ratchet.RootKey[0] ^= 0xff

	again, err := s.Lookup(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.Ratchet.RootKey[0] == snap.Sessions[sess.ID].Ratchet.RootKey[0] {
		t.Fatal("snapshot shares ratchet memory with the store")
	}

	restored := session.New(s.Snapshot(), x3dh.NewInitiator(), logging.Discard())
	if _, err := restored.Lookup(sess.ID); err != nil {
		t.Fatalf("restored store lost session: %v", err)
	}
}

func TestNew_DropsSessionsWithoutIdentity(t *testing.T) {
	cfg := domain.CryptoConfiguration{
		Sessions: map[domain.SessionID]domain.Session{"orphan": {ID: "orphan"}},
	}
	s := session.New(cfg, x3dh.NewInitiator(), logging.Discard())
	if _, err := s.Lookup("orphan"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
}

// recordingAgreement stamps each session with the identity that
// negotiated it.
type recordingAgreement struct {
	mu sync.Mutex
	n  int
}

func (r *recordingAgreement) Initiate(self domain.Identity, peer domain.PreKeyBundle, _ []byte) (domain.HandshakeMessage, domain.Session, error) {
	r.mu.Lock()
	r.n++
	id := domain.SessionID(fmt.Sprintf("s-%d", r.n))
	r.mu.Unlock()
	return domain.HandshakeMessage{}, domain.Session{ID: id, Peer: peer.Username, EphemeralKey: self.XPub}, nil
}

type failingAgreement struct{}

func (failingAgreement) Initiate(domain.Identity, domain.PreKeyBundle, []byte) (domain.HandshakeMessage, domain.Session, error) {
	return domain.HandshakeMessage{}, domain.Session{}, errors.New("relay unreachable")
}

func TestStore_CollaboratorFailure(t *testing.T) {
	s := session.New(domain.CryptoConfiguration{}, failingAgreement{}, logging.Discard())
	if _, err := s.ProvisionIdentity(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Establish(context.Background(), domain.PreKeyBundle{Username: "bob"}, nil); err == nil {
		t.Fatal("expected error")
	}
	if len(s.Sessions()) != 0 {
		t.Fatal("failed establish inserted a session")
	}
}

func TestStore_ConcurrentEstablishAndRotate(t *testing.T) {
	ctx := context.Background()
	s := session.New(domain.CryptoConfiguration{}, &recordingAgreement{}, logging.Discard())
	if _, err := s.ProvisionIdentity(); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 50 {
				if _, _, err := s.Establish(ctx, domain.PreKeyBundle{Username: "bob"}, nil); err != nil {
					t.Errorf("Establish: %v", err)
					return
				}
				if i == 0 && j%10 == 0 {
					if _, _, err := s.RotateIdentity(); err != nil {
						t.Errorf("RotateIdentity: %v", err)
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	id, err := s.Identity()
	if err != nil {
		t.Fatal(err)
	}
	for _, sess := range s.Sessions() {
		if sess.EphemeralKey != id.XPub {
			t.Fatalf("session %s was negotiated under a replaced identity", sess.ID)
		}
	}
}

func TestStore_EstablishHonoursContext(t *testing.T) {
	s := newStore(t)
	if _, err := s.ProvisionIdentity(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := s.Establish(ctx, peerBundle(t, "bob"), nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
