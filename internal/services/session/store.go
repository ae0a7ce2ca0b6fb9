package session

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"keyward/internal/domain"
	"keyward/internal/identity"
	"keyward/internal/logging"
	"keyward/internal/protocol/ratchet"
)

// Store is the in-memory session store. It is safe for concurrent use.
type Store struct {
	agreement domain.KeyAgreement
	generate  func() (domain.Identity, error)
	log       logging.Logger

	mu       sync.Mutex
	identity *domain.Identity
	sessions map[domain.SessionID]domain.Session
}

// New returns a store seeded from cfg. cfg is copied; later changes to
// it do not affect the store.
func New(cfg domain.CryptoConfiguration, agreement domain.KeyAgreement, log logging.Logger) *Store {
	s := &Store{
		agreement: agreement,
		generate:  identity.Generate,
		log:       log,
		sessions:  make(map[domain.SessionID]domain.Session, len(cfg.Sessions)),
	}
	if cfg.Identity == nil {
		if len(cfg.Sessions) > 0 {
			log.Warnf("dropping %d sessions stored without an identity", len(cfg.Sessions))
		}
		return s
	}
	id := *cfg.Identity
	s.identity = &id
	for k, v := range cfg.Sessions {
		s.sessions[k] = cloneSession(v)
	}
	return s
}

// Identity returns the current identity.
func (s *Store) Identity() (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity == nil {
		return domain.Identity{}, domain.ErrNoIdentity
	}
	return *s.identity, nil
}

// ProvisionIdentity creates the first identity.
func (s *Store) ProvisionIdentity() (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity != nil {
		return domain.Identity{}, domain.ErrIdentityExists
	}
	id, err := s.generate()
	if err != nil {
		return domain.Identity{}, err
	}
	s.identity = &id
	s.log.Infof("identity provisioned (fingerprint %s)", identity.Fingerprint(id))
	return id, nil
}

// RotateIdentity replaces the identity and drops every session. It
// returns the new identity and the number of sessions dropped.
func (s *Store) RotateIdentity() (domain.Identity, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity == nil {
		return domain.Identity{}, 0, domain.ErrNoIdentity
	}
	id, err := s.generate()
	if err != nil {
		return domain.Identity{}, 0, err
	}
	dropped := len(s.sessions)
	s.identity = &id
	s.sessions = make(map[domain.SessionID]domain.Session)
	s.log.Infof("identity rotated (fingerprint %s), %d sessions invalidated", identity.Fingerprint(id), dropped)
	return id, dropped, nil
}

// Establish runs the key agreement against bundle and records the
// resulting session. On any failure the store is unchanged.
func (s *Store) Establish(
	ctx context.Context,
	bundle domain.PreKeyBundle,
	firstMessage []byte,
) (domain.HandshakeMessage, domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.HandshakeMessage{}, domain.Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity == nil {
		return domain.HandshakeMessage{}, domain.Session{}, domain.ErrNoIdentity
	}
	msg, sess, err := s.agreement.Initiate(*s.identity, bundle, firstMessage)
	if err != nil {
		return domain.HandshakeMessage{}, domain.Session{}, fmt.Errorf("establishing session with %q: %w", bundle.Username, err)
	}
	if sess.ID == "" {
		return domain.HandshakeMessage{}, domain.Session{}, fmt.Errorf("establishing session with %q: key agreement returned no session id", bundle.Username)
	}
	s.sessions[sess.ID] = cloneSession(sess)
	s.log.Debugf("session %s established with %q", sess.ID, sess.Peer)
	return msg, sess, nil
}

// Lookup returns the session with the given id.
func (s *Store) Lookup(id domain.SessionID) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return cloneSession(sess), nil
}

// Forget removes one session.
func (s *Store) Forget(id domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	delete(s.sessions, id)
	return nil
}

// Sessions lists all sessions, oldest first and then by id.
func (s *Store) Sessions() []domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, cloneSession(sess))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedUTC != out[j].CreatedUTC {
			return out[i].CreatedUTC < out[j].CreatedUTC
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Snapshot returns a deep copy of the store's contents for sealing.
func (s *Store) Snapshot() domain.CryptoConfiguration {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := domain.CryptoConfiguration{Sessions: make(map[domain.SessionID]domain.Session, len(s.sessions))}
	if s.identity != nil {
		id := *s.identity
		cfg.Identity = &id
	}
	for k, v := range s.sessions {
		cfg.Sessions[k] = cloneSession(v)
	}
	return cfg
}

func cloneSession(s domain.Session) domain.Session {
	s.Ratchet = ratchet.Clone(s.Ratchet)
	return s
}
