package relay

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"keyward/internal/domain"
	"keyward/internal/logging"
)

// Server is an in-memory relay. It holds one bundle per user; a new
// registration replaces the previous one.
type Server struct {
	mu      sync.RWMutex
	bundles map[domain.Username]domain.PreKeyBundle
	log     logging.Logger
}

// NewServer returns an empty relay that logs registrations to log.
func NewServer(log logging.Logger) *Server {
	return &Server{
		bundles: make(map[domain.Username]domain.PreKeyBundle),
		log:     log,
	}
}

// Handler routes POST /register and GET /prekey/{username}.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", s.register)
	mux.HandleFunc("GET /prekey/{username}", s.prekey)
	return mux
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var b domain.PreKeyBundle
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&b); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if b.Username == "" {
		http.Error(w, "missing username", http.StatusBadRequest)
		return
	}
	s.Register(b)
	w.WriteHeader(http.StatusNoContent)
}

// Register stores b as the current bundle for b.Username.
func (s *Server) Register(b domain.PreKeyBundle) {
	s.mu.Lock()
	s.bundles[b.Username] = b
	s.mu.Unlock()
	s.log.Infof("Registered bundle for %q (%d one-time pre-keys)", b.Username, len(b.OneTimePreKeys))
}

func (s *Server) prekey(w http.ResponseWriter, r *http.Request) {
	username := domain.Username(r.PathValue("username"))
	s.mu.RLock()
	b, ok := s.bundles[username]
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(b); err != nil {
		s.log.Debugf("writing bundle for %q: %v", username, err)
	}
}
