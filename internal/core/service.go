package core

import (
	"crypto/subtle"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sparklabs/sparksearch/internal/config"
	"github.com/sparklabs/sparksearch/internal/filter"
	"github.com/sparklabs/sparksearch/internal/store"
	"github.com/sparklabs/sparksearch/internal/tabular"
)

// Service provides the application's business logic. The store handle may be
// nil, in which case searches run against the session's in-memory table only
// (offline/CLI mode).
type Service struct {
	store store.Store
	cfg   *config.Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

// Session is the explicit per-user context passed to every operation. It
// holds immutable snapshots of the current table and the last search, so no
// state hides in globals across requests.
type Session struct {
	ID        string
	LoggedIn  bool
	CreatedAt time.Time
	ExpiresAt time.Time

	// FileName and Table snapshot the most recent successful upload.
	// Ingested records whether that upload reached the store; when it did
	// not, searches must use the snapshot, since the store still holds
	// whatever was ingested before.
	FileName string
	Table    *tabular.Table
	Ingested bool

	// LastSpec and LastResult snapshot the most recent search, for export.
	LastSpec   filter.Spec
	LastResult *tabular.Table
}

// NewService creates a Service around the given store (which may be nil).
func NewService(st store.Store, cfg *config.Config) *Service {
	return &Service{
		store:    st,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Store exposes the persistence adapter, or nil in offline mode.
func (s *Service) Store() store.Store {
	return s.store
}

// Login checks the credential pair against the configured values and creates
// a logged-in session. Both fields are compared in constant time.
func (s *Service) Login(username, password string) (*Session, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.Auth.Username))
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Auth.Password))
	if userOK&passOK != 1 {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	sess := &Session{
		ID:        uuid.New().String(),
		LoggedIn:  true,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.Auth.SessionTTL),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return sess, nil
}

// Logout removes a session. Unknown IDs are ignored.
func (s *Service) Logout(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// Session returns the session for an ID if it exists and has not expired.
// Expired sessions are removed on access.
func (s *Service) Session(sessionID string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(sess.ExpiresAt) {
		s.Logout(sessionID)
		return nil, false
	}
	return sess, true
}

// NewLocalSession creates a logged-in session outside the HTTP flow, for CLI
// use where the credential gate does not apply.
func (s *Service) NewLocalSession() *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New().String(),
		LoggedIn:  true,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.Auth.SessionTTL),
	}
}
