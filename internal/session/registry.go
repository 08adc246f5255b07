package session

import (
	"errors"
	"sync"
	"time"

	"figurachat/internal/models"
)

// ErrSessionNotFound is returned when an operation targets a visitor with no
// live session.
var ErrSessionNotFound = errors.New("session not found")

// Session is the in-memory state of one connected visitor. All access goes
// through the engine, which holds mu across each operation.
type Session struct {
	mu sync.Mutex

	UserID         string
	ConversationID int64
	Order          *models.Order
	// Current is the active step id, empty once the order is confirmed.
	Current string
	// ReturnStep remembers where to resume after a cleared section is filled
	// back in.
	ReturnStep  string
	ConnectedAt time.Time
}

// Registry tracks the live sessions by visitor id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Get returns the session for the visitor, if connected.
func (r *Registry) Get(userID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userID]
	return s, ok
}

// Put registers a session, replacing any previous one for the visitor.
func (r *Registry) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.UserID] = s
}

// Remove drops the visitor's session.
func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
