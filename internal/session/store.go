// Package session keeps the in-memory editing sessions. Each session
// owns one form state tree; the form is single-session, single-writer
// by construction, so the per-session mutex only guards against
// overlapping HTTP requests for the same id.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"census-backend/internal/form"
)

// Session is one editing session: a fresh empty tree that is mutated
// field by field and discarded after a successful submission.
type Session struct {
	ID        string
	State     *form.State
	CreatedAt time.Time

	mu        sync.Mutex
	updatedAt time.Time // guarded by mu; cleanup reads it concurrently
}

// WithLock runs fn while holding the session's edit lock and stamps the
// update time.
func (s *Session) WithLock(fn func(state *form.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := fn(s.State)
	s.updatedAt = time.Now()
	return err
}

// LastUpdated returns the time of the most recent edit
func (s *Session) LastUpdated() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Store holds the live sessions
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewStore creates a session store. Sessions idle longer than ttl are
// removed by the cleanup goroutine.
func NewStore(ttl time.Duration) *Store {
	st := &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
	go st.cleanup()
	return st
}

// Create starts a new session with an empty tree
func (st *Store) Create() *Session {
	now := time.Now()
	sess := &Session{
		ID:        uuid.NewString(),
		State:     form.NewState(),
		CreatedAt: now,
		updatedAt: now,
	}

	st.mu.Lock()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()
	return sess
}

// Get returns the session with the given id
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.sessions[id]
	return sess, ok
}

// Delete discards a session
func (st *Store) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Count returns the number of live sessions
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// cleanup removes idle sessions periodically. LastUpdated takes the
// session mutex, so the read is ordered against concurrent edits; lock
// order is always store then session, never the reverse.
func (st *Store) cleanup() {
	ticker := time.NewTicker(st.ttl)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-st.ttl)
		st.mu.Lock()
		for id, sess := range st.sessions {
			if sess.LastUpdated().Before(cutoff) {
				delete(st.sessions, id)
			}
		}
		st.mu.Unlock()
	}
}
