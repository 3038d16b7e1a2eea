// Package auth holds the in-memory login session store. Sessions are
// opaque uuid tokens carried in a cookie; restarting the server signs
// everyone out.
package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session ties a token to a user until it expires.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// Store is a concurrency-safe session registry with a fixed TTL.
type Store struct {
	mu       sync.Mutex
	sessions map[string]Session
	ttl      time.Duration
}

// NewStore creates a Store whose sessions live for ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]Session),
		ttl:      ttl,
	}
}

// Create registers a new session for a user and returns it.
func (s *Store) Create(userID string) Session {
	sess := Session{
		Token:     uuid.New().String(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.ttl),
	}

	s.mu.Lock()
	s.prune()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()

	return sess
}

// Get looks up a session by token. Expired sessions are removed on
// lookup and reported as absent.
func (s *Store) Get(token string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return Session{}, false
	}
	if time.Now().After(sess.ExpiresAt) {
		delete(s.sessions, token)
		return Session{}, false
	}
	return sess, true
}

// Delete removes a session, signing the holder out.
func (s *Store) Delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// prune drops expired sessions. Callers hold s.mu.
func (s *Store) prune() {
	now := time.Now()
	for token, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, token)
		}
	}
}
