package demosite

import (
	"sync"

	"github.com/google/uuid"
)

// session is a logged-in user and their cart. Slugs keep insertion order and
// are distinct, so the count is the number of different products added.
type session struct {
	username string
	cart     []string
}

type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*session)}
}

func (s *sessionStore) create(username string) string {
	id := uuid.New().String()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &session{username: username}
	return id
}

func (s *sessionStore) delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *sessionStore) exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[id]
	return ok
}

// cart returns a copy of the session's cart
func (s *sessionStore) cart(id string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return append([]string(nil), sess.cart...), true
}

// add puts slug in the cart once; adding a slug already present is a no-op
func (s *sessionStore) add(id, slug string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	for _, existing := range sess.cart {
		if existing == slug {
			return append([]string(nil), sess.cart...), true
		}
	}
	sess.cart = append(sess.cart, slug)
	return append([]string(nil), sess.cart...), true
}

func (s *sessionStore) remove(id, slug string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	kept := sess.cart[:0]
	for _, existing := range sess.cart {
		if existing != slug {
			kept = append(kept, existing)
		}
	}
	sess.cart = kept
	return append([]string(nil), sess.cart...), true
}

func (s *sessionStore) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
