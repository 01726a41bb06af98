package sessions

import (
	"sync"
	"time"
)

type entry struct {
	session  *Session
	lastSeen time.Time
}

// Store keeps sessions in memory and evicts the ones idle longer than the TTL.
type Store struct {
	idleTTL time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewStore builds an empty store; a non-positive idleTTL disables eviction.
func NewStore(idleTTL time.Duration, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{idleTTL: idleTTL, now: now, sessions: map[string]*entry{}}
}

func (s *Store) Put(sess *Session) {
	s.mu.Lock()
	s.sessions[sess.ID] = &entry{session: sess, lastSeen: s.now()}
	s.mu.Unlock()
}

// Get returns the session and marks it as recently used.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = s.now()
	return e.session, true
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes idle sessions and returns their ids.
func (s *Store) Sweep() []string {
	if s.idleTTL <= 0 {
		return nil
	}
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	var evicted []string
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}
