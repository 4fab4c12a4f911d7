// Package session holds in-flight questionnaire sessions in a time-bounded
// in-memory map. The store is the only state shared across requests; each
// session carries its own lock so racing actions on one session id
// serialize instead of interleaving destructively.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"permitwise/internal/domain"
	"permitwise/internal/flow"
	"permitwise/internal/questions"
)

var ErrNotFound = errors.New("session not found")

// Session is one user's in-progress permit assessment.
type Session struct {
	mu sync.Mutex

	ID           string
	ProjectType  domain.ProjectType
	Jurisdiction domain.JurisdictionContext
	Questions    *questions.Engine
	Checklist    *flow.Controller
	Result       *domain.Assessment
	CreatedAt    time.Time
}

// Lock serializes access to the session's mutable state.
func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Store is a TTL-bounded map from session id to session state.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	Now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		Now:      time.Now,
	}
}

func (st *Store) now() time.Time {
	if st.Now != nil {
		return st.Now()
	}
	return time.Now()
}

// Put registers a session, stamping its creation time.
func (st *Store) Put(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s.CreatedAt = st.now()
	st.sessions[s.ID] = s
}

// Get returns a live session. Expired sessions are evicted on access even
// between sweeps.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if st.now().Sub(s.CreatedAt) > st.ttl {
		delete(st.sessions, id)
		return nil, ErrNotFound
	}
	return s, nil
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep evicts sessions past their TTL and returns how many were removed.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	cutoff := st.now().Add(-st.ttl)
	removed := 0
	for id, s := range st.sessions {
		if s.CreatedAt.Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs periodic sweeps until ctx is done. Eviction is the only
// background activity of the store and is independent of in-flight requests.
func (st *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st.Sweep()
			}
		}
	}()
}
