// Package memory is the in-memory session store behind the default
// backend. Everything lives for the process lifetime only.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/core"
	"github.com/Aura-Ki/Corespeed-Finance-Agent/internal/session"
)

type entry struct {
	session session.Session
	txns    []core.Transaction
}

type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	now      func() time.Time
}

func New() *Store {
	return &Store{
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

func (s *Store) Create(_ context.Context) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := session.Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		LastSeen:  now,
	}
	s.sessions[sess.ID] = &entry{session: sess}
	return sess, nil
}

func (s *Store) Get(_ context.Context, id string) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	return e.session, nil
}

func (s *Store) Touch(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return session.ErrNotFound
	}
	e.session.LastSeen = s.now()
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return session.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// PurgeExpired drops sessions idle since before cutoff, transactions
// included.
func (s *Store) PurgeExpired(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		if e.session.LastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// AppendTransactions adds parsed transactions to the session and counts as
// activity for TTL purposes.
func (s *Store) AppendTransactions(_ context.Context, sessionID string, txns []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return session.ErrNotFound
	}
	e.txns = append(e.txns, txns...)
	e.session.LastSeen = s.now()
	return nil
}

// ListTransactions returns a copy of the session's transactions so callers
// cannot mutate the stored slice.
func (s *Store) ListTransactions(_ context.Context, sessionID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, session.ErrNotFound
	}
	return append([]core.Transaction(nil), e.txns...), nil
}
