package cache

import (
	"context"
	"slices"
	"sync"

	"go.jumpsca.re/runestone/domain"
)

// SessionStore implements domain.SessionRepository in memory. Sessions do
// not self-expire, so a plain locked map suffices; the mutex also gives
// the same rotation race protection the Mongo version gets from its
// conditional update.
type SessionStore struct {
	mu          sync.Mutex
	byID        map[string]*domain.Session
	idByAccess  map[string]string
	idByRefresh map[string]string
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		byID:        map[string]*domain.Session{},
		idByAccess:  map[string]string{},
		idByRefresh: map[string]string{},
	}
}

func (s *SessionStore) Create(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.ID == "" {
		session.ID = domain.NewID()
	}
	if session.Version == 0 {
		session.Version = 1
	}
	if _, ok := s.idByAccess[session.Access]; ok {
		return domain.ErrDuplicate
	}
	if _, ok := s.idByRefresh[session.Refresh]; ok {
		return domain.ErrDuplicate
	}

	stored := *session
	s.byID[stored.ID] = &stored
	s.idByAccess[stored.Access] = stored.ID
	s.idByRefresh[stored.Refresh] = stored.ID
	return nil
}

func (s *SessionStore) FindByAccess(_ context.Context, access string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(s.idByAccess[access])
}

func (s *SessionStore) FindByRefresh(_ context.Context, refresh string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(s.idByRefresh[refresh])
}

func (s *SessionStore) lookup(id string) (*domain.Session, error) {
	stored, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (s *SessionStore) RotateAccess(_ context.Context, session *domain.Session, newAccess string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[session.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != session.Version {
		return domain.ErrConflict
	}

	delete(s.idByAccess, stored.Access)
	stored.Access = newAccess
	stored.Version++
	s.idByAccess[newAccess] = stored.ID

	session.Access = newAccess
	session.Version = stored.Version
	return nil
}

func (s *SessionStore) DeleteByUser(_ context.Context, userID string, exceptAccess ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, stored := range s.byID {
		if stored.UserID != userID {
			continue
		}
		if slices.Contains(exceptAccess, stored.Access) {
			continue
		}
		delete(s.idByAccess, stored.Access)
		delete(s.idByRefresh, stored.Refresh)
		delete(s.byID, id)
		deleted++
	}
	return deleted, nil
}

var _ domain.SessionRepository = (*SessionStore)(nil)
