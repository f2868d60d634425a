package cache

import (
	"context"
	"strings"
	"sync"

	"go.jumpsca.re/runestone/domain"
)

// UserStore implements domain.UserRepository in memory. Email uniqueness
// is case-insensitive, matching the Mongo collation.
type UserStore struct {
	mu        sync.Mutex
	byID      map[string]*domain.User
	idByEmail map[string]string
}

// NewUserStore creates an empty in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		byID:      map[string]*domain.User{},
		idByEmail: map[string]string{},
	}
}

func (s *UserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = domain.NewID()
	}
	key := strings.ToLower(user.Email)
	if _, ok := s.idByEmail[key]; ok {
		return domain.ErrDuplicate
	}
	if _, ok := s.byID[user.ID]; ok {
		return domain.ErrDuplicate
	}

	stored := *user
	s.byID[stored.ID] = &stored
	s.idByEmail[key] = stored.ID
	return nil
}

func (s *UserStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.idByEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *s.byID[id]
	return &copied, nil
}

func (s *UserStore) UpdatePassword(_ context.Context, id string, hashedPassword, salt []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	stored.HashedPassword = hashedPassword
	stored.Salt = salt
	return nil
}

var _ domain.UserRepository = (*UserStore)(nil)
