// Package memory holds process-local stores with the same semantics as the
// database-backed repositories. Data is lost on restart.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"savora/internal/model"
	"savora/internal/repository"
)

type UserStore struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]model.User)}
}

func (s *UserStore) Create(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username || strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrDuplicateKey
		}
	}
	if _, ok := s.users[user.ID]; ok {
		return repository.ErrDuplicateKey
	}
	s.users[user.ID] = *user
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (s *UserStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return s.findOne(func(u model.User) bool { return u.Username == username })
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return s.findOne(func(u model.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *UserStore) Update(_ context.Context, id string, patch model.UserPatch) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	if patch.Bio != nil {
		user.Bio = *patch.Bio
	}
	if patch.ProfileImage != nil {
		user.ProfileImage = *patch.ProfileImage
	}
	user.UpdatedAt = time.Now().UTC()
	s.users[id] = user
	return &user, nil
}

func (s *UserStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return false, nil
	}
	delete(s.users, id)
	return true, nil
}

func (s *UserStore) findOne(match func(model.User) bool) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if match(user) {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}
