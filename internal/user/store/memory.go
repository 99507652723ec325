package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"chrometour/internal/user"
	"chrometour/pkg/platform/sentinel"
)

// Memory stores users in memory for tests and development. It enforces the
// same uniqueness rules as the PostgreSQL store so the service's write-time
// conflict path is exercisable without a database.
type Memory struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*user.User
}

// NewMemory constructs an empty in-memory user store.
func NewMemory() *Memory {
	return &Memory{nextID: 1, users: make(map[int64]*user.User)}
}

func (s *Memory) Create(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.IsDeleted {
			continue
		}
		if existing.Username == u.Username {
			return &ConflictError{Field: "username"}
		}
		if existing.Email == u.Email {
			return &ConflictError{Field: "email"}
		}
		if u.PhoneNumber != "" && existing.PhoneNumber == u.PhoneNumber {
			return &ConflictError{Field: "phone_number"}
		}
	}

	now := time.Now()
	u.ID = s.nextID
	s.nextID++
	u.CreatedAt = now
	u.UpdatedAt = now

	clone := *u
	s.users[u.ID] = &clone
	return nil
}

func (s *Memory) FindByUsername(_ context.Context, username string) (*user.User, error) {
	return s.findOne(func(u *user.User) bool { return u.Username == username })
}

func (s *Memory) FindByEmail(_ context.Context, email string) (*user.User, error) {
	return s.findOne(func(u *user.User) bool { return u.Email == email })
}

func (s *Memory) FindByPhone(_ context.Context, phone string) (*user.User, error) {
	return s.findOne(func(u *user.User) bool { return u.PhoneNumber != "" && u.PhoneNumber == phone })
}

func (s *Memory) FindByEmailOrPhone(_ context.Context, identifier string) (*user.User, error) {
	return s.findOne(func(u *user.User) bool {
		return u.Email == identifier || (u.PhoneNumber != "" && u.PhoneNumber == identifier)
	})
}

func (s *Memory) Update(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[u.ID]
	if !ok || existing.IsDeleted {
		return fmt.Errorf("user %d: %w", u.ID, sentinel.ErrNotFound)
	}

	u.UpdatedAt = time.Now()
	clone := *u
	s.users[u.ID] = &clone
	return nil
}

func (s *Memory) List(_ context.Context) ([]*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*user.User, 0, len(s.users))
	for _, u := range s.users {
		if u.IsDeleted {
			continue
		}
		clone := *u
		users = append(users, &clone)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *Memory) findOne(match func(*user.User) bool) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.IsDeleted {
			continue
		}
		if match(u) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}
