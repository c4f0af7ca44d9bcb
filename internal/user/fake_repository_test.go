// AngelaMos | 2026
// fake_repository_test.go

package user

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/carterperez-dev/storefront-api/internal/core"
)

type memoryRepository struct {
	mu     sync.Mutex
	users  map[string]User
	nextID int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{users: make(map[string]User)}
}

func (m *memoryRepository) conflict(u *User) error {
	for id, other := range m.users {
		if id == u.ID {
			continue
		}
		if other.Email == u.Email {
			return core.DuplicateError("email")
		}
		if other.Username == u.Username {
			return core.DuplicateError("username")
		}
	}
	return nil
}

func (m *memoryRepository) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.conflict(u); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	m.nextID++
	now := time.Now().Add(time.Duration(m.nextID) * time.Millisecond)
	u.ID = "u" + strconv.Itoa(m.nextID)
	u.CreatedAt, u.UpdatedAt = now, now
	m.users[u.ID] = *u
	return nil
}

func (m *memoryRepository) GetByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	return &u, nil
}

func (m *memoryRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
}

func (m *memoryRepository) Update(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return fmt.Errorf("update user: %w", core.ErrNotFound)
	}
	if err := m.conflict(u); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	u.UpdatedAt = time.Now()
	m.users[u.ID] = *u
	return nil
}

func (m *memoryRepository) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func (m *memoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return fmt.Errorf("delete user: %w", core.ErrNotFound)
	}
	delete(m.users, id)
	return nil
}

func (m *memoryRepository) List(_ context.Context, p ListUsersParams) ([]User, int, error) {
	p.Normalize()
	m.mu.Lock()
	defer m.mu.Unlock()

	search := strings.ToLower(p.Search)
	var matched []User
	for _, u := range m.users {
		if search != "" && !strings.Contains(strings.ToLower(u.Username+" "+u.Email+" "+u.FirstName+" "+u.LastName), search) {
			continue
		}
		if p.Role != "" && u.Role != p.Role {
			continue
		}
		if p.IsActive != nil && u.IsActive != *p.IsActive {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := min(p.Offset(), total)
	end := min(start+p.Limit, total)
	return matched[start:end], total, nil
}

func (m *memoryRepository) ExistsByEmail(_ context.Context, email, excludeID string) (bool, error) {
	return m.exists(func(u User) bool { return u.Email == email }, excludeID), nil
}

func (m *memoryRepository) ExistsByUsername(_ context.Context, username, excludeID string) (bool, error) {
	return m.exists(func(u User) bool { return u.Username == username }, excludeID), nil
}

func (m *memoryRepository) exists(match func(User) bool, excludeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if id != excludeID && match(u) {
			return true
		}
	}
	return false
}

func (m *memoryRepository) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

type revokeSpy struct {
	mu      sync.Mutex
	revoked []string
	err     error
}

func (s *revokeSpy) RevokeAll(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.revoked = append(s.revoked, userID)
	return nil
}

func (s *revokeSpy) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.revoked...)
}
