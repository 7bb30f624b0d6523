package admin

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"certis/internal/identity/models"
	"certis/internal/sentinel"
	"certis/pkg/strutil"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return wrapped sentinel.ErrNotFound when the requested identity does not exist
// - Return wrapped sentinel.ErrConflict when a uniqueness invariant would break
// - Return nil for successful operations

// InMemoryStore stores administrators in memory. Used in tests and when no
// database is configured.
type InMemoryStore struct {
	mu     sync.RWMutex
	admins map[uuid.UUID]*models.Admin
}

// New constructs an empty in-memory admin store.
func New() *InMemoryStore {
	return &InMemoryStore{admins: make(map[uuid.UUID]*models.Admin)}
}

// Create inserts a new admin, enforcing case-insensitive email uniqueness.
func (s *InMemoryStore) Create(_ context.Context, admin *models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strutil.NormalizeEmail(admin.Email)
	for _, existing := range s.admins {
		if strutil.NormalizeEmail(existing.Email) == email {
			return fmt.Errorf("admin email taken: %w", sentinel.ErrConflict)
		}
	}
	s.admins[admin.ID] = admin
	return nil
}

// Update overwrites an existing admin record.
func (s *InMemoryStore) Update(_ context.Context, admin *models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[admin.ID]; !ok {
		return fmt.Errorf("admin not found: %w", sentinel.ErrNotFound)
	}
	s.admins[admin.ID] = admin
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, adminID uuid.UUID) (*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if admin, ok := s.admins[adminID]; ok {
		return admin, nil
	}
	return nil, fmt.Errorf("admin not found: %w", sentinel.ErrNotFound)
}

// FindByEmail looks up an admin by case-insensitive email.
func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strutil.NormalizeEmail(email)
	for _, admin := range s.admins {
		if strutil.NormalizeEmail(admin.Email) == email {
			return admin, nil
		}
	}
	return nil, fmt.Errorf("admin not found: %w", sentinel.ErrNotFound)
}

// ListAll returns every admin ordered by creation time descending.
func (s *InMemoryStore) ListAll(_ context.Context) ([]*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	admins := make([]*models.Admin, 0, len(s.admins))
	for _, admin := range s.admins {
		admins = append(admins, admin)
	}
	sort.Slice(admins, func(i, j int) bool {
		return admins[i].CreatedAt.After(admins[j].CreatedAt)
	})
	return admins, nil
}

// Count returns the number of admin records.
func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.admins), nil
}
