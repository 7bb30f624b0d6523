package holder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"certis/internal/identity/models"
	"certis/internal/sentinel"
	"certis/pkg/strutil"
)

// InMemoryStore stores credential holders in memory. Used in tests and
// when no database is configured.
type InMemoryStore struct {
	mu      sync.RWMutex
	holders map[uuid.UUID]*models.Holder
}

// New constructs an empty in-memory holder store.
func New() *InMemoryStore {
	return &InMemoryStore{holders: make(map[uuid.UUID]*models.Holder)}
}

// Create inserts a new holder, enforcing case-insensitive email uniqueness
// and holder code uniqueness.
func (s *InMemoryStore) Create(_ context.Context, holder *models.Holder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strutil.NormalizeEmail(holder.Email)
	for _, existing := range s.holders {
		if strutil.NormalizeEmail(existing.Email) == email {
			return fmt.Errorf("holder email taken: %w", sentinel.ErrConflict)
		}
		if existing.HolderCode == holder.HolderCode {
			return fmt.Errorf("holder code taken: %w", sentinel.ErrConflict)
		}
	}
	s.holders[holder.ID] = holder
	return nil
}

// Update overwrites an existing holder record.
func (s *InMemoryStore) Update(_ context.Context, holder *models.Holder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.holders[holder.ID]; !ok {
		return fmt.Errorf("holder not found: %w", sentinel.ErrNotFound)
	}
	s.holders[holder.ID] = holder
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, holderID uuid.UUID) (*models.Holder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if holder, ok := s.holders[holderID]; ok {
		return holder, nil
	}
	return nil, fmt.Errorf("holder not found: %w", sentinel.ErrNotFound)
}

// FindByEmail looks up a holder by case-insensitive email.
func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*models.Holder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strutil.NormalizeEmail(email)
	for _, holder := range s.holders {
		if strutil.NormalizeEmail(holder.Email) == email {
			return holder, nil
		}
	}
	return nil, fmt.Errorf("holder not found: %w", sentinel.ErrNotFound)
}

// FindByCode looks up a holder by its unique holder code.
func (s *InMemoryStore) FindByCode(_ context.Context, code string) (*models.Holder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, holder := range s.holders {
		if holder.HolderCode == code {
			return holder, nil
		}
	}
	return nil, fmt.Errorf("holder not found: %w", sentinel.ErrNotFound)
}

// List returns a page of holders matching the filter, ordered by creation
// time descending, along with the total matching count.
func (s *InMemoryStore) List(_ context.Context, page, pageSize int, filter models.HolderFilter) ([]*models.Holder, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Holder
	for _, holder := range s.holders {
		if !matchesFilter(holder, filter) {
			continue
		}
		matched = append(matched, holder)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (page - 1) * pageSize
	if start >= total {
		return []*models.Holder{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// AppendCertificate adds a certificate reference to the holder's list.
func (s *InMemoryStore) AppendCertificate(_ context.Context, holderID uuid.UUID, certificateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	holder, ok := s.holders[holderID]
	if !ok {
		return fmt.Errorf("holder not found: %w", sentinel.ErrNotFound)
	}
	holder.CertificateIDs = append(holder.CertificateIDs, certificateID)
	return nil
}

func matchesFilter(holder *models.Holder, filter models.HolderFilter) bool {
	if filter.Status != "" && holder.Status != filter.Status {
		return false
	}
	if filter.Program != "" && !strings.EqualFold(holder.Program, filter.Program) {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(holder.Name), needle) &&
			!strings.Contains(strings.ToLower(holder.Email), needle) &&
			!strings.Contains(strings.ToLower(holder.HolderCode), needle) {
			return false
		}
	}
	return true
}
