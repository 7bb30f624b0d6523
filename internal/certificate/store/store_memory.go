package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"certis/internal/certificate/models"
	"certis/internal/sentinel"
)

// InMemoryStore keeps certificates in memory. Used in tests and when no
// database is configured.
type InMemoryStore struct {
	mu    sync.RWMutex
	certs map[string]*models.Certificate
}

// NewInMemory constructs an empty in-memory certificate store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{certs: make(map[string]*models.Certificate)}
}

// Create inserts a certificate, failing if the identifier already exists.
func (s *InMemoryStore) Create(_ context.Context, cert *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.certs[cert.CertificateID]; ok {
		return fmt.Errorf("certificate id taken: %w", sentinel.ErrConflict)
	}
	s.certs[cert.CertificateID] = cert
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, certificateID string) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if cert, ok := s.certs[certificateID]; ok {
		copied := *cert
		return &copied, nil
	}
	return nil, fmt.Errorf("certificate not found: %w", sentinel.ErrNotFound)
}

// FindByHolder returns certificates referencing the holder, matched by
// holder id or by denormalized email, newest first. When validOnly is
// set, revoked certificates are excluded.
func (s *InMemoryStore) FindByHolder(_ context.Context, holderID uuid.UUID, email string, validOnly bool) ([]*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(email)
	var matched []*models.Certificate
	for _, cert := range s.certs {
		if cert.HolderID != holderID && strings.ToLower(cert.HolderEmail) != email {
			continue
		}
		if validOnly && cert.Status != models.StatusValid {
			continue
		}
		copied := *cert
		matched = append(matched, &copied)
	}
	sortByIssuedDesc(matched)
	return matched, nil
}

// List returns a page of certificates matching the filter, ordered by
// issuance time descending, with the total matching count.
func (s *InMemoryStore) List(_ context.Context, page, pageSize int, filter models.Filter) ([]*models.Certificate, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Certificate
	for _, cert := range s.certs {
		if filter.Status != "" && cert.Status != filter.Status {
			continue
		}
		if filter.HolderEmail != "" && !strings.EqualFold(cert.HolderEmail, filter.HolderEmail) {
			continue
		}
		if filter.Course != "" && !strings.EqualFold(cert.Course, filter.Course) {
			continue
		}
		copied := *cert
		matched = append(matched, &copied)
	}
	sortByIssuedDesc(matched)

	total := len(matched)
	start := (page - 1) * pageSize
	if start >= total {
		return []*models.Certificate{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// SetRevoked atomically moves a Valid certificate to Revoked. The check
// and the write happen under one lock so two concurrent revocations
// cannot both succeed.
func (s *InMemoryStore) SetRevoked(_ context.Context, certificateID string, revokedBy uuid.UUID, reason string, now time.Time) (*models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cert, ok := s.certs[certificateID]
	if !ok {
		return nil, fmt.Errorf("certificate not found: %w", sentinel.ErrNotFound)
	}
	if cert.Status == models.StatusRevoked {
		return nil, fmt.Errorf("certificate %s: %w", certificateID, sentinel.ErrAlreadyRevoked)
	}

	cert.Status = models.StatusRevoked
	cert.RevokedBy = revokedBy
	cert.RevokedAt = now
	cert.RevocationReason = reason

	copied := *cert
	return &copied, nil
}

// CountByStatus returns certificate counts per status.
func (s *InMemoryStore) CountByStatus(_ context.Context) (models.StatusCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var counts models.StatusCounts
	for _, cert := range s.certs {
		switch cert.Status {
		case models.StatusValid:
			counts.Valid++
		case models.StatusRevoked:
			counts.Revoked++
		case models.StatusPending:
			counts.Pending++
		}
	}
	return counts, nil
}

// CountIssuedSince returns the number of certificates issued at or after
// the given time.
func (s *InMemoryStore) CountIssuedSince(_ context.Context, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, cert := range s.certs {
		if !cert.IssuedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func sortByIssuedDesc(certs []*models.Certificate) {
	sort.Slice(certs, func(i, j int) bool {
		if certs[i].IssuedAt.Equal(certs[j].IssuedAt) {
			// tie-break on id for a stable order
			return certs[i].CertificateID > certs[j].CertificateID
		}
		return certs[i].IssuedAt.After(certs[j].IssuedAt)
	})
}
