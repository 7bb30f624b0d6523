package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certis/internal/certificate/models"
	"certis/internal/sentinel"
)

func newCert(id string, holderID uuid.UUID, issuedAt time.Time) *models.Certificate {
	return &models.Certificate{
		CertificateID: id,
		HolderID:      holderID,
		HolderName:    "Jane Holder",
		HolderEmail:   "jane@example.edu",
		Course:        "Databases",
		Degree:        "MSc",
		Institution:   "Certis Institute",
		IssuedAt:      issuedAt,
		Status:        models.StatusValid,
		LedgerHash:    "abc123",
		IssuedBy:      uuid.New(),
	}
}

func TestCreateDuplicateIDConflict(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	holderID := uuid.New()

	require.NoError(t, store.Create(ctx, newCert("CERT-1-1", holderID, time.Now())))

	err := store.Create(ctx, newCert("CERT-1-1", holderID, time.Now()))
	require.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestFindByIDNotFound(t *testing.T) {
	store := NewInMemory()

	_, err := store.FindByID(context.Background(), "CERT-0-0")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestFindByHolderMatchesIDOrEmail(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	holderID := uuid.New()

	byID := newCert("CERT-1-1", holderID, time.Now())
	byEmail := newCert("CERT-1-2", uuid.New(), time.Now())
	byEmail.HolderEmail = "match@example.edu"
	other := newCert("CERT-1-3", uuid.New(), time.Now())
	other.HolderEmail = "other@example.edu"

	require.NoError(t, store.Create(ctx, byID))
	require.NoError(t, store.Create(ctx, byEmail))
	require.NoError(t, store.Create(ctx, other))

	certs, err := store.FindByHolder(ctx, holderID, "MATCH@example.edu", false)
	require.NoError(t, err)
	assert.Len(t, certs, 2)
}

func TestFindByHolderValidOnly(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	holderID := uuid.New()

	require.NoError(t, store.Create(ctx, newCert("CERT-1-1", holderID, time.Now())))
	require.NoError(t, store.Create(ctx, newCert("CERT-1-2", holderID, time.Now())))

	_, err := store.SetRevoked(ctx, "CERT-1-2", uuid.New(), "duplicate", time.Now())
	require.NoError(t, err)

	valid, err := store.FindByHolder(ctx, holderID, "jane@example.edu", true)
	require.NoError(t, err)
	require.Len(t, valid, 1)
	assert.Equal(t, "CERT-1-1", valid[0].CertificateID)

	all, err := store.FindByHolder(ctx, holderID, "jane@example.edu", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListOrderedByIssuanceDesc(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	holderID := uuid.New()
	base := time.Now()

	for i := 0; i < 5; i++ {
		cert := newCert(fmt.Sprintf("CERT-1-%d", i), holderID, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.Create(ctx, cert))
	}

	page, total, err := store.List(ctx, 1, 3, models.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 3)
	assert.Equal(t, "CERT-1-4", page[0].CertificateID)
	assert.Equal(t, "CERT-1-2", page[2].CertificateID)

	rest, total, err := store.List(ctx, 2, 3, models.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, rest, 2)
}

func TestListFilterByStatus(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	holderID := uuid.New()

	require.NoError(t, store.Create(ctx, newCert("CERT-1-1", holderID, time.Now())))
	require.NoError(t, store.Create(ctx, newCert("CERT-1-2", holderID, time.Now())))
	_, err := store.SetRevoked(ctx, "CERT-1-1", uuid.New(), "error", time.Now())
	require.NoError(t, err)

	revoked, total, err := store.List(ctx, 1, 10, models.Filter{Status: models.StatusRevoked})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, revoked, 1)
	assert.Equal(t, "CERT-1-1", revoked[0].CertificateID)
}

func TestSetRevokedStampsMetadata(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	revoker := uuid.New()
	now := time.Now()

	require.NoError(t, store.Create(ctx, newCert("CERT-1-1", uuid.New(), now)))

	cert, err := store.SetRevoked(ctx, "CERT-1-1", revoker, "duplicate", now)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRevoked, cert.Status)
	assert.Equal(t, revoker, cert.RevokedBy)
	assert.Equal(t, "duplicate", cert.RevocationReason)
	assert.Equal(t, now, cert.RevokedAt)
}

func TestSetRevokedTwiceReturnsAlreadyRevoked(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newCert("CERT-1-1", uuid.New(), time.Now())))

	_, err := store.SetRevoked(ctx, "CERT-1-1", uuid.New(), "first", time.Now())
	require.NoError(t, err)

	_, err = store.SetRevoked(ctx, "CERT-1-1", uuid.New(), "second", time.Now())
	require.ErrorIs(t, err, sentinel.ErrAlreadyRevoked)
}

func TestSetRevokedUnknownIDNotFound(t *testing.T) {
	store := NewInMemory()

	_, err := store.SetRevoked(context.Background(), "CERT-0-0", uuid.New(), "x", time.Now())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestCounts(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	holderID := uuid.New()
	now := time.Now()

	require.NoError(t, store.Create(ctx, newCert("CERT-1-1", holderID, now)))
	require.NoError(t, store.Create(ctx, newCert("CERT-1-2", holderID, now.Add(-40*24*time.Hour))))
	_, err := store.SetRevoked(ctx, "CERT-1-2", uuid.New(), "old", now)
	require.NoError(t, err)

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Valid)
	assert.Equal(t, 1, counts.Revoked)
	assert.Equal(t, 2, counts.Total())

	recent, err := store.CountIssuedSince(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, recent)
}
