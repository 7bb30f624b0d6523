//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"certis/internal/certificate/models"
	"certis/internal/certificate/store"
	"certis/internal/sentinel"
	"certis/pkg/testutil/pgtest"
)

type PostgresStoreSuite struct {
	suite.Suite
	store   *store.PostgresStore
	adminID uuid.UUID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.store = store.NewPostgres(pgtest.Connect(s.T()))
}

func (s *PostgresStoreSuite) SetupTest() {
	pgtest.Truncate(s.T(), pgtest.Connect(s.T()), "certificates")
	s.adminID = uuid.New()
}

func (s *PostgresStoreSuite) newCert(id string) *models.Certificate {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Certificate{
		CertificateID:  id,
		HolderID:       uuid.New(),
		HolderName:     "Asha Nair",
		HolderEmail:    "asha@example.edu",
		Course:         "Distributed Systems",
		Degree:         "BSc",
		Institution:    "Certis Institute",
		Grade:          "A",
		CompletionDate: now.AddDate(0, -1, 0),
		IssuedAt:       now,
		Status:         models.StatusValid,
		LedgerHash:     "0f" + id,
		IssuedBy:       s.adminID,
	}
}

// TestCreateFreshCertificate covers the issuance shape exactly as the
// service produces it: no revocation fields set, revocation reason empty.
func (s *PostgresStoreSuite) TestCreateFreshCertificate() {
	ctx := context.Background()

	cert := s.newCert("CERT-1700000000000-000001")
	s.Require().NoError(s.store.Create(ctx, cert))

	got, err := s.store.FindByID(ctx, cert.CertificateID)
	s.Require().NoError(err)
	s.Equal(models.StatusValid, got.Status)
	s.Equal("", got.RevocationReason)
	s.True(got.RevokedAt.IsZero())
	s.Equal(uuid.Nil, got.RevokedBy)
	s.Equal(cert.HolderID, got.HolderID)
	s.Equal(cert.LedgerHash, got.LedgerHash)
	s.WithinDuration(cert.IssuedAt, got.IssuedAt, time.Second)
	s.WithinDuration(cert.CompletionDate, got.CompletionDate, time.Second)
}

func (s *PostgresStoreSuite) TestCreateDuplicateID() {
	ctx := context.Background()

	cert := s.newCert("CERT-1700000000000-000002")
	s.Require().NoError(s.store.Create(ctx, cert))

	dup := s.newCert(cert.CertificateID)
	err := s.store.Create(ctx, dup)
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestFindByIDUnknown() {
	_, err := s.store.FindByID(context.Background(), "CERT-0-000000")
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestSetRevoked() {
	ctx := context.Background()

	cert := s.newCert("CERT-1700000000000-000003")
	s.Require().NoError(s.store.Create(ctx, cert))

	revoker := uuid.New()
	now := time.Now().UTC().Truncate(time.Millisecond)
	revoked, err := s.store.SetRevoked(ctx, cert.CertificateID, revoker, "credential mismatch", now)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, revoked.Status)
	s.Equal("credential mismatch", revoked.RevocationReason)
	s.Equal(revoker, revoked.RevokedBy)
	s.WithinDuration(now, revoked.RevokedAt, time.Second)

	_, err = s.store.SetRevoked(ctx, cert.CertificateID, revoker, "again", now)
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrAlreadyRevoked)
}

func (s *PostgresStoreSuite) TestSetRevokedUnknown() {
	_, err := s.store.SetRevoked(context.Background(), "CERT-0-000000", uuid.New(), "gone", time.Now())
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentRevocation verifies the conditional update admits exactly
// one winner when several revokers race on the same certificate.
func (s *PostgresStoreSuite) TestConcurrentRevocation() {
	ctx := context.Background()

	cert := s.newCert("CERT-1700000000000-000004")
	s.Require().NoError(s.store.Create(ctx, cert))

	const goroutines = 8
	var wg sync.WaitGroup
	var wins atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.SetRevoked(ctx, cert.CertificateID, uuid.New(), "raced", time.Now())
			if err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())

	got, err := s.store.FindByID(ctx, cert.CertificateID)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, got.Status)
}

func (s *PostgresStoreSuite) TestFindByHolder() {
	ctx := context.Background()

	holderID := uuid.New()
	first := s.newCert("CERT-1700000000000-000005")
	first.HolderID = holderID
	first.HolderEmail = "owner@example.edu"
	second := s.newCert("CERT-1700000000000-000006")
	second.HolderID = holderID
	second.HolderEmail = "owner@example.edu"
	other := s.newCert("CERT-1700000000000-000007")

	for _, c := range []*models.Certificate{first, second, other} {
		s.Require().NoError(s.store.Create(ctx, c))
	}
	_, err := s.store.SetRevoked(ctx, second.CertificateID, uuid.New(), "superseded", time.Now())
	s.Require().NoError(err)

	all, err := s.store.FindByHolder(ctx, holderID, "owner@example.edu", false)
	s.Require().NoError(err)
	s.Len(all, 2)

	valid, err := s.store.FindByHolder(ctx, holderID, "owner@example.edu", true)
	s.Require().NoError(err)
	s.Require().Len(valid, 1)
	s.Equal(first.CertificateID, valid[0].CertificateID)
}

func (s *PostgresStoreSuite) TestListWithFilter() {
	ctx := context.Background()

	for i, id := range []string{
		"CERT-1700000000000-000010",
		"CERT-1700000000000-000011",
		"CERT-1700000000000-000012",
	} {
		cert := s.newCert(id)
		if i == 2 {
			cert.Course = "Compilers"
		}
		s.Require().NoError(s.store.Create(ctx, cert))
	}
	_, err := s.store.SetRevoked(ctx, "CERT-1700000000000-000010", uuid.New(), "withdrawn", time.Now())
	s.Require().NoError(err)

	certs, total, err := s.store.List(ctx, 1, 20, models.Filter{Status: models.StatusValid})
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Len(certs, 2)

	certs, total, err = s.store.List(ctx, 1, 20, models.Filter{Course: "Compilers"})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(certs, 1)
	s.Equal("CERT-1700000000000-000012", certs[0].CertificateID)

	certs, total, err = s.store.List(ctx, 2, 2, models.Filter{})
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Len(certs, 1)
}

func (s *PostgresStoreSuite) TestCounts() {
	ctx := context.Background()

	old := s.newCert("CERT-1600000000000-000020")
	old.IssuedAt = time.Now().UTC().AddDate(0, -2, 0)
	recent := s.newCert("CERT-1700000000000-000021")
	for _, c := range []*models.Certificate{old, recent} {
		s.Require().NoError(s.store.Create(ctx, c))
	}
	_, err := s.store.SetRevoked(ctx, old.CertificateID, uuid.New(), "expired program", time.Now())
	s.Require().NoError(err)

	counts, err := s.store.CountByStatus(ctx)
	s.Require().NoError(err)
	s.Equal(1, counts.Valid)
	s.Equal(1, counts.Revoked)
	s.Equal(2, counts.Total())

	issued, err := s.store.CountIssuedSince(ctx, time.Now().UTC().AddDate(0, -1, 0))
	s.Require().NoError(err)
	s.Equal(1, issued)
}
