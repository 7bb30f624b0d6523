package service

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	authmodels "certis/internal/auth/models"
	"certis/internal/certificate/models"
	"certis/internal/certificate/store"
	identity "certis/internal/identity/models"
	holderstore "certis/internal/identity/store/holder"
	dErrors "certis/pkg/domain-errors"
)

var certIDPattern = regexp.MustCompile(`^CERT-\d+-\d+$`)

type LifecycleSuite struct {
	suite.Suite
	certs   *store.InMemoryStore
	holders *holderstore.InMemoryStore
	svc     *Service

	admin  *authmodels.Claims
	holder *identity.Holder
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) SetupTest() {
	s.certs = store.NewInMemory()
	s.holders = holderstore.New()
	s.svc = New(s.certs, s.holders, "Certis Institute")

	s.admin = &authmodels.Claims{
		IdentityID:  uuid.New(),
		Email:       "admin@example.edu",
		Role:        identity.RoleAdmin,
		Permissions: identity.DefaultAdminPermissions(),
	}

	s.holder = &identity.Holder{
		ID:         uuid.New(),
		Email:      "jane@example.edu",
		Name:       "Jane Holder",
		HolderCode: "HLD-001",
		Program:    "Databases",
		Status:     identity.HolderActive,
		IsActive:   true,
		CreatedAt:  time.Now(),
	}
	s.Require().NoError(s.holders.Create(context.Background(), s.holder))
}

func (s *LifecycleSuite) holderClaims() *authmodels.Claims {
	return &authmodels.Claims{
		IdentityID: s.holder.ID,
		Email:      s.holder.Email,
		Role:       identity.RoleHolder,
		HolderCode: s.holder.HolderCode,
	}
}

func (s *LifecycleSuite) issueRequest() *models.IssueRequest {
	return &models.IssueRequest{
		HolderCode:  "HLD-001",
		HolderName:  "Jane Holder",
		HolderEmail: "jane@example.edu",
		Course:      "Databases",
		Degree:      "MSc",
	}
}

func (s *LifecycleSuite) TestIssueProducesValidCertificate() {
	view, err := s.svc.Issue(context.Background(), s.admin, s.issueRequest())
	s.Require().NoError(err)

	s.Regexp(certIDPattern, view.CertificateID)
	s.Equal(models.StatusValid, view.Status)
	s.Equal("Certis Institute", view.Institution)
	s.Equal(s.admin.IdentityID.String(), view.IssuedBy)
	s.NotEmpty(view.LedgerHash)
	s.Empty(view.RevocationReason)
}

func (s *LifecycleSuite) TestIssueAppendsHolderReference() {
	view, err := s.svc.Issue(context.Background(), s.admin, s.issueRequest())
	s.Require().NoError(err)

	stored, err := s.holders.FindByID(context.Background(), s.holder.ID)
	s.Require().NoError(err)
	s.Contains(stored.CertificateIDs, view.CertificateID)
}

func (s *LifecycleSuite) TestIssueForUnregisteredHolder() {
	req := s.issueRequest()
	req.HolderCode = "HLD-EXTERNAL"
	req.HolderEmail = "external@example.org"

	view, err := s.svc.Issue(context.Background(), s.admin, req)
	s.Require().NoError(err)
	s.Equal(uuid.Nil.String(), view.HolderID)
}

func (s *LifecycleSuite) TestIssueCrossValidatesKnownHolder() {
	req := s.issueRequest()
	req.HolderEmail = "impostor@example.edu"

	_, err := s.svc.Issue(context.Background(), s.admin, req)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *LifecycleSuite) TestIssueDeniedWithoutAdminRole() {
	_, err := s.svc.Issue(context.Background(), s.holderClaims(), s.issueRequest())
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.svc.Issue(context.Background(), nil, s.issueRequest())
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *LifecycleSuite) TestIssueDeniedWithoutPermission() {
	stripped := &authmodels.Claims{
		IdentityID:  uuid.New(),
		Email:       "limited@example.edu",
		Role:        identity.RoleAdmin,
		Permissions: []identity.Permission{identity.PermViewUsers},
	}
	_, err := s.svc.Issue(context.Background(), stripped, s.issueRequest())
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

// Issuing N certificates concurrently yields N distinct, retrievable
// records.
func (s *LifecycleSuite) TestConcurrentIssuanceYieldsDistinctIDs() {
	const n = 50

	var mu sync.Mutex
	ids := make(map[string]struct{}, n)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			view, err := s.svc.Issue(ctx, s.admin, s.issueRequest())
			if err != nil {
				return err
			}
			mu.Lock()
			ids[view.CertificateID] = struct{}{}
			mu.Unlock()
			return nil
		})
	}
	s.Require().NoError(g.Wait())
	s.Len(ids, n)

	for id := range ids {
		_, err := s.certs.FindByID(context.Background(), id)
		s.Require().NoError(err)
	}
}

func (s *LifecycleSuite) TestVerifyRoundTrip() {
	view, err := s.svc.Issue(context.Background(), s.admin, s.issueRequest())
	s.Require().NoError(err)

	res, err := s.svc.Verify(context.Background(), view.CertificateID)
	s.Require().NoError(err)
	s.True(res.IsValid)
	s.Equal("Jane Holder", res.Certificate.HolderName)

	_, err = s.svc.Revoke(context.Background(), s.admin, view.CertificateID, "duplicate")
	s.Require().NoError(err)

	res, err = s.svc.Verify(context.Background(), view.CertificateID)
	s.Require().NoError(err)
	s.False(res.IsValid)
	s.Equal(models.StatusRevoked, res.Certificate.Status)
}

func (s *LifecycleSuite) TestVerifyUnknownID() {
	_, err := s.svc.Verify(context.Background(), "CERT-0-000000")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// The public summary must not leak revocation reasons or administrative
// metadata.
func (s *LifecycleSuite) TestVerifyHidesRevocationMetadata() {
	view, err := s.svc.Issue(context.Background(), s.admin, s.issueRequest())
	s.Require().NoError(err)

	_, err = s.svc.Revoke(context.Background(), s.admin, view.CertificateID, "issued in error")
	s.Require().NoError(err)

	res, err := s.svc.Verify(context.Background(), view.CertificateID)
	s.Require().NoError(err)
	s.NotContains(fmt.Sprintf("%+v", res.Certificate), "issued in error")
}

func (s *LifecycleSuite) TestRevokeSecondTimeReportsAlreadyRevoked() {
	view, err := s.svc.Issue(context.Background(), s.admin, s.issueRequest())
	s.Require().NoError(err)

	revoked, err := s.svc.Revoke(context.Background(), s.admin, view.CertificateID, "duplicate")
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, revoked.Status)
	s.Equal("duplicate", revoked.RevocationReason)

	_, err = s.svc.Revoke(context.Background(), s.admin, view.CertificateID, "again")
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyRevoked))
}

func (s *LifecycleSuite) TestRevokeUnknownID() {
	_, err := s.svc.Revoke(context.Background(), s.admin, "CERT-0-000000", "x")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *LifecycleSuite) TestRevokeDefaultsReason() {
	view, err := s.svc.Issue(context.Background(), s.admin, s.issueRequest())
	s.Require().NoError(err)

	revoked, err := s.svc.Revoke(context.Background(), s.admin, view.CertificateID, "  ")
	s.Require().NoError(err)
	s.Equal(DefaultRevocationReason, revoked.RevocationReason)
}

// Only one of two concurrent revocations may succeed.
func (s *LifecycleSuite) TestConcurrentRevocationSingleWinner() {
	view, err := s.svc.Issue(context.Background(), s.admin, s.issueRequest())
	s.Require().NoError(err)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.svc.Revoke(context.Background(), s.admin, view.CertificateID, "race")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			s.True(dErrors.HasCode(err, dErrors.CodeAlreadyRevoked))
		}
	}
	s.Equal(1, succeeded)
}

// Holders see their full history, revoked records included; the
// valid-only view filters them out.
func (s *LifecycleSuite) TestHolderListings() {
	first, err := s.svc.Issue(context.Background(), s.admin, s.issueRequest())
	s.Require().NoError(err)
	second, err := s.svc.Issue(context.Background(), s.admin, s.issueRequest())
	s.Require().NoError(err)

	_, err = s.svc.Revoke(context.Background(), s.admin, second.CertificateID, "duplicate")
	s.Require().NoError(err)

	history, err := s.svc.ListForHolder(context.Background(), s.holderClaims())
	s.Require().NoError(err)
	s.Len(history, 2)

	statuses := map[string]models.Status{}
	for _, v := range history {
		statuses[v.CertificateID] = v.Status
	}
	s.Equal(models.StatusValid, statuses[first.CertificateID])
	s.Equal(models.StatusRevoked, statuses[second.CertificateID])

	valid, err := s.svc.ListValidForHolder(context.Background(), s.holderClaims())
	s.Require().NoError(err)
	s.Require().Len(valid, 1)
	s.Equal(first.CertificateID, valid[0].CertificateID)
}

func (s *LifecycleSuite) TestHolderListingDeniedForAdmins() {
	_, err := s.svc.ListForHolder(context.Background(), s.admin)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *LifecycleSuite) TestListForAdminPagination() {
	for i := 0; i < 5; i++ {
		_, err := s.svc.Issue(context.Background(), s.admin, s.issueRequest())
		s.Require().NoError(err)
	}

	page, err := s.svc.ListForAdmin(context.Background(), s.admin, 1, 3, models.Filter{})
	s.Require().NoError(err)
	s.Equal(5, page.TotalCount)
	s.Len(page.Items, 3)

	page, err = s.svc.ListForAdmin(context.Background(), s.admin, 2, 3, models.Filter{})
	s.Require().NoError(err)
	s.Len(page.Items, 2)
}

func (s *LifecycleSuite) TestListForAdminDeniedForHolders() {
	_, err := s.svc.ListForAdmin(context.Background(), s.holderClaims(), 1, 10, models.Filter{})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *LifecycleSuite) TestStats() {
	now := time.Now()
	s.svc.clock = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_, err := s.svc.Issue(context.Background(), s.admin, s.issueRequest())
		s.Require().NoError(err)
	}
	page, err := s.svc.ListForAdmin(context.Background(), s.admin, 1, 1, models.Filter{})
	s.Require().NoError(err)
	_, err = s.svc.Revoke(context.Background(), s.admin, page.Items[0].CertificateID, "dup")
	s.Require().NoError(err)

	stats, err := s.svc.Stats(context.Background(), s.admin)
	s.Require().NoError(err)
	s.Equal(3, stats.Total)
	s.Equal(2, stats.Active)
	s.Equal(1, stats.Revoked)
	s.Equal(3, stats.IssuedThisMonth)
}

func (s *LifecycleSuite) TestStatsDeniedForHolders() {
	_, err := s.svc.Stats(context.Background(), s.holderClaims())
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}
