package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"certis/internal/identity/models"
	adminstore "certis/internal/identity/store/admin"
	holderstore "certis/internal/identity/store/holder"
	dErrors "certis/pkg/domain-errors"
)

type IdentityServiceSuite struct {
	suite.Suite
	admins  *adminstore.InMemoryStore
	holders *holderstore.InMemoryStore
	svc     *Service
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

func (s *IdentityServiceSuite) SetupTest() {
	s.admins = adminstore.New()
	s.holders = holderstore.New()
	s.svc = New(s.admins, s.holders, WithBcryptCost(bcrypt.MinCost))
}

func (s *IdentityServiceSuite) registerHolder(email, code string) *models.HolderView {
	view, err := s.svc.RegisterHolder(context.Background(), &models.RegisterHolderRequest{
		Email:      email,
		Secret:     "hunter2hunter2",
		Name:       "Jane Holder",
		HolderCode: code,
		Program:    "Databases",
	})
	s.Require().NoError(err)
	return view
}

func (s *IdentityServiceSuite) TestRegisterAdminDefaults() {
	view, err := s.svc.RegisterAdmin(context.Background(), &models.RegisterAdminRequest{
		Email:      "Reg@Example.edu",
		Secret:     "hunter2hunter2",
		Name:       "Reg Istrar",
		Department: "Registrar",
	})
	s.Require().NoError(err)

	s.Equal("reg@example.edu", view.Email, "email stored lowercased")
	s.Equal(models.RoleAdmin, view.Role)
	s.ElementsMatch(models.DefaultAdminPermissions(), view.Permissions)
	s.True(view.IsActive)
}

func (s *IdentityServiceSuite) TestRegisterSuperAdminGetsAllPermissions() {
	view, err := s.svc.RegisterAdmin(context.Background(), &models.RegisterAdminRequest{
		Email:      "root@example.edu",
		Secret:     "hunter2hunter2",
		Name:       "Root",
		Department: "IT",
		Role:       "super_admin",
	})
	s.Require().NoError(err)
	s.Equal(models.RoleSuperAdmin, view.Role)
	s.ElementsMatch(models.AllPermissions(), view.Permissions)
}

func (s *IdentityServiceSuite) TestRegisterAdminSecretIsHashed() {
	_, err := s.svc.RegisterAdmin(context.Background(), &models.RegisterAdminRequest{
		Email:      "reg@example.edu",
		Secret:     "hunter2hunter2",
		Name:       "Reg Istrar",
		Department: "Registrar",
	})
	s.Require().NoError(err)

	stored, err := s.admins.FindByEmail(context.Background(), "reg@example.edu")
	s.Require().NoError(err)
	s.NotEqual("hunter2hunter2", stored.PasswordHash)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("hunter2hunter2")))
}

func (s *IdentityServiceSuite) TestDuplicateEmailConflict() {
	s.registerHolder("jane@example.edu", "HLD-001")

	_, err := s.svc.RegisterHolder(context.Background(), &models.RegisterHolderRequest{
		Email:      "JANE@example.edu",
		Secret:     "hunter2hunter2",
		Name:       "Other Jane",
		HolderCode: "HLD-002",
		Program:    "Security",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *IdentityServiceSuite) TestDuplicateHolderCodeConflict() {
	s.registerHolder("jane@example.edu", "HLD-001")

	_, err := s.svc.RegisterHolder(context.Background(), &models.RegisterHolderRequest{
		Email:      "john@example.edu",
		Secret:     "hunter2hunter2",
		Name:       "John",
		HolderCode: "HLD-001",
		Program:    "Security",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *IdentityServiceSuite) TestUpdateHolderProfileRehashesOnlyWhenChanged() {
	view := s.registerHolder("jane@example.edu", "HLD-001")
	stored, err := s.holders.FindByEmail(context.Background(), view.Email)
	s.Require().NoError(err)
	originalHash := stored.PasswordHash

	updated, err := s.svc.UpdateHolderProfile(context.Background(), stored.ID, &models.UpdateHolderProfileRequest{
		Name: "Jane Renamed",
	})
	s.Require().NoError(err)
	s.Equal("Jane Renamed", updated.Name)

	stored, err = s.holders.FindByID(context.Background(), stored.ID)
	s.Require().NoError(err)
	s.Equal(originalHash, stored.PasswordHash, "secret untouched when not supplied")

	_, err = s.svc.UpdateHolderProfile(context.Background(), stored.ID, &models.UpdateHolderProfileRequest{
		Secret: "new-secret-123",
	})
	s.Require().NoError(err)

	stored, err = s.holders.FindByID(context.Background(), stored.ID)
	s.Require().NoError(err)
	s.NotEqual(originalHash, stored.PasswordHash)
}

func (s *IdentityServiceSuite) TestListHoldersPagination() {
	s.registerHolder("a@example.edu", "HLD-001")
	s.registerHolder("b@example.edu", "HLD-002")
	s.registerHolder("c@example.edu", "HLD-003")

	views, total, err := s.svc.ListHolders(context.Background(), 1, 2, models.HolderFilter{})
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Len(views, 2)

	// out-of-range parameters are normalized rather than rejected
	views, total, err = s.svc.ListHolders(context.Background(), 0, 0, models.HolderFilter{})
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Len(views, 3)
}

func (s *IdentityServiceSuite) TestGetHolderProfile() {
	view := s.registerHolder("jane@example.edu", "HLD-001")

	holderID, err := uuid.Parse(view.ID)
	s.Require().NoError(err)

	profile, err := s.svc.GetHolderProfile(context.Background(), holderID)
	s.Require().NoError(err)
	s.Equal("jane@example.edu", profile.Email)
	s.Equal("HLD-001", profile.HolderCode)
}

func (s *IdentityServiceSuite) TestGetProfileUnknownID() {
	_, err := s.svc.GetHolderProfile(context.Background(), uuid.New())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
