package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"certis/internal/identity/models"
	"certis/internal/sentinel"
	dErrors "certis/pkg/domain-errors"
	"certis/pkg/strutil"
)

// AdminStore defines the persistence interface for administrator identities.
// Error Contract: Find methods return wrapped sentinel.ErrNotFound when the
// identity does not exist; Create returns wrapped sentinel.ErrConflict when
// a uniqueness invariant would break.
type AdminStore interface {
	Create(ctx context.Context, admin *models.Admin) error
	Update(ctx context.Context, admin *models.Admin) error
	FindByID(ctx context.Context, adminID uuid.UUID) (*models.Admin, error)
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
	ListAll(ctx context.Context) ([]*models.Admin, error)
	Count(ctx context.Context) (int, error)
}

// HolderStore defines the persistence interface for holder identities.
type HolderStore interface {
	Create(ctx context.Context, holder *models.Holder) error
	Update(ctx context.Context, holder *models.Holder) error
	FindByID(ctx context.Context, holderID uuid.UUID) (*models.Holder, error)
	FindByEmail(ctx context.Context, email string) (*models.Holder, error)
	FindByCode(ctx context.Context, code string) (*models.Holder, error)
	List(ctx context.Context, page, pageSize int, filter models.HolderFilter) ([]*models.Holder, int, error)
	AppendCertificate(ctx context.Context, holderID uuid.UUID, certificateID string) error
}

// Service owns identity registration and profile operations. Secrets are
// stored only as bcrypt hashes and rehashed only when changed.
type Service struct {
	admins     AdminStore
	holders    HolderStore
	logger     *slog.Logger
	bcryptCost int
	clock      func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithBcryptCost overrides the hashing cost, for tests.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func New(admins AdminStore, holders HolderStore, opts ...Option) *Service {
	svc := &Service{
		admins:     admins,
		holders:    holders,
		bcryptCost: bcrypt.DefaultCost,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// RegisterAdmin creates an administrator identity. The caller is expected
// to hold manage_users; the guard enforces that at the boundary.
func (s *Service) RegisterAdmin(ctx context.Context, req *models.RegisterAdminRequest) (*models.AdminView, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Secret), s.bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash secret")
	}

	role := models.Role(req.Role)
	if role == "" {
		role = models.RoleAdmin
	}

	perms := make([]models.Permission, 0, len(req.Permissions))
	for _, p := range req.Permissions {
		perms = append(perms, models.Permission(p))
	}
	if len(perms) == 0 {
		if role == models.RoleSuperAdmin {
			perms = models.AllPermissions()
		} else {
			perms = models.DefaultAdminPermissions()
		}
	}

	now := s.clock()
	admin := &models.Admin{
		ID:           uuid.New(),
		Email:        strutil.NormalizeEmail(req.Email),
		PasswordHash: string(hash),
		Name:         req.Name,
		Department:   req.Department,
		Role:         role,
		Permissions:  perms,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, translateStoreError(err, "identity already registered")
	}

	s.logger.InfoContext(ctx, "admin registered", "admin_id", admin.ID.String(), "role", admin.Role)
	view := models.NewAdminView(admin)
	return &view, nil
}

// RegisterHolder creates a holder identity. This operation is public.
func (s *Service) RegisterHolder(ctx context.Context, req *models.RegisterHolderRequest) (*models.HolderView, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Secret), s.bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash secret")
	}

	now := s.clock()
	holder := &models.Holder{
		ID:           uuid.New(),
		Email:        strutil.NormalizeEmail(req.Email),
		PasswordHash: string(hash),
		Name:         req.Name,
		HolderCode:   req.HolderCode,
		Program:      req.Program,
		Status:       models.HolderActive,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.EnrolledAt != nil {
		holder.EnrolledAt = *req.EnrolledAt
	}
	if req.ExpectedCompletion != nil {
		holder.ExpectedCompletion = *req.ExpectedCompletion
	}

	if err := s.holders.Create(ctx, holder); err != nil {
		return nil, translateStoreError(err, "identity already registered")
	}

	s.logger.InfoContext(ctx, "holder registered", "holder_id", holder.ID.String(), "holder_code", holder.HolderCode)
	view := models.NewHolderView(holder)
	return &view, nil
}

// GetAdminProfile returns the admin's own profile.
func (s *Service) GetAdminProfile(ctx context.Context, adminID uuid.UUID) (*models.AdminView, error) {
	admin, err := s.admins.FindByID(ctx, adminID)
	if err != nil {
		return nil, translateStoreError(err, "")
	}
	view := models.NewAdminView(admin)
	return &view, nil
}

// UpdateAdminProfile updates mutable profile fields. The secret is
// rehashed only when a new one is supplied.
func (s *Service) UpdateAdminProfile(ctx context.Context, adminID uuid.UUID, req *models.UpdateAdminProfileRequest) (*models.AdminView, error) {
	admin, err := s.admins.FindByID(ctx, adminID)
	if err != nil {
		return nil, translateStoreError(err, "")
	}

	if req.Name != "" {
		admin.Name = req.Name
	}
	if req.Department != "" {
		admin.Department = req.Department
	}
	if req.Secret != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Secret), s.bcryptCost)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash secret")
		}
		admin.PasswordHash = string(hash)
	}
	admin.UpdatedAt = s.clock()

	if err := s.admins.Update(ctx, admin); err != nil {
		return nil, translateStoreError(err, "")
	}
	view := models.NewAdminView(admin)
	return &view, nil
}

// GetHolderProfile returns the holder's own profile.
func (s *Service) GetHolderProfile(ctx context.Context, holderID uuid.UUID) (*models.HolderView, error) {
	holder, err := s.holders.FindByID(ctx, holderID)
	if err != nil {
		return nil, translateStoreError(err, "")
	}
	view := models.NewHolderView(holder)
	return &view, nil
}

// UpdateHolderProfile updates mutable profile fields. Certificates issued
// before a name change keep their snapshot; they are not rewritten.
func (s *Service) UpdateHolderProfile(ctx context.Context, holderID uuid.UUID, req *models.UpdateHolderProfileRequest) (*models.HolderView, error) {
	holder, err := s.holders.FindByID(ctx, holderID)
	if err != nil {
		return nil, translateStoreError(err, "")
	}

	if req.Name != "" {
		holder.Name = req.Name
	}
	if req.Program != "" {
		holder.Program = req.Program
	}
	if req.Secret != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Secret), s.bcryptCost)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash secret")
		}
		holder.PasswordHash = string(hash)
	}
	holder.UpdatedAt = s.clock()

	if err := s.holders.Update(ctx, holder); err != nil {
		return nil, translateStoreError(err, "")
	}
	view := models.NewHolderView(holder)
	return &view, nil
}

// ListAdmins returns all administrators, newest first.
func (s *Service) ListAdmins(ctx context.Context) ([]models.AdminView, error) {
	admins, err := s.admins.ListAll(ctx)
	if err != nil {
		return nil, translateStoreError(err, "")
	}
	views := make([]models.AdminView, 0, len(admins))
	for _, admin := range admins {
		views = append(views, models.NewAdminView(admin))
	}
	return views, nil
}

// ListHolders returns a page of holders matching the filter and the total
// matching count.
func (s *Service) ListHolders(ctx context.Context, page, pageSize int, filter models.HolderFilter) ([]models.HolderView, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	holders, total, err := s.holders.List(ctx, page, pageSize, filter)
	if err != nil {
		return nil, 0, translateStoreError(err, "")
	}
	views := make([]models.HolderView, 0, len(holders))
	for _, holder := range holders {
		views = append(views, models.NewHolderView(holder))
	}
	return views, total, nil
}

// translateStoreError maps sentinel store errors onto domain errors. The
// conflict message stays generic so responses do not confirm whether a
// particular email is registered.
func translateStoreError(err error, conflictMsg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "identity not found")
	case errors.Is(err, sentinel.ErrConflict):
		if conflictMsg == "" {
			conflictMsg = "already exists"
		}
		return dErrors.Wrap(err, dErrors.CodeConflict, conflictMsg)
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "identity store unavailable")
	}
}
