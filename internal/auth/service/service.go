package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"certis/internal/auth/metrics"
	authmodels "certis/internal/auth/models"
	identity "certis/internal/identity/models"
	"certis/internal/jwttoken"
	"certis/internal/sentinel"
	dErrors "certis/pkg/domain-errors"
	"certis/pkg/strutil"
)

// AdminStore defines the admin persistence surface authentication needs.
// Error Contract: Find methods return wrapped sentinel.ErrNotFound when
// the identity does not exist.
type AdminStore interface {
	FindByEmail(ctx context.Context, email string) (*identity.Admin, error)
	FindByID(ctx context.Context, adminID uuid.UUID) (*identity.Admin, error)
	Update(ctx context.Context, admin *identity.Admin) error
}

// HolderStore defines the holder persistence surface authentication needs.
type HolderStore interface {
	FindByEmail(ctx context.Context, email string) (*identity.Holder, error)
	FindByID(ctx context.Context, holderID uuid.UUID) (*identity.Holder, error)
	Update(ctx context.Context, holder *identity.Holder) error
}

// TokenService issues and validates bearer tokens.
type TokenService interface {
	Generate(identityID string, email string, role identity.Role, holderCode string) (string, error)
	Validate(token string) (*jwttoken.TokenClaims, error)
	TTL() time.Duration
}

// Service authenticates identity/secret pairs and validates bearer
// tokens. It is stateless; the stores are the only shared resource.
type Service struct {
	admins  AdminStore
	holders HolderStore
	tokens  TokenService
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func New(admins AdminStore, holders HolderStore, tokens TokenService, opts ...Option) *Service {
	svc := &Service{
		admins:  admins,
		holders: holders,
		tokens:  tokens,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// dummyHash is compared against when no identity matches the email, so
// the unknown-email path costs the same bcrypt work as a secret mismatch
// and both return the same response shape.
var dummyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
}()

func invalidCredentials() error {
	return dErrors.New(dErrors.CodeInvalidCredentials, "invalid email or secret")
}

// AuthenticateAdmin verifies an administrator email/secret pair by
// case-insensitive email. On success it stamps the admin's last login
// and issues a bearer token. An email belonging to a holder, an unknown
// email, and a wrong secret all fail identically, and a non-admin email
// is rejected before any login side effect runs.
func (s *Service) AuthenticateAdmin(ctx context.Context, email, secret string) (*authmodels.LoginResult, error) {
	admin, err := s.admins.FindByEmail(ctx, strutil.NormalizeEmail(email))
	switch {
	case err == nil:
		return s.loginAdmin(ctx, admin, secret)
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, s.rejectUnmatched(secret)
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "identity store unavailable")
	}
}

// AuthenticateHolder is the holder-portal counterpart of
// AuthenticateAdmin; it consults only the holder store.
func (s *Service) AuthenticateHolder(ctx context.Context, email, secret string) (*authmodels.LoginResult, error) {
	holder, err := s.holders.FindByEmail(ctx, strutil.NormalizeEmail(email))
	switch {
	case err == nil:
		return s.loginHolder(ctx, holder, secret)
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, s.rejectUnmatched(secret)
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "identity store unavailable")
	}
}

// rejectUnmatched handles an email that has no identity in the portal's
// store. It burns a bcrypt comparison so the path is not distinguishable
// from a secret mismatch by response or cost.
func (s *Service) rejectUnmatched(secret string) error {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(secret))
	s.metrics.IncrementLoginFailure()
	return invalidCredentials()
}

func (s *Service) loginAdmin(ctx context.Context, admin *identity.Admin, secret string) (*authmodels.LoginResult, error) {
	if !admin.IsActive || bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(secret)) != nil {
		s.metrics.IncrementLoginFailure()
		return nil, invalidCredentials()
	}

	now := s.clock()
	admin.LastLogin = now
	admin.UpdatedAt = now
	if err := s.admins.Update(ctx, admin); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to record login")
	}

	token, err := s.tokens.Generate(admin.ID.String(), admin.Email, admin.Role, "")
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.logger.InfoContext(ctx, "admin authenticated", "admin_id", admin.ID.String(), "role", admin.Role)
	s.metrics.IncrementLoginSuccess(string(admin.Role))

	return &authmodels.LoginResult{
		Token:     token,
		ExpiresIn: int64(s.tokens.TTL().Seconds()),
		Identity:  identity.NewAdminView(admin),
	}, nil
}

func (s *Service) loginHolder(ctx context.Context, holder *identity.Holder, secret string) (*authmodels.LoginResult, error) {
	if !holder.IsActive || bcrypt.CompareHashAndPassword([]byte(holder.PasswordHash), []byte(secret)) != nil {
		s.metrics.IncrementLoginFailure()
		return nil, invalidCredentials()
	}

	now := s.clock()
	holder.LastLogin = now
	holder.UpdatedAt = now
	if err := s.holders.Update(ctx, holder); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to record login")
	}

	token, err := s.tokens.Generate(holder.ID.String(), holder.Email, identity.RoleHolder, holder.HolderCode)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.logger.InfoContext(ctx, "holder authenticated", "holder_id", holder.ID.String())
	s.metrics.IncrementLoginSuccess(string(identity.RoleHolder))

	return &authmodels.LoginResult{
		Token:     token,
		ExpiresIn: int64(s.tokens.TTL().Seconds()),
		Identity:  identity.NewHolderView(holder),
	}, nil
}

// ValidateToken verifies the token's signature and expiry, then resolves
// the identity behind it, failing closed when the identity is missing or
// deactivated. The returned claims carry the identity's current
// permission set.
func (s *Service) ValidateToken(ctx context.Context, token string) (*authmodels.Claims, error) {
	tokenClaims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	identityID, err := uuid.Parse(tokenClaims.IdentityID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeTokenInvalid, "invalid token")
	}

	claims := &authmodels.Claims{
		IdentityID: identityID,
		Email:      tokenClaims.Email,
		Role:       identity.Role(tokenClaims.Role),
		HolderCode: tokenClaims.HolderCode,
	}

	switch {
	case claims.Role.IsAdminClass():
		admin, err := s.admins.FindByID(ctx, identityID)
		if err != nil || !admin.IsActive {
			return nil, dErrors.New(dErrors.CodeTokenInvalid, "invalid token")
		}
		claims.Role = admin.Role
		claims.Permissions = admin.Permissions
	case claims.Role == identity.RoleHolder:
		holder, err := s.holders.FindByID(ctx, identityID)
		if err != nil || !holder.IsActive {
			return nil, dErrors.New(dErrors.CodeTokenInvalid, "invalid token")
		}
	default:
		return nil, dErrors.New(dErrors.CodeTokenInvalid, "invalid token")
	}

	s.metrics.IncrementTokenValidated()
	return claims, nil
}
