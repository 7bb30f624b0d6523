package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"certis/internal/auth/guard"
	authmodels "certis/internal/auth/models"
	"certis/internal/certificate/metrics"
	"certis/internal/certificate/models"
	identity "certis/internal/identity/models"
	"certis/internal/sentinel"
	dErrors "certis/pkg/domain-errors"
)

// Store defines the persistence interface for certificates.
// Error Contract: FindByID and SetRevoked return wrapped
// sentinel.ErrNotFound for unknown identifiers; SetRevoked returns
// wrapped sentinel.ErrAlreadyRevoked for a second revocation; Create
// returns wrapped sentinel.ErrConflict for a duplicate identifier.
type Store interface {
	Create(ctx context.Context, cert *models.Certificate) error
	FindByID(ctx context.Context, certificateID string) (*models.Certificate, error)
	FindByHolder(ctx context.Context, holderID uuid.UUID, email string, validOnly bool) ([]*models.Certificate, error)
	List(ctx context.Context, page, pageSize int, filter models.Filter) ([]*models.Certificate, int, error)
	SetRevoked(ctx context.Context, certificateID string, revokedBy uuid.UUID, reason string, now time.Time) (*models.Certificate, error)
	CountByStatus(ctx context.Context) (models.StatusCounts, error)
	CountIssuedSince(ctx context.Context, since time.Time) (int, error)
}

// HolderDirectory is the slice of the identity store the lifecycle needs
// to cross-validate issuance details and maintain holder references.
type HolderDirectory interface {
	FindByCode(ctx context.Context, code string) (*identity.Holder, error)
	AppendCertificate(ctx context.Context, holderID uuid.UUID, certificateID string) error
}

// DefaultRevocationReason is recorded when a revoke request omits one.
const DefaultRevocationReason = "No reason provided"

// maxIDAttempts bounds identifier regeneration on collision before the
// operation is reported as unavailable.
const maxIDAttempts = 5

// Service orchestrates the certificate lifecycle: issue, verify, revoke,
// listings, and stats. Authorization is enforced here, at the boundary
// of every operation that needs it.
type Service struct {
	store       Store
	holders     HolderDirectory
	institution string
	logger      *slog.Logger
	metrics     *metrics.Metrics
	clock       func() time.Time
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

func New(store Store, holders HolderDirectory, institution string, opts ...Option) *Service {
	svc := &Service{
		store:       store,
		holders:     holders,
		institution: institution,
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// Issue creates a certificate with status Valid. Requires administrator
// role and the create_certificate permission. Identifier collisions are
// retried with a fresh identifier rather than failed back to the caller.
func (s *Service) Issue(ctx context.Context, claims *authmodels.Claims, req *models.IssueRequest) (*models.View, error) {
	if err := guard.RequireRole(claims, identity.RoleAdmin); err != nil {
		return nil, err
	}
	if err := guard.RequirePermission(claims, identity.PermCreateCertificate); err != nil {
		return nil, err
	}
	start := s.clock()
	defer s.metrics.ObserveIssue(start)

	holderID, err := s.resolveHolder(ctx, req)
	if err != nil {
		return nil, err
	}

	cert := &models.Certificate{
		HolderID:    holderID,
		HolderName:  req.HolderName,
		HolderEmail: strings.ToLower(req.HolderEmail),
		Course:      req.Course,
		Degree:      req.Degree,
		Institution: s.institution,
		Grade:       req.Grade,
		IssuedAt:    start,
		Status:      models.StatusValid,
		IssuedBy:    claims.IdentityID,
	}
	if req.CompletionDate != nil {
		cert.CompletionDate = *req.CompletionDate
	}

	for attempt := 0; ; attempt++ {
		cert.CertificateID = newCertificateID(start)
		cert.LedgerHash = newLedgerHash(cert)

		err := s.store.Create(ctx, cert)
		if err == nil {
			break
		}
		if errors.Is(err, sentinel.ErrConflict) && attempt < maxIDAttempts {
			continue
		}
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not allocate certificate identifier")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "certificate store unavailable")
	}

	if holderID != uuid.Nil {
		if err := s.holders.AppendCertificate(ctx, holderID, cert.CertificateID); err != nil {
			// The certificate exists and is authoritative; the holder's
			// reference list is best-effort denormalization.
			s.logger.WarnContext(ctx, "failed to append certificate reference",
				"certificate_id", cert.CertificateID,
				"holder_id", holderID.String(),
				"error", err,
			)
		}
	}

	s.logger.InfoContext(ctx, "certificate issued",
		"certificate_id", cert.CertificateID,
		"holder_email", cert.HolderEmail,
		"issued_by", claims.IdentityID.String(),
	)
	s.metrics.IncrementIssued()

	view := models.NewView(cert)
	return &view, nil
}

// resolveHolder cross-validates the supplied details against the identity
// store. Issuance does not require the holder to be registered; when the
// holder code is known, the supplied email must match the registered one.
func (s *Service) resolveHolder(ctx context.Context, req *models.IssueRequest) (uuid.UUID, error) {
	holder, err := s.holders.FindByCode(ctx, req.HolderCode)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return uuid.Nil, nil
		}
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "identity store unavailable")
	}
	if !strings.EqualFold(holder.Email, req.HolderEmail) {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "holder email does not match the registered holder")
	}
	return holder.ID, nil
}

// Verify is public: it reports whether the certificate is currently
// valid. The summary never includes revocation reasons or administrative
// metadata.
func (s *Service) Verify(ctx context.Context, certificateID string) (*models.VerificationResult, error) {
	cert, err := s.store.FindByID(ctx, certificateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementVerified("not_found")
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "certificate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "certificate store unavailable")
	}

	isValid := cert.Status == models.StatusValid
	if isValid {
		s.metrics.IncrementVerified("valid")
	} else {
		s.metrics.IncrementVerified("invalid")
	}

	return &models.VerificationResult{
		IsValid:     isValid,
		Certificate: models.NewSummary(cert),
	}, nil
}

// Revoke moves a Valid certificate to Revoked, stamping revoker and
// timestamp. Requires administrator role and the revoke_certificate
// permission. A second revocation reports already_revoked, a business
// condition rather than a fault.
func (s *Service) Revoke(ctx context.Context, claims *authmodels.Claims, certificateID, reason string) (*models.View, error) {
	if err := guard.RequireRole(claims, identity.RoleAdmin); err != nil {
		return nil, err
	}
	if err := guard.RequirePermission(claims, identity.PermRevokeCertificate); err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultRevocationReason
	}

	cert, err := s.store.SetRevoked(ctx, certificateID, claims.IdentityID, reason, s.clock())
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "certificate not found")
		case errors.Is(err, sentinel.ErrAlreadyRevoked):
			return nil, dErrors.Wrap(err, dErrors.CodeAlreadyRevoked, "certificate is already revoked")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "certificate store unavailable")
		}
	}

	s.logger.InfoContext(ctx, "certificate revoked",
		"certificate_id", certificateID,
		"revoked_by", claims.IdentityID.String(),
		"reason", reason,
	)
	s.metrics.IncrementRevoked()

	view := models.NewView(cert)
	return &view, nil
}

// ListForAdmin returns a page of all certificates, newest first.
// Requires administrator role.
func (s *Service) ListForAdmin(ctx context.Context, claims *authmodels.Claims, page, pageSize int, filter models.Filter) (*models.Page, error) {
	if err := guard.RequireRole(claims, identity.RoleAdmin); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	certs, total, err := s.store.List(ctx, page, pageSize, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "certificate store unavailable")
	}

	items := make([]models.View, 0, len(certs))
	for _, cert := range certs {
		items = append(items, models.NewView(cert))
	}
	return &models.Page{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}, nil
}

// ListForHolder returns the requester's full certificate history,
// including revoked records. Requires holder role; results are matched
// by holder reference or denormalized email, never by caller-supplied
// identifiers.
func (s *Service) ListForHolder(ctx context.Context, claims *authmodels.Claims) ([]models.View, error) {
	return s.listOwn(ctx, claims, false)
}

// ListValidForHolder is the holder-facing display view: only currently
// valid certificates.
func (s *Service) ListValidForHolder(ctx context.Context, claims *authmodels.Claims) ([]models.View, error) {
	return s.listOwn(ctx, claims, true)
}

func (s *Service) listOwn(ctx context.Context, claims *authmodels.Claims, validOnly bool) ([]models.View, error) {
	if err := guard.RequireRole(claims, identity.RoleHolder); err != nil {
		return nil, err
	}

	certs, err := s.store.FindByHolder(ctx, claims.IdentityID, claims.Email, validOnly)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "certificate store unavailable")
	}

	views := make([]models.View, 0, len(certs))
	for _, cert := range certs {
		views = append(views, models.NewView(cert))
	}
	return views, nil
}

// Stats reports aggregate counts for administrators.
func (s *Service) Stats(ctx context.Context, claims *authmodels.Claims) (*models.Stats, error) {
	if err := guard.RequireRole(claims, identity.RoleAdmin); err != nil {
		return nil, err
	}

	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "certificate store unavailable")
	}

	now := s.clock()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	issuedThisMonth, err := s.store.CountIssuedSince(ctx, monthStart)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "certificate store unavailable")
	}

	return &models.Stats{
		Total:           counts.Total(),
		Active:          counts.Valid,
		Revoked:         counts.Revoked,
		IssuedThisMonth: issuedThisMonth,
	}, nil
}

// newCertificateID builds a human-readable identifier of the form
// CERT-<unix-millis>-<random digits>. Uniqueness is enforced by the
// store; callers retry on collision.
func newCertificateID(now time.Time) string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failure is unrecoverable in practice
		panic(err)
	}
	n := binary.BigEndian.Uint32(b[:]) % 1_000_000
	return fmt.Sprintf("CERT-%d-%06d", now.UnixMilli(), n)
}

// newLedgerHash derives the opaque integrity token stored with the
// certificate. It carries no chain-of-custody guarantee.
func newLedgerHash(cert *models.Certificate) string {
	var nonce [16]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		panic(err)
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%d|", cert.CertificateID, cert.HolderEmail, cert.Course, cert.Degree, cert.IssuedAt.UnixNano())
	h.Write(nonce[:])
	return hex.EncodeToString(h.Sum(nil))
}
