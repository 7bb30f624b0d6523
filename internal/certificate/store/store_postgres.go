package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"certis/internal/certificate/models"
	"certis/internal/sentinel"
)

// PostgresStore persists certificates in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed certificate store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const certColumns = `certificate_id, holder_id, holder_name, holder_email, course, degree, institution, grade, completion_date, issued_at, status, ledger_hash, issued_by, revoked_by, revoked_at, revocation_reason`

// Create inserts a certificate. The primary key on certificate_id
// enforces identifier uniqueness.
func (s *PostgresStore) Create(ctx context.Context, cert *models.Certificate) error {
	if cert == nil {
		return fmt.Errorf("certificate is required")
	}
	query := `
		INSERT INTO certificates (` + certColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := s.db.ExecContext(ctx, query,
		cert.CertificateID,
		cert.HolderID,
		cert.HolderName,
		cert.HolderEmail,
		cert.Course,
		cert.Degree,
		cert.Institution,
		cert.Grade,
		nullTime(cert.CompletionDate),
		cert.IssuedAt,
		string(cert.Status),
		cert.LedgerHash,
		cert.IssuedBy,
		nullUUID(cert.RevokedBy),
		nullTime(cert.RevokedAt),
		// revocation_reason is NOT NULL; an unrevoked certificate stores
		// the empty string, never NULL.
		cert.RevocationReason,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("certificate id taken: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, certificateID string) (*models.Certificate, error) {
	query := `SELECT ` + certColumns + ` FROM certificates WHERE certificate_id = $1`
	cert, err := scanCertificate(s.db.QueryRowContext(ctx, query, certificateID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("certificate not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return cert, nil
}

// FindByHolder returns certificates matched by holder id or denormalized
// email, newest first. When validOnly is set, revoked certificates are
// excluded.
func (s *PostgresStore) FindByHolder(ctx context.Context, holderID uuid.UUID, email string, validOnly bool) ([]*models.Certificate, error) {
	query := `
		SELECT ` + certColumns + `
		FROM certificates
		WHERE (holder_id = $1 OR lower(holder_email) = lower($2))
	`
	args := []any{holderID, email}
	if validOnly {
		args = append(args, string(models.StatusValid))
		query += ` AND status = $3`
	}
	query += ` ORDER BY issued_at DESC, certificate_id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find certificates by holder: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// List returns a page of certificates matching the filter, ordered by
// issuance time descending, with the total matching count.
func (s *PostgresStore) List(ctx context.Context, page, pageSize int, filter models.Filter) ([]*models.Certificate, int, error) {
	where, args := buildFilter(filter)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM certificates`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count certificates: %w", err)
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`SELECT `+certColumns+` FROM certificates%s ORDER BY issued_at DESC, certificate_id DESC LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	certs, err := collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return certs, total, nil
}

// SetRevoked moves a Valid certificate to Revoked in a single conditional
// update. Two concurrent revocations cannot both succeed: the status
// predicate makes the losing update match zero rows.
func (s *PostgresStore) SetRevoked(ctx context.Context, certificateID string, revokedBy uuid.UUID, reason string, now time.Time) (*models.Certificate, error) {
	query := `
		UPDATE certificates
		SET status = $2, revoked_by = $3, revoked_at = $4, revocation_reason = $5
		WHERE certificate_id = $1 AND status = $6
		RETURNING ` + certColumns
	cert, err := scanCertificate(s.db.QueryRowContext(ctx, query,
		certificateID,
		string(models.StatusRevoked),
		revokedBy,
		now,
		reason,
		string(models.StatusValid),
	))
	if err == nil {
		return cert, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("revoke certificate: %w", err)
	}

	// Nothing updated: distinguish a missing certificate from one that is
	// already revoked.
	existing, findErr := s.FindByID(ctx, certificateID)
	if findErr != nil {
		return nil, findErr
	}
	if existing.Status == models.StatusRevoked {
		return nil, fmt.Errorf("certificate %s: %w", certificateID, sentinel.ErrAlreadyRevoked)
	}
	return nil, fmt.Errorf("revoke certificate %s: unexpected status %s", certificateID, existing.Status)
}

// CountByStatus returns certificate counts per status.
func (s *PostgresStore) CountByStatus(ctx context.Context) (models.StatusCounts, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, count(*) FROM certificates GROUP BY status`)
	if err != nil {
		return models.StatusCounts{}, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	var counts models.StatusCounts
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return models.StatusCounts{}, fmt.Errorf("scan status count: %w", err)
		}
		switch models.Status(status) {
		case models.StatusValid:
			counts.Valid = count
		case models.StatusRevoked:
			counts.Revoked = count
		case models.StatusPending:
			counts.Pending = count
		}
	}
	if err := rows.Err(); err != nil {
		return models.StatusCounts{}, fmt.Errorf("count by status: %w", err)
	}
	return counts, nil
}

// CountIssuedSince returns the number of certificates issued at or after
// the given time.
func (s *PostgresStore) CountIssuedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM certificates WHERE issued_at >= $1`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count issued since: %w", err)
	}
	return count, nil
}

func buildFilter(filter models.Filter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.HolderEmail != "" {
		args = append(args, filter.HolderEmail)
		clauses = append(clauses, fmt.Sprintf("lower(holder_email) = lower($%d)", len(args)))
	}
	if filter.Course != "" {
		args = append(args, filter.Course)
		clauses = append(clauses, fmt.Sprintf("lower(course) = lower($%d)", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func collect(rows *sql.Rows) ([]*models.Certificate, error) {
	certs := []*models.Certificate{}
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		certs = append(certs, cert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificates: %w", err)
	}
	return certs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row rowScanner) (*models.Certificate, error) {
	var (
		cert       models.Certificate
		status     string
		completion sql.NullTime
		revokedBy  uuid.NullUUID
		revokedAt  sql.NullTime
	)
	err := row.Scan(
		&cert.CertificateID,
		&cert.HolderID,
		&cert.HolderName,
		&cert.HolderEmail,
		&cert.Course,
		&cert.Degree,
		&cert.Institution,
		&cert.Grade,
		&completion,
		&cert.IssuedAt,
		&status,
		&cert.LedgerHash,
		&cert.IssuedBy,
		&revokedBy,
		&revokedAt,
		&cert.RevocationReason,
	)
	if err != nil {
		return nil, err
	}
	cert.Status = models.Status(status)
	if completion.Valid {
		cert.CompletionDate = completion.Time
	}
	if revokedBy.Valid {
		cert.RevokedBy = revokedBy.UUID
	}
	if revokedAt.Valid {
		cert.RevokedAt = revokedAt.Time
	}
	return &cert, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
