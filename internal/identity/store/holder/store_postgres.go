package holder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"certis/internal/identity/models"
	"certis/internal/sentinel"
)

// PostgresStore persists credential holders in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed holder store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const holderColumns = `id, email, password_hash, name, holder_code, program, enrolled_at, expected_completion, status, certificate_ids, is_active, last_login, created_at, updated_at`

// Create inserts a new holder. Email and holder code uniqueness are
// enforced by unique indexes.
func (s *PostgresStore) Create(ctx context.Context, holder *models.Holder) error {
	if holder == nil {
		return fmt.Errorf("holder is required")
	}
	query := `
		INSERT INTO holders (` + holderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(ctx, query,
		holder.ID,
		holder.Email,
		holder.PasswordHash,
		holder.Name,
		holder.HolderCode,
		holder.Program,
		nullTime(holder.EnrolledAt),
		nullTime(holder.ExpectedCompletion),
		string(holder.Status),
		strings.Join(holder.CertificateIDs, ","),
		holder.IsActive,
		nullTime(holder.LastLogin),
		holder.CreatedAt,
		holder.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("holder email or code taken: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create holder: %w", err)
	}
	return nil
}

// Update overwrites mutable fields of an existing holder.
func (s *PostgresStore) Update(ctx context.Context, holder *models.Holder) error {
	if holder == nil {
		return fmt.Errorf("holder is required")
	}
	query := `
		UPDATE holders
		SET password_hash = $2, name = $3, program = $4, enrolled_at = $5,
		    expected_completion = $6, status = $7, is_active = $8,
		    last_login = $9, updated_at = $10
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		holder.ID,
		holder.PasswordHash,
		holder.Name,
		holder.Program,
		nullTime(holder.EnrolledAt),
		nullTime(holder.ExpectedCompletion),
		string(holder.Status),
		holder.IsActive,
		nullTime(holder.LastLogin),
		holder.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update holder: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update holder rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("holder not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, holderID uuid.UUID) (*models.Holder, error) {
	query := `SELECT ` + holderColumns + ` FROM holders WHERE id = $1`
	return s.findOne(ctx, query, holderID)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Holder, error) {
	query := `SELECT ` + holderColumns + ` FROM holders WHERE lower(email) = lower($1)`
	return s.findOne(ctx, query, email)
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*models.Holder, error) {
	query := `SELECT ` + holderColumns + ` FROM holders WHERE holder_code = $1`
	return s.findOne(ctx, query, code)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Holder, error) {
	holder, err := scanHolder(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("holder not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find holder: %w", err)
	}
	return holder, nil
}

// List returns a page of holders matching the filter, newest first, and
// the total matching count.
func (s *PostgresStore) List(ctx context.Context, page, pageSize int, filter models.HolderFilter) ([]*models.Holder, int, error) {
	where, args := buildFilter(filter)

	var total int
	countQuery := `SELECT count(*) FROM holders` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count holders: %w", err)
	}

	args = append(args, pageSize, (page-1)*pageSize)
	listQuery := fmt.Sprintf(`SELECT `+holderColumns+` FROM holders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list holders: %w", err)
	}
	defer rows.Close()

	holders := []*models.Holder{}
	for rows.Next() {
		holder, err := scanHolder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan holder: %w", err)
		}
		holders = append(holders, holder)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list holders: %w", err)
	}
	return holders, total, nil
}

// AppendCertificate adds a certificate reference to the holder's list in a
// single statement.
func (s *PostgresStore) AppendCertificate(ctx context.Context, holderID uuid.UUID, certificateID string) error {
	query := `
		UPDATE holders
		SET certificate_ids = CASE
			WHEN certificate_ids = '' THEN $2
			ELSE certificate_ids || ',' || $2
		END
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, holderID, certificateID)
	if err != nil {
		return fmt.Errorf("append certificate: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("append certificate rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("holder not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func buildFilter(filter models.HolderFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Program != "" {
		args = append(args, filter.Program)
		clauses = append(clauses, fmt.Sprintf("lower(program) = lower($%d)", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(lower(name) LIKE $%d OR lower(email) LIKE $%d OR lower(holder_code) LIKE $%d)", n, n, n))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHolder(row rowScanner) (*models.Holder, error) {
	var (
		holder       models.Holder
		status       string
		certIDs      string
		enrolledAt   sql.NullTime
		expectedDone sql.NullTime
		lastLogin    sql.NullTime
	)
	err := row.Scan(
		&holder.ID,
		&holder.Email,
		&holder.PasswordHash,
		&holder.Name,
		&holder.HolderCode,
		&holder.Program,
		&enrolledAt,
		&expectedDone,
		&status,
		&certIDs,
		&holder.IsActive,
		&lastLogin,
		&holder.CreatedAt,
		&holder.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	holder.Status = models.HolderStatus(status)
	if certIDs != "" {
		holder.CertificateIDs = strings.Split(certIDs, ",")
	}
	if enrolledAt.Valid {
		holder.EnrolledAt = enrolledAt.Time
	}
	if expectedDone.Valid {
		holder.ExpectedCompletion = expectedDone.Time
	}
	if lastLogin.Valid {
		holder.LastLogin = lastLogin.Time
	}
	return &holder, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
