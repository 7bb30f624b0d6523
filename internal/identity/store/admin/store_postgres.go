package admin

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

// PostgresStore persists administrators in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed admin store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const adminColumns = `id, email, password_hash, name, department, role, permissions, is_active, last_login, created_at, updated_at`

// Create inserts a new admin. Email uniqueness is enforced by a unique
// index on lower(email).
func (s *PostgresStore) Create(ctx context.Context, admin *models.Admin) error {
	if admin == nil {
		return fmt.Errorf("admin is required")
	}
	query := `
		INSERT INTO admins (` + adminColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		admin.ID,
		admin.Email,
		admin.PasswordHash,
		admin.Name,
		admin.Department,
		string(admin.Role),
		joinPermissions(admin.Permissions),
		admin.IsActive,
		nullTime(admin.LastLogin),
		admin.CreatedAt,
		admin.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("admin email taken: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create admin: %w", err)
	}
	return nil
}

// Update overwrites mutable fields of an existing admin.
func (s *PostgresStore) Update(ctx context.Context, admin *models.Admin) error {
	if admin == nil {
		return fmt.Errorf("admin is required")
	}
	query := `
		UPDATE admins
		SET password_hash = $2, name = $3, department = $4, role = $5,
		    permissions = $6, is_active = $7, last_login = $8, updated_at = $9
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		admin.ID,
		admin.PasswordHash,
		admin.Name,
		admin.Department,
		string(admin.Role),
		joinPermissions(admin.Permissions),
		admin.IsActive,
		nullTime(admin.LastLogin),
		admin.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update admin: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update admin rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("admin not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, adminID uuid.UUID) (*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE id = $1`
	admin, err := scanAdmin(s.db.QueryRowContext(ctx, query, adminID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("admin not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find admin by id: %w", err)
	}
	return admin, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE lower(email) = lower($1)`
	admin, err := scanAdmin(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("admin not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find admin by email: %w", err)
	}
	return admin, nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var admins []*models.Admin
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		admins = append(admins, admin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM admins`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAdmin(row rowScanner) (*models.Admin, error) {
	var (
		admin     models.Admin
		role      string
		perms     string
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&admin.ID,
		&admin.Email,
		&admin.PasswordHash,
		&admin.Name,
		&admin.Department,
		&role,
		&perms,
		&admin.IsActive,
		&lastLogin,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	admin.Role = models.Role(role)
	admin.Permissions = splitPermissions(perms)
	if lastLogin.Valid {
		admin.LastLogin = lastLogin.Time
	}
	return &admin, nil
}

func joinPermissions(perms []models.Permission) string {
	parts := make([]string, len(perms))
	for i, p := range perms {
		parts[i] = string(p)
	}
	return strings.Join(parts, ",")
}

func splitPermissions(s string) []models.Permission {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	perms := make([]models.Permission, len(parts))
	for i, p := range parts {
		perms[i] = models.Permission(p)
	}
	return perms
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
