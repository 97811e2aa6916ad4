package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/labgate/internal/database"
	"github.com/BradenHooton/labgate/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRepository reads and writes super admins (users table) and admins
// (admins table) behind one role-keyed API.
type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both pgx.Row and pgx.Rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const accountColumns = `id, email, name, password_hash, is_active, password_changed_at, created_at, updated_at`

func accountTable(role models.Role) (string, error) {
	switch role {
	case models.RoleSuperAdmin:
		return "users", nil
	case models.RoleAdmin:
		return "admins", nil
	default:
		return "", fmt.Errorf("unknown role %q: %w", role, models.ErrBadRequest)
	}
}

// scanAccountRow handles nullable fields and populates an Account from a database row
func scanAccountRow(scanner rowScanner, role models.Role) (*models.Account, error) {
	var account models.Account
	var passwordChangedAt *time.Time

	err := scanner.Scan(
		&account.ID, &account.Email, &account.Name, &account.PasswordHash,
		&account.IsActive, &passwordChangedAt,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	account.Role = role
	account.PasswordChangedAt = passwordChangedAt
	return &account, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, role models.Role, email string) (*models.Account, error) {
	table, err := accountTable(role)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + accountColumns + ` FROM ` + table + ` WHERE email = $1`

	return scanAccountRow(r.pool.QueryRow(ctx, query, strings.ToLower(email)), role)
}

func (r *AccountRepository) GetByID(ctx context.Context, role models.Role, id string) (*models.Account, error) {
	table, err := accountTable(role)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}

	query := `SELECT ` + accountColumns + ` FROM ` + table + ` WHERE id = $1`

	return scanAccountRow(r.pool.QueryRow(ctx, query, id), role)
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	table, err := accountTable(account.Role)
	if err != nil {
		return nil, err
	}

	account.ID = uuid.New().String()
	account.Email = strings.ToLower(account.Email)

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	query := `
		INSERT INTO ` + table + ` (id, email, name, password_hash, is_active, password_changed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + accountColumns

	created, err := scanAccountRow(r.pool.QueryRow(ctx, query,
		account.ID, account.Email, account.Name, account.PasswordHash,
		account.IsActive, account.PasswordChangedAt, account.CreatedAt, account.UpdatedAt,
	), account.Role)
	if err != nil {
		return nil, err
	}

	return created, nil
}

// UpdatePassword stores a new hash and stamps password_changed_at
func (r *AccountRepository) UpdatePassword(ctx context.Context, role models.Role, id, passwordHash string, changedAt time.Time) error {
	table, err := accountTable(role)
	if err != nil {
		return err
	}

	query := `UPDATE ` + table + ` SET password_hash = $1, password_changed_at = $2, updated_at = $2 WHERE id = $3`

	result, err := r.pool.Exec(ctx, query, passwordHash, changedAt, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetActive enables or disables an account without deleting it
func (r *AccountRepository) SetActive(ctx context.Context, role models.Role, id string, active bool) error {
	table, err := accountTable(role)
	if err != nil {
		return err
	}

	query := `UPDATE ` + table + ` SET is_active = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, active, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
