package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/BradenHooton/labgate/internal/database"
	"github.com/BradenHooton/labgate/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LoginAttemptRepository handles database operations for login attempts and lockouts
type LoginAttemptRepository struct {
	pool *pgxpool.Pool
}

func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{pool: db.Pool}
}

// RecordAttempt appends a login attempt
func (r *LoginAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}

	query := `
		INSERT INTO login_attempts (id, account_id, email, ip_address, user_agent, attempt_time, success, failure_reason, counter_reset, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		attempt.ID,
		attempt.AccountID,
		attempt.Email,
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.AttemptTime,
		attempt.Success,
		attempt.FailureReason,
		attempt.CounterReset,
		attempt.ExpiresAt,
	)

	return database.MapPostgresError(err)
}

// GetFailedAttemptCount returns the number of failed attempts for an account since the given time
func (r *LoginAttemptRepository) GetFailedAttemptCount(ctx context.Context, accountID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_attempts
		WHERE account_id = $1 AND success = false AND counter_reset = false AND attempt_time >= $2
	`

	var count int
	err := r.pool.QueryRow(ctx, query, accountID, since).Scan(&count)
	return count, database.MapPostgresError(err)
}

// GetLastResetTime returns the most recent successful login or counter
// reset, or nil if there is none
func (r *LoginAttemptRepository) GetLastResetTime(ctx context.Context, accountID string) (*time.Time, error) {
	query := `
		SELECT attempt_time FROM login_attempts
		WHERE account_id = $1 AND (success = true OR counter_reset = true)
		ORDER BY attempt_time DESC
		LIMIT 1
	`

	var resetTime time.Time
	err := r.pool.QueryRow(ctx, query, accountID).Scan(&resetTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &resetTime, nil
}

// DeleteExpiredAttempts removes attempts past their retention time
func (r *LoginAttemptRepository) DeleteExpiredAttempts(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM login_attempts WHERE expires_at <= $1`

	result, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

// LockoutRepository persists account lockouts
type LockoutRepository struct {
	pool *pgxpool.Pool
}

func NewLockoutRepository(db *database.DB) *LockoutRepository {
	return &LockoutRepository{pool: db.Pool}
}

func scanLockoutRow(row rowScanner) (*models.Lockout, error) {
	var lockout models.Lockout
	err := row.Scan(
		&lockout.ID, &lockout.AccountID, &lockout.LockoutUntil,
		&lockout.IsActive, &lockout.Reason, &lockout.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &lockout, nil
}

func (r *LockoutRepository) Create(ctx context.Context, lockout *models.Lockout) (*models.Lockout, error) {
	if lockout.ID == "" {
		lockout.ID = uuid.New().String()
	}

	query := `
		INSERT INTO account_lockouts (id, account_id, lockout_until, is_active, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, account_id, lockout_until, is_active, reason, created_at
	`

	return scanLockoutRow(r.pool.QueryRow(ctx, query,
		lockout.ID, lockout.AccountID, lockout.LockoutUntil, lockout.IsActive, lockout.Reason, lockout.CreatedAt,
	))
}

// GetActive returns the effective lockout with the latest expiry, or ErrNotFound
func (r *LockoutRepository) GetActive(ctx context.Context, accountID string, now time.Time) (*models.Lockout, error) {
	query := `
		SELECT id, account_id, lockout_until, is_active, reason, created_at
		FROM account_lockouts
		WHERE account_id = $1 AND is_active = true AND lockout_until > $2
		ORDER BY lockout_until DESC
		LIMIT 1
	`

	return scanLockoutRow(r.pool.QueryRow(ctx, query, accountID, now))
}

// DeactivateAll clears every active lockout for the account
func (r *LockoutRepository) DeactivateAll(ctx context.Context, accountID string) (int64, error) {
	query := `UPDATE account_lockouts SET is_active = false WHERE account_id = $1 AND is_active = true`

	result, err := r.pool.Exec(ctx, query, accountID)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
