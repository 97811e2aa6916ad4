package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/labgate/internal/database"
	"github.com/BradenHooton/labgate/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VerificationCodeRepository handles one-time code data access
type VerificationCodeRepository struct {
	pool *pgxpool.Pool
}

func NewVerificationCodeRepository(db *database.DB) *VerificationCodeRepository {
	return &VerificationCodeRepository{pool: db.Pool}
}

const codeColumns = `id, account_id, email, code_hash, expires_at, used, used_at, created_at`

// scanCodeRow handles nullable fields and populates a VerificationCode from a database row
func scanCodeRow(row rowScanner) (*models.VerificationCode, error) {
	var code models.VerificationCode
	var usedAt *time.Time

	err := row.Scan(
		&code.ID, &code.AccountID, &code.Email, &code.CodeHash,
		&code.ExpiresAt, &code.Used, &usedAt, &code.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	code.UsedAt = usedAt
	return &code, nil
}

func (r *VerificationCodeRepository) Create(ctx context.Context, code *models.VerificationCode) (*models.VerificationCode, error) {
	if code.ID == "" {
		code.ID = uuid.New().String()
	}

	query := `
		INSERT INTO verification_codes (id, account_id, email, code_hash, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5, false, $6)
		RETURNING ` + codeColumns

	created, err := scanCodeRow(r.pool.QueryRow(ctx, query,
		code.ID, code.AccountID, code.Email, code.CodeHash, code.ExpiresAt, code.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create verification code: %w", err)
	}
	return created, nil
}

// FindLatestUnused returns the most recent unconsumed code matching email and hash
func (r *VerificationCodeRepository) FindLatestUnused(ctx context.Context, email, codeHash string) (*models.VerificationCode, error) {
	query := `
		SELECT ` + codeColumns + `
		FROM verification_codes
		WHERE email = $1 AND code_hash = $2 AND used = false
		ORDER BY created_at DESC
		LIMIT 1
	`

	return scanCodeRow(r.pool.QueryRow(ctx, query, email, codeHash))
}

// MarkUsed consumes a code. Only the first caller succeeds; later callers get ErrNotFound.
func (r *VerificationCodeRepository) MarkUsed(ctx context.Context, id string, usedAt time.Time) error {
	query := `
		UPDATE verification_codes
		SET used = true, used_at = $2
		WHERE id = $1 AND used = false
	`

	result, err := r.pool.Exec(ctx, query, id, usedAt)
	if err != nil {
		return fmt.Errorf("failed to mark code as used: %w", database.MapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// DeleteUnusedByAccount drops outstanding codes before a new one is issued
func (r *VerificationCodeRepository) DeleteUnusedByAccount(ctx context.Context, accountID string) (int64, error) {
	query := `DELETE FROM verification_codes WHERE account_id = $1 AND used = false`

	result, err := r.pool.Exec(ctx, query, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete codes for account: %w", database.MapPostgresError(err))
	}

	return result.RowsAffected(), nil
}

// CleanupExpired deletes codes that are consumed or past expiry
func (r *VerificationCodeRepository) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM verification_codes WHERE expires_at < $1 OR used = true`

	result, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired codes: %w", database.MapPostgresError(err))
	}

	return result.RowsAffected(), nil
}
