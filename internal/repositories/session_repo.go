package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/labgate/internal/database"
	"github.com/BradenHooton/labgate/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SessionRepository stores the server-side half of every issued token
type SessionRepository struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, account_id, role, device_info, ip_address, user_agent, created_at, last_activity, expires_at, is_active, ended_at, end_reason`

func scanSessionRow(row rowScanner) (*models.Session, error) {
	var session models.Session
	var endedAt *time.Time
	var endReason *string

	err := row.Scan(
		&session.ID, &session.AccountID, &session.Role,
		&session.DeviceInfo, &session.IPAddress, &session.UserAgent,
		&session.CreatedAt, &session.LastActivity, &session.ExpiresAt,
		&session.IsActive, &endedAt, &endReason,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	session.EndedAt = endedAt
	session.EndReason = endReason
	return &session, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertSession(ctx context.Context, q querier, session *models.Session) (*models.Session, error) {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}

	query := `
		INSERT INTO sessions (id, account_id, role, device_info, ip_address, user_agent, created_at, last_activity, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true)
		RETURNING ` + sessionColumns

	return scanSessionRow(q.QueryRow(ctx, query,
		session.ID, session.AccountID, session.Role,
		session.DeviceInfo, session.IPAddress, session.UserAgent,
		session.CreatedAt, session.LastActivity, session.ExpiresAt,
	))
}

// Create inserts a session without exclusivity checks
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	return insertSession(ctx, r.db.Pool, session)
}

// CreateExclusive inserts a session unless the account already holds a live
// one, in which case it returns ErrConflict. Stale rows past expiry are ended
// first so they do not trip the single-active-session index.
func (r *SessionRepository) CreateExclusive(ctx context.Context, session *models.Session) (*models.Session, error) {
	var created *models.Session

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		expire := `
			UPDATE sessions
			SET is_active = false, ended_at = $2, end_reason = $3
			WHERE account_id = $1 AND is_active = true AND expires_at <= $2
		`
		if _, err := tx.Exec(ctx, expire, session.AccountID, session.CreatedAt, models.SessionEndExpired); err != nil {
			return database.MapPostgresError(err)
		}

		s, err := insertSession(ctx, tx, session)
		if err != nil {
			return err
		}
		created = s
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return created, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanSessionRow(r.db.Pool.QueryRow(ctx, query, id))
}

// GetActiveByAccount returns the most recent live session, or ErrNotFound
func (r *SessionRepository) GetActiveByAccount(ctx context.Context, accountID string, now time.Time) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE account_id = $1 AND is_active = true AND expires_at > $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanSessionRow(r.db.Pool.QueryRow(ctx, query, accountID, now))
}

// Touch records activity on a live session
func (r *SessionRepository) Touch(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE sessions SET last_activity = $2 WHERE id = $1 AND is_active = true`

	_, err := r.db.Pool.Exec(ctx, query, id, at)
	return database.MapPostgresError(err)
}

// Deactivate ends one session. Ending an already-ended session is a no-op
// that returns ErrNotFound.
func (r *SessionRepository) Deactivate(ctx context.Context, id, reason string, at time.Time) error {
	if _, err := uuid.Parse(id); err != nil {
		return models.ErrNotFound
	}

	query := `
		UPDATE sessions
		SET is_active = false, ended_at = $2, end_reason = $3
		WHERE id = $1 AND is_active = true
	`

	result, err := r.db.Pool.Exec(ctx, query, id, at, reason)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeactivateAllForAccount ends every active session of the account
func (r *SessionRepository) DeactivateAllForAccount(ctx context.Context, accountID, reason string, at time.Time) (int64, error) {
	query := `
		UPDATE sessions
		SET is_active = false, ended_at = $2, end_reason = $3
		WHERE account_id = $1 AND is_active = true
	`

	result, err := r.db.Pool.Exec(ctx, query, accountID, at, reason)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

// DeactivateExpired ends every active session past its expiry
func (r *SessionRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE sessions
		SET is_active = false, ended_at = $1, end_reason = $2
		WHERE is_active = true AND expires_at <= $1
	`

	result, err := r.db.Pool.Exec(ctx, query, now, models.SessionEndExpired)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
