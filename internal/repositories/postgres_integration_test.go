//go:build integration

package repositories

import (
	"context"
	"io"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/BradenHooton/labgate/internal/database"
	"github.com/BradenHooton/labgate/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a disposable Postgres, applies migrations and returns a DB wrapper
func setupPostgres(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("labgate"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	goose.SetLogger(log.New(io.Discard, "", 0))
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()
	require.NoError(t, database.Migrate(ctx, sqlDB))

	return database.NewDB(pool, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPostgresRepositories(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	accounts := NewAccountRepository(db)
	sessions := NewSessionRepository(db)
	codes := NewVerificationCodeRepository(db)
	attempts := NewLoginAttemptRepository(db)
	lockouts := NewLockoutRepository(db)

	admin, err := accounts.Create(ctx, &models.Account{
		Email: "Admin@Lab.Example", Name: "Admin", Role: models.RoleAdmin, PasswordHash: "hash", IsActive: true,
	})
	require.NoError(t, err)

	t.Run("account lookup is case-insensitive and role scoped", func(t *testing.T) {
		got, err := accounts.GetByEmail(ctx, models.RoleAdmin, "ADMIN@lab.example")
		require.NoError(t, err)
		assert.Equal(t, admin.ID, got.ID)

		_, err = accounts.GetByEmail(ctx, models.RoleSuperAdmin, "admin@lab.example")
		assert.ErrorIs(t, err, models.ErrNotFound)

		_, err = accounts.Create(ctx, &models.Account{Email: "admin@lab.example", Role: models.RoleAdmin, PasswordHash: "x"})
		assert.ErrorIs(t, err, models.ErrConflict)

		_, err = accounts.GetByID(ctx, models.RoleAdmin, "not-a-uuid")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("admin single active session enforced by index", func(t *testing.T) {
		s := &models.Session{AccountID: admin.ID, Role: models.RoleAdmin, CreatedAt: now, LastActivity: now, ExpiresAt: now.Add(24 * time.Hour)}
		first, err := sessions.CreateExclusive(ctx, s)
		require.NoError(t, err)

		dup := &models.Session{AccountID: admin.ID, Role: models.RoleAdmin, CreatedAt: now, LastActivity: now, ExpiresAt: now.Add(24 * time.Hour)}
		_, err = sessions.CreateExclusive(ctx, dup)
		assert.ErrorIs(t, err, models.ErrConflict)

		live, err := sessions.GetActiveByAccount(ctx, admin.ID, now)
		require.NoError(t, err)
		assert.Equal(t, first.ID, live.ID)

		require.NoError(t, sessions.Deactivate(ctx, first.ID, models.SessionEndLogout, now))
		assert.ErrorIs(t, sessions.Deactivate(ctx, first.ID, models.SessionEndLogout, now), models.ErrNotFound)

		again := &models.Session{AccountID: admin.ID, Role: models.RoleAdmin, CreatedAt: now, LastActivity: now, ExpiresAt: now.Add(24 * time.Hour)}
		_, err = sessions.CreateExclusive(ctx, again)
		require.NoError(t, err)

		n, err := sessions.DeactivateAllForAccount(ctx, admin.ID, models.SessionEndLogoutAll, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("codes are consumed once", func(t *testing.T) {
		c, err := codes.Create(ctx, &models.VerificationCode{
			AccountID: admin.ID, Email: "admin@lab.example", CodeHash: "abc", ExpiresAt: now.Add(5 * time.Minute), CreatedAt: now,
		})
		require.NoError(t, err)

		found, err := codes.FindLatestUnused(ctx, "admin@lab.example", "abc")
		require.NoError(t, err)
		assert.Equal(t, c.ID, found.ID)

		require.NoError(t, codes.MarkUsed(ctx, c.ID, now))
		assert.ErrorIs(t, codes.MarkUsed(ctx, c.ID, now), models.ErrNotFound)

		_, err = codes.FindLatestUnused(ctx, "admin@lab.example", "abc")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("attempts and lockouts", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			require.NoError(t, attempts.RecordAttempt(ctx, &models.LoginAttempt{
				AccountID: admin.ID, Email: "admin@lab.example", AttemptTime: now.Add(-time.Duration(i) * time.Minute),
				ExpiresAt: now.Add(30 * time.Minute),
			}))
		}
		count, err := attempts.GetFailedAttemptCount(ctx, admin.ID, now.Add(-15*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		last, err := attempts.GetLastResetTime(ctx, admin.ID)
		require.NoError(t, err)
		assert.Nil(t, last)

		require.NoError(t, attempts.RecordAttempt(ctx, &models.LoginAttempt{
			AccountID: admin.ID, Email: "admin@lab.example", AttemptTime: now, CounterReset: true,
			ExpiresAt: now.Add(30 * time.Minute),
		}))
		count, err = attempts.GetFailedAttemptCount(ctx, admin.ID, now.Add(-15*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		last, err = attempts.GetLastResetTime(ctx, admin.ID)
		require.NoError(t, err)
		require.NotNil(t, last)

		_, err = lockouts.Create(ctx, &models.Lockout{
			AccountID: admin.ID, LockoutUntil: now.Add(15 * time.Minute), IsActive: true, Reason: "too_many_failed_attempts", CreatedAt: now,
		})
		require.NoError(t, err)

		active, err := lockouts.GetActive(ctx, admin.ID, now)
		require.NoError(t, err)
		assert.True(t, active.IsEffective(now))

		n, err := lockouts.DeactivateAll(ctx, admin.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		removed, err := attempts.DeleteExpiredAttempts(ctx, now.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(4), removed)
	})
}
