package repositories

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/labgate/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestMemoryAccounts_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	accounts := NewMemoryStore().Accounts()

	created, err := accounts.Create(ctx, &models.Account{
		Email: "Admin@Lab.Example", Role: models.RoleAdmin, PasswordHash: "h", IsActive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "admin@lab.example", created.Email)

	got, err := accounts.GetByEmail(ctx, models.RoleAdmin, "ADMIN@lab.example")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	// Roles live in separate tables
	_, err = accounts.GetByEmail(ctx, models.RoleSuperAdmin, "admin@lab.example")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = accounts.Create(ctx, &models.Account{Email: "admin@lab.example", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, models.ErrConflict)

	require.NoError(t, accounts.UpdatePassword(ctx, models.RoleAdmin, created.ID, "h2", t0))
	got, err = accounts.GetByID(ctx, models.RoleAdmin, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "h2", got.PasswordHash)
	require.NotNil(t, got.PasswordChangedAt)
}

func TestMemoryLoginAttempts_WindowCounts(t *testing.T) {
	ctx := context.Background()
	attempts := NewMemoryStore().LoginAttempts()

	for i := 0; i < 3; i++ {
		require.NoError(t, attempts.RecordAttempt(ctx, &models.LoginAttempt{
			AccountID: "a1", AttemptTime: t0.Add(time.Duration(i) * time.Minute), ExpiresAt: t0.Add(30 * time.Minute),
		}))
	}
	require.NoError(t, attempts.RecordAttempt(ctx, &models.LoginAttempt{
		AccountID: "a1", AttemptTime: t0.Add(5 * time.Minute), Success: true, ExpiresAt: t0.Add(35 * time.Minute),
	}))

	count, err := attempts.GetFailedAttemptCount(ctx, "a1", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	last, err := attempts.GetLastResetTime(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, last.Equal(t0.Add(5*time.Minute)))

	// A counter reset moves the window start but is not itself a failure
	require.NoError(t, attempts.RecordAttempt(ctx, &models.LoginAttempt{
		AccountID: "a1", AttemptTime: t0.Add(6 * time.Minute), CounterReset: true, ExpiresAt: t0.Add(36 * time.Minute),
	}))
	count, err = attempts.GetFailedAttemptCount(ctx, "a1", t0)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	last, err = attempts.GetLastResetTime(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, last.Equal(t0.Add(6*time.Minute)))

	removed, err := attempts.DeleteExpiredAttempts(ctx, t0.Add(31*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
}

func TestMemoryLockouts_OnlyEffectiveReturned(t *testing.T) {
	ctx := context.Background()
	lockouts := NewMemoryStore().Lockouts()

	_, err := lockouts.Create(ctx, &models.Lockout{AccountID: "a1", LockoutUntil: t0.Add(-time.Minute), IsActive: true})
	require.NoError(t, err)

	_, err = lockouts.GetActive(ctx, "a1", t0)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = lockouts.Create(ctx, &models.Lockout{AccountID: "a1", LockoutUntil: t0.Add(15 * time.Minute), IsActive: true})
	require.NoError(t, err)

	got, err := lockouts.GetActive(ctx, "a1", t0)
	require.NoError(t, err)
	assert.True(t, got.LockoutUntil.Equal(t0.Add(15*time.Minute)))

	n, err := lockouts.DeactivateAll(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = lockouts.GetActive(ctx, "a1", t0)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryCodes_MarkUsedIsSingleShot(t *testing.T) {
	ctx := context.Background()
	codes := NewMemoryStore().Codes()

	c, err := codes.Create(ctx, &models.VerificationCode{
		AccountID: "a1", Email: "a@x.com", CodeHash: "hash", ExpiresAt: t0.Add(5 * time.Minute), CreatedAt: t0,
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- codes.MarkUsed(ctx, c.ID, t0)
		}()
	}
	wg.Wait()
	close(results)

	ok := 0
	for err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, models.ErrNotFound)
		}
	}
	assert.Equal(t, 1, ok)

	_, err = codes.FindLatestUnused(ctx, "a@x.com", "hash")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryCodes_FindLatestUnusedPrefersNewest(t *testing.T) {
	ctx := context.Background()
	codes := NewMemoryStore().Codes()

	_, err := codes.Create(ctx, &models.VerificationCode{AccountID: "a1", Email: "a@x.com", CodeHash: "h", CreatedAt: t0})
	require.NoError(t, err)
	newer, err := codes.Create(ctx, &models.VerificationCode{AccountID: "a1", Email: "a@x.com", CodeHash: "h", CreatedAt: t0.Add(time.Second)})
	require.NoError(t, err)

	got, err := codes.FindLatestUnused(ctx, "a@x.com", "h")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)

	n, err := codes.DeleteUnusedByAccount(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func newSession(accountID string, role models.Role, created time.Time) *models.Session {
	return &models.Session{
		AccountID:    accountID,
		Role:         role,
		CreatedAt:    created,
		LastActivity: created,
		ExpiresAt:    created.Add(24 * time.Hour),
	}
}

func TestMemorySessions_CreateExclusive(t *testing.T) {
	ctx := context.Background()
	sessions := NewMemoryStore().Sessions()

	first, err := sessions.CreateExclusive(ctx, newSession("admin-1", models.RoleAdmin, t0))
	require.NoError(t, err)

	_, err = sessions.CreateExclusive(ctx, newSession("admin-1", models.RoleAdmin, t0.Add(time.Hour)))
	assert.ErrorIs(t, err, models.ErrConflict)

	// An expired session no longer blocks a new login
	second, err := sessions.CreateExclusive(ctx, newSession("admin-1", models.RoleAdmin, t0.Add(25*time.Hour)))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	old, err := sessions.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, old.IsActive)
	require.NotNil(t, old.EndReason)
	assert.Equal(t, models.SessionEndExpired, *old.EndReason)
}

func TestMemorySessions_CreateExclusiveRace(t *testing.T) {
	ctx := context.Background()
	sessions := NewMemoryStore().Sessions()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := sessions.CreateExclusive(ctx, newSession("admin-1", models.RoleAdmin, t0)); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
}

func TestMemorySessions_TerminalStateIsAbsorbing(t *testing.T) {
	ctx := context.Background()
	sessions := NewMemoryStore().Sessions()

	s, err := sessions.Create(ctx, newSession("su-1", models.RoleSuperAdmin, t0))
	require.NoError(t, err)

	require.NoError(t, sessions.Deactivate(ctx, s.ID, models.SessionEndLogout, t0.Add(time.Minute)))
	assert.ErrorIs(t, sessions.Deactivate(ctx, s.ID, models.SessionEndRevoked, t0.Add(2*time.Minute)), models.ErrNotFound)

	require.NoError(t, sessions.Touch(ctx, s.ID, t0.Add(3*time.Minute)))
	got, err := sessions.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, models.SessionEndLogout, *got.EndReason)
	assert.True(t, got.LastActivity.Equal(t0))
}

func TestMemorySessions_DeactivateExpiredIsIdempotent(t *testing.T) {
	ctx := context.Background()
	sessions := NewMemoryStore().Sessions()

	_, err := sessions.Create(ctx, newSession("su-1", models.RoleSuperAdmin, t0))
	require.NoError(t, err)
	_, err = sessions.Create(ctx, newSession("su-1", models.RoleSuperAdmin, t0.Add(12*time.Hour)))
	require.NoError(t, err)

	n, err := sessions.DeactivateExpired(ctx, t0.Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = sessions.DeactivateExpired(ctx, t0.Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	live, err := sessions.GetActiveByAccount(ctx, "su-1", t0.Add(25*time.Hour))
	require.NoError(t, err)
	assert.True(t, live.CreatedAt.Equal(t0.Add(12*time.Hour)))

	n, err = sessions.DeactivateAllForAccount(ctx, "su-1", models.SessionEndLogoutAll, t0.Add(26*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
