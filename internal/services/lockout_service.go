package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BradenHooton/labgate/internal/models"
	pkglogger "github.com/BradenHooton/labgate/pkg/logger"
)

// LockoutReasonFailedAttempts is stored on lockouts created by the ledger
const LockoutReasonFailedAttempts = "too_many_failed_attempts"

// LoginAttemptRepository defines the interface for the append-only attempt log
type LoginAttemptRepository interface {
	RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error
	GetFailedAttemptCount(ctx context.Context, accountID string, since time.Time) (int, error)
	GetLastResetTime(ctx context.Context, accountID string) (*time.Time, error)
	DeleteExpiredAttempts(ctx context.Context, now time.Time) (int64, error)
}

// LockoutRepository defines the interface for lockout persistence
type LockoutRepository interface {
	Create(ctx context.Context, lockout *models.Lockout) (*models.Lockout, error)
	GetActive(ctx context.Context, accountID string, now time.Time) (*models.Lockout, error)
	DeactivateAll(ctx context.Context, accountID string) (int64, error)
}

// LockoutConfig holds the lockout policy
type LockoutConfig struct {
	Threshold int           // failed attempts that trigger a lockout
	Window    time.Duration // trailing window failures are counted in
	Duration  time.Duration // how long a lockout lasts
}

// DefaultLockoutConfig is five failures in fifteen minutes locks for fifteen minutes
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{Threshold: 5, Window: 15 * time.Minute, Duration: 15 * time.Minute}
}

// LockoutService is the ledger of failed attempts and lockouts per account
type LockoutService struct {
	attempts    LoginAttemptRepository
	lockouts    LockoutRepository
	config      LockoutConfig
	clock       Clock
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewLockoutService(attempts LoginAttemptRepository, lockouts LockoutRepository, config LockoutConfig, clock Clock, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *LockoutService {
	return &LockoutService{
		attempts:    attempts,
		lockouts:    lockouts,
		config:      config,
		clock:       clock,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// RecordFailedAttempt appends a failure and locks the account once the
// failures since max(now-window, last success or reset) reach the threshold. The
// returned lockout is non-nil only when this call created it.
func (s *LockoutService) RecordFailedAttempt(ctx context.Context, account *models.Account, client ClientMeta, reason string) (*models.Lockout, error) {
	now := s.clock.Now()

	attempt := &models.LoginAttempt{
		AccountID:     account.ID,
		Email:         account.Email,
		IPAddress:     client.IPAddress,
		UserAgent:     client.UserAgent,
		AttemptTime:   now,
		Success:       false,
		FailureReason: &reason,
		ExpiresAt:     now.Add(s.config.Window * 2), // Keep records for 2x window
	}
	if err := s.attempts.RecordAttempt(ctx, attempt); err != nil {
		s.logger.Error("failed to record failed login attempt",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		return nil, err
	}

	since := now.Add(-s.config.Window)
	lastReset, err := s.attempts.GetLastResetTime(ctx, account.ID)
	if err != nil {
		s.logger.Error("failed to read last successful login",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		return nil, err
	}
	if lastReset != nil && lastReset.After(since) {
		since = *lastReset
	}

	failed, err := s.attempts.GetFailedAttemptCount(ctx, account.ID, since)
	if err != nil {
		s.logger.Error("failed to count failed login attempts",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		return nil, err
	}

	if failed < s.config.Threshold {
		return nil, nil
	}

	lockout, err := s.lockouts.Create(ctx, &models.Lockout{
		AccountID:    account.ID,
		LockoutUntil: now.Add(s.config.Duration),
		IsActive:     true,
		Reason:       LockoutReasonFailedAttempts,
		CreatedAt:    now,
	})
	if err != nil {
		s.logger.Error("failed to create lockout",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		return nil, err
	}

	s.logger.Warn("account locked",
		slog.String("account_id", account.ID),
		slog.Int("failed_attempts", failed),
		slog.Time("lockout_until", lockout.LockoutUntil))
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType:     pkglogger.EventAccountLocked,
		AccountID:     account.ID,
		Role:          string(account.Role),
		Email:         account.Email,
		IPAddress:     client.IPAddress,
		FailureReason: LockoutReasonFailedAttempts,
		Metadata:      map[string]string{"lockout_until": lockout.LockoutUntil.Format(time.RFC3339)},
	})

	return lockout, nil
}

// RecordSuccess appends a successful attempt, which restarts the failure count
func (s *LockoutService) RecordSuccess(ctx context.Context, account *models.Account, client ClientMeta) error {
	now := s.clock.Now()

	err := s.attempts.RecordAttempt(ctx, &models.LoginAttempt{
		AccountID:   account.ID,
		Email:       account.Email,
		IPAddress:   client.IPAddress,
		UserAgent:   client.UserAgent,
		AttemptTime: now,
		Success:     true,
		ExpiresAt:   now.Add(s.config.Window * 2),
	})
	if err != nil {
		s.logger.Error("failed to record successful login attempt",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
	}
	return err
}

// IsLocked returns the effective lockout for the account, or nil
func (s *LockoutService) IsLocked(ctx context.Context, accountID string) (*models.Lockout, error) {
	lockout, err := s.lockouts.GetActive(ctx, accountID, s.clock.Now())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return lockout, nil
}

// ClearLockouts deactivates every lockout for the account
func (s *LockoutService) ClearLockouts(ctx context.Context, accountID string) error {
	cleared, err := s.lockouts.DeactivateAll(ctx, accountID)
	if err != nil {
		s.logger.Error("failed to clear lockouts",
			slog.String("account_id", accountID),
			slog.Any("error", err))
		return err
	}
	if cleared > 0 {
		s.logger.Info("lockouts cleared",
			slog.String("account_id", accountID),
			slog.Int64("count", cleared))
	}
	return nil
}

// ResetFailures restarts the failure count without recording a login, so
// an unlocked account gets the full threshold again
func (s *LockoutService) ResetFailures(ctx context.Context, account *models.Account) error {
	now := s.clock.Now()

	err := s.attempts.RecordAttempt(ctx, &models.LoginAttempt{
		AccountID:    account.ID,
		Email:        account.Email,
		AttemptTime:  now,
		CounterReset: true,
		ExpiresAt:    now.Add(s.config.Window * 2),
	})
	if err != nil {
		s.logger.Error("failed to reset failed attempt count",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
	}
	return err
}

// PruneAttempts deletes attempts past their retention time
func (s *LockoutService) PruneAttempts(ctx context.Context) (int64, error) {
	return s.attempts.DeleteExpiredAttempts(ctx, s.clock.Now())
}
