package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BradenHooton/labgate/internal/auth"
	"github.com/BradenHooton/labgate/internal/models"
	pkgauth "github.com/BradenHooton/labgate/pkg/auth"
	pkglogger "github.com/BradenHooton/labgate/pkg/logger"
)

// AccountRepository defines the interface for account persistence across both roles
type AccountRepository interface {
	GetByEmail(ctx context.Context, role models.Role, email string) (*models.Account, error)
	GetByID(ctx context.Context, role models.Role, id string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	UpdatePassword(ctx context.Context, role models.Role, id, passwordHash string, changedAt time.Time) error
	SetActive(ctx context.Context, role models.Role, id string, active bool) error
}

// Failure reasons recorded on login attempts
const (
	failureInvalidPassword = "invalid_password"
	failureUnknownAccount  = "unknown_account"
	failureLocked          = "account_locked"
	failureInactive        = "account_inactive"
)

// CredentialService checks an email and password against one role's accounts
type CredentialService struct {
	accounts    AccountRepository
	lockout     *LockoutService
	timing      *auth.TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewCredentialService(accounts AccountRepository, lockout *LockoutService, timing *auth.TimingDelay, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *CredentialService {
	return &CredentialService{
		accounts:    accounts,
		lockout:     lockout,
		timing:      timing,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Verify returns the account when the password matches and the account is
// neither locked nor inactive. Unknown email and wrong password produce the
// same error and take the same time.
func (s *CredentialService) Verify(ctx context.Context, role models.Role, email, password string, client ClientMeta) (*models.Account, error) {
	start := time.Now()
	email = normalizeEmail(email)

	account, err := s.accounts.GetByEmail(ctx, role, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up account",
				slog.String("role", string(role)),
				slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		pkgauth.CompareDummyPassword(password)
		s.timing.WaitFrom(ctx, start, false)
		s.logFailure(ctx, nil, role, email, client, failureUnknownAccount)
		return nil, models.ErrInvalidCredentials
	}

	lockout, err := s.lockout.IsLocked(ctx, account.ID)
	if err != nil {
		s.logger.Error("failed to check lockout status",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if lockout != nil {
		s.logFailure(ctx, account, role, email, client, failureLocked)
		return nil, &models.AccountLockedError{Until: lockout.LockoutUntil}
	}

	if err := pkgauth.ComparePassword(account.PasswordHash, password); err != nil {
		created, recErr := s.lockout.RecordFailedAttempt(ctx, account, client, failureInvalidPassword)
		if recErr != nil {
			s.logger.Warn("failed attempt not recorded",
				slog.String("account_id", account.ID),
				slog.Any("error", recErr))
		}
		s.timing.WaitFrom(ctx, start, false)
		s.logFailure(ctx, account, role, email, client, failureInvalidPassword)

		if created != nil {
			return nil, &models.AccountLockedError{Until: created.LockoutUntil}
		}
		return nil, models.ErrInvalidCredentials
	}

	if !account.IsActive {
		s.logFailure(ctx, account, role, email, client, failureInactive)
		return nil, models.ErrAccountInactive
	}

	if err := s.lockout.ClearLockouts(ctx, account.ID); err != nil {
		s.logger.Warn("lockouts not cleared after successful login",
			slog.String("account_id", account.ID))
	}
	_ = s.lockout.RecordSuccess(ctx, account, client)

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLoginSuccess,
		AccountID: account.ID,
		Role:      string(role),
		Email:     email,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Success:   true,
	})

	return account, nil
}

func (s *CredentialService) logFailure(ctx context.Context, account *models.Account, role models.Role, email string, client ClientMeta, reason string) {
	event := pkglogger.AuditEvent{
		EventType:     pkglogger.EventLoginFailure,
		Role:          string(role),
		Email:         email,
		IPAddress:     client.IPAddress,
		UserAgent:     client.UserAgent,
		FailureReason: reason,
	}
	if account != nil {
		event.AccountID = account.ID
	}
	s.auditLogger.Log(ctx, event)
}
