package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BradenHooton/labgate/internal/models"
	pkgauth "github.com/BradenHooton/labgate/pkg/auth"
	pkglogger "github.com/BradenHooton/labgate/pkg/logger"
)

// AdminService holds operator actions on accounts: unlocking, password
// repair, forced logout and provisioning.
type AdminService struct {
	accounts     AccountRepository
	lockout      *LockoutService
	sessions     *SessionService
	clock        Clock
	logger       *slog.Logger
	auditLogger  *pkglogger.AuditLogger
	passwordCost int
}

func NewAdminService(accounts AccountRepository, lockout *LockoutService, sessions *SessionService, clock Clock, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AdminService {
	return &AdminService{
		accounts:     accounts,
		lockout:      lockout,
		sessions:     sessions,
		clock:        clock,
		logger:       logger,
		auditLogger:  auditLogger,
		passwordCost: pkgauth.BcryptCost,
	}
}

// SetPasswordCost overrides the bcrypt cost used for new hashes
func (s *AdminService) SetPasswordCost(cost int) {
	s.passwordCost = cost
}

// UnlockAccount clears every lockout on the account
func (s *AdminService) UnlockAccount(ctx context.Context, role models.Role, accountID string) error {
	account, err := s.accounts.GetByID(ctx, role, accountID)
	if err != nil {
		return err
	}
	if err := s.lockout.ClearLockouts(ctx, accountID); err != nil {
		return models.ErrInternalServer
	}
	if err := s.lockout.ResetFailures(ctx, account); err != nil {
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction(ctx, pkglogger.EventAccountUnlock, accountID, map[string]string{
		"role": string(role),
	})
	return nil
}

// RevokeSessions forces the account out on every device
func (s *AdminService) RevokeSessions(ctx context.Context, role models.Role, accountID string) (int64, error) {
	if _, err := s.accounts.GetByID(ctx, role, accountID); err != nil {
		return 0, err
	}
	count, err := s.sessions.TerminateAll(ctx, accountID, models.SessionEndRevoked)
	if err != nil {
		return 0, models.ErrInternalServer
	}
	return count, nil
}

// ResetPassword sets a new password without knowing the old one
func (s *AdminService) ResetPassword(ctx context.Context, role models.Role, email, newPassword string) error {
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %v", models.ErrBadRequest, err)
	}

	account, err := s.accounts.GetByEmail(ctx, role, normalizeEmail(email))
	if err != nil {
		return err
	}

	hash, err := pkgauth.HashPasswordWithCost(newPassword, s.passwordCost)
	if err != nil {
		return models.ErrInternalServer
	}

	if err := s.accounts.UpdatePassword(ctx, role, account.ID, hash, s.clock.Now()); err != nil {
		s.logger.Error("failed to reset password",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}
	if _, err := s.sessions.TerminateAll(ctx, account.ID, models.SessionEndPasswordChange); err != nil {
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction(ctx, pkglogger.EventPasswordChange, account.ID, map[string]string{
		"role":   string(role),
		"source": "reset",
	})
	return nil
}

// CheckPassword reports whether password matches the stored hash
func (s *AdminService) CheckPassword(ctx context.Context, role models.Role, email, password string) (bool, error) {
	account, err := s.accounts.GetByEmail(ctx, role, normalizeEmail(email))
	if err != nil {
		return false, err
	}
	return pkgauth.ComparePassword(account.PasswordHash, password) == nil, nil
}

// CreateAccount provisions an active account
func (s *AdminService) CreateAccount(ctx context.Context, role models.Role, email, name, password string) (*models.Account, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", models.ErrBadRequest, role)
	}
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email", models.ErrBadRequest)
	}
	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrBadRequest, err)
	}

	hash, err := pkgauth.HashPasswordWithCost(password, s.passwordCost)
	if err != nil {
		return nil, models.ErrInternalServer
	}

	now := s.clock.Now()
	account, err := s.accounts.Create(ctx, &models.Account{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create account",
			slog.String("role", string(role)),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("account created",
		slog.String("account_id", account.ID),
		slog.String("role", string(role)))
	return account, nil
}

// SetAccountActive enables or disables login. Disabling ends all sessions.
func (s *AdminService) SetAccountActive(ctx context.Context, role models.Role, accountID string, active bool) error {
	if err := s.accounts.SetActive(ctx, role, accountID, active); err != nil {
		return err
	}
	if !active {
		if _, err := s.sessions.TerminateAll(ctx, accountID, models.SessionEndRevoked); err != nil {
			return models.ErrInternalServer
		}
	}
	return nil
}

// EnsureSuperAdmin creates the bootstrap super admin when it does not exist.
// It reports whether an account was created.
func (s *AdminService) EnsureSuperAdmin(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}

	_, err := s.accounts.GetByEmail(ctx, models.RoleSuperAdmin, normalizeEmail(email))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return false, err
	}

	if _, err := s.CreateAccount(ctx, models.RoleSuperAdmin, email, "Super Admin", password); err != nil {
		return false, err
	}
	return true, nil
}
