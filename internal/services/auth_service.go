package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/labgate/internal/models"
	pkgauth "github.com/BradenHooton/labgate/pkg/auth"
	pkglogger "github.com/BradenHooton/labgate/pkg/logger"
)

// Notifier delivers one-time codes out of band
type Notifier interface {
	SendVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) error
}

// AuthService is the gateway for both consoles. Super admins log in with a
// password followed by an emailed code; admins with a password and at most
// one live session.
type AuthService struct {
	accounts     AccountRepository
	credentials  *CredentialService
	codes        *CodeService
	sessions     *SessionService
	notifier     Notifier
	clock        Clock
	logger       *slog.Logger
	auditLogger  *pkglogger.AuditLogger
	passwordCost int
}

func NewAuthService(
	accounts AccountRepository,
	credentials *CredentialService,
	codes *CodeService,
	sessions *SessionService,
	notifier Notifier,
	clock Clock,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		accounts:     accounts,
		credentials:  credentials,
		codes:        codes,
		sessions:     sessions,
		notifier:     notifier,
		clock:        clock,
		logger:       logger,
		auditLogger:  auditLogger,
		passwordCost: pkgauth.BcryptCost,
	}
}

// SetPasswordCost overrides the bcrypt cost used when passwords change
func (s *AuthService) SetPasswordCost(cost int) {
	s.passwordCost = cost
}

// SuperAdminLogin checks the first factor and sends a code for the second
func (s *AuthService) SuperAdminLogin(ctx context.Context, email, password string, client ClientMeta) (*CodeChallenge, error) {
	account, err := s.credentials.Verify(ctx, models.RoleSuperAdmin, email, password, client)
	if err != nil {
		return nil, err
	}
	return s.sendCode(ctx, account)
}

// SuperAdminResendCode replaces the outstanding code for a known super admin
func (s *AuthService) SuperAdminResendCode(ctx context.Context, email string) (*CodeChallenge, error) {
	account, err := s.accounts.GetByEmail(ctx, models.RoleSuperAdmin, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to look up super admin for resend", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !account.IsActive {
		return nil, models.ErrAccountInactive
	}
	return s.sendCode(ctx, account)
}

func (s *AuthService) sendCode(ctx context.Context, account *models.Account) (*CodeChallenge, error) {
	code, expiresAt, err := s.codes.Issue(ctx, account.ID, account.Email)
	if err != nil {
		return nil, err
	}

	// Delivery problems are not reported to the caller; the user can resend
	if err := s.notifier.SendVerificationCode(ctx, account.Email, code, expiresAt); err != nil {
		s.logger.Error("failed to deliver verification code",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventCodeIssued,
		AccountID: account.ID,
		Role:      string(account.Role),
		Email:     account.Email,
		Success:   true,
	})

	return &CodeChallenge{Email: account.Email, ExpiresAt: expiresAt}, nil
}

// SuperAdminVerify consumes the emailed code and opens a session
func (s *AuthService) SuperAdminVerify(ctx context.Context, email, code string, client ClientMeta) (*LoginResult, error) {
	accountID, err := s.codes.Verify(ctx, email, code)
	if err != nil {
		s.auditLogger.Log(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventCodeRejected,
			Role:          string(models.RoleSuperAdmin),
			Email:         email,
			IPAddress:     client.IPAddress,
			UserAgent:     client.UserAgent,
			FailureReason: err.Error(),
		})
		return nil, err
	}

	account, err := s.accounts.GetByID(ctx, models.RoleSuperAdmin, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCode
		}
		s.logger.Error("failed to load super admin after code verification",
			slog.String("account_id", accountID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !account.IsActive {
		return nil, models.ErrAccountInactive
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventCodeVerified,
		AccountID: account.ID,
		Role:      string(account.Role),
		Email:     account.Email,
		IPAddress: client.IPAddress,
		Success:   true,
	})

	session, err := s.sessions.CreateSession(ctx, account, client)
	if err != nil {
		return nil, err
	}
	return s.complete(account, session)
}

// AdminLogin verifies credentials and claims the admin's single session
func (s *AuthService) AdminLogin(ctx context.Context, email, password string, client ClientMeta) (*LoginResult, error) {
	account, err := s.credentials.Verify(ctx, models.RoleAdmin, email, password, client)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.CreateExclusiveSession(ctx, account, client)
	if err != nil {
		return nil, err
	}
	return s.complete(account, session)
}

func (s *AuthService) complete(account *models.Account, session *models.Session) (*LoginResult, error) {
	token, expiresAt, err := s.sessions.IssueToken(account, session)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Account:   account,
		Session:   session,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Logout ends the session behind token. Invalid tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string, role models.Role) error {
	if token == "" {
		return nil
	}
	claims, err := s.sessions.VerifyToken(token)
	if err != nil || claims.Role != role {
		return nil
	}
	return s.sessions.Terminate(ctx, claims.SessionID, models.SessionEndLogout)
}

// LogoutAll ends every session of the account
func (s *AuthService) LogoutAll(ctx context.Context, accountID string) (int64, error) {
	return s.sessions.TerminateAll(ctx, accountID, models.SessionEndLogoutAll)
}

// ChangePassword replaces the caller's password and signs out every device,
// including the current one.
func (s *AuthService) ChangePassword(ctx context.Context, claims *models.TokenClaims, currentPassword, newPassword string, client ClientMeta) error {
	account, err := s.accounts.GetByID(ctx, claims.Role, claims.AccountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		return models.ErrInternalServer
	}

	// Wrong guesses count toward the account's lockout like any login
	if _, err := s.credentials.Verify(ctx, account.Role, account.Email, currentPassword, client); err != nil {
		return err
	}
	if currentPassword == newPassword {
		return fmt.Errorf("%w: new password must differ from the current one", models.ErrBadRequest)
	}
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %v", models.ErrBadRequest, err)
	}

	hash, err := pkgauth.HashPasswordWithCost(newPassword, s.passwordCost)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.accounts.UpdatePassword(ctx, account.Role, account.ID, hash, s.clock.Now()); err != nil {
		s.logger.Error("failed to update password",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	if _, err := s.sessions.TerminateAll(ctx, account.ID, models.SessionEndPasswordChange); err != nil {
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction(ctx, pkglogger.EventPasswordChange, account.ID, map[string]string{
		"role": string(account.Role),
	})
	return nil
}

// Authorize resolves a token into claims for a request that requires role.
// Every call checks that the backing session is still live.
func (s *AuthService) Authorize(ctx context.Context, token string, role models.Role) (*models.TokenClaims, error) {
	claims, err := s.sessions.VerifyToken(token)
	if err != nil {
		return nil, err
	}

	if _, err := s.sessions.ValidateSession(ctx, claims); err != nil {
		if errors.Is(err, models.ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}

	if claims.Role != role {
		return nil, models.ErrForbidden
	}
	return claims, nil
}
