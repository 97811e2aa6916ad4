package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BradenHooton/labgate/internal/auth"
	"github.com/BradenHooton/labgate/internal/models"
	pkglogger "github.com/BradenHooton/labgate/pkg/logger"
	"github.com/google/uuid"
)

// activityResolution bounds how often last_activity is written
const activityResolution = time.Minute

// SessionRepository defines the interface for server-side session records
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) (*models.Session, error)
	CreateExclusive(ctx context.Context, session *models.Session) (*models.Session, error)
	GetByID(ctx context.Context, id string) (*models.Session, error)
	GetActiveByAccount(ctx context.Context, accountID string, now time.Time) (*models.Session, error)
	Touch(ctx context.Context, id string, at time.Time) error
	Deactivate(ctx context.Context, id, reason string, at time.Time) error
	DeactivateAllForAccount(ctx context.Context, accountID, reason string, at time.Time) (int64, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionService owns session records and the tokens that reference them
type SessionService struct {
	repo        SessionRepository
	tokens      *auth.TokenManager
	clock       Clock
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewSessionService(repo SessionRepository, tokens *auth.TokenManager, clock Clock, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *SessionService {
	return &SessionService{
		repo:        repo,
		tokens:      tokens,
		clock:       clock,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// GetActiveSession returns the live session for the account or ErrNotFound
func (s *SessionService) GetActiveSession(ctx context.Context, accountID string) (*models.Session, error) {
	return s.repo.GetActiveByAccount(ctx, accountID, s.clock.Now())
}

func (s *SessionService) HasActiveSession(ctx context.Context, accountID string) (bool, error) {
	_, err := s.GetActiveSession(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *SessionService) newSession(account *models.Account, client ClientMeta) *models.Session {
	now := s.clock.Now()
	return &models.Session{
		ID:           uuid.New().String(),
		AccountID:    account.ID,
		Role:         account.Role,
		DeviceInfo:   client.DeviceInfo,
		IPAddress:    client.IPAddress,
		UserAgent:    client.UserAgent,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(s.tokens.Expiry()),
		IsActive:     true,
	}
}

// CreateSession records a session without checking for others on the account
func (s *SessionService) CreateSession(ctx context.Context, account *models.Account, client ClientMeta) (*models.Session, error) {
	session, err := s.repo.Create(ctx, s.newSession(account, client))
	if err != nil {
		s.logger.Error("failed to create session",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	s.logCreated(ctx, account, session)
	return session, nil
}

// CreateExclusiveSession creates a session only if the account has no live
// one. The check and insert are a single store operation.
func (s *SessionService) CreateExclusiveSession(ctx context.Context, account *models.Account, client ClientMeta) (*models.Session, error) {
	session, err := s.repo.CreateExclusive(ctx, s.newSession(account, client))
	if err == nil {
		s.logCreated(ctx, account, session)
		return session, nil
	}

	if !errors.Is(err, models.ErrConflict) {
		s.logger.Error("failed to create exclusive session",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	existing, lookupErr := s.GetActiveSession(ctx, account.ID)
	if lookupErr != nil {
		// The winner ended between our insert and this read
		existing = nil
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType:     pkglogger.EventSessionDenied,
		AccountID:     account.ID,
		Role:          string(account.Role),
		IPAddress:     sessionIP(existing),
		FailureReason: "already_logged_in",
	})

	return nil, &models.AlreadyLoggedInError{Session: existing}
}

func sessionIP(session *models.Session) string {
	if session == nil {
		return ""
	}
	return session.IPAddress
}

func (s *SessionService) logCreated(ctx context.Context, account *models.Account, session *models.Session) {
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventSessionCreated,
		AccountID: account.ID,
		Role:      string(account.Role),
		IPAddress: session.IPAddress,
		UserAgent: session.UserAgent,
		Success:   true,
		Metadata:  map[string]string{"session_id": session.ID},
	})
}

// IssueToken signs a token bound to the session
func (s *SessionService) IssueToken(account *models.Account, session *models.Session) (string, time.Time, error) {
	token, expiresAt, err := s.tokens.IssueToken(account, session.ID)
	if err != nil {
		s.logger.Error("failed to issue session token",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		return "", time.Time{}, models.ErrInternalServer
	}
	return token, expiresAt, nil
}

// VerifyToken checks signature and expiry only
func (s *SessionService) VerifyToken(token string) (*models.TokenClaims, error) {
	return s.tokens.ValidateToken(token)
}

// ValidateSession is the revocation check every authenticated request goes
// through. Store failures surface as ErrUnavailable, never as success.
func (s *SessionService) ValidateSession(ctx context.Context, claims *models.TokenClaims) (*models.Session, error) {
	session, err := s.repo.GetByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrSessionInactive
		}
		s.logger.Error("session lookup failed",
			slog.String("session_id", claims.SessionID),
			slog.Any("error", err))
		return nil, models.ErrUnavailable
	}

	now := s.clock.Now()
	if session.AccountID != claims.AccountID || session.Role != claims.Role || !session.IsLive(now) {
		return nil, models.ErrSessionInactive
	}

	if now.Sub(session.LastActivity) >= activityResolution {
		if err := s.repo.Touch(ctx, session.ID, now); err != nil {
			s.logger.Warn("failed to update session activity",
				slog.String("session_id", session.ID),
				slog.Any("error", err))
		} else {
			session.LastActivity = now
		}
	}

	return session, nil
}

// Terminate ends one session. Ending an already ended session is not an error.
func (s *SessionService) Terminate(ctx context.Context, sessionID, reason string) error {
	err := s.repo.Deactivate(ctx, sessionID, reason, s.clock.Now())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		s.logger.Error("failed to terminate session",
			slog.String("session_id", sessionID),
			slog.Any("error", err))
		return err
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventSessionEnded,
		Success:   true,
		Metadata:  map[string]string{"session_id": sessionID, "reason": reason},
	})
	return nil
}

// TerminateAll ends every active session of the account
func (s *SessionService) TerminateAll(ctx context.Context, accountID, reason string) (int64, error) {
	count, err := s.repo.DeactivateAllForAccount(ctx, accountID, reason, s.clock.Now())
	if err != nil {
		s.logger.Error("failed to terminate sessions",
			slog.String("account_id", accountID),
			slog.Any("error", err))
		return 0, err
	}

	if count > 0 {
		s.auditLogger.LogAccountAction(ctx, pkglogger.EventSessionEnded, accountID, map[string]string{
			"reason": reason,
		})
	}
	return count, nil
}

// CleanupExpired marks sessions past expiry as ended
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.repo.DeactivateExpired(ctx, s.clock.Now())
}
