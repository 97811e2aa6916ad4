package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/BradenHooton/labgate/internal/models"
)

const codeDigits = 6

var codeSpace = big.NewInt(1_000_000)

// VerificationCodeRepository defines the interface for one-time code operations
type VerificationCodeRepository interface {
	Create(ctx context.Context, code *models.VerificationCode) (*models.VerificationCode, error)
	FindLatestUnused(ctx context.Context, email, codeHash string) (*models.VerificationCode, error)
	MarkUsed(ctx context.Context, id string, usedAt time.Time) error
	DeleteUnusedByAccount(ctx context.Context, accountID string) (int64, error)
	CleanupExpired(ctx context.Context, now time.Time) (int64, error)
}

// CodeService issues and consumes the emailed six-digit second factor
type CodeService struct {
	repo   VerificationCodeRepository
	expiry time.Duration
	clock  Clock
	logger *slog.Logger
}

func NewCodeService(repo VerificationCodeRepository, expiry time.Duration, clock Clock, logger *slog.Logger) *CodeService {
	return &CodeService{
		repo:   repo,
		expiry: expiry,
		clock:  clock,
		logger: logger,
	}
}

// Issue replaces any outstanding codes for the account with a fresh one.
// The plaintext code is returned for dispatch and never stored.
func (s *CodeService) Issue(ctx context.Context, accountID, email string) (string, time.Time, error) {
	if _, err := s.repo.DeleteUnusedByAccount(ctx, accountID); err != nil {
		// Old codes expire on their own; a stale row does not block issuing
		s.logger.Warn("failed to delete previous verification codes",
			slog.String("account_id", accountID),
			slog.Any("error", err))
	}

	code, err := generateCode()
	if err != nil {
		s.logger.Error("failed to generate verification code", slog.Any("error", err))
		return "", time.Time{}, models.ErrInternalServer
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.expiry)

	_, err = s.repo.Create(ctx, &models.VerificationCode{
		AccountID: accountID,
		Email:     normalizeEmail(email),
		CodeHash:  hashCode(code),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	})
	if err != nil {
		s.logger.Error("failed to store verification code",
			slog.String("account_id", accountID),
			slog.Any("error", err))
		return "", time.Time{}, models.ErrInternalServer
	}

	return code, expiresAt, nil
}

// Resend issues a new code when the first one did not arrive
func (s *CodeService) Resend(ctx context.Context, accountID, email string) (string, time.Time, error) {
	return s.Issue(ctx, accountID, email)
}

// Verify consumes the latest unused code matching (email, code) and returns
// its account. An expired match is consumed too so it cannot be replayed.
func (s *CodeService) Verify(ctx context.Context, email, code string) (string, error) {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if !isWellFormedCode(code) {
		return "", models.ErrInvalidCode
	}

	record, err := s.repo.FindLatestUnused(ctx, email, hashCode(code))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrInvalidCode
		}
		s.logger.Error("failed to look up verification code", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	now := s.clock.Now()

	if record.IsExpired(now) {
		if err := s.repo.MarkUsed(ctx, record.ID, now); err != nil && !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to retire expired verification code",
				slog.String("code_id", record.ID),
				slog.Any("error", err))
		}
		return "", models.ErrExpiredCode
	}

	if err := s.repo.MarkUsed(ctx, record.ID, now); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// A concurrent verification consumed it first
			return "", models.ErrInvalidCode
		}
		s.logger.Error("failed to consume verification code",
			slog.String("code_id", record.ID),
			slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	return record.AccountID, nil
}

// CleanupExpired deletes consumed and expired codes
func (s *CodeService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.repo.CleanupExpired(ctx, s.clock.Now())
}

// generateCode draws a uniformly distributed zero-padded six-digit code from crypto/rand
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to read random source: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func isWellFormedCode(code string) bool {
	if len(code) != codeDigits {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
