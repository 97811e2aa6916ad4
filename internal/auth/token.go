package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/labgate/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager signs and verifies session tokens. Verification needs only the
// shared secret, so it never touches the database.
type TokenManager struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewTokenManager refuses an empty secret; there is no fallback key.
func NewTokenManager(secret string, expiry time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("token signing secret is required")
	}
	if expiry <= 0 {
		return nil, errors.New("token expiry must be positive")
	}
	return &TokenManager{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}, nil
}

// SetClock replaces the time source used for issuing and validating tokens
func (tm *TokenManager) SetClock(now func() time.Time) {
	tm.now = now
}

// Expiry is the lifetime of issued tokens
func (tm *TokenManager) Expiry() time.Duration {
	return tm.expiry
}

// IssueToken creates a signed token bound to one server-side session
func (tm *TokenManager) IssueToken(account *models.Account, sessionID string) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(tm.expiry)

	claims := &models.TokenClaims{
		Type:      models.TokenTypeSession,
		AccountID: account.ID,
		Email:     account.Email,
		Role:      account.Role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   account.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken checks signature and expiry only. Whether the session is still
// active is a separate question answered by the session store.
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type != models.TokenTypeSession || claims.SessionID == "" || claims.AccountID == "" {
		return nil, fmt.Errorf("%w: malformed session token", models.ErrUnauthorized)
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role", models.ErrUnauthorized)
	}

	return claims, nil
}
