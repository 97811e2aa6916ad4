package services

import (
	"strings"
	"time"

	"github.com/BradenHooton/labgate/internal/models"
)

// ClientMeta is the request metadata recorded with attempts and sessions
type ClientMeta struct {
	IPAddress  string
	UserAgent  string
	DeviceInfo string
}

// CodeChallenge is returned after the first super admin factor succeeds
type CodeChallenge struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginResult carries everything a handler needs to answer a completed login
type LoginResult struct {
	Account   *models.Account
	Session   *models.Session
	Token     string
	ExpiresAt time.Time
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
