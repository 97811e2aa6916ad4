package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeSession marks a bearer credential backed by a server-side session row
const TokenTypeSession = "session"

type TokenClaims struct {
	Type      string `json:"type"`
	AccountID string `json:"account_id"`
	Email     string `json:"email,omitempty"`
	Role      Role   `json:"role"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}
