package handlers

import (
	"time"

	"github.com/BradenHooton/labgate/internal/models"
)

// Request DTOs

// LoginRequest is the first factor for either console
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email,max=255"`
	Password   string `json:"password" validate:"required,max=128"`
	DeviceInfo string `json:"device_info,omitempty" validate:"max=255"`
}

// VerifyCodeRequest completes the super admin login
type VerifyCodeRequest struct {
	Email      string `json:"email" validate:"required,email,max=255"`
	Code       string `json:"code" validate:"required,max=16"`
	DeviceInfo string `json:"device_info,omitempty" validate:"max=255"`
}

// ResendCodeRequest asks for a replacement code
type ResendCodeRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

// ChangePasswordRequest replaces the caller's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,max=128"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// Response DTOs

// AccountResponse is the public view of an account; the hash never leaves the service
type AccountResponse struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  models.Role `json:"role"`
}

func newAccountResponse(a *models.Account) AccountResponse {
	return AccountResponse{ID: a.ID, Email: a.Email, Name: a.Name, Role: a.Role}
}

// SessionResponse describes a session to its owner
type SessionResponse struct {
	ID           string    `json:"id"`
	DeviceInfo   string    `json:"device_info"`
	IPAddress    string    `json:"ip_address"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func newSessionResponse(s *models.Session) SessionResponse {
	return SessionResponse{
		ID:           s.ID,
		DeviceInfo:   s.DeviceInfo,
		IPAddress:    s.IPAddress,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
		ExpiresAt:    s.ExpiresAt,
	}
}

// ExistingSessionResponse is what a blocked admin learns about the other login
type ExistingSessionResponse struct {
	DeviceInfo   string    `json:"device_info"`
	IPAddress    string    `json:"ip_address"`
	LastActivity time.Time `json:"last_activity"`
}

// CodeSentResponse acknowledges that a code was issued
type CodeSentResponse struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	Message   string    `json:"message"`
}

// SuperAdminVerifyResponse is returned once the second factor succeeds
type SuperAdminVerifyResponse struct {
	User      AccountResponse `json:"user"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// AdminLoginResponse is returned on a successful admin login
type AdminLoginResponse struct {
	Admin   AccountResponse `json:"admin"`
	Session SessionResponse `json:"session"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// TerminatedResponse reports how many sessions were ended
type TerminatedResponse struct {
	Terminated int64 `json:"terminated"`
}
