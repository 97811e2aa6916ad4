package models

import "time"

// Session end reasons
const (
	SessionEndLogout         = "logout"
	SessionEndLogoutAll      = "logout_all"
	SessionEndPasswordChange = "password_change"
	SessionEndRevoked        = "revoked"
	SessionEndExpired        = "expired"
)

// Session is the server-side record backing an issued token. Once IsActive is
// false the session is terminal and never reactivated.
type Session struct {
	ID           string     `json:"id"`
	AccountID    string     `json:"account_id"`
	Role         Role       `json:"role"`
	DeviceInfo   string     `json:"device_info"`
	IPAddress    string     `json:"ip_address"`
	UserAgent    string     `json:"user_agent"`
	CreatedAt    time.Time  `json:"created_at"`
	LastActivity time.Time  `json:"last_activity"`
	ExpiresAt    time.Time  `json:"expires_at"`
	IsActive     bool       `json:"is_active"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	EndReason    *string    `json:"end_reason,omitempty"`
}

// IsLive reports whether the session still authorizes requests at now.
func (s *Session) IsLive(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}
