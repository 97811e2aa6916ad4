package models

import "time"

// LoginAttempt represents a single login attempt in the system
type LoginAttempt struct {
	ID            string    `db:"id"`
	AccountID     string    `db:"account_id"`
	Email         string    `db:"email"`
	IPAddress     string    `db:"ip_address"`
	UserAgent     string    `db:"user_agent"`
	AttemptTime   time.Time `db:"attempt_time"`
	Success       bool      `db:"success"`
	FailureReason *string   `db:"failure_reason"`
	CounterReset  bool      `db:"counter_reset"` // marker row written by an explicit unlock; never a login
	ExpiresAt     time.Time `db:"expires_at"`
}

// Lockout is a time-boxed denial of login for an account. Several rows may be
// active at once; only rows where IsEffective holds are enforced.
type Lockout struct {
	ID           string    `db:"id" json:"id"`
	AccountID    string    `db:"account_id" json:"account_id"`
	LockoutUntil time.Time `db:"lockout_until" json:"lockout_until"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	Reason       string    `db:"reason" json:"reason"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// IsEffective reports whether the lockout denies login at the given instant.
func (l *Lockout) IsEffective(now time.Time) bool {
	return l.IsActive && l.LockoutUntil.After(now)
}
