package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")
	ErrUnavailable    = errors.New("service temporarily unavailable")

	// Credential errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrAccountInactive    = errors.New("account is inactive")

	// One-time code errors
	ErrInvalidCode = errors.New("invalid verification code")
	ErrExpiredCode = errors.New("verification code has expired")

	// Session errors
	ErrAlreadyLoggedIn = errors.New("account already has an active session")
	ErrSessionInactive = errors.New("session is no longer active")
)

// AccountLockedError carries the lockout expiry so callers can show a countdown.
type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("%s until %s", ErrAccountLocked, e.Until.UTC().Format(time.RFC3339))
}

func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// AlreadyLoggedInError carries the conflicting session for "logged in elsewhere" messaging.
type AlreadyLoggedInError struct {
	Session *Session
}

func (e *AlreadyLoggedInError) Error() string {
	return ErrAlreadyLoggedIn.Error()
}

func (e *AlreadyLoggedInError) Is(target error) bool {
	return target == ErrAlreadyLoggedIn
}
