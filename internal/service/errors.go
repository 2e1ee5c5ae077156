package service

import "errors"

// Sentinel errors shared across services. Handlers map these to HTTP
// status codes with errors.Is.
var (
	// Validation
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateIdentity = errors.New("identity handle already registered")
	ErrInvalidPhone      = errors.New("invalid phone number format")

	// Authentication
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrSessionRequired    = errors.New("session ID required")
	ErrSessionInvalid     = errors.New("invalid session")
	ErrSessionExpired     = errors.New("session expired")
	ErrExternalAuth       = errors.New("external authentication failed")

	// Phone verification
	ErrCodeInvalid     = errors.New("invalid verification code")
	ErrCodeExpired     = errors.New("verification code expired")
	ErrTooManyRequests = errors.New("too many requests")

	// Earning
	ErrQuotaExceeded = errors.New("daily limit reached")
	ErrWatchTooShort = errors.New("watch duration too short")

	// Withdrawals
	ErrBelowMinimum        = errors.New("amount below withdrawal minimum")
	ErrInsufficientBalance = errors.New("insufficient balance")
)
