package models

import "time"

// Session binds an opaque session ID to a user for a bounded time.
// At most one session per user is live; issuing a new one replaces it.
type Session struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	SessionToken string    `json:"session_token,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
