package models

import "time"

// VerificationCode is the ephemeral phone-confirmation code. At most one
// unconsumed code exists per phone; issuing a new one overwrites it.
type VerificationCode struct {
	Phone     string    `json:"phone"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
