package models

import (
	"time"

	"clickearn/internal/money"
)

// Withdrawal status values. Transitions out of pending are performed by the
// settlement collaborator and happen exactly once, never back.
const (
	WithdrawalPending   = "pending"
	WithdrawalProcessed = "processed"
	WithdrawalRejected  = "rejected"
)

type WithdrawalRequest struct {
	WithdrawalID string      `db:"withdrawal_id" json:"withdrawal_id"`
	UserID       string      `db:"user_id" json:"user_id"`
	Amount       money.Cents `db:"amount_cents" json:"amount"`
	PayoutEmail  string      `db:"payout_email" json:"paypal_email"`
	Status       string      `db:"status" json:"status"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time  `db:"processed_at" json:"processed_at"`
}
