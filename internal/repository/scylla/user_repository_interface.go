package scylla

import (
	"context"
	"time"

	"clickearn/internal/models"
)

// UserStore is the durable store behind the ledger, the quota counters and
// the append-only action/withdrawal logs. The service layer depends on this
// interface so tests can substitute an in-memory implementation.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	MarkPhoneVerified(ctx context.Context, userID string) error

	// ApplyEarning persists a pre-validated earning: the action record and
	// the user's new balance/total/counter/last-action-date in one batch.
	ApplyEarning(ctx context.Context, user *models.User, action *models.EarningAction) error

	// ApplyWithdrawal persists a pre-validated withdrawal: the request row
	// and the user's debited balance in one batch.
	ApplyWithdrawal(ctx context.Context, user *models.User, withdrawal *models.WithdrawalRequest) error

	ListActions(ctx context.Context, userID string, limit int) ([]models.EarningAction, error)
	ListActionsSince(ctx context.Context, userID string, since time.Time) ([]models.EarningAction, error)
	ListWithdrawals(ctx context.Context, userID string) ([]models.WithdrawalRequest, error)

	HealthCheck(ctx context.Context) error
}
