package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"clickearn/internal/config"
	"clickearn/internal/events"
	"clickearn/internal/models"
	"clickearn/internal/money"
	"clickearn/internal/repository/scylla"
	"clickearn/internal/util"
)

// WithdrawalService converts accrued balance into pending payout requests.
// Settlement runs elsewhere; this side only debits and records.
type WithdrawalService struct {
	users     scylla.UserStore
	publisher events.Publisher
	locks     *UserLocks
	rewards   config.RewardsConfig
	logger    *zap.Logger
}

func NewWithdrawalService(
	users scylla.UserStore,
	publisher events.Publisher,
	locks *UserLocks,
	cfg *config.Config,
	logger *zap.Logger,
) *WithdrawalService {
	return &WithdrawalService{
		users:     users,
		publisher: publisher,
		locks:     locks,
		rewards:   cfg.Rewards,
		logger:    logger,
	}
}

// Request debits the full amount immediately and files a pending withdrawal
func (s *WithdrawalService) Request(ctx context.Context, userID string, amount money.Cents, payoutEmail string) (*models.WithdrawalRequest, money.Cents, error) {
	payoutEmail = strings.ToLower(strings.TrimSpace(payoutEmail))
	if payoutEmail == "" || !strings.Contains(payoutEmail, "@") {
		return nil, 0, fmt.Errorf("%w: payout email is required", ErrInvalidInput)
	}
	if amount < money.Cents(s.rewards.MinWithdrawCents) {
		return nil, 0, fmt.Errorf("%w: minimum withdrawal is %s",
			ErrBelowMinimum, money.Cents(s.rewards.MinWithdrawCents))
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return nil, 0, ErrUserNotFound
		}
		return nil, 0, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil, 0, ErrAccountDisabled
	}
	if amount > user.Balance {
		return nil, 0, fmt.Errorf("%w: balance is %s", ErrInsufficientBalance, user.Balance)
	}

	withdrawal := &models.WithdrawalRequest{
		WithdrawalID: uuid.New().String(),
		UserID:       userID,
		Amount:       amount,
		PayoutEmail:  payoutEmail,
		Status:       models.WithdrawalPending,
		CreatedAt:    time.Now().UTC(),
	}

	updated := *user
	updated.Balance -= amount
	updated.UpdatedAt = withdrawal.CreatedAt

	if err := s.users.ApplyWithdrawal(ctx, &updated, withdrawal); err != nil {
		return nil, 0, fmt.Errorf("failed to apply withdrawal: %w", err)
	}

	if err := s.publisher.WithdrawalRequested(ctx, withdrawal); err != nil {
		s.logger.Warn("Failed to publish withdrawal event",
			util.String("withdrawal_id", withdrawal.WithdrawalID),
			util.ErrorField(err))
	}

	s.logger.Info("Withdrawal requested",
		util.String("user_id", userID),
		util.String("withdrawal_id", withdrawal.WithdrawalID),
		util.Int64("amount_cents", int64(amount)))

	return withdrawal, updated.Balance, nil
}

// List returns the user's withdrawal requests, newest first
func (s *WithdrawalService) List(ctx context.Context, userID string) ([]models.WithdrawalRequest, error) {
	withdrawals, err := s.users.ListWithdrawals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	if withdrawals == nil {
		withdrawals = []models.WithdrawalRequest{}
	}
	return withdrawals, nil
}
