package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickearn/internal/models"
	"clickearn/internal/money"
)

func fundUser(t *testing.T, env *testEnv, user *models.User, amount money.Cents) {
	t.Helper()
	stored := env.users.users[user.UserID]
	stored.Balance = amount
	stored.TotalEarned = amount
}

func TestWithdrawalRequest(t *testing.T) {
	env := newTestEnv()
	user := registerUser(t, env)
	fundUser(t, env, user, 1500)
	withdrawals := env.factory.WithdrawalService()
	ctx := context.Background()

	withdrawal, newBalance, err := withdrawals.Request(ctx, user.UserID, 1000, "payout@x.com")
	require.NoError(t, err)

	assert.Equal(t, money.Cents(1000), withdrawal.Amount)
	assert.Equal(t, models.WithdrawalPending, withdrawal.Status)
	assert.Equal(t, "payout@x.com", withdrawal.PayoutEmail)
	assert.Nil(t, withdrawal.ProcessedAt)
	assert.Equal(t, money.Cents(500), newBalance)

	// Debit landed, lifetime total untouched
	stored, err := env.users.GetUserByID(ctx, user.UserID)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(500), stored.Balance)
	assert.Equal(t, money.Cents(1500), stored.TotalEarned)

	// Settlement event published
	require.Len(t, env.events.withdrawals, 1)
	assert.Equal(t, withdrawal.WithdrawalID, env.events.withdrawals[0].WithdrawalID)
}

func TestWithdrawalBelowMinimum(t *testing.T) {
	env := newTestEnv()
	user := registerUser(t, env)
	fundUser(t, env, user, 5000)

	_, _, err := env.factory.WithdrawalService().Request(context.Background(), user.UserID, 999, "payout@x.com")
	assert.ErrorIs(t, err, ErrBelowMinimum)
}

func TestWithdrawalInsufficientBalance(t *testing.T) {
	env := newTestEnv()
	user := registerUser(t, env)
	fundUser(t, env, user, 1000)
	withdrawals := env.factory.WithdrawalService()
	ctx := context.Background()

	// One cent over the balance fails and mutates nothing
	_, _, err := withdrawals.Request(ctx, user.UserID, 1001, "payout@x.com")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	stored, err := env.users.GetUserByID(ctx, user.UserID)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(1000), stored.Balance)
	assert.Empty(t, env.events.withdrawals)

	// The exact balance is withdrawable
	_, newBalance, err := withdrawals.Request(ctx, user.UserID, 1000, "payout@x.com")
	require.NoError(t, err)
	assert.Equal(t, money.Cents(0), newBalance)
}

func TestWithdrawalRequiresPayoutEmail(t *testing.T) {
	env := newTestEnv()
	user := registerUser(t, env)
	fundUser(t, env, user, 5000)
	ctx := context.Background()

	_, _, err := env.factory.WithdrawalService().Request(ctx, user.UserID, 1000, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = env.factory.WithdrawalService().Request(ctx, user.UserID, 1000, "not-an-email")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestConcurrentWithdrawalsCannotOverdraw(t *testing.T) {
	env := newTestEnv()
	user := registerUser(t, env)
	fundUser(t, env, user, 1000)
	withdrawals := env.factory.WithdrawalService()
	ctx := context.Background()

	// Two concurrent full-balance withdrawals; only one may debit
	var wg sync.WaitGroup
	successes := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := withdrawals.Request(ctx, user.UserID, 1000, "payout@x.com"); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	won := 0
	for range successes {
		won++
	}
	assert.Equal(t, 1, won)

	stored, err := env.users.GetUserByID(ctx, user.UserID)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(0), stored.Balance)
}

func TestWithdrawalHistoryNewestFirst(t *testing.T) {
	env := newTestEnv()
	user := registerUser(t, env)
	fundUser(t, env, user, 5000)
	withdrawals := env.factory.WithdrawalService()
	ctx := context.Background()

	first, _, err := withdrawals.Request(ctx, user.UserID, 1000, "payout@x.com")
	require.NoError(t, err)
	second, _, err := withdrawals.Request(ctx, user.UserID, 1000, "payout@x.com")
	require.NoError(t, err)

	history, err := withdrawals.List(ctx, user.UserID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	if history[0].CreatedAt.Equal(history[1].CreatedAt) {
		// Equal stamps make the order unspecified; both must still be present
		ids := []string{history[0].WithdrawalID, history[1].WithdrawalID}
		assert.ElementsMatch(t, ids, []string{first.WithdrawalID, second.WithdrawalID})
	} else {
		assert.Equal(t, second.WithdrawalID, history[0].WithdrawalID)
	}
}

func TestWithdrawalHistoryEmpty(t *testing.T) {
	env := newTestEnv()
	user := registerUser(t, env)

	history, err := env.factory.WithdrawalService().List(context.Background(), user.UserID)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}
