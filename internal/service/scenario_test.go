package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickearn/internal/money"
)

// TestEarnAndWithdrawLifecycle walks a fresh account from registration
// through quota exhaustion to a successful withdrawal.
func TestEarnAndWithdrawLifecycle(t *testing.T) {
	env := newTestEnv()
	auth := env.factory.AuthService()
	earning := env.factory.EarningService()
	withdrawals := env.factory.WithdrawalService()
	ctx := context.Background()

	user, session, err := auth.Register(ctx, &RegisterRequest{
		Name:     "A",
		Email:    "a@x.com",
		Password: "p",
	})
	require.NoError(t, err)

	resolved, err := auth.ResolveSession(ctx, session.SessionID)
	require.NoError(t, err)
	require.Equal(t, user.UserID, resolved.UserID)

	// First click: 0.50, 19 remaining
	click, err := earning.RecordClick(ctx, user.UserID, "content_1", ClientMeta{})
	require.NoError(t, err)
	assert.Equal(t, money.Cents(50), click.NewBalance)
	assert.Equal(t, 19, click.Remaining)

	// One 35s video: 0.75 total, 9 video slots left
	watch, err := earning.RecordVideoWatch(ctx, user.UserID, "video_1", 35, ClientMeta{})
	require.NoError(t, err)
	assert.Equal(t, money.Cents(75), watch.NewBalance)
	assert.Equal(t, 9, watch.Remaining)

	// 10.00 is more than 0.75
	_, _, err = withdrawals.Request(ctx, user.UserID, 1000, "payout@x.com")
	require.ErrorIs(t, err, ErrInsufficientBalance)

	// 19 more clicks exhaust the quota: 20 clicks + 1 video is 10.25
	for i := 0; i < 19; i++ {
		click, err = earning.RecordClick(ctx, user.UserID, "content_1", ClientMeta{})
		require.NoError(t, err)
	}
	assert.Equal(t, money.Cents(1025), click.NewBalance)
	assert.Equal(t, 0, click.Remaining)

	_, err = earning.RecordClick(ctx, user.UserID, "content_1", ClientMeta{})
	require.ErrorIs(t, err, ErrQuotaExceeded)

	// The withdrawal now goes through, leaving 0.25
	withdrawal, newBalance, err := withdrawals.Request(ctx, user.UserID, 1000, "payout@x.com")
	require.NoError(t, err)
	assert.Equal(t, money.Cents(25), newBalance)
	assert.NotEmpty(t, withdrawal.WithdrawalID)

	// total_earned reflects earnings only, never the debit
	final, err := env.users.GetUserByID(ctx, user.UserID)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(25), final.Balance)
	assert.Equal(t, money.Cents(1025), final.TotalEarned) // 20 clicks + 1 video
}
