package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickearn/internal/models"
	"clickearn/internal/money"
)

func registerUser(t *testing.T, env *testEnv) *models.User {
	t.Helper()
	user, _, err := env.factory.AuthService().Register(context.Background(), &RegisterRequest{
		Name:     "Test User",
		Email:    "user@x.com",
		Password: "p",
	})
	require.NoError(t, err)
	return user
}

func TestRecordClick(t *testing.T) {
	env := newTestEnv()
	user := registerUser(t, env)
	earning := env.factory.EarningService()
	ctx := context.Background()

	result, err := earning.RecordClick(ctx, user.UserID, "content_1", ClientMeta{IPAddress: "10.0.0.1:5000", UserAgent: "test"})
	require.NoError(t, err)

	assert.Equal(t, money.Cents(50), result.Amount)
	assert.Equal(t, money.Cents(50), result.NewBalance)
	assert.Equal(t, 19, result.Remaining)

	stored, err := env.users.GetUserByID(ctx, user.UserID)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(50), stored.Balance)
	assert.Equal(t, money.Cents(50), stored.TotalEarned)
	assert.Equal(t, 1, stored.ClicksToday)

	// Exactly one audit record, tagged as a click, with the fingerprint set
	actions, err := env.users.ListActions(ctx, user.UserID, 0)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionClick, actions[0].Kind)
	assert.Equal(t, "content_1", actions[0].ContentRef)
	assert.NotZero(t, actions[0].Fingerprint)

	// Post-commit fanout reached the sink and the event stream
	assert.Len(t, env.sink.recorded, 1)
	assert.Len(t, env.events.earnings, 1)
}

func TestClickQuotaExhaustion(t *testing.T) {
	env := newTestEnv()
	user := registerUser(t, env)
	earning := env.factory.EarningService()
	ctx := context.Background()

	for i := 0; i < env.cfg.Rewards.DailyClickLimit; i++ {
		_, err := earning.RecordClick(ctx, user.UserID, "content_1", ClientMeta{})
		require.NoError(t, err)
	}

	_, err := earning.RecordClick(ctx, user.UserID, "content_1", ClientMeta{})
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	stored, err := env.users.GetUserByID(ctx, user.UserID)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(1000), stored.Balance)
	assert.Equal(t, env.cfg.Rewards.DailyClickLimit, stored.ClicksToday)
}

func TestVideoWatchMinimumDuration(t *testing.T) {
	env := newTestEnv()
	user := registerUser(t, env)
	earning := env.factory.EarningService()
	ctx := context.Background()

	// 29s is below the floor and must not touch quota or balance
	_, err := earning.RecordVideoWatch(ctx, user.UserID, "video_1", 29, ClientMeta{})
	assert.ErrorIs(t, err, ErrWatchTooShort)

	stored, err := env.users.GetUserByID(ctx, user.UserID)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(0), stored.Balance)
	assert.Equal(t, 0, stored.VideosToday)

	// 30s is inclusive
	result, err := earning.RecordVideoWatch(ctx, user.UserID, "video_1", 30, ClientMeta{})
	require.NoError(t, err)
	assert.Equal(t, money.Cents(25), result.Amount)
	assert.Equal(t, 9, result.Remaining)
}

func TestQuotasAreIndependentPerKind(t *testing.T) {
	env := newTestEnv()
	user := registerUser(t, env)
	earning := env.factory.EarningService()
	ctx := context.Background()

	for i := 0; i < env.cfg.Rewards.DailyClickLimit; i++ {
		_, err := earning.RecordClick(ctx, user.UserID, "content_1", ClientMeta{})
		require.NoError(t, err)
	}
	_, err := earning.RecordClick(ctx, user.UserID, "content_1", ClientMeta{})
	require.ErrorIs(t, err, ErrQuotaExceeded)

	// Click exhaustion leaves the video quota untouched
	result, err := earning.RecordVideoWatch(ctx, user.UserID, "video_1", 45, ClientMeta{})
	require.NoError(t, err)
	assert.Equal(t, 9, result.Remaining)
}

func TestDailyRolloverResetsCounter(t *testing.T) {
	env := newTestEnv()
	user := registerUser(t, env)
	earning := env.factory.EarningService()
	ctx := context.Background()

	for i := 0; i < env.cfg.Rewards.DailyClickLimit; i++ {
		_, err := earning.RecordClick(ctx, user.UserID, "content_1", ClientMeta{})
		require.NoError(t, err)
	}

	// Backdate the stored stamp to yesterday; the next click sees a fresh day
	stored := env.users.users[user.UserID]
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	stored.LastClickDate = &yesterday

	result, err := earning.RecordClick(ctx, user.UserID, "content_1", ClientMeta{})
	require.NoError(t, err)
	assert.Equal(t, env.cfg.Rewards.DailyClickLimit-1, result.Remaining)

	after, err := env.users.GetUserByID(ctx, user.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.ClicksToday)
	// Lifetime total keeps growing across the boundary
	assert.Equal(t, money.Cents(50*21), after.TotalEarned)
}

func TestConcurrentClicksAtQuotaBoundary(t *testing.T) {
	env := newTestEnv()
	user := registerUser(t, env)
	earning := env.factory.EarningService()
	ctx := context.Background()

	// Spend 19 of 20 clicks
	for i := 0; i < env.cfg.Rewards.DailyClickLimit-1; i++ {
		_, err := earning.RecordClick(ctx, user.UserID, "content_1", ClientMeta{})
		require.NoError(t, err)
	}

	// 10 concurrent clicks race for the last slot; exactly one may win
	const racers = 10
	var wg sync.WaitGroup
	successes := make(chan struct{}, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := earning.RecordClick(ctx, user.UserID, "content_1", ClientMeta{}); err == nil {
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
	assert.Equal(t, env.cfg.Rewards.DailyClickLimit, stored.ClicksToday)
	assert.Equal(t, money.Cents(1000), stored.Balance)
}

func TestDashboard(t *testing.T) {
	env := newTestEnv()
	user := registerUser(t, env)
	earning := env.factory.EarningService()
	ctx := context.Background()

	_, err := earning.RecordClick(ctx, user.UserID, "content_1", ClientMeta{})
	require.NoError(t, err)
	_, err = earning.RecordVideoWatch(ctx, user.UserID, "video_1", 60, ClientMeta{})
	require.NoError(t, err)

	fresh, err := env.users.GetUserByID(ctx, user.UserID)
	require.NoError(t, err)

	dashboard, err := earning.Dashboard(ctx, fresh)
	require.NoError(t, err)

	assert.Equal(t, money.Cents(75), dashboard.Balance)
	assert.Equal(t, money.Cents(75), dashboard.TotalEarned)
	assert.Equal(t, 1, dashboard.ClicksToday)
	assert.Equal(t, 19, dashboard.ClicksRemaining)
	assert.Equal(t, 1, dashboard.VideosToday)
	assert.Equal(t, 9, dashboard.VideosRemaining)
	assert.Equal(t, money.Cents(75), dashboard.TodayEarnings)
	assert.Len(t, dashboard.RecentActivity, 2)
}

func TestDashboardReadDoesNotMutate(t *testing.T) {
	env := newTestEnv()
	user := registerUser(t, env)
	earning := env.factory.EarningService()
	ctx := context.Background()

	_, err := earning.RecordClick(ctx, user.UserID, "content_1", ClientMeta{})
	require.NoError(t, err)

	// Backdate the stamp: the dashboard must report a rolled-over count of
	// zero without rewriting the stored record
	stored := env.users.users[user.UserID]
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	stored.LastClickDate = &yesterday
	stored.ClicksToday = 5

	fresh, err := env.users.GetUserByID(ctx, user.UserID)
	require.NoError(t, err)

	dashboard, err := earning.Dashboard(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, 0, dashboard.ClicksToday)
	assert.Equal(t, env.cfg.Rewards.DailyClickLimit, dashboard.ClicksRemaining)

	// Stored state unchanged by the read
	after := env.users.users[user.UserID]
	assert.Equal(t, 5, after.ClicksToday)
	assert.True(t, after.LastClickDate.Equal(yesterday))
}

func TestDashboardClampsRemaining(t *testing.T) {
	env := newTestEnv()
	user := registerUser(t, env)
	earning := env.factory.EarningService()
	ctx := context.Background()

	// Counters above the cap happen when the configured limit is lowered;
	// the allowance must floor at zero instead of going negative
	now := time.Now().UTC()
	stored := env.users.users[user.UserID]
	stored.ClicksToday = env.cfg.Rewards.DailyClickLimit + 5
	stored.LastClickDate = &now
	stored.VideosToday = env.cfg.Rewards.DailyVideoLimit + 2
	stored.LastVideoDate = &now

	fresh, err := env.users.GetUserByID(ctx, user.UserID)
	require.NoError(t, err)

	dashboard, err := earning.Dashboard(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, 0, dashboard.ClicksRemaining)
	assert.Equal(t, 0, dashboard.VideosRemaining)
}

func TestRecordClickInactiveUser(t *testing.T) {
	env := newTestEnv()
	user := registerUser(t, env)
	env.users.users[user.UserID].IsActive = false

	_, err := env.factory.EarningService().RecordClick(context.Background(), user.UserID, "content_1", ClientMeta{})
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestRecordClickUnknownUser(t *testing.T) {
	env := newTestEnv()

	_, err := env.factory.EarningService().RecordClick(context.Background(), "no-such-user", "content_1", ClientMeta{})
	assert.ErrorIs(t, err, ErrUserNotFound)
}
