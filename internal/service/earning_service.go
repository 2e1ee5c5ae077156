package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"clickearn/internal/analytics"
	"clickearn/internal/config"
	"clickearn/internal/events"
	"clickearn/internal/fingerprint"
	"clickearn/internal/models"
	"clickearn/internal/money"
	"clickearn/internal/repository/scylla"
	"clickearn/internal/util"
)

// EarningService applies the fixed-reward click and video-watch actions.
// All balance mutations for one user are serialized through locks, so the
// read-check-write against the daily quota cannot interleave.
type EarningService struct {
	users     scylla.UserStore
	sink      analytics.Sink
	publisher events.Publisher
	locks     *UserLocks
	rewards   config.RewardsConfig
	dayLoc    *time.Location
	logger    *zap.Logger
}

func NewEarningService(
	users scylla.UserStore,
	sink analytics.Sink,
	publisher events.Publisher,
	locks *UserLocks,
	cfg *config.Config,
	logger *zap.Logger,
) *EarningService {
	return &EarningService{
		users:     users,
		sink:      sink,
		publisher: publisher,
		locks:     locks,
		rewards:   cfg.Rewards,
		dayLoc:    cfg.DayLocation(),
		logger:    logger,
	}
}

// ClientMeta identifies the device behind an action for the audit log
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

// EarningResult is the outcome of one rewarded action
type EarningResult struct {
	Amount     money.Cents
	NewBalance money.Cents
	Remaining  int
}

// RecordClick credits the fixed click reward if the daily click quota allows
func (s *EarningService) RecordClick(ctx context.Context, userID, contentRef string, meta ClientMeta) (*EarningResult, error) {
	return s.record(ctx, userID, &models.EarningAction{
		Kind:       models.ActionClick,
		ContentRef: contentRef,
	}, meta)
}

// RecordVideoWatch credits the fixed video reward. A watch below the
// minimum duration is rejected before any quota state is touched.
func (s *EarningService) RecordVideoWatch(ctx context.Context, userID, videoRef string, watchSeconds int, meta ClientMeta) (*EarningResult, error) {
	return s.record(ctx, userID, &models.EarningAction{
		Kind:         models.ActionVideo,
		ContentRef:   videoRef,
		WatchSeconds: watchSeconds,
	}, meta)
}

func (s *EarningService) record(ctx context.Context, userID string, action *models.EarningAction, meta ClientMeta) (*EarningResult, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	now := time.Now()
	today := dayOf(now, s.dayLoc)

	var (
		countToday int
		limit      int
		reward     money.Cents
	)
	switch action.Kind {
	case models.ActionVideo:
		// Duration gate comes first so a short watch never burns quota
		if action.WatchSeconds < s.rewards.MinWatchSeconds {
			return nil, fmt.Errorf("%w: watched %ds, need %ds",
				ErrWatchTooShort, action.WatchSeconds, s.rewards.MinWatchSeconds)
		}
		countToday = rolledCount(user.VideosToday, user.LastVideoDate, today, s.dayLoc)
		limit = s.rewards.DailyVideoLimit
		reward = money.Cents(s.rewards.VideoRewardCents)
	default:
		countToday = rolledCount(user.ClicksToday, user.LastClickDate, today, s.dayLoc)
		limit = s.rewards.DailyClickLimit
		reward = money.Cents(s.rewards.ClickRewardCents)
	}

	if countToday >= limit {
		return nil, fmt.Errorf("%w: daily %s limit of %d reached",
			ErrQuotaExceeded, action.Kind, limit)
	}

	updated := *user
	updated.Balance += reward
	updated.TotalEarned += reward
	updated.UpdatedAt = now.UTC()
	switch action.Kind {
	case models.ActionVideo:
		updated.VideosToday = countToday + 1
		updated.LastVideoDate = &today
	default:
		updated.ClicksToday = countToday + 1
		updated.LastClickDate = &today
	}

	action.ActionID = uuid.New().String()
	action.UserID = userID
	action.Amount = reward
	action.IPAddress = meta.IPAddress
	action.Fingerprint = fingerprint.Client(meta.IPAddress, meta.UserAgent)
	action.CreatedAt = now.UTC()

	if err := s.users.ApplyEarning(ctx, &updated, action); err != nil {
		return nil, fmt.Errorf("failed to apply earning: %w", err)
	}

	// Post-commit fanout is best effort; the balance is already durable
	if err := s.sink.RecordAction(ctx, action); err != nil {
		s.logger.Warn("Analytics sink rejected action",
			util.String("action_id", action.ActionID),
			util.ErrorField(err))
	}
	if err := s.publisher.EarningRecorded(ctx, action); err != nil {
		s.logger.Warn("Failed to publish earning event",
			util.String("action_id", action.ActionID),
			util.ErrorField(err))
	}

	s.logger.Info("Earning recorded",
		util.String("user_id", userID),
		util.String("kind", string(action.Kind)),
		util.Int64("amount_cents", int64(reward)))

	return &EarningResult{
		Amount:     reward,
		NewBalance: updated.Balance,
		Remaining:  remaining(limit, countToday+1),
	}, nil
}

// Dashboard assembles the account snapshot. It is a pure read: stale
// counters are reinterpreted against today instead of being rewritten.
func (s *EarningService) Dashboard(ctx context.Context, user *models.User) (*models.Dashboard, error) {
	now := time.Now()
	today := dayOf(now, s.dayLoc)
	dayStart := today

	var (
		recent    []models.EarningAction
		todaysLog []models.EarningAction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recent, err = s.users.ListActions(gctx, user.UserID, 10)
		return err
	})
	g.Go(func() error {
		var err error
		todaysLog, err = s.users.ListActionsSince(gctx, user.UserID, dayStart.UTC())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load activity: %w", err)
	}

	var todayEarnings money.Cents
	for _, a := range todaysLog {
		todayEarnings += a.Amount
	}

	clicks := rolledCount(user.ClicksToday, user.LastClickDate, today, s.dayLoc)
	videos := rolledCount(user.VideosToday, user.LastVideoDate, today, s.dayLoc)

	if recent == nil {
		recent = []models.EarningAction{}
	}

	return &models.Dashboard{
		User:            user.Public(),
		Balance:         user.Balance,
		TotalEarned:     user.TotalEarned,
		ClicksToday:     clicks,
		ClicksRemaining: remaining(s.rewards.DailyClickLimit, clicks),
		VideosToday:     videos,
		VideosRemaining: remaining(s.rewards.DailyVideoLimit, videos),
		TodayEarnings:   todayEarnings,
		RecentActivity:  recent,
	}, nil
}

// DailyStats serves the ops aggregate from the analytics sink
func (s *EarningService) DailyStats(ctx context.Context, days int) ([]models.ActionDailyStat, error) {
	if days <= 0 {
		days = 7
	}
	stats, err := s.sink.DailyStats(ctx, days)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily stats: %w", err)
	}
	return stats, nil
}

// remaining never reports a negative allowance, even when a stored
// counter sits above the configured limit after a cap change
func remaining(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}

// dayOf truncates an instant to midnight of its calendar day in loc
func dayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// rolledCount reinterprets a stored daily counter: it only counts when the
// stamp falls on today, otherwise the day has rolled over and the count is
// zero again.
func rolledCount(count int, stamp *time.Time, today time.Time, loc *time.Location) int {
	if stamp == nil {
		return 0
	}
	sy, sm, sd := stamp.In(loc).Date()
	ty, tm, td := today.Date()
	if sy == ty && sm == tm && sd == td {
		return count
	}
	return 0
}
