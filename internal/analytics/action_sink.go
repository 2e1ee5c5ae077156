// Package analytics streams earning-action events into ClickHouse for
// reporting. The sink is best-effort: a failed insert is logged, never
// surfaced to the request that produced it.
package analytics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"clickearn/internal/client"
	"clickearn/internal/models"
	"clickearn/internal/money"
	"clickearn/internal/util"
)

const (
	insertActionStmt = `INSERT INTO action_events
		(action_id, user_id, kind, content_ref, amount_cents, watch_seconds, fingerprint, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	dailyStatsStmt = `SELECT toDate(created_at) AS day, kind,
		count() AS actions, sum(amount_cents) AS total_cents
		FROM action_events
		WHERE created_at >= now() - INTERVAL ? DAY
		GROUP BY day, kind
		ORDER BY day DESC, kind`
)

// Sink is the analytics interface the earning service publishes into
type Sink interface {
	RecordAction(ctx context.Context, action *models.EarningAction) error
	DailyStats(ctx context.Context, days int) ([]models.ActionDailyStat, error)
}

// ActionSink writes action events to ClickHouse
type ActionSink struct {
	client *client.ClickHouseClient
}

func NewActionSink(client *client.ClickHouseClient) *ActionSink {
	return &ActionSink{client: client}
}

var _ Sink = (*ActionSink)(nil)

func (s *ActionSink) RecordAction(ctx context.Context, action *models.EarningAction) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := s.client.Exec(ctx, insertActionStmt,
		action.ActionID, action.UserID, string(action.Kind), action.ContentRef,
		int64(action.Amount), int32(action.WatchSeconds), action.Fingerprint,
		action.CreatedAt)
	if err != nil {
		util.Warn("Failed to record action event in analytics sink",
			zap.String("action_id", action.ActionID),
			zap.Error(err))
		return fmt.Errorf("failed to record action event: %w", err)
	}
	return nil
}

// DailyStats aggregates recorded actions per day and kind
func (s *ActionSink) DailyStats(ctx context.Context, days int) ([]models.ActionDailyStat, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	rows, err := s.client.QueryRows(ctx, dailyStatsStmt, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []models.ActionDailyStat
	for rows.Next() {
		var (
			day        time.Time
			kind       string
			actions    uint64
			totalCents int64
		)
		if err := rows.Scan(&day, &kind, &actions, &totalCents); err != nil {
			return nil, fmt.Errorf("failed to scan daily stats row: %w", err)
		}
		stats = append(stats, models.ActionDailyStat{
			Day:         day.Format("2006-01-02"),
			Kind:        models.ActionKind(kind),
			Actions:     actions,
			TotalReward: money.Cents(totalCents),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read daily stats: %w", err)
	}

	return stats, nil
}
