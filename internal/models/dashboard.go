package models

import "clickearn/internal/money"

// Dashboard is the read-only account snapshot. Remaining quotas are
// recomputed against the current day without mutating stored counters.
type Dashboard struct {
	User            PublicProfile   `json:"user"`
	Balance         money.Cents     `json:"balance"`
	TotalEarned     money.Cents     `json:"total_earned"`
	ClicksToday     int             `json:"clicks_today"`
	ClicksRemaining int             `json:"clicks_remaining"`
	VideosToday     int             `json:"videos_today"`
	VideosRemaining int             `json:"videos_remaining"`
	TodayEarnings   money.Cents     `json:"today_earnings"`
	RecentActivity  []EarningAction `json:"recent_activity"`
}
