package models

import (
	"time"

	"clickearn/internal/money"
)

// ActionKind tags entries in the shared earning-action log
type ActionKind string

const (
	ActionClick ActionKind = "click"
	ActionVideo ActionKind = "video_watch"
)

// EarningAction is an immutable audit record of one rewarded action
type EarningAction struct {
	ActionID     string      `db:"action_id" json:"action_id"`
	UserID       string      `db:"user_id" json:"user_id"`
	Kind         ActionKind  `db:"kind" json:"kind"`
	ContentRef   string      `db:"content_ref" json:"content_id"`
	Amount       money.Cents `db:"amount_cents" json:"amount"`
	WatchSeconds int         `db:"watch_seconds" json:"watch_seconds,omitempty"`
	IPAddress    string      `db:"ip_address" json:"ip_address,omitempty"`
	Fingerprint  uint64      `db:"fingerprint" json:"-"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}

// ActionDailyStat is one row of the ops aggregate served from the
// analytics sink.
type ActionDailyStat struct {
	Day         string      `json:"day"`
	Kind        ActionKind  `json:"kind"`
	Actions     uint64      `json:"actions"`
	TotalReward money.Cents `json:"total_reward"`
}
