package models

import (
	"time"

	"clickearn/internal/money"
)

// AuthMethod records how the account was created
const (
	AuthMethodPassword = "password"
	AuthMethodExternal = "external"
)

type User struct {
	UserID        string      `db:"user_id" json:"user_id"`
	Email         string      `db:"email" json:"email,omitempty"`
	Phone         string      `db:"phone" json:"phone,omitempty"`
	Name          string      `db:"name" json:"name"`
	Picture       string      `db:"picture" json:"picture,omitempty"`
	PasswordHash  string      `db:"password_hash" json:"-"`
	AuthMethod    string      `db:"auth_method" json:"-"`
	EmailVerified bool        `db:"email_verified" json:"-"`
	PhoneVerified bool        `db:"phone_verified" json:"-"`
	Balance       money.Cents `db:"balance_cents" json:"balance"`
	TotalEarned   money.Cents `db:"total_earned_cents" json:"total_earned"`
	ClicksToday   int         `db:"clicks_today" json:"-"`
	LastClickDate *time.Time  `db:"last_click_date" json:"-"`
	VideosToday   int         `db:"videos_today" json:"-"`
	LastVideoDate *time.Time  `db:"last_video_date" json:"-"`
	IsActive      bool        `db:"is_active" json:"-"`
	CreatedAt     time.Time   `db:"created_at" json:"-"`
	UpdatedAt     time.Time   `db:"updated_at" json:"-"`
}

// PublicProfile is the user shape returned by auth endpoints
type PublicProfile struct {
	UserID      string      `json:"user_id"`
	Email       string      `json:"email,omitempty"`
	Phone       string      `json:"phone,omitempty"`
	Name        string      `json:"name"`
	Picture     string      `json:"picture,omitempty"`
	Balance     money.Cents `json:"balance"`
	TotalEarned money.Cents `json:"total_earned"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		UserID:      u.UserID,
		Email:       u.Email,
		Phone:       u.Phone,
		Name:        u.Name,
		Picture:     u.Picture,
		Balance:     u.Balance,
		TotalEarned: u.TotalEarned,
	}
}
