package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"clickearn/internal/models"
	"clickearn/internal/money"
	"clickearn/internal/util"
)

const (
	stmtInsertUser = `INSERT INTO users (user_id, email, phone, name, picture, password_hash,
		auth_method, email_verified, phone_verified, balance_cents, total_earned_cents,
		clicks_today, last_click_date, videos_today, last_video_date, is_active,
		created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmtSelectUser = `SELECT user_id, email, phone, name, picture, password_hash,
		auth_method, email_verified, phone_verified, balance_cents, total_earned_cents,
		clicks_today, last_click_date, videos_today, last_video_date, is_active,
		created_at, updated_at
		FROM users WHERE user_id = ?`

	stmtInsertEmailLookup = `INSERT INTO users_by_email (email, user_id) VALUES (?, ?) IF NOT EXISTS`
	stmtInsertPhoneLookup = `INSERT INTO users_by_phone (phone, user_id) VALUES (?, ?) IF NOT EXISTS`
	stmtSelectEmailLookup = `SELECT user_id FROM users_by_email WHERE email = ?`
	stmtSelectPhoneLookup = `SELECT user_id FROM users_by_phone WHERE phone = ?`
	stmtDeleteEmailLookup = `DELETE FROM users_by_email WHERE email = ?`

	stmtMarkPhoneVerified = `UPDATE users SET phone_verified = true, updated_at = ? WHERE user_id = ?`

	stmtApplyEarning = `UPDATE users SET balance_cents = ?, total_earned_cents = ?,
		clicks_today = ?, last_click_date = ?, videos_today = ?, last_video_date = ?,
		updated_at = ? WHERE user_id = ?`

	stmtInsertAction = `INSERT INTO earning_actions (user_id, created_at, action_id, kind,
		content_ref, amount_cents, watch_seconds, ip_address, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmtListActions = `SELECT action_id, user_id, kind, content_ref, amount_cents,
		watch_seconds, ip_address, fingerprint, created_at
		FROM earning_actions WHERE user_id = ? LIMIT ?`

	stmtListActionsSince = `SELECT action_id, user_id, kind, content_ref, amount_cents,
		watch_seconds, ip_address, fingerprint, created_at
		FROM earning_actions WHERE user_id = ? AND created_at >= ?`

	stmtApplyDebit = `UPDATE users SET balance_cents = ?, updated_at = ? WHERE user_id = ?`

	stmtInsertWithdrawal = `INSERT INTO withdrawals (user_id, created_at, withdrawal_id,
		amount_cents, payout_email, status, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	stmtListWithdrawals = `SELECT withdrawal_id, user_id, amount_cents, payout_email,
		status, created_at, processed_at
		FROM withdrawals WHERE user_id = ?`
)

// UserRepository persists users, earning actions and withdrawals in
// ScyllaDB. Identity handles are enforced unique through lightweight
// transactions on the lookup tables.
type UserRepository struct {
	client *ScyllaClient
}

func NewUserRepository(client *ScyllaClient, logger *zap.Logger) *UserRepository {
	return &UserRepository{client: client}
}

var _ UserStore = (*UserRepository)(nil)

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.UserID == "" {
		user.UserID = uuid.New().String()
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	// Claim the identity handles first; LWT makes each claim race-safe.
	claimedEmail := false
	if user.Email != "" {
		applied, err := r.claimLookup(ctx, stmtInsertEmailLookup, user.Email, user.UserID)
		if err != nil {
			return err
		}
		if !applied {
			return fmt.Errorf("email %q: %w", user.Email, ErrAlreadyExists)
		}
		claimedEmail = true
	}
	if user.Phone != "" {
		applied, err := r.claimLookup(ctx, stmtInsertPhoneLookup, user.Phone, user.UserID)
		if err != nil {
			r.releaseEmailClaim(ctx, claimedEmail, user.Email)
			return err
		}
		if !applied {
			r.releaseEmailClaim(ctx, claimedEmail, user.Email)
			return fmt.Errorf("phone %q: %w", user.Phone, ErrAlreadyExists)
		}
	}

	err := r.client.Session.Query(stmtInsertUser,
		user.UserID, user.Email, user.Phone, user.Name, user.Picture, user.PasswordHash,
		user.AuthMethod, user.EmailVerified, user.PhoneVerified,
		int64(user.Balance), int64(user.TotalEarned),
		user.ClicksToday, optionalTime(user.LastClickDate),
		user.VideosToday, optionalTime(user.LastVideoDate),
		user.IsActive, user.CreatedAt, user.UpdatedAt,
	).WithContext(ctx).Exec()
	if err != nil {
		util.Error("Failed to create user",
			zap.String("user_id", user.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	util.Info("User created",
		zap.String("user_id", user.UserID),
		zap.String("auth_method", user.AuthMethod))

	return nil
}

func (r *UserRepository) claimLookup(ctx context.Context, stmt, handle, userID string) (bool, error) {
	var existingHandle, existingUser string
	applied, err := r.client.Session.Query(stmt, handle, userID).
		WithContext(ctx).ScanCAS(&existingHandle, &existingUser)
	if err != nil {
		return false, fmt.Errorf("failed to claim identity handle: %w", err)
	}
	return applied, nil
}

func (r *UserRepository) releaseEmailClaim(ctx context.Context, claimed bool, email string) {
	if !claimed {
		return
	}
	if err := r.client.Session.Query(stmtDeleteEmailLookup, email).WithContext(ctx).Exec(); err != nil {
		util.Warn("Failed to release email claim after aborted registration",
			zap.String("email", email),
			zap.Error(err))
	}
}

func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	user := &models.User{}
	var balance, totalEarned int64
	var lastClick, lastVideo time.Time

	err := r.client.Session.Query(stmtSelectUser, userID).WithContext(ctx).Scan(
		&user.UserID, &user.Email, &user.Phone, &user.Name, &user.Picture, &user.PasswordHash,
		&user.AuthMethod, &user.EmailVerified, &user.PhoneVerified, &balance, &totalEarned,
		&user.ClicksToday, &lastClick, &user.VideosToday, &lastVideo, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		util.Error("Failed to get user by ID",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	user.Balance = money.Cents(balance)
	user.TotalEarned = money.Cents(totalEarned)
	user.LastClickDate = timePtr(lastClick)
	user.LastVideoDate = timePtr(lastVideo)
	return user, nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUserByLookup(ctx, stmtSelectEmailLookup, email)
}

func (r *UserRepository) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.getUserByLookup(ctx, stmtSelectPhoneLookup, phone)
}

func (r *UserRepository) getUserByLookup(ctx context.Context, stmt, handle string) (*models.User, error) {
	var userID string
	err := r.client.Session.Query(stmt, handle).WithContext(ctx).Scan(&userID)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("handle %q: %w", handle, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to resolve identity handle: %w", err)
	}
	return r.GetUserByID(ctx, userID)
}

func (r *UserRepository) MarkPhoneVerified(ctx context.Context, userID string) error {
	err := r.client.Session.Query(stmtMarkPhoneVerified, time.Now().UTC(), userID).
		WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to mark phone verified: %w", err)
	}
	return nil
}

// ApplyEarning lands the action record and the user's new ledger/quota state
// in one logged batch, so no reward is ever credited without its audit entry.
func (r *UserRepository) ApplyEarning(ctx context.Context, user *models.User, action *models.EarningAction) error {
	batch := r.client.Session.NewBatch(gocql.LoggedBatch)

	batch.Query(stmtInsertAction,
		action.UserID, action.CreatedAt, action.ActionID, string(action.Kind),
		action.ContentRef, int64(action.Amount), action.WatchSeconds,
		action.IPAddress, int64(action.Fingerprint))

	batch.Query(stmtApplyEarning,
		int64(user.Balance), int64(user.TotalEarned),
		user.ClicksToday, optionalTime(user.LastClickDate),
		user.VideosToday, optionalTime(user.LastVideoDate),
		user.UpdatedAt, user.UserID)

	if err := r.client.ExecuteBatch(ctx, batch); err != nil {
		util.Error("Failed to apply earning",
			zap.String("user_id", user.UserID),
			zap.String("action_id", action.ActionID),
			zap.Error(err))
		return fmt.Errorf("failed to apply earning: %w", err)
	}

	return nil
}

// ApplyWithdrawal lands the withdrawal row and the debited balance in one
// logged batch.
func (r *UserRepository) ApplyWithdrawal(ctx context.Context, user *models.User, withdrawal *models.WithdrawalRequest) error {
	batch := r.client.Session.NewBatch(gocql.LoggedBatch)

	batch.Query(stmtInsertWithdrawal,
		withdrawal.UserID, withdrawal.CreatedAt, withdrawal.WithdrawalID,
		int64(withdrawal.Amount), withdrawal.PayoutEmail, withdrawal.Status,
		optionalTime(withdrawal.ProcessedAt))

	batch.Query(stmtApplyDebit,
		int64(user.Balance), user.UpdatedAt, user.UserID)

	if err := r.client.ExecuteBatch(ctx, batch); err != nil {
		util.Error("Failed to apply withdrawal",
			zap.String("user_id", user.UserID),
			zap.String("withdrawal_id", withdrawal.WithdrawalID),
			zap.Error(err))
		return fmt.Errorf("failed to apply withdrawal: %w", err)
	}

	return nil
}

func (r *UserRepository) ListActions(ctx context.Context, userID string, limit int) ([]models.EarningAction, error) {
	iter := r.client.Session.Query(stmtListActions, userID, limit).WithContext(ctx).Iter()
	return scanActions(iter)
}

func (r *UserRepository) ListActionsSince(ctx context.Context, userID string, since time.Time) ([]models.EarningAction, error) {
	iter := r.client.Session.Query(stmtListActionsSince, userID, since).WithContext(ctx).Iter()
	return scanActions(iter)
}

func scanActions(iter *gocql.Iter) ([]models.EarningAction, error) {
	var actions []models.EarningAction
	var (
		action      models.EarningAction
		kind        string
		amount      int64
		fingerprint int64
	)
	for iter.Scan(&action.ActionID, &action.UserID, &kind, &action.ContentRef,
		&amount, &action.WatchSeconds, &action.IPAddress, &fingerprint, &action.CreatedAt) {
		action.Kind = models.ActionKind(kind)
		action.Amount = money.Cents(amount)
		action.Fingerprint = uint64(fingerprint)
		actions = append(actions, action)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list earning actions: %w", err)
	}
	return actions, nil
}

func (r *UserRepository) ListWithdrawals(ctx context.Context, userID string) ([]models.WithdrawalRequest, error) {
	iter := r.client.Session.Query(stmtListWithdrawals, userID).WithContext(ctx).Iter()

	var withdrawals []models.WithdrawalRequest
	var (
		wd          models.WithdrawalRequest
		amount      int64
		processedAt time.Time
	)
	for iter.Scan(&wd.WithdrawalID, &wd.UserID, &amount, &wd.PayoutEmail,
		&wd.Status, &wd.CreatedAt, &processedAt) {
		wd.Amount = money.Cents(amount)
		wd.ProcessedAt = timePtr(processedAt)
		withdrawals = append(withdrawals, wd)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return withdrawals, nil
}

func (r *UserRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck(ctx)
}

// optionalTime maps a nil pointer to the zero time, which Scylla stores as
// an unset timestamp.
func optionalTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
