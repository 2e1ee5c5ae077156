package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"clickearn/internal/client"
	"clickearn/internal/config"
	"clickearn/internal/hashing"
	"clickearn/internal/models"
	redisrepo "clickearn/internal/repository/redis"
	"clickearn/internal/repository/scylla"
	"clickearn/internal/util"
)

// IdentityExchanger resolves an opaque external token into a verified
// profile. Implemented by client.IdentityClient.
type IdentityExchanger interface {
	ExchangeSession(ctx context.Context, externalToken string) (*client.IdentityProfile, error)
}

// AuthService owns credentials, sessions and phone verification
type AuthService struct {
	users    scylla.UserStore
	sessions redisrepo.SessionStore
	codes    redisrepo.CodeStore
	limiter  redisrepo.AbuseLimiter
	identity IdentityExchanger
	hasher   *hashing.PasswordHasher
	rewards  config.RewardsConfig
	logger   *zap.Logger
}

func NewAuthService(
	users scylla.UserStore,
	sessions redisrepo.SessionStore,
	codes redisrepo.CodeStore,
	limiter redisrepo.AbuseLimiter,
	identity IdentityExchanger,
	hasher *hashing.PasswordHasher,
	cfg *config.Config,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		codes:    codes,
		limiter:  limiter,
		identity: identity,
		hasher:   hasher,
		rewards:  cfg.Rewards,
		logger:   logger,
	}
}

// RegisterRequest carries the registration input
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

// Register creates a user with a zero balance and issues its first session
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*models.User, *models.Session, error) {
	if util.ContainsSuspicious(req.Name) {
		return nil, nil, fmt.Errorf("%w: name contains disallowed characters", ErrInvalidInput)
	}
	name := util.SanitizeInput(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := normalizePhone(req.Phone)

	if name == "" {
		return nil, nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if req.Password == "" {
		return nil, nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	// A supplied-but-malformed phone is its own failure, not a missing handle
	if req.Phone != "" && phone == "" {
		return nil, nil, ErrInvalidPhone
	}
	if email == "" && phone == "" {
		return nil, nil, fmt.Errorf("%w: email or phone is required", ErrInvalidInput)
	}
	if email != "" && !strings.Contains(email, "@") {
		return nil, nil, fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		UserID:       uuid.New().String(),
		Email:        email,
		Phone:        phone,
		Name:         name,
		PasswordHash: passwordHash,
		AuthMethod:   models.AuthMethodPassword,
		IsActive:     true,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, scylla.ErrAlreadyExists) {
			return nil, nil, ErrDuplicateIdentity
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	session, err := s.issueSession(ctx, user.UserID, "")
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("User registered",
		util.String("user_id", user.UserID),
		util.Bool("has_email", email != ""),
		util.Bool("has_phone", phone != ""))

	return user, session, nil
}

// Login verifies a password credential and replaces any existing session
func (s *AuthService) Login(ctx context.Context, identityHandle, password string) (*models.User, *models.Session, error) {
	handle := strings.TrimSpace(identityHandle)
	if handle == "" || password == "" {
		return nil, nil, fmt.Errorf("%w: identity handle and password are required", ErrInvalidInput)
	}

	// Throttle before touching credentials so unknown handles cost the
	// same as known ones
	failKey := "login_fail:" + strings.ToLower(handle)
	fails, err := s.limiter.GetCounter(ctx, failKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check login failures: %w", err)
	}
	if fails >= s.rewards.MaxLoginFailsHour {
		return nil, nil, fmt.Errorf("%w: login failure limit reached", ErrTooManyRequests)
	}

	user, err := s.lookupByHandle(ctx, handle)
	if err != nil {
		return nil, nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		if _, err := s.limiter.IncrementCounter(ctx, failKey, time.Hour); err != nil {
			s.logger.Warn("Failed to count login failure", util.ErrorField(err))
		}
		s.logger.Warn("Login rejected: bad credential",
			util.String("user_id", user.UserID),
			util.Int("failures", fails+1))
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, ErrAccountDisabled
	}

	if err := s.limiter.ResetCounter(ctx, failKey); err != nil {
		s.logger.Warn("Failed to reset login failures", util.ErrorField(err))
	}

	session, err := s.issueSession(ctx, user.UserID, "")
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("User logged in", util.String("user_id", user.UserID))
	return user, session, nil
}

// AuthenticateExternal exchanges a delegated token with the identity
// provider, creating the user on first sight. Session replacement works
// exactly like Login.
func (s *AuthService) AuthenticateExternal(ctx context.Context, externalToken string) (*models.User, *models.Session, error) {
	if externalToken == "" {
		return nil, nil, ErrSessionRequired
	}

	profile, err := s.identity.ExchangeSession(ctx, externalToken)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrExternalAuth, err)
	}

	email := strings.ToLower(strings.TrimSpace(profile.Email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, scylla.ErrNotFound) {
			return nil, nil, fmt.Errorf("failed to look up user: %w", err)
		}
		user = &models.User{
			UserID:        uuid.New().String(),
			Email:         email,
			Name:          profile.Name,
			Picture:       profile.Picture,
			AuthMethod:    models.AuthMethodExternal,
			EmailVerified: true,
			IsActive:      true,
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			// Concurrent first-sight exchange may have won the race
			if errors.Is(err, scylla.ErrAlreadyExists) {
				if user, err = s.users.GetUserByEmail(ctx, email); err != nil {
					return nil, nil, fmt.Errorf("failed to look up user: %w", err)
				}
			} else {
				return nil, nil, fmt.Errorf("failed to create user: %w", err)
			}
		}
		s.logger.Info("User created from external identity",
			util.String("user_id", user.UserID))
	}

	if !user.IsActive {
		return nil, nil, ErrAccountDisabled
	}

	session, err := s.issueSession(ctx, user.UserID, profile.SessionToken)
	if err != nil {
		return nil, nil, err
	}

	return user, session, nil
}

// ResolveSession maps a session ID to its owning user. An expired session
// is deleted as a side effect of being observed.
func (s *AuthService) ResolveSession(ctx context.Context, sessionID string) (*models.User, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, redisrepo.ErrSessionNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	if session.Expired(time.Now()) {
		if err := s.sessions.DeleteSession(ctx, session.SessionID, session.UserID); err != nil {
			s.logger.Warn("Failed to delete expired session",
				util.String("session_id", session.SessionID),
				util.ErrorField(err))
		}
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}

	return user, nil
}

// SendCode issues a phone verification code. The code is returned to the
// caller because SMS delivery is mocked in this deployment.
func (s *AuthService) SendCode(ctx context.Context, rawPhone string) (*models.VerificationCode, error) {
	phone := normalizePhone(rawPhone)
	if phone == "" {
		return nil, ErrInvalidPhone
	}

	sends, err := s.limiter.IncrementCounter(ctx, "send_code:"+phone, time.Hour)
	if err != nil {
		return nil, fmt.Errorf("failed to track code sends: %w", err)
	}
	if sends > s.rewards.MaxCodeSendsHour {
		return nil, fmt.Errorf("%w: code send limit reached", ErrTooManyRequests)
	}

	digits, err := randomDigits(6)
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification code: %w", err)
	}

	now := time.Now().UTC()
	code := &models.VerificationCode{
		Phone:     phone,
		Code:      digits,
		CreatedAt: now,
		ExpiresAt: now.Add(s.rewards.VerifyCodeTTL),
	}

	// One unconsumed code per phone: the key overwrite retires any earlier code
	if err := s.codes.SetCode(ctx, code, s.rewards.VerifyCodeTTL); err != nil {
		return nil, err
	}

	s.logger.Info("Verification code issued (SMS delivery mocked)",
		util.String("phone", phone))

	return code, nil
}

// VerifyCode consumes a pending verification code
func (s *AuthService) VerifyCode(ctx context.Context, rawPhone, submitted string) error {
	phone := normalizePhone(rawPhone)
	if phone == "" {
		return ErrInvalidPhone
	}
	if submitted == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidInput)
	}

	attempts, err := s.codes.IncrementAttempts(ctx, phone, s.rewards.VerifyCodeTTL)
	if err != nil {
		return fmt.Errorf("failed to track verify attempts: %w", err)
	}
	if attempts > s.rewards.MaxVerifyAttempts {
		return fmt.Errorf("%w: verify attempt limit reached", ErrTooManyRequests)
	}

	code, err := s.codes.GetCode(ctx, phone)
	if err != nil {
		if errors.Is(err, redisrepo.ErrCodeNotFound) {
			return ErrCodeExpired
		}
		return err
	}
	if time.Now().After(code.ExpiresAt) {
		_ = s.codes.DeleteCode(ctx, phone)
		return ErrCodeExpired
	}
	if code.Code != submitted {
		return ErrCodeInvalid
	}

	// Single use: consume before reporting success
	if err := s.codes.DeleteCode(ctx, phone); err != nil {
		return err
	}
	if err := s.codes.ResetAttempts(ctx, phone); err != nil {
		s.logger.Warn("Failed to reset verify attempts", util.ErrorField(err))
	}

	if user, err := s.users.GetUserByPhone(ctx, phone); err == nil {
		if err := s.users.MarkPhoneVerified(ctx, user.UserID); err != nil {
			s.logger.Warn("Failed to mark phone verified",
				util.String("user_id", user.UserID),
				util.ErrorField(err))
		}
	}

	s.logger.Info("Phone verified", util.String("phone", phone))
	return nil
}

// issueSession replaces the user's current session with a fresh one
func (s *AuthService) issueSession(ctx context.Context, userID, externalToken string) (*models.Session, error) {
	now := time.Now().UTC()
	session := &models.Session{
		SessionID:    uuid.New().String(),
		UserID:       userID,
		SessionToken: externalToken,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.rewards.SessionTTL),
	}

	if err := s.sessions.ReplaceSession(ctx, session, s.rewards.SessionTTL); err != nil {
		return nil, fmt.Errorf("failed to install session: %w", err)
	}
	return session, nil
}

func (s *AuthService) lookupByHandle(ctx context.Context, handle string) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	if strings.Contains(handle, "@") {
		user, err = s.users.GetUserByEmail(ctx, strings.ToLower(handle))
	} else {
		user, err = s.users.GetUserByPhone(ctx, normalizePhone(handle))
	}
	if err != nil {
		if errors.Is(err, scylla.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

// normalizePhone strips separators and validates the loose phone pattern:
// optional leading +, digits only, at least 10 of them. Returns "" when the
// input does not qualify.
func normalizePhone(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	var b strings.Builder
	for i, r := range trimmed {
		switch {
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
			// separators are dropped
		default:
			return ""
		}
	}

	normalized := b.String()
	digits := strings.TrimPrefix(normalized, "+")
	if len(digits) < 10 {
		return ""
	}
	return normalized
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteString(d.String())
	}
	return b.String(), nil
}
