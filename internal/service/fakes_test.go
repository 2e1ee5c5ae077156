package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"clickearn/internal/client"
	"clickearn/internal/config"
	"clickearn/internal/hashing"
	"clickearn/internal/models"
	redisrepo "clickearn/internal/repository/redis"
	"clickearn/internal/repository/scylla"
)

// fakeUserStore is an in-memory UserStore with the same uniqueness and
// atomicity behavior as the Scylla implementation.
type fakeUserStore struct {
	mu          sync.Mutex
	users       map[string]*models.User
	byEmail     map[string]string
	byPhone     map[string]string
	actions     map[string][]models.EarningAction
	withdrawals map[string][]models.WithdrawalRequest
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:       make(map[string]*models.User),
		byEmail:     make(map[string]string),
		byPhone:     make(map[string]string),
		actions:     make(map[string][]models.EarningAction),
		withdrawals: make(map[string][]models.WithdrawalRequest),
	}
}

var _ scylla.UserStore = (*fakeUserStore)(nil)

func (s *fakeUserStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Email != "" {
		if _, taken := s.byEmail[user.Email]; taken {
			return fmt.Errorf("email taken: %w", scylla.ErrAlreadyExists)
		}
	}
	if user.Phone != "" {
		if _, taken := s.byPhone[user.Phone]; taken {
			return fmt.Errorf("phone taken: %w", scylla.ErrAlreadyExists)
		}
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	copied := *user
	s.users[user.UserID] = &copied
	if user.Email != "" {
		s.byEmail[user.Email] = user.UserID
	}
	if user.Phone != "" {
		s.byPhone[user.Phone] = user.UserID
	}
	return nil
}

func (s *fakeUserStore) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, scylla.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	userID, ok := s.byEmail[email]
	s.mu.Unlock()
	if !ok {
		return nil, scylla.ErrNotFound
	}
	return s.GetUserByID(ctx, userID)
}

func (s *fakeUserStore) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	s.mu.Lock()
	userID, ok := s.byPhone[phone]
	s.mu.Unlock()
	if !ok {
		return nil, scylla.ErrNotFound
	}
	return s.GetUserByID(ctx, userID)
}

func (s *fakeUserStore) MarkPhoneVerified(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return scylla.ErrNotFound
	}
	user.PhoneVerified = true
	return nil
}

func (s *fakeUserStore) ApplyEarning(ctx context.Context, user *models.User, action *models.EarningAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.UserID]; !ok {
		return scylla.ErrNotFound
	}
	copied := *user
	s.users[user.UserID] = &copied
	s.actions[user.UserID] = append(s.actions[user.UserID], *action)
	return nil
}

func (s *fakeUserStore) ApplyWithdrawal(ctx context.Context, user *models.User, withdrawal *models.WithdrawalRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.UserID]; !ok {
		return scylla.ErrNotFound
	}
	copied := *user
	s.users[user.UserID] = &copied
	s.withdrawals[user.UserID] = append(s.withdrawals[user.UserID], *withdrawal)
	return nil
}

func (s *fakeUserStore) ListActions(ctx context.Context, userID string, limit int) ([]models.EarningAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	actions := append([]models.EarningAction(nil), s.actions[userID]...)
	sort.Slice(actions, func(i, j int) bool {
		return actions[i].CreatedAt.After(actions[j].CreatedAt)
	})
	if limit > 0 && len(actions) > limit {
		actions = actions[:limit]
	}
	return actions, nil
}

func (s *fakeUserStore) ListActionsSince(ctx context.Context, userID string, since time.Time) ([]models.EarningAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.EarningAction
	for _, a := range s.actions[userID] {
		if !a.CreatedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeUserStore) ListWithdrawals(ctx context.Context, userID string) ([]models.WithdrawalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	withdrawals := append([]models.WithdrawalRequest(nil), s.withdrawals[userID]...)
	sort.Slice(withdrawals, func(i, j int) bool {
		return withdrawals[i].CreatedAt.After(withdrawals[j].CreatedAt)
	})
	return withdrawals, nil
}

func (s *fakeUserStore) HealthCheck(ctx context.Context) error { return nil }

// fakeSessionStore mirrors the Redis cache including the one-active-session
// pointer.
type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	active   map[string]string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions: make(map[string]*models.Session),
		active:   make(map[string]string),
	}
}

var _ redisrepo.SessionStore = (*fakeSessionStore)(nil)

func (s *fakeSessionStore) ReplaceSession(ctx context.Context, session *models.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if previous, ok := s.active[session.UserID]; ok {
		delete(s.sessions, previous)
	}
	copied := *session
	s.sessions[session.SessionID] = &copied
	s.active[session.UserID] = session.SessionID
	return nil
}

func (s *fakeSessionStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, redisrepo.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *fakeSessionStore) DeleteSession(ctx context.Context, sessionID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	if s.active[userID] == sessionID {
		delete(s.active, userID)
	}
	return nil
}

// fakeCodeStore keeps verification codes and attempt counters in maps
type fakeCodeStore struct {
	mu       sync.Mutex
	codes    map[string]*models.VerificationCode
	attempts map[string]int
}

func newFakeCodeStore() *fakeCodeStore {
	return &fakeCodeStore{
		codes:    make(map[string]*models.VerificationCode),
		attempts: make(map[string]int),
	}
}

var _ redisrepo.CodeStore = (*fakeCodeStore)(nil)

func (s *fakeCodeStore) SetCode(ctx context.Context, code *models.VerificationCode, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *code
	s.codes[code.Phone] = &copied
	return nil
}

func (s *fakeCodeStore) GetCode(ctx context.Context, phone string) (*models.VerificationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[phone]
	if !ok {
		return nil, redisrepo.ErrCodeNotFound
	}
	copied := *code
	return &copied, nil
}

func (s *fakeCodeStore) DeleteCode(ctx context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, phone)
	return nil
}

func (s *fakeCodeStore) IncrementAttempts(ctx context.Context, phone string, ttl time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[phone]++
	return s.attempts[phone], nil
}

func (s *fakeCodeStore) ResetAttempts(ctx context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, phone)
	return nil
}

// fakeLimiter counts without expiry
type fakeLimiter struct {
	mu       sync.Mutex
	counters map[string]int
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{counters: make(map[string]int)}
}

var _ redisrepo.AbuseLimiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) IncrementCounter(ctx context.Context, key string, ttl time.Duration) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counters[key]++
	return l.counters[key], nil
}

func (l *fakeLimiter) GetCounter(ctx context.Context, key string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counters[key], nil
}

func (l *fakeLimiter) ResetCounter(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.counters, key)
	return nil
}

// fakeSink records analytics calls
type fakeSink struct {
	mu       sync.Mutex
	recorded []models.EarningAction
	stats    []models.ActionDailyStat
}

func (s *fakeSink) RecordAction(ctx context.Context, action *models.EarningAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorded = append(s.recorded, *action)
	return nil
}

func (s *fakeSink) DailyStats(ctx context.Context, days int) ([]models.ActionDailyStat, error) {
	return s.stats, nil
}

// fakePublisher records published events
type fakePublisher struct {
	mu          sync.Mutex
	withdrawals []models.WithdrawalRequest
	earnings    []models.EarningAction
}

func (p *fakePublisher) WithdrawalRequested(ctx context.Context, withdrawal *models.WithdrawalRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.withdrawals = append(p.withdrawals, *withdrawal)
	return nil
}

func (p *fakePublisher) EarningRecorded(ctx context.Context, action *models.EarningAction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.earnings = append(p.earnings, *action)
	return nil
}

// fakeIdentity returns a canned profile, or an error when rejecting
type fakeIdentity struct {
	profile *client.IdentityProfile
	err     error
}

func (f *fakeIdentity) ExchangeSession(ctx context.Context, externalToken string) (*client.IdentityProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

// testEnv wires the services against the in-memory fakes
type testEnv struct {
	users    *fakeUserStore
	sessions *fakeSessionStore
	codes    *fakeCodeStore
	limiter  *fakeLimiter
	sink     *fakeSink
	events   *fakePublisher
	identity *fakeIdentity
	cfg      *config.Config
	factory  *ServiceFactory
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Rewards: config.RewardsConfig{
			ClickRewardCents:  50,
			VideoRewardCents:  25,
			DailyClickLimit:   20,
			DailyVideoLimit:   10,
			MinWatchSeconds:   30,
			MinWithdrawCents:  1000,
			SessionTTL:        7 * 24 * time.Hour,
			VerifyCodeTTL:     5 * time.Minute,
			DayBoundaryTZ:     "UTC",
			MaxCodeSendsHour:  5,
			MaxVerifyAttempts: 5,
			MaxLoginFailsHour: 3,
		},
	}
}

func newTestEnv() *testEnv {
	env := &testEnv{
		users:    newFakeUserStore(),
		sessions: newFakeSessionStore(),
		codes:    newFakeCodeStore(),
		limiter:  newFakeLimiter(),
		sink:     &fakeSink{},
		events:   &fakePublisher{},
		identity: &fakeIdentity{},
		cfg:      testConfig(),
	}
	env.factory = NewServiceFactory(
		env.users,
		env.sessions,
		env.codes,
		env.limiter,
		env.identity,
		env.sink,
		env.events,
		hashing.NewPasswordHasher(),
		env.cfg,
		zap.NewNop(),
	)
	return env
}
