package service

import (
	"go.uber.org/zap"

	"clickearn/internal/analytics"
	"clickearn/internal/config"
	"clickearn/internal/events"
	"clickearn/internal/hashing"
	redisrepo "clickearn/internal/repository/redis"
	"clickearn/internal/repository/scylla"
)

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	users    scylla.UserStore
	sessions redisrepo.SessionStore
	codes    redisrepo.CodeStore
	limiter  redisrepo.AbuseLimiter
	identity IdentityExchanger
	sink     analytics.Sink
	events   events.Publisher
	hasher   *hashing.PasswordHasher
	cfg      *config.Config
	logger   *zap.Logger

	// one lock table feeds every service so earning and withdrawal
	// mutations for the same user never interleave
	locks *UserLocks

	authService       *AuthService
	earningService    *EarningService
	withdrawalService *WithdrawalService
}

// NewServiceFactory creates a new service factory
func NewServiceFactory(
	users scylla.UserStore,
	sessions redisrepo.SessionStore,
	codes redisrepo.CodeStore,
	limiter redisrepo.AbuseLimiter,
	identity IdentityExchanger,
	sink analytics.Sink,
	eventPublisher events.Publisher,
	hasher *hashing.PasswordHasher,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceFactory {
	return &ServiceFactory{
		users:    users,
		sessions: sessions,
		codes:    codes,
		limiter:  limiter,
		identity: identity,
		sink:     sink,
		events:   eventPublisher,
		hasher:   hasher,
		cfg:      cfg,
		logger:   logger,
		locks:    NewUserLocks(),
	}
}

// AuthService returns the auth service instance (singleton)
func (f *ServiceFactory) AuthService() *AuthService {
	if f.authService == nil {
		f.authService = NewAuthService(
			f.users,
			f.sessions,
			f.codes,
			f.limiter,
			f.identity,
			f.hasher,
			f.cfg,
			f.logger,
		)
	}
	return f.authService
}

// EarningService returns the earning service instance (singleton)
func (f *ServiceFactory) EarningService() *EarningService {
	if f.earningService == nil {
		f.earningService = NewEarningService(
			f.users,
			f.sink,
			f.events,
			f.locks,
			f.cfg,
			f.logger,
		)
	}
	return f.earningService
}

// WithdrawalService returns the withdrawal service instance (singleton)
func (f *ServiceFactory) WithdrawalService() *WithdrawalService {
	if f.withdrawalService == nil {
		f.withdrawalService = NewWithdrawalService(
			f.users,
			f.events,
			f.locks,
			f.cfg,
			f.logger,
		)
	}
	return f.withdrawalService
}
