package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clickearn/internal/analytics"
	"clickearn/internal/catalog"
	"clickearn/internal/client"
	"clickearn/internal/config"
	"clickearn/internal/events"
	"clickearn/internal/hashing"
	"clickearn/internal/money"
	redisrepo "clickearn/internal/repository/redis"
	"clickearn/internal/repository/scylla"
	"clickearn/internal/service"
	"clickearn/internal/util"
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config *config.Config

	// Clients
	redisClient      *client.RedisClient
	scyllaClient     *scylla.ScyllaClient
	kafkaProducer    *client.KafkaProducer
	clickhouseClient *client.ClickHouseClient
	identityClient   *client.IdentityClient

	hasher  *hashing.PasswordHasher
	catalog *catalog.Catalog

	// Repositories and caches
	userRepository scylla.UserStore
	sessionCache   redisrepo.SessionStore
	codeCache      redisrepo.CodeStore
	rateLimitCache redisrepo.AbuseLimiter
	actionSink     analytics.Sink
	publisher      events.Publisher

	serviceFactory *service.ServiceFactory

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory creates and initializes all application dependencies
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	factory := &Factory{
		config: cfg,
		closed: make(chan struct{}),
	}

	if err := factory.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	factory.hasher = hashing.NewPasswordHasher()
	factory.catalog = catalog.New(
		money.Cents(cfg.Rewards.ClickRewardCents),
		money.Cents(cfg.Rewards.VideoRewardCents),
	)
	factory.identityClient = client.NewIdentityClient(cfg)

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("kafka_enabled", factory.kafkaProducer != nil),
	)

	return factory, nil
}

// initializeClients initializes all external service clients with health
// checks. Production hard-fails on any unhealthy critical client;
// development logs and continues.
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var initErrors []error

	// Redis
	if c, err := client.NewRedisClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
	} else {
		f.redisClient = c
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis health check: %w", err))
		} else {
			util.Info("Redis client initialized and healthy")
		}
	}

	// ScyllaDB
	if c, err := scylla.NewScyllaClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("scylla: %w", err))
	} else {
		f.scyllaClient = c
		if err := f.scyllaClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("scylla health check: %w", err))
		} else {
			util.Info("ScyllaDB client initialized and healthy")
		}
	}

	// Kafka is optional: the settlement event stream degrades to no-op
	if producer, err := client.NewKafkaProducer(f.config, util.Get()); err != nil {
		util.Warn("Kafka producer initialization failed - proceeding without Kafka", util.ErrorField(err))
	} else {
		f.kafkaProducer = producer
		util.Info("Kafka producer initialized")
	}

	// ClickHouse
	if c, err := client.NewClickHouseClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("clickhouse: %w", err))
	} else {
		f.clickhouseClient = c
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("clickhouse health check: %w", err))
		} else {
			util.Info("ClickHouse client initialized and healthy")
		}
	}

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}

	return nil
}

// ==============================
// Repository Initialization
// ==============================

func (f *Factory) UserRepository() scylla.UserStore {
	if f.userRepository == nil {
		f.userRepository = scylla.NewUserRepository(f.scyllaClient, util.Get())
	}
	return f.userRepository
}

func (f *Factory) SessionCache() redisrepo.SessionStore {
	if f.sessionCache == nil {
		f.sessionCache = redisrepo.NewSessionCache(f.redisClient)
	}
	return f.sessionCache
}

func (f *Factory) CodeCache() redisrepo.CodeStore {
	if f.codeCache == nil {
		f.codeCache = redisrepo.NewCodeCache(f.redisClient)
	}
	return f.codeCache
}

func (f *Factory) RateLimitCache() redisrepo.AbuseLimiter {
	if f.rateLimitCache == nil {
		f.rateLimitCache = redisrepo.NewRateLimitCache(f.redisClient)
	}
	return f.rateLimitCache
}

func (f *Factory) ActionSink() analytics.Sink {
	if f.actionSink == nil {
		f.actionSink = analytics.NewActionSink(f.clickhouseClient)
	}
	return f.actionSink
}

func (f *Factory) Publisher() events.Publisher {
	if f.publisher == nil {
		f.publisher = events.NewKafkaPublisher(f.kafkaProducer, f.config)
	}
	return f.publisher
}

// ==============================
// Service Factory
// ==============================

func (f *Factory) ServiceFactory() *service.ServiceFactory {
	if f.serviceFactory == nil {
		f.serviceFactory = service.NewServiceFactory(
			f.UserRepository(),
			f.SessionCache(),
			f.CodeCache(),
			f.RateLimitCache(),
			f.identityClient,
			f.ActionSink(),
			f.Publisher(),
			f.hasher,
			f.config,
			util.Get(),
		)
	}
	return f.serviceFactory
}

// ==============================
// Health Checks
// ==============================

func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	healthErrors := make(map[string]error)

	if f.redisClient != nil {
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			healthErrors["redis"] = err
		}
	} else {
		healthErrors["redis"] = fmt.Errorf("redis client not initialized")
	}

	if f.scyllaClient != nil {
		if err := f.scyllaClient.HealthCheck(ctx); err != nil {
			healthErrors["scylla"] = err
		}
	} else {
		healthErrors["scylla"] = fmt.Errorf("scylla client not initialized")
	}

	if f.clickhouseClient != nil {
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			healthErrors["clickhouse"] = err
		}
	} else {
		healthErrors["clickhouse"] = fmt.Errorf("clickhouse client not initialized")
	}

	if f.kafkaProducer != nil {
		if err := f.kafkaProducer.HealthCheck(ctx); err != nil {
			healthErrors["kafka"] = err
		}
	}

	return healthErrors
}

// IsHealthy reports overall health; Kafka is advisory only
func (f *Factory) IsHealthy(ctx context.Context) bool {
	healthErrors := f.HealthCheck(ctx)
	delete(healthErrors, "kafka")
	return len(healthErrors) == 0
}

// ComponentStatus renders health results for the health endpoint
func (f *Factory) ComponentStatus(ctx context.Context) (bool, map[string]string) {
	healthErrors := f.HealthCheck(ctx)

	components := map[string]string{
		"redis":      "healthy",
		"scylla":     "healthy",
		"clickhouse": "healthy",
		"kafka":      "healthy",
	}
	if f.kafkaProducer == nil {
		components["kafka"] = "disabled"
	}
	for name, err := range healthErrors {
		components[name] = err.Error()
	}

	delete(healthErrors, "kafka")
	return len(healthErrors) == 0, components
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", util.ErrorField(err))
			} else {
				util.Info("ClickHouse client closed")
			}
		}

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			} else {
				util.Info("Kafka producer closed")
			}
		}

		if f.scyllaClient != nil {
			f.scyllaClient.Close()
			util.Info("ScyllaDB client closed")
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			} else {
				util.Info("Redis client closed")
			}
		}

		util.Sync()
		util.Info("Factory shutdown completed")
	})

	return nil
}

func (f *Factory) WaitForClose() {
	<-f.closed
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) Catalog() *catalog.Catalog {
	return f.catalog
}
