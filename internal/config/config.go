package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from the environment
type Config struct {
	Environment string

	Server     ServerConfig
	Logging    LoggingConfig
	Redis      RedisConfig
	Scylla     ScyllaConfig
	Clickhouse ClickhouseConfig
	Kafka      KafkaConfig
	Identity   IdentityConfig
	Rewards    RewardsConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type ScyllaConfig struct {
	Nodes    []string
	Keyspace string
	Username string
	Password string
}

type ClickhouseConfig struct {
	URL      string
	Database string
	Username string
	Password string
}

type KafkaConfig struct {
	Brokers         []string
	WithdrawalTopic string
	EarningTopic    string
}

// IdentityConfig points at the external identity provider used for
// delegated session exchange.
type IdentityConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RewardsConfig carries every earning/withdrawal knob. The day boundary is
// an explicit timezone rather than the server wall clock.
type RewardsConfig struct {
	ClickRewardCents  int64
	VideoRewardCents  int64
	DailyClickLimit   int
	DailyVideoLimit   int
	MinWatchSeconds   int
	MinWithdrawCents  int64
	SessionTTL        time.Duration
	VerifyCodeTTL     time.Duration
	DayBoundaryTZ     string
	MaxCodeSendsHour  int
	MaxVerifyAttempts int
	MaxLoginFailsHour int
}

var (
	instance *Config
	mu       sync.RWMutex
)

// LoadConfig reads .env (if present) and builds the configuration
func LoadConfig() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	instance = &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnvInt("SERVER_PORT", 8001),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 50),
		},
		Scylla: ScyllaConfig{
			Nodes:    splitAndTrim(getEnv("SCYLLA_NODES", "localhost:9042")),
			Keyspace: getEnv("SCYLLA_KEYSPACE", "clickearn"),
			Username: getEnv("SCYLLA_USERNAME", ""),
			Password: getEnv("SCYLLA_PASSWORD", ""),
		},
		Clickhouse: ClickhouseConfig{
			URL:      getEnv("CLICKHOUSE_URL", "http://localhost:8123"),
			Database: getEnv("CLICKHOUSE_DATABASE", "clickearn"),
			Username: getEnv("CLICKHOUSE_USERNAME", "default"),
			Password: getEnv("CLICKHOUSE_PASSWORD", ""),
		},
		Kafka: KafkaConfig{
			Brokers:         splitAndTrim(getEnv("KAFKA_BROKERS", "localhost:9092")),
			WithdrawalTopic: getEnv("KAFKA_WITHDRAWAL_TOPIC", "withdrawal.requested"),
			EarningTopic:    getEnv("KAFKA_EARNING_TOPIC", "earning.recorded"),
		},
		Identity: IdentityConfig{
			BaseURL: getEnv("IDENTITY_PROVIDER_URL", "https://demobackend.emergentagent.com/auth/v1/env/oauth/session-data"),
			Timeout: getEnvDuration("IDENTITY_PROVIDER_TIMEOUT", 10*time.Second),
		},
		Rewards: RewardsConfig{
			ClickRewardCents:  getEnvInt64("CLICK_REWARD_CENTS", 50),
			VideoRewardCents:  getEnvInt64("VIDEO_REWARD_CENTS", 25),
			DailyClickLimit:   getEnvInt("DAILY_CLICK_LIMIT", 20),
			DailyVideoLimit:   getEnvInt("DAILY_VIDEO_LIMIT", 10),
			MinWatchSeconds:   getEnvInt("MIN_WATCH_SECONDS", 30),
			MinWithdrawCents:  getEnvInt64("MIN_WITHDRAW_CENTS", 1000),
			SessionTTL:        getEnvDuration("SESSION_TTL", 7*24*time.Hour),
			VerifyCodeTTL:     getEnvDuration("VERIFY_CODE_TTL", 5*time.Minute),
			DayBoundaryTZ:     getEnv("DAY_BOUNDARY_TZ", "UTC"),
			MaxCodeSendsHour:  getEnvInt("MAX_CODE_SENDS_PER_HOUR", 5),
			MaxVerifyAttempts: getEnvInt("MAX_VERIFY_ATTEMPTS", 5),
			MaxLoginFailsHour: getEnvInt("MAX_LOGIN_FAILS_PER_HOUR", 10),
		},
	}

	return instance
}

// Get returns the loaded configuration, loading it on first use
func Get() *Config {
	mu.RLock()
	cfg := instance
	mu.RUnlock()
	if cfg != nil {
		return cfg
	}
	return LoadConfig()
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return !c.IsProduction()
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// DayLocation resolves the configured day-boundary timezone, falling back
// to UTC if the name cannot be loaded.
func (c *Config) DayLocation() *time.Location {
	loc, err := time.LoadLocation(c.Rewards.DayBoundaryTZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
