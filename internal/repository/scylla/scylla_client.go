package scylla

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"clickearn/internal/config"
	"clickearn/internal/util"
)

var (
	// ErrNotFound is returned when no row matches a lookup
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when an identity handle is already taken
	ErrAlreadyExists = errors.New("record already exists")
)

type ScyllaClient struct {
	Session *gocql.Session
	config  *config.ScyllaConfig
}

func NewScyllaClient(cfg *config.Config, logger *zap.Logger) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Nodes...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 4
	cluster.SocketKeepalive = 30 * time.Second
	cluster.MaxPreparedStmts = 1000
	cluster.PageSize = 1000
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        time.Second,
		Max:        10 * time.Second,
		NumRetries: 3,
	}

	if scyllaConfig.Username != "" && scyllaConfig.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaConfig.Username,
			Password: scyllaConfig.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	util.Info("ScyllaDB client initialized",
		zap.Strings("nodes", scyllaConfig.Nodes),
		zap.String("keyspace", scyllaConfig.Keyspace),
	)

	return &ScyllaClient{
		Session: session,
		config:  &scyllaConfig,
	}, nil
}

// ExecuteBatch runs a logged batch so multi-statement mutations land as a
// unit.
func (c *ScyllaClient) ExecuteBatch(ctx context.Context, batch *gocql.Batch) error {
	return c.Session.ExecuteBatch(batch.WithContext(ctx))
}

// HealthCheck verifies connectivity with a lightweight system query
func (c *ScyllaClient) HealthCheck(ctx context.Context) error {
	var now time.Time
	if err := c.Session.Query("SELECT now() FROM system.local").WithContext(ctx).Scan(&now); err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}
	return nil
}

func (c *ScyllaClient) Close() {
	if c.Session != nil {
		c.Session.Close()
		util.Info("ScyllaDB session closed")
	}
}
