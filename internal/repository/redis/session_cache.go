package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"clickearn/internal/client"
	"clickearn/internal/models"
	"clickearn/internal/util"
)

const (
	sessionPrefix       = "session:"
	activeSessionPrefix = "active_session:"
)

// ErrSessionNotFound is returned when a session ID resolves to nothing
var ErrSessionNotFound = errors.New("session not found")

// SessionStore is what the auth service needs from session storage
type SessionStore interface {
	ReplaceSession(ctx context.Context, session *models.Session, ttl time.Duration) error
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	DeleteSession(ctx context.Context, sessionID, userID string) error
}

// SessionCache keeps sessions in Redis with a TTL, giving expired sessions
// lazy cleanup for free. The active_session pointer enforces the
// one-live-session-per-user rule.
type SessionCache struct {
	client *client.RedisClient
}

func NewSessionCache(client *client.RedisClient) *SessionCache {
	return &SessionCache{client: client}
}

var _ SessionStore = (*SessionCache)(nil)

// ReplaceSession installs a new session for the user, tearing down any
// previous one in the same pipeline so concurrent resolvers see either the
// old session or the new one, never neither.
func (c *SessionCache) ReplaceSession(ctx context.Context, session *models.Session, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	activeKey := activeSessionPrefix + session.UserID

	previousID, err := c.client.Get(ctx, activeKey)
	if err != nil && !errors.Is(err, client.ErrKeyNotFound) {
		return fmt.Errorf("failed to read active session: %w", err)
	}

	pipe := c.client.Pipeline()
	if previousID != "" && previousID != session.SessionID {
		pipe.Del(ctx, sessionPrefix+previousID)
	}
	pipe.Set(ctx, sessionPrefix+session.SessionID, payload, ttl)
	pipe.Set(ctx, activeKey, session.SessionID, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		util.Error("Failed to replace session",
			zap.String("user_id", session.UserID),
			zap.String("session_id", session.SessionID),
			zap.Error(err))
		return fmt.Errorf("failed to replace session: %w", err)
	}

	util.Debug("Session installed",
		zap.String("user_id", session.UserID),
		zap.String("session_id", session.SessionID),
		zap.Duration("ttl", ttl))

	return nil
}

func (c *SessionCache) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	payload, err := c.client.Get(ctx, sessionPrefix+sessionID)
	if err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			return nil, ErrSessionNotFound
		}
		util.Error("Failed to get session",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// DeleteSession removes one session and its active pointer when it still
// points at the session being removed.
func (c *SessionCache) DeleteSession(ctx context.Context, sessionID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	activeKey := activeSessionPrefix + userID

	activeID, err := c.client.Get(ctx, activeKey)
	if err != nil && !errors.Is(err, client.ErrKeyNotFound) {
		return fmt.Errorf("failed to read active session: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Del(ctx, sessionPrefix+sessionID)
	if activeID == sessionID {
		pipe.Del(ctx, activeKey)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		util.Error("Failed to delete session",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return fmt.Errorf("failed to delete session: %w", err)
	}

	util.Debug("Session deleted",
		zap.String("user_id", userID),
		zap.String("session_id", sessionID))

	return nil
}
