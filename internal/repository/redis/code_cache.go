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
	codePrefix        = "verify_code:"
	codeAttemptPrefix = "verify_attempts:"
)

// ErrCodeNotFound is returned when no unconsumed code exists for a phone
var ErrCodeNotFound = errors.New("verification code not found")

// CodeStore is what the auth service needs from verification-code storage
type CodeStore interface {
	SetCode(ctx context.Context, code *models.VerificationCode, ttl time.Duration) error
	GetCode(ctx context.Context, phone string) (*models.VerificationCode, error)
	DeleteCode(ctx context.Context, phone string) error
	IncrementAttempts(ctx context.Context, phone string, ttl time.Duration) (int, error)
	ResetAttempts(ctx context.Context, phone string) error
}

// CodeCache keeps phone verification codes in Redis. One key per phone, so
// reissuing overwrites the previous code; the TTL enforces expiry.
type CodeCache struct {
	client *client.RedisClient
}

func NewCodeCache(client *client.RedisClient) *CodeCache {
	return &CodeCache{client: client}
}

var _ CodeStore = (*CodeCache)(nil)

func (c *CodeCache) SetCode(ctx context.Context, code *models.VerificationCode, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	payload, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("failed to marshal verification code: %w", err)
	}

	key := codePrefix + code.Phone
	if err := c.client.Set(ctx, key, payload, ttl); err != nil {
		util.Error("Failed to cache verification code",
			zap.String("phone", code.Phone),
			zap.Duration("ttl", ttl),
			zap.Error(err))
		return fmt.Errorf("failed to cache verification code: %w", err)
	}

	util.Debug("Verification code cached",
		zap.String("phone", code.Phone),
		zap.Duration("ttl", ttl))

	return nil
}

func (c *CodeCache) GetCode(ctx context.Context, phone string) (*models.VerificationCode, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	payload, err := c.client.Get(ctx, codePrefix+phone)
	if err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			return nil, ErrCodeNotFound
		}
		util.Error("Failed to get verification code",
			zap.String("phone", phone),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get verification code: %w", err)
	}

	var code models.VerificationCode
	if err := json.Unmarshal([]byte(payload), &code); err != nil {
		return nil, fmt.Errorf("failed to unmarshal verification code: %w", err)
	}

	return &code, nil
}

func (c *CodeCache) DeleteCode(ctx context.Context, phone string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.client.Del(ctx, codePrefix+phone); err != nil {
		util.Error("Failed to delete verification code",
			zap.String("phone", phone),
			zap.Error(err))
		return fmt.Errorf("failed to delete verification code: %w", err)
	}

	util.Debug("Verification code consumed", zap.String("phone", phone))
	return nil
}

func (c *CodeCache) IncrementAttempts(ctx context.Context, phone string, ttl time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	count, err := c.client.IncrWithExpire(ctx, codeAttemptPrefix+phone, ttl)
	if err != nil {
		return 0, fmt.Errorf("failed to increment verify attempts: %w", err)
	}
	return int(count), nil
}

func (c *CodeCache) ResetAttempts(ctx context.Context, phone string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.client.Del(ctx, codeAttemptPrefix+phone); err != nil {
		return fmt.Errorf("failed to reset verify attempts: %w", err)
	}
	return nil
}
