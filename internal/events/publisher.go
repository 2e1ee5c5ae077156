// Package events publishes domain events to Kafka for out-of-band
// consumers. The settlement worker watches the withdrawal topic to pick up
// pending requests; this service never transitions them itself.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"clickearn/internal/client"
	"clickearn/internal/config"
	"clickearn/internal/models"
	"clickearn/internal/util"
)

// Publisher is the event stream interface the services publish into
type Publisher interface {
	WithdrawalRequested(ctx context.Context, withdrawal *models.WithdrawalRequest) error
	EarningRecorded(ctx context.Context, action *models.EarningAction) error
}

// KafkaPublisher implements Publisher on the shared Kafka producer. A nil
// producer degrades to a no-op so the service keeps working without Kafka,
// matching the optional-broker startup behavior.
type KafkaPublisher struct {
	producer *client.KafkaProducer
	topics   config.KafkaConfig
}

func NewKafkaPublisher(producer *client.KafkaProducer, cfg *config.Config) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topics:   cfg.Kafka,
	}
}

var _ Publisher = (*KafkaPublisher)(nil)

func (p *KafkaPublisher) WithdrawalRequested(ctx context.Context, withdrawal *models.WithdrawalRequest) error {
	if p.producer == nil {
		util.Debug("Kafka disabled, dropping withdrawal event",
			zap.String("withdrawal_id", withdrawal.WithdrawalID))
		return nil
	}

	payload, err := json.Marshal(withdrawal)
	if err != nil {
		return fmt.Errorf("failed to marshal withdrawal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return p.producer.ProduceMessage(ctx, p.topics.WithdrawalTopic,
		[]byte(withdrawal.UserID), payload,
		map[string]string{"event_type": "withdrawal.requested"})
}

func (p *KafkaPublisher) EarningRecorded(ctx context.Context, action *models.EarningAction) error {
	if p.producer == nil {
		return nil
	}

	payload, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("failed to marshal earning event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return p.producer.ProduceMessage(ctx, p.topics.EarningTopic,
		[]byte(action.UserID), payload,
		map[string]string{"event_type": "earning.recorded"})
}
