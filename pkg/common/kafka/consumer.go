package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/synaptica-ai/genomics/pkg/common/config"
	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"github.com/synaptica-ai/genomics/pkg/common/models"
)

type Consumer struct {
	reader      *kafka.Reader
	maxAttempts int
	backoff     time.Duration
	giveUp      GiveUpFunc
}

type EventHandler func(ctx context.Context, event models.Event) error

// GiveUpFunc is called with the last handler error once an event has used
// all of its attempts. The message is committed after it returns.
type GiveUpFunc func(ctx context.Context, event models.Event, attempts int, err error)

func NewConsumer(cfg *config.Config, topic string, groupID string) *Consumer {
	if groupID == "" {
		groupID = cfg.KafkaGroupID
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{reader: reader, maxAttempts: cfg.ConsumerMaxAttempts, backoff: time.Second}
}

// OnGiveUp sets the hook run when an event exhausts its attempts.
func (c *Consumer) OnGiveUp(fn GiveUpFunc) *Consumer {
	c.giveUp = fn
	return c
}

// Consume blocks until ctx is cancelled. A message is committed only after
// its handler succeeds or gives up. A failing handler is retried on the same
// message up to maxAttempts times (forever when maxAttempts <= 0), then the
// give-up hook runs and the message is committed. Undecodable messages are
// committed and dropped.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			logger.Log.WithError(err).Error("Failed to fetch message")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		var event models.Event
		if err := json.Unmarshal(message.Value, &event); err != nil {
			logger.Log.WithError(err).WithField("offset", message.Offset).Error("Failed to unmarshal event")
			if err := c.reader.CommitMessages(ctx, message); err != nil {
				logger.Log.WithError(err).Error("Failed to commit message")
			}
			continue
		}

		if err := c.handle(ctx, handler, event); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, message); err != nil {
			logger.Log.WithError(err).Error("Failed to commit message")
		}
	}
}

const maxRetryBackoff = 30 * time.Second

func (c *Consumer) handle(ctx context.Context, handler EventHandler, event models.Event) error {
	backoff := c.backoff
	if backoff <= 0 {
		backoff = time.Second
	}
	for attempt := 1; ; attempt++ {
		err := handler(ctx, event)
		if err == nil {
			return nil
		}
		log := logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Type,
			"attempt":    attempt,
		})
		if c.maxAttempts > 0 && attempt >= c.maxAttempts {
			log.Error("Giving up on event")
			if c.giveUp != nil {
				c.giveUp(ctx, event, attempt, err)
			}
			return nil
		}
		log.Error("Failed to process event")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < maxRetryBackoff {
			backoff *= 2
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
