// Package kafka carries reindex events between the host application and the
// indexer over segmentio/kafka-go. Values travel as JSON; the consumer hands
// each message to a MessageHandler and commits it once the handler is done.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/resilience"
)

// MessageHandler is a callback invoked for each Kafka message. A returned
// error makes the consumer retry the message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

const (
	defaultMaxAttempts  = 5
	defaultRetryBackoff = 200 * time.Millisecond
	maxRetryBackoff     = 10 * time.Second
)

// reader is the subset of *kafka.Reader the consume loop needs.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads messages from a Kafka topic and dispatches them to a
// MessageHandler.
type Consumer struct {
	reader  reader
	logger  *slog.Logger
	handler MessageHandler
	topic   string
	retry   resilience.RetryConfig
}

// NewConsumer creates a Consumer for the given topic and handler. Reindex
// topics are read from the earliest uncommitted offset so a fresh consumer
// group replays the whole backlog.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.FirstOffset,
	})
	return newConsumer(r, topic, handler).WithRetry(cfg.MaxAttempts, cfg.RetryBackoff)
}

func newConsumer(r reader, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader:  r,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
		handler: handler,
		topic:   topic,
		retry: resilience.RetryConfig{
			MaxAttempts:  defaultMaxAttempts,
			InitialDelay: defaultRetryBackoff,
			MaxDelay:     maxRetryBackoff,
		},
	}
}

// WithRetry sets how often a failing message is handed to the handler and
// the base delay between attempts, which doubles after each failure.
// Non-positive values keep the defaults.
func (c *Consumer) WithRetry(maxAttempts int, backoff time.Duration) *Consumer {
	if maxAttempts > 0 {
		c.retry.MaxAttempts = maxAttempts
	}
	if backoff > 0 {
		c.retry.InitialDelay = backoff
	}
	return c
}

// Start enters the consume loop, fetching and processing messages until ctx
// is cancelled. A message whose handler keeps failing is logged and
// committed after the last attempt so one poison event cannot stall its
// partition.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return c.reader.Close()
			}
			c.logger.Error("failed to fetch message", "error", err)
			continue
		}
		c.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"value_size", len(msg.Value),
		)
		if err := c.process(ctx, msg); err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return c.reader.Close()
			}
			c.logger.Error("giving up on message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"key", string(msg.Key),
				"attempts", c.retry.MaxAttempts,
				"error", err,
			)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	name := fmt.Sprintf("kafka %s offset %d", c.topic, msg.Offset)
	return resilience.Retry(ctx, name, c.retry, func(ctx context.Context) error {
		return c.handler(ctx, msg.Key, msg.Value)
	})
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
