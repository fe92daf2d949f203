// Package consumer reads reindex events from Kafka and applies them to the
// index writer.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/indexer/events"
	apperrors "github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/metrics"
)

// IndexConsumer wraps a Kafka consumer to drive the index writer.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates an IndexConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler applying reindex events to w.
// Undecodable or invalid events and events for classes that are not indexed
// are logged and acknowledged; store failures are returned so the consumer
// retries them. m may be nil.
func HandleMessage(w *indexer.Writer, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[events.Event](value)
		if err != nil {
			logger.Error("failed to decode reindex event",
				"error", err,
				"key", string(key),
			)
			observe(m, "unknown", "invalid")
			return nil
		}
		event = event.Normalized()
		if err := event.Validate(); err != nil {
			logger.Error("invalid reindex event", "error", err, "key", string(key))
			observe(m, string(event.Op), "invalid")
			return nil
		}

		err = Apply(ctx, w, event)
		switch {
		case err == nil:
			observe(m, string(event.Op), "ok")
		case errors.Is(err, apperrors.ErrUnknownClass):
			logger.Warn("reindex event for unindexed class", "class", event.Class, "op", event.Op)
			observe(m, string(event.Op), "skipped")
			return nil
		default:
			observe(m, string(event.Op), "error")
			return err
		}

		logger.Debug("reindex event applied",
			"op", event.Op,
			"class", event.Class,
			"document_id", event.Document.ID,
		)
		return nil
	}
}

// Apply runs one event against w.
func Apply(ctx context.Context, w *indexer.Writer, event events.Event) error {
	switch event.Op {
	case events.OpSave:
		return w.OnSave(ctx, event.Document)
	case events.OpIndex:
		return w.IndexDocument(ctx, event.Document)
	case events.OpRemove:
		return w.RemoveDocument(ctx, event.Class, event.Document.ID)
	case events.OpRemoveClass:
		_, err := w.RemoveClass(ctx, event.Class)
		return err
	default:
		return fmt.Errorf("%w: unknown event op %q", apperrors.ErrInvalidInput, event.Op)
	}
}

func observe(m *metrics.Metrics, op, status string) {
	if m == nil {
		return
	}
	m.ReindexEventsTotal.WithLabelValues(op, status).Inc()
}
