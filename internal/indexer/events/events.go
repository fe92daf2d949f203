// Package events defines the reindex events the host application publishes
// at its save and destroy points, and a publisher that sends them to Kafka.
package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/ngram-search/internal/document"
	apperrors "github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/ngram-search/pkg/kafka"
)

// Op is what a reindex event asks the writer to do.
type Op string

const (
	// OpSave is the host save hook: reindex under immediate definitions.
	OpSave Op = "save"
	// OpIndex reindexes under every definition.
	OpIndex Op = "index"
	// OpRemove is the host destroy hook.
	OpRemove      Op = "remove"
	OpRemoveClass Op = "remove_class"
)

type Event struct {
	Op       Op                `json:"op"`
	Class    string            `json:"class"`
	Document document.Document `json:"document"`
}

// Key partitions events by document so one document's events stay ordered.
func (e Event) Key() string {
	if e.Op == OpRemoveClass {
		return e.Class
	}
	return e.Class + "/" + e.Document.ID
}

func (e Event) Validate() error {
	switch e.Op {
	case OpSave, OpIndex, OpRemove:
		if e.Document.ID == "" {
			return apperrors.Config(apperrors.ErrInvalidInput, "%s event without document id", e.Op)
		}
		if e.Class == "" && e.Document.Class == "" {
			return apperrors.Config(apperrors.ErrInvalidInput, "%s event without class", e.Op)
		}
	case OpRemoveClass:
		if e.Class == "" {
			return apperrors.Config(apperrors.ErrInvalidInput, "remove_class event without class")
		}
	default:
		return apperrors.Config(apperrors.ErrInvalidInput, "unknown event op %q", e.Op)
	}
	return nil
}

// Normalized fills the document class from the event class and vice versa.
func (e Event) Normalized() Event {
	if e.Document.Class == "" {
		e.Document.Class = e.Class
	}
	if e.Class == "" {
		e.Class = e.Document.Class
	}
	return e
}

// Producer is the part of the Kafka producer the publisher uses.
type Producer interface {
	Publish(ctx context.Context, event kafka.Event) error
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type Publisher struct {
	producer Producer
	logger   *slog.Logger
}

func NewPublisher(producer Producer) *Publisher {
	return &Publisher{
		producer: producer,
		logger:   slog.Default().With("component", "reindex-publisher"),
	}
}

func (p *Publisher) Publish(ctx context.Context, events ...Event) error {
	batch := make([]kafka.Event, 0, len(events))
	for _, e := range events {
		e = e.Normalized()
		if err := e.Validate(); err != nil {
			return err
		}
		batch = append(batch, kafka.Event{Key: e.Key(), Value: e})
	}
	switch len(batch) {
	case 0:
		return nil
	case 1:
		if err := p.producer.Publish(ctx, batch[0]); err != nil {
			return fmt.Errorf("publishing reindex event: %w", err)
		}
	default:
		if err := p.producer.PublishBatch(ctx, batch); err != nil {
			return fmt.Errorf("publishing %d reindex events: %w", len(batch), err)
		}
	}
	p.logger.Debug("reindex events published", "count", len(batch))
	return nil
}

func (p *Publisher) Save(ctx context.Context, doc document.Document) error {
	return p.Publish(ctx, Event{Op: OpSave, Class: doc.Class, Document: doc})
}

func (p *Publisher) Destroy(ctx context.Context, doc document.Document) error {
	return p.Publish(ctx, Event{Op: OpRemove, Class: doc.Class, Document: document.Document{ID: doc.ID, Class: doc.Class}})
}
