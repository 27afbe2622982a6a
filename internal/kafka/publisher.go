package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"market-etl/internal/model"
)

// MessageWriter is the part of *kafka.Writer used for publishing.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher encodes records as JSON messages keyed by Key.
type Publisher[T any] struct {
	w   MessageWriter
	key func(T) string
}

// NewPublisher builds a publisher. A nil key function writes unkeyed messages.
func NewPublisher[T any](w MessageWriter, key func(T) string) *Publisher[T] {
	return &Publisher[T]{w: w, key: key}
}

// Write publishes records in one call. It satisfies pipeline.Sink.
func (p *Publisher[T]) Write(ctx context.Context, records ...T) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(records))
	for _, rec := range records {
		value, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
		msg := kafka.Message{Value: value}
		if p.key != nil {
			msg.Key = []byte(p.key(rec))
		}
		msgs = append(msgs, msg)
	}
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	return nil
}

// Message keys per record type.
func AdKey(a model.UnifiedAd) string              { return a.RecordID }
func OrderKey(o model.UnifiedOrder) string        { return o.OrderID }
func OrderItemKey(i model.OrderItemRecord) string { return i.OrderID }
func ProductKey(p model.UnifiedProduct) string    { return p.ProductID }
func GA4Key(r model.GA4Record) string             { return r.RecordID() }
func RawKey(model.Raw) string                     { return uuid.NewString() }
func DeadLetterKey(e model.ErrorRecord) string    { return e.SourcePlatform + ":" + uuid.NewString() }
