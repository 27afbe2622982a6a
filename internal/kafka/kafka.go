// Package kafka wraps kafka-go for the raw, unified and dead-letter topics.
package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// NewWriter returns a synchronous, hash-balanced writer. Records with the same
// key land on the same partition.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Async:                  false,
		BatchTimeout:           50 * time.Millisecond,
		BatchSize:              100,
		AllowAutoTopicCreation: true,
	}
}

// NewReader constructs a consumer-group reader. Offsets are committed
// explicitly by Source once a record has been handled.
func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:         brokers,
		Topic:           topic,
		GroupID:         group,
		MinBytes:        1,
		MaxBytes:        10e6,
		StartOffset:     kafka.FirstOffset,
		CommitInterval:  0,
		ReadLagInterval: 5 * time.Second,
		MaxWait:         time.Second,
	})
}
