package kafka

import (
	"context"
	"errors"
	"io"
	"iter"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"market-etl/internal/model"
)

// MessageReader is the part of *kafka.Reader used for consuming.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Source turns a topic into a lazy record sequence.
type Source struct {
	Reader MessageReader
	Log    logrus.FieldLogger
	// OnInvalid receives messages whose value is not a JSON object. They are
	// committed and never reach the stage.
	OnInvalid func(msg kafka.Message, err error)
	// Backoff is the pause after a failed fetch. Zero means one second.
	Backoff time.Duration
}

// Records yields one decoded object per message until ctx is done or the
// reader is closed. A message is committed only after the consumer asks for
// the next record, so a record that was being handled when the process died
// is delivered again.
func (s *Source) Records(ctx context.Context) iter.Seq[model.Raw] {
	log := s.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	backoff := s.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}
	return func(yield func(model.Raw) bool) {
		for {
			msg, err := s.Reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					return
				}
				log.WithField("error", err.Error()).Warn("fetch message failed")
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				continue
			}

			rec, err := model.DecodeRaw(msg.Value)
			if err != nil {
				log.WithFields(logrus.Fields{
					"topic":     msg.Topic,
					"partition": msg.Partition,
					"offset":    msg.Offset,
					"error":     err.Error(),
				}).Warn("undecodable message skipped")
				if s.OnInvalid != nil {
					s.OnInvalid(msg, err)
				}
				s.commit(ctx, log, msg)
				continue
			}
			if !yield(rec) {
				return
			}
			s.commit(ctx, log, msg)
		}
	}
}

func (s *Source) commit(ctx context.Context, log logrus.FieldLogger, msg kafka.Message) {
	if err := s.Reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
		log.WithFields(logrus.Fields{"offset": msg.Offset, "error": err.Error()}).Warn("commit failed")
	}
}
