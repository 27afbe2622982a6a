// Package loader moves records from a kafka topic into a warehouse table in batches.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	ikafka "market-etl/internal/kafka"
	"market-etl/internal/metrics"
	"market-etl/pkg/batcher"
)

// ErrInsertFailed wraps the last insert error once retries are exhausted.
// The loader stops so uncommitted offsets are redelivered on restart.
var ErrInsertFailed = errors.New("loader: insert failed")

// Loader consumes one topic into one table. Offsets are committed only after
// the batch holding them has been inserted.
type Loader[T any] struct {
	Table     string
	Reader    ikafka.MessageReader
	Insert    func(ctx context.Context, rows []T) error
	BatchSize int
	Interval  time.Duration
	Retry     Retry
	Log       logrus.FieldLogger
	Metrics   *metrics.Registry

	mu     sync.Mutex
	failed error
}

type pending[T any] struct {
	msg   kafka.Message
	row   T
	valid bool
}

// Run loads until ctx is cancelled, the reader is closed or an insert
// exhausts its retries. Buffered rows are flushed before returning.
func (l *Loader[T]) Run(ctx context.Context) error {
	log := l.logger()
	b := batcher.New[pending[T]](l.BatchSize, l.Interval, l.flush,
		batcher.WithErrorHandler[pending[T]](l.setFailed))

	var runErr error
	for {
		if err := l.failure(); err != nil {
			runErr = err
			break
		}
		msg, err := l.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				break
			}
			log.WithField("error", err.Error()).Warn("fetch message failed")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		item := pending[T]{msg: msg}
		if err := json.Unmarshal(msg.Value, &item.row); err != nil {
			log.WithFields(logrus.Fields{"offset": msg.Offset, "error": err.Error()}).Warn("undecodable row skipped")
		} else {
			item.valid = true
		}
		if err := b.Add(ctx, item); err != nil {
			l.setFailed(err)
		}
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := b.Close(closeCtx); err != nil && runErr == nil {
		runErr = err
	}
	log.WithFields(logrus.Fields{"table": l.Table, "flushed": b.Flushed()}).Info("loader stopped")
	return runErr
}

func (l *Loader[T]) flush(ctx context.Context, batch []pending[T]) error {
	// Committing past a failed batch would skip it.
	if err := l.failure(); err != nil {
		return err
	}
	rows := make([]T, 0, len(batch))
	msgs := make([]kafka.Message, 0, len(batch))
	for _, p := range batch {
		if p.valid {
			rows = append(rows, p.row)
		}
		msgs = append(msgs, p.msg)
	}

	start := time.Now()
	err := l.Retry.Do(ctx, func(ctx context.Context) error { return l.Insert(ctx, rows) },
		func(attempt int, err error) {
			l.logger().WithFields(logrus.Fields{"table": l.Table, "attempt": attempt, "rows": len(rows), "error": err.Error()}).Warn("insert attempt failed")
		})
	if l.Metrics != nil {
		l.Metrics.ObserveInsert(l.Table, len(rows), time.Since(start), err)
	}
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", ErrInsertFailed, l.Table, err)
		l.setFailed(err)
		return err
	}
	if err := l.Reader.CommitMessages(ctx, msgs...); err != nil {
		err = fmt.Errorf("commit offsets: %w", err)
		l.setFailed(err)
		return err
	}
	return nil
}

func (l *Loader[T]) setFailed(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failed == nil {
		l.failed = err
	}
}

func (l *Loader[T]) failure() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failed
}

func (l *Loader[T]) logger() logrus.FieldLogger {
	if l.Log != nil {
		return l.Log
	}
	lg := logrus.New()
	lg.SetOutput(io.Discard)
	return lg
}
