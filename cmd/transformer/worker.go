package main

import (
	"context"
	"iter"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	ikafka "market-etl/internal/kafka"
	"market-etl/internal/metrics"
	"market-etl/internal/model"
	"market-etl/internal/pipeline"
)

// consumer is a raw topic reader the worker can discard and reopen.
type consumer interface {
	ikafka.MessageReader
	Close() error
}

type statser interface {
	Stats() kafka.ReaderStats
}

// worker runs one domain's pipeline over its raw topic. kafka-go keeps the
// fetch position in memory, so after a sink failure the reader is closed and
// reopened to resume from the last committed offset.
//
// The topic never ends, so it is cut into windows of at most windowSize
// records or windowSpan of wall time. Each window runs on a fresh stage, which
// bounds the dedup set and lets a later version of a record through.
type worker[T any] struct {
	domain     string
	topic      string
	open       func() consumer
	stage      func() pipeline.Stage[T]
	sink       pipeline.Sink[T]
	dead       pipeline.Sink[model.ErrorRecord]
	mapFn      func(T) T
	metrics    *metrics.Registry
	log        logrus.FieldLogger
	backoff    time.Duration
	lagTick    time.Duration
	windowSize int
	windowSpan time.Duration
	now        func() time.Time
}

func (w *worker[T]) run(ctx context.Context) error {
	log := w.log.WithFields(logrus.Fields{"domain": w.domain, "topic": w.topic})
	for {
		r := w.open()
		err := w.runOnce(ctx, r, log)
		if cerr := r.Close(); cerr != nil {
			log.WithField("error", cerr.Error()).Warn("close reader failed")
		}
		if ctx.Err() != nil || err == nil {
			return nil
		}
		log.WithField("error", err.Error()).Error("pipeline run failed, reopening reader")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.backoff):
		}
	}
}

func (w *worker[T]) runOnce(ctx context.Context, r consumer, log logrus.FieldLogger) error {
	stopLag := w.watchLag(ctx, r)
	defer stopLag()

	src := &ikafka.Source{
		Reader: r,
		Log:    log,
		OnInvalid: func(kafka.Message, error) {
			w.metrics.SkippedTotal.WithLabelValues(w.domain, "undecodable").Inc()
		},
	}
	next, stop := iter.Pull(w.counted(src.Records(ctx)))
	defer stop()

	win := &window{next: next, size: w.windowSize, span: w.windowSpan, now: w.now}
	for !win.done {
		runner := &pipeline.Runner[T]{
			Domain:      w.domain,
			Stage:       w.stage(),
			Sink:        w.sink,
			DeadLetters: w.dead,
			Map:         w.mapFn,
			Log:         log,
		}
		res, err := runner.Run(ctx, win.records())
		if res.Consumed > 0 {
			w.metrics.RunSeconds.WithLabelValues(w.domain).Observe(res.Duration)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// window hands out consecutive slices of one pulled sequence. A record that
// arrives after the span has elapsed opens the next window instead.
type window struct {
	next    func() (model.Raw, bool)
	size    int
	span    time.Duration
	now     func() time.Time
	pending model.Raw
	held    bool
	done    bool
}

func (w *window) records() iter.Seq[model.Raw] {
	return func(yield func(model.Raw) bool) {
		var opened time.Time
		for n := 0; w.size <= 0 || n < w.size; n++ {
			rec, ok := w.pending, w.held
			w.pending, w.held = nil, false
			if !ok {
				if rec, ok = w.next(); !ok {
					w.done = true
					return
				}
			}
			if n == 0 {
				opened = w.clock()
			} else if w.span > 0 && w.clock().Sub(opened) >= w.span {
				w.pending, w.held = rec, true
				return
			}
			if !yield(rec) {
				return
			}
		}
	}
}

func (w *window) clock() time.Time {
	if w.now == nil {
		return time.Now()
	}
	return w.now()
}

func (w *worker[T]) counted(seq iter.Seq[model.Raw]) iter.Seq[model.Raw] {
	consumed := w.metrics.ConsumedTotal.WithLabelValues(w.domain)
	return func(yield func(model.Raw) bool) {
		for rec := range seq {
			consumed.Inc()
			if !yield(rec) {
				return
			}
		}
	}
}

// watchLag exports the reader's lag until the returned func is called.
func (w *worker[T]) watchLag(ctx context.Context, r consumer) func() {
	s, ok := r.(statser)
	if !ok || w.lagTick <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	gauge := w.metrics.ConsumerLag.WithLabelValues(w.topic)
	go func() {
		t := time.NewTicker(w.lagTick)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-t.C:
				gauge.Set(float64(s.Stats().Lag))
			}
		}
	}()
	return func() { close(done) }
}

// published counts what reaches topic through sink.
func published[T any](sink pipeline.Sink[T], topic string, m *metrics.Registry) pipeline.Sink[T] {
	ok := m.PublishedTotal.WithLabelValues(topic)
	failed := m.PublishErrors.WithLabelValues(topic)
	return pipeline.SinkFunc[T](func(ctx context.Context, records ...T) error {
		if err := sink.Write(ctx, records...); err != nil {
			failed.Inc()
			return err
		}
		ok.Add(float64(len(records)))
		return nil
	})
}
