// Package pipeline drives a transform stage from a record source into sinks.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"market-etl/internal/model"
)

// Stage is the surface shared by transformers, dispatchers and the
// order-item flattener.
type Stage[T any] interface {
	Transform(records iter.Seq[model.Raw]) iter.Seq[T]
	ErrorRecords() []model.ErrorRecord
	ClearErrorRecords()
}

// Sink receives records produced by a run.
type Sink[T any] interface {
	Write(ctx context.Context, records ...T) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc[T any] func(ctx context.Context, records ...T) error

func (f SinkFunc[T]) Write(ctx context.Context, records ...T) error { return f(ctx, records...) }

// Discard is a sink that drops everything.
func Discard[T any]() Sink[T] {
	return SinkFunc[T](func(context.Context, ...T) error { return nil })
}

// Collector keeps every record in memory.
type Collector[T any] struct {
	Records []T
}

func (c *Collector[T]) Write(_ context.Context, records ...T) error {
	c.Records = append(c.Records, records...)
	return nil
}

// Result summarizes one run.
type Result struct {
	RunID        string         `json:"run_id"`
	Domain       string         `json:"domain"`
	Success      bool           `json:"success"`
	StartTime    time.Time      `json:"start_time"`
	EndTime      time.Time      `json:"end_time"`
	Duration     float64        `json:"duration_seconds"`
	Consumed     int            `json:"records_consumed"`
	Emitted      int            `json:"records_emitted"`
	DeadLettered int            `json:"records_dead_lettered"`
	ErrorsByKind map[string]int `json:"errors_by_kind,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// Runner wires a stage to its sinks. Map, when set, is applied to every
// output before it reaches Sink.
type Runner[T any] struct {
	Domain      string
	Stage       Stage[T]
	Sink        Sink[T]
	DeadLetters Sink[model.ErrorRecord]
	Map         func(T) T
	Log         logrus.FieldLogger
	Now         func() time.Time
}

// Run pulls src through the stage until it is exhausted, ctx is cancelled or
// a sink fails. Dead letters of a record are drained to DeadLetters as soon as
// the stage asks for the next one, before src sees that request. The returned
// error is the first sink or context error.
func (r *Runner[T]) Run(ctx context.Context, src iter.Seq[model.Raw]) (Result, error) {
	now := r.Now
	if now == nil {
		now = model.NowUTC
	}
	log := r.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	sink, dead := r.Sink, r.DeadLetters
	if sink == nil {
		sink = Discard[T]()
	}
	if dead == nil {
		dead = Discard[model.ErrorRecord]()
	}

	res := Result{
		RunID:        uuid.NewString(),
		Domain:       r.Domain,
		StartTime:    now().UTC(),
		ErrorsByKind: map[string]int{},
	}
	log = log.WithFields(logrus.Fields{"run_id": res.RunID, "domain": r.Domain})
	log.Info("pipeline run started")

	var runErr error
	drain := func() bool {
		recs := r.Stage.ErrorRecords()
		if len(recs) == 0 {
			return true
		}
		r.Stage.ClearErrorRecords()
		for _, rec := range recs {
			res.ErrorsByKind[rec.ErrorType]++
		}
		res.DeadLettered += len(recs)
		if err := dead.Write(ctx, recs...); err != nil {
			runErr = fmt.Errorf("write dead letters: %w", err)
			return false
		}
		return true
	}

	source := func(yield func(model.Raw) bool) {
		for rec := range src {
			if err := ctx.Err(); err != nil {
				runErr = err
				return
			}
			res.Consumed++
			if !yield(rec) {
				return
			}
			if !drain() {
				return
			}
		}
	}

	for out := range r.Stage.Transform(source) {
		if r.Map != nil {
			out = r.Map(out)
		}
		if err := sink.Write(ctx, out); err != nil {
			runErr = fmt.Errorf("write %s record: %w", r.Domain, err)
			break
		}
		res.Emitted++
	}
	if runErr == nil {
		drain()
	}

	res.EndTime = now().UTC()
	res.Duration = res.EndTime.Sub(res.StartTime).Seconds()
	res.Success = runErr == nil
	entry := log.WithFields(logrus.Fields{
		"consumed":      res.Consumed,
		"emitted":       res.Emitted,
		"dead_lettered": res.DeadLettered,
		"duration_sec":  res.Duration,
	})
	if runErr != nil {
		res.Error = runErr.Error()
		entry.WithField("error", runErr.Error()).Error("pipeline run failed")
		return res, runErr
	}
	entry.Info("pipeline run finished")
	return res, nil
}
