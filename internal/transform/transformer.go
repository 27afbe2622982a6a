// Package transform maps raw platform payloads into validated unified records.
//
// Every platform is a PlatformMapper; Transformer runs one mapper over a lazy
// record stream and dead-letters failures so a bad record never stops a batch.
// Dispatchers route mixed streams to the matching transformer.
package transform

import (
	"iter"
	"slices"

	"github.com/sirupsen/logrus"

	"market-etl/internal/model"
)

// Context is the per-record metadata recovered while unwrapping an envelope.
type Context struct {
	Level        string
	AccountID    string
	EnvelopeType string
	ExtractedAt  any
}

// PlatformMapper is implemented once per platform and domain.
// D is the intermediate draft that still holds raw dates and statuses.
type PlatformMapper[D, T any] interface {
	SourcePlatform() string
	Unwrap(record model.Raw) (model.Raw, Context)
	MapFields(payload model.Raw, ctx Context) (D, error)
	NormalizeValues(draft D) (T, error)
}

// keyer is implemented by mappers whose output is deduplicated within a call.
type keyer interface {
	Key(payload model.Raw) string
}

// Transformer runs one PlatformMapper. The dead-letter buffer is its only
// state between Transform calls.
type Transformer[T any] struct {
	domain   string
	platform string
	unwrap   func(model.Raw) (model.Raw, Context)
	stage    func(model.Raw, Context) (T, error)
	key      func(model.Raw) string
	dead     *DeadLetter
	log      logrus.FieldLogger
	observer Observer
}

// New builds a transformer for domain around mapper m.
func New[D, T any](domain string, m PlatformMapper[D, T], opts ...Option) *Transformer[T] {
	o := newOptions(opts)
	t := &Transformer[T]{
		domain:   domain,
		platform: m.SourcePlatform(),
		unwrap:   m.Unwrap,
		stage: func(payload model.Raw, ctx Context) (T, error) {
			draft, err := m.MapFields(payload, ctx)
			if err != nil {
				var zero T
				return zero, err
			}
			return m.NormalizeValues(draft)
		},
		dead:     NewDeadLetter(o.now),
		log:      o.log.WithFields(logrus.Fields{"domain": domain, "platform": m.SourcePlatform()}),
		observer: o.observer,
	}
	if k, ok := any(m).(keyer); ok {
		t.key = k.Key
	}
	return t
}

// Platform returns the source platform tag.
func (t *Transformer[T]) Platform() string { return t.platform }

// Transform lazily maps records. Each call yields a fresh sequence; stopping
// iteration early leaves only already-yielded records and buffered errors behind.
func (t *Transformer[T]) Transform(records iter.Seq[model.Raw]) iter.Seq[T] {
	return func(yield func(T) bool) {
		seen := map[string]struct{}{}
		for rec := range records {
			out, ok := t.process(rec, seen)
			if ok && !yield(out) {
				return
			}
		}
	}
}

// TransformSlice is Transform over an in-memory batch, collected eagerly.
func (t *Transformer[T]) TransformSlice(records []model.Raw) []T {
	return slices.Collect(t.Transform(slices.Values(records)))
}

// ErrorRecords returns a copy of the dead-letter buffer.
func (t *Transformer[T]) ErrorRecords() []model.ErrorRecord { return t.dead.Records() }

// ClearErrorRecords empties the dead-letter buffer.
func (t *Transformer[T]) ClearErrorRecords() { t.dead.Clear() }

func (t *Transformer[T]) process(rec model.Raw, seen map[string]struct{}) (T, bool) {
	var zero T
	payload, ctx, key, err := t.prepare(rec)
	if err != nil {
		t.fail(rec, err)
		return zero, false
	}
	if t.key != nil {
		if _, dup := seen[key]; dup {
			t.observer.Skipped(t.domain, "duplicate")
			return zero, false
		}
	}

	out, err := t.run(payload, ctx)
	if err != nil {
		t.fail(payload, err)
		return zero, false
	}
	if t.key != nil {
		seen[key] = struct{}{}
	}
	t.observer.Transformed(t.domain, t.platform)
	return out, true
}

// prepare unwraps rec and derives its dedup key under the same recover as run.
func (t *Transformer[T]) prepare(rec model.Raw) (payload model.Raw, ctx Context, key string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(t.platform, r)
		}
	}()
	payload, ctx = t.unwrap(rec)
	if t.key != nil {
		key = t.key(payload)
	}
	return payload, ctx, key, nil
}

func (t *Transformer[T]) run(payload model.Raw, ctx Context) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(t.platform, r)
		}
	}()
	out, err = t.stage(payload, ctx)
	if err != nil {
		if Kind(err) == KindUnexpected {
			if _, ok := err.(*UnexpectedError); !ok {
				err = &UnexpectedError{Platform: t.platform, Err: err}
			}
		}
		return out, err
	}
	return out, Validate(t.platform, out)
}

func (t *Transformer[T]) fail(payload model.Raw, err error) {
	kind := Kind(err)
	entry := t.log.WithFields(logrus.Fields{
		"error":      err.Error(),
		"error_type": kind,
		"record_id":  recordRef(payload),
	})
	if kind == KindUnexpected {
		entry.Error("unexpected transform error, record dead-lettered")
	} else {
		entry.Warn("transform error, record dead-lettered")
	}
	t.dead.Add(payload, err, t.platform)
	t.observer.Failed(t.domain, t.platform, kind)
}

func recordRef(payload model.Raw) string {
	return str(payload, "id", "order_id", "order_sn", "item_id", "product_id", "campaign_id")
}
