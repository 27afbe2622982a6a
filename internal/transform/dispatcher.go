package transform

import (
	"iter"
	"slices"

	"github.com/sirupsen/logrus"

	"market-etl/internal/model"
)

// PlatformUnknown is returned by detectors when no signature matches.
const PlatformUnknown = "unknown"

type delegate[T any] interface {
	Platform() string
	ErrorRecords() []model.ErrorRecord
	ClearErrorRecords()
	process(rec model.Raw, seen map[string]struct{}) (T, bool)
}

// Dispatcher routes each record of a mixed stream to its delegate, keyed by
// platform or, for single-platform domains, by report type. Delegates are
// owned exclusively; two dispatchers never share buffers.
type Dispatcher[T any] struct {
	domain    string
	tag       string
	detect    func(model.Raw) string
	tagged    bool
	rewrap    string
	order     []string
	delegates map[string]delegate[T]
	dead      *DeadLetter
	log       logrus.FieldLogger
	observer  Observer
}

func newDispatcher[T any](domain, rewrap string, detect func(model.Raw) string, o *options, delegates ...*Transformer[T]) *Dispatcher[T] {
	d := newRouter[T](domain, detect, o)
	d.tagged = true
	d.rewrap = rewrap
	for _, t := range delegates {
		d.register(t.Platform(), t)
	}
	return d
}

// newRouter builds a dispatcher whose keys come from detect alone.
func newRouter[T any](domain string, detect func(model.Raw) string, o *options) *Dispatcher[T] {
	return &Dispatcher[T]{
		domain:    domain,
		tag:       "unified_" + domain,
		detect:    detect,
		delegates: map[string]delegate[T]{},
		dead:      NewDeadLetter(o.now),
		log:       o.log.WithField("domain", domain),
		observer:  o.observer,
	}
}

func (d *Dispatcher[T]) register(key string, t *Transformer[T]) {
	d.order = append(d.order, key)
	d.delegates[key] = t
}

// Platforms lists the delegate keys in their fixed order.
func (d *Dispatcher[T]) Platforms() []string { return slices.Clone(d.order) }

// Detect returns the routing key: the explicit platform tag when the
// dispatcher honours one, else the structurally detected key.
func (d *Dispatcher[T]) Detect(rec model.Raw) string {
	if d.tagged {
		if p := str(rec, "platform"); p != "" {
			return p
		}
	}
	return d.detect(rec)
}

// Transform lazily routes and maps records. Unknown platforms are logged and skipped.
func (d *Dispatcher[T]) Transform(records iter.Seq[model.Raw]) iter.Seq[T] {
	return func(yield func(T) bool) {
		seen := map[string]struct{}{}
		for rec := range records {
			out, ok := d.route(rec, seen)
			if ok && !yield(out) {
				return
			}
		}
	}
}

// TransformSlice is Transform over an in-memory batch, collected eagerly.
func (d *Dispatcher[T]) TransformSlice(records []model.Raw) []T {
	return slices.Collect(d.Transform(slices.Values(records)))
}

// ErrorRecords returns the dispatcher's own entries followed by each delegate's.
func (d *Dispatcher[T]) ErrorRecords() []model.ErrorRecord {
	out := d.dead.Records()
	for _, p := range d.order {
		out = append(out, d.delegates[p].ErrorRecords()...)
	}
	return out
}

// ClearErrorRecords empties the dispatcher's buffer and every delegate's.
func (d *Dispatcher[T]) ClearErrorRecords() {
	d.dead.Clear()
	for _, p := range d.order {
		d.delegates[p].ClearErrorRecords()
	}
}

func (d *Dispatcher[T]) route(rec model.Raw, seen map[string]struct{}) (out T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			err := recovered(d.tag, r)
			d.log.WithField("error", err.Error()).Error("routing failed, record dead-lettered")
			d.dead.Add(rec, err, d.tag)
			d.observer.Failed(d.domain, d.tag, KindUnexpected)
			ok = false
		}
	}()

	platform := d.Detect(rec)
	target, known := d.delegates[platform]
	if !known {
		d.log.WithField("platform", platform).Warn("unknown platform, skipping record")
		d.observer.Skipped(d.domain, "unknown_platform")
		return out, false
	}

	input := rec
	if data, wrapped := rec["data"]; wrapped && d.rewrap != "" {
		input = model.Raw{"type": d.rewrap, "data": data}
	}
	return target.process(input, seen)
}
