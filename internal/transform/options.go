package transform

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"market-etl/internal/model"
	"market-etl/internal/normalize"
)

// Observer receives per-record outcomes. Implementations must be cheap; they run inline.
type Observer interface {
	Transformed(domain, platform string)
	Failed(domain, platform, kind string)
	Skipped(domain, reason string)
}

type nopObserver struct{}

func (nopObserver) Transformed(string, string) {}
func (nopObserver) Failed(string, string, string) {}
func (nopObserver) Skipped(string, string) {}

// Option configures transformers and dispatchers.
type Option func(*options)

type options struct {
	log      logrus.FieldLogger
	observer Observer
	currency *normalize.Currency
	timezone string
	now      func() time.Time
}

func newOptions(opts []Option) *options {
	o := &options{
		observer: nopObserver{},
		currency: normalize.NewCurrency(nil),
		timezone: normalize.DefaultTimezone,
		now:      model.NowUTC,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.log = l
	}
	return o
}

// WithLogger sets the logger used for skip and failure reports.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithObserver installs an outcome observer, for example prometheus counters.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithRates replaces the built-in exchange-rate table.
func WithRates(rates normalize.Rates) Option {
	return func(o *options) { o.currency = normalize.NewCurrency(rates) }
}

// WithTimezone sets the reporting timezone for every normalized datetime.
func WithTimezone(tz string) Option {
	return func(o *options) {
		if tz != "" {
			o.timezone = tz
		}
	}
}

// WithClock overrides the clock used for transformed_at and dead-letter stamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func (o *options) money(amount float64, source string) float64 {
	return o.currency.MustAmount(amount, source, normalize.DefaultCurrency)
}

func (o *options) optMoney(amount *float64, source string) *float64 {
	if amount == nil {
		return nil
	}
	return ptr(o.money(*amount, source))
}

// datetime normalizes v from UTC into the reporting zone.
func (o *options) datetime(v any) (*time.Time, error) {
	if !truthy(v) {
		return nil, nil
	}
	return normalize.Datetime(v, "UTC", o.timezone)
}

func (o *options) utc(v any) (*time.Time, error) {
	if !truthy(v) {
		return nil, nil
	}
	return normalize.Datetime(v, "UTC", "UTC")
}
