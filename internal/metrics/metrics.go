// Package metrics holds the prometheus collectors of the pipeline services.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns a private prometheus registry so every service and test gets
// its own collectors.
type Registry struct {
	reg *prometheus.Registry

	TransformedTotal *prometheus.CounterVec
	FailedTotal      *prometheus.CounterVec
	SkippedTotal     *prometheus.CounterVec
	ConsumedTotal    *prometheus.CounterVec
	PublishedTotal   *prometheus.CounterVec
	PublishErrors    *prometheus.CounterVec
	RunSeconds       *prometheus.HistogramVec
	ConsumerLag      *prometheus.GaugeVec

	InsertedRows   *prometheus.CounterVec
	InsertFailures *prometheus.CounterVec
	InsertSeconds  *prometheus.HistogramVec
}

// NewRegistry builds and registers every collector. Go runtime and process
// collectors are included so /metrics matches a default prometheus handler.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	m := &Registry{
		reg: r,
		TransformedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_records_transformed_total",
			Help: "Records that passed mapping, normalization and validation",
		}, []string{"domain", "platform"}),
		FailedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_records_failed_total",
			Help: "Records routed to the dead letter by error kind",
		}, []string{"domain", "platform", "kind"}),
		SkippedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_records_skipped_total",
			Help: "Records dropped without a dead letter",
		}, []string{"domain", "reason"}),
		ConsumedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_records_consumed_total",
			Help: "Raw records read from a source",
		}, []string{"domain"}),
		PublishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_records_published_total",
			Help: "Records written to an output topic",
		}, []string{"topic"}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_publish_errors_total",
			Help: "Failed writes to an output topic",
		}, []string{"topic"}),
		RunSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "etl_run_duration_seconds",
			Help:    "Wall time of one pipeline run",
			Buckets: prometheus.DefBuckets,
		}, []string{"domain"}),
		ConsumerLag: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "etl_consumer_lag",
			Help: "Consumer lag reported by kafka-go",
		}, []string{"topic"}),
		InsertedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_clickhouse_inserted_rows_total",
			Help: "Rows committed to ClickHouse",
		}, []string{"table"}),
		InsertFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_clickhouse_insert_failures_total",
			Help: "Batch inserts that exhausted their retries",
		}, []string{"table"}),
		InsertSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "etl_clickhouse_insert_seconds",
			Help:    "Latency of one batch insert",
			Buckets: prometheus.DefBuckets,
		}, []string{"table"}),
	}
	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.TransformedTotal, m.FailedTotal, m.SkippedTotal,
		m.ConsumedTotal, m.PublishedTotal, m.PublishErrors, m.RunSeconds, m.ConsumerLag,
		m.InsertedRows, m.InsertFailures, m.InsertSeconds,
	)
	return m
}

// Registerer exposes the registry for collectors owned by other packages.
func (m *Registry) Registerer() prometheus.Registerer { return m.reg }

// Gatherer exposes the registry for tests.
func (m *Registry) Gatherer() prometheus.Gatherer { return m.reg }

// Handler serves the registry in the prometheus exposition format.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Transformed, Failed and Skipped make Registry a transform observer.
func (m *Registry) Transformed(domain, platform string) {
	m.TransformedTotal.WithLabelValues(domain, platform).Inc()
}

func (m *Registry) Failed(domain, platform, kind string) {
	m.FailedTotal.WithLabelValues(domain, platform, kind).Inc()
}

func (m *Registry) Skipped(domain, reason string) {
	m.SkippedTotal.WithLabelValues(domain, reason).Inc()
}

// ObserveInsert records the outcome of one batch insert into table.
func (m *Registry) ObserveInsert(table string, rows int, took time.Duration, err error) {
	m.InsertSeconds.WithLabelValues(table).Observe(took.Seconds())
	if err != nil {
		m.InsertFailures.WithLabelValues(table).Inc()
		return
	}
	m.InsertedRows.WithLabelValues(table).Add(float64(rows))
}
