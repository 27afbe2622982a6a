package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"market-etl/internal/ch"
	"market-etl/internal/config"
	"market-etl/internal/httpx"
	ikafka "market-etl/internal/kafka"
	"market-etl/internal/loader"
	"market-etl/internal/logging"
	"market-etl/internal/metrics"
	"market-etl/internal/model"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	log := logging.Service(logging.New(cfg.LogLevel, cfg.LogFormat), "loader")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := ch.New(ctx, cfg.ClickHouseDSN)
	if err != nil {
		log.WithField("error", err.Error()).Fatal("connect clickhouse")
	}
	defer client.Close()
	if err := client.EnsureSchema(ctx); err != nil {
		log.WithField("error", err.Error()).Fatal("ensure schema")
	}

	var readers []io.Closer
	defer func() {
		for _, r := range readers {
			_ = r.Close()
		}
	}()
	open := func(topic string) ikafka.MessageReader {
		r := ikafka.NewReader(cfg.KafkaBrokers, topic, cfg.ConsumerGroup+"-loader")
		readers = append(readers, r)
		return r
	}

	reg := metrics.NewRegistry()
	g, gctx := errgroup.WithContext(ctx)
	for _, j := range jobs(cfg, client, open, reg, log) {
		log.WithFields(logrus.Fields{"table": j.table, "topic": j.topic}).Info("loader started")
		g.Go(func() error { return j.run(gctx) })
	}
	ops := &http.Server{Addr: cfg.LoaderMetricsAddr, Handler: httpx.OpsMux(reg.Handler(), client.Ping), ReadHeaderTimeout: 10 * time.Second}
	g.Go(func() error { return httpx.Serve(gctx, ops, log) })

	if err := g.Wait(); err != nil {
		log.WithField("error", err.Error()).Error("loader stopped")
		os.Exit(1)
	}
	log.Info("loader shutdown complete")
}

// store is the subset of the ClickHouse client the loaders write through.
type store interface {
	InsertAds(ctx context.Context, ads []model.UnifiedAd) error
	InsertOrders(ctx context.Context, orders []model.UnifiedOrder) error
	InsertOrderItems(ctx context.Context, items []model.OrderItemRecord) error
	InsertProducts(ctx context.Context, products []model.UnifiedProduct) error
	InsertGA4(ctx context.Context, recs []model.GA4Record) error
	InsertDeadLetters(ctx context.Context, recs []model.ErrorRecord) error
}

type job struct {
	table string
	topic string
	run   func(ctx context.Context) error
}

// jobs builds one loader per unified topic. GA4 rows fan out to their three
// report tables inside InsertGA4. A loader that stops on an insert
// failure ends the group, so the process restarts from committed offsets.
func jobs(cfg config.Config, st store, open func(topic string) ikafka.MessageReader, reg *metrics.Registry, log logrus.FieldLogger) []job {
	return []job{
		newJob(ch.TableAds, cfg.KafkaUnifiedTopics[model.DomainAds], st.InsertAds, cfg, open, reg, log),
		newJob(ch.TableOrders, cfg.KafkaUnifiedTopics[model.DomainOrders], st.InsertOrders, cfg, open, reg, log),
		newJob(ch.TableOrderItems, cfg.KafkaItemsTopic, st.InsertOrderItems, cfg, open, reg, log),
		newJob(ch.TableProducts, cfg.KafkaUnifiedTopics[model.DomainProducts], st.InsertProducts, cfg, open, reg, log),
		newJob(model.DomainGA4, cfg.KafkaUnifiedTopics[model.DomainGA4], st.InsertGA4, cfg, open, reg, log),
		newJob(ch.TableDeadLetters, cfg.KafkaDeadTopic, st.InsertDeadLetters, cfg, open, reg, log),
	}
}

func newJob[T any](table, topic string, insert func(context.Context, []T) error, cfg config.Config,
	open func(string) ikafka.MessageReader, reg *metrics.Registry, log logrus.FieldLogger) job {
	l := &loader.Loader[T]{
		Table:     table,
		Reader:    open(topic),
		Insert:    insert,
		BatchSize: cfg.BatchSize,
		Interval:  cfg.BatchInterval,
		Retry:     loader.DefaultRetry,
		Log:       log.WithFields(logrus.Fields{"table": table, "topic": topic}),
		Metrics:   reg,
	}
	return job{table: table, topic: topic, run: l.Run}
}
