package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"market-etl/internal/config"
	"market-etl/internal/httpx"
	ikafka "market-etl/internal/kafka"
	"market-etl/internal/logging"
	"market-etl/internal/metrics"
	"market-etl/internal/model"
	"market-etl/internal/pipeline"
	"market-etl/internal/skumap"
	"market-etl/internal/transform"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	log := logging.Service(logging.New(cfg.LogLevel, cfg.LogFormat), "transformer")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	mapper := skumap.New(skumap.WithLogger(log))
	if _, err := mapper.LoadFile(cfg.SKUMappingPath); errors.Is(err, os.ErrNotExist) {
		log.WithField("file", cfg.SKUMappingPath).Warn("SKU mapping file not found, products stay unmapped")
	} else if err != nil {
		log.WithField("error", err.Error()).Fatal("load SKU mappings")
	}

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()
	writerFor := func(topic string) ikafka.MessageWriter {
		w := ikafka.NewWriter(cfg.KafkaBrokers, topic)
		closers = append(closers, w)
		return w
	}
	openFor := func(domain string) func() consumer {
		return func() consumer {
			return ikafka.NewReader(cfg.KafkaBrokers, cfg.KafkaRawTopics[domain], cfg.ConsumerGroup+"-transformer")
		}
	}
	opts := []transform.Option{
		transform.WithObserver(reg),
		transform.WithRates(cfg.Rates),
		transform.WithTimezone(cfg.Timezone),
		transform.WithLogger(log),
	}

	dead := published[model.ErrorRecord](ikafka.NewPublisher(writerFor(cfg.KafkaDeadTopic), ikafka.DeadLetterKey), cfg.KafkaDeadTopic, reg)
	adsTopic := cfg.KafkaUnifiedTopics[model.DomainAds]
	ordersTopic := cfg.KafkaUnifiedTopics[model.DomainOrders]
	productsTopic := cfg.KafkaUnifiedTopics[model.DomainProducts]
	ga4Topic := cfg.KafkaUnifiedTopics[model.DomainGA4]

	ads := &worker[model.UnifiedAd]{
		domain: model.DomainAds,
		topic:  cfg.KafkaRawTopics[model.DomainAds],
		open:   openFor(model.DomainAds),
		stage:  func() pipeline.Stage[model.UnifiedAd] { return transform.NewAds(opts...) },
		sink:   published[model.UnifiedAd](ikafka.NewPublisher(writerFor(adsTopic), ikafka.AdKey), adsTopic, reg),
	}
	orders := &worker[model.UnifiedOrder]{
		domain: model.DomainOrders,
		topic:  cfg.KafkaRawTopics[model.DomainOrders],
		open:   openFor(model.DomainOrders),
		stage:  func() pipeline.Stage[model.UnifiedOrder] { return transform.NewOrders(opts...) },
		sink: withItems(
			published[model.UnifiedOrder](ikafka.NewPublisher(writerFor(ordersTopic), ikafka.OrderKey), ordersTopic, reg),
			published[model.OrderItemRecord](ikafka.NewPublisher(writerFor(cfg.KafkaItemsTopic), ikafka.OrderItemKey), cfg.KafkaItemsTopic, reg),
			model.NowUTC,
		),
	}
	products := &worker[model.UnifiedProduct]{
		domain: model.DomainProducts,
		topic:  cfg.KafkaRawTopics[model.DomainProducts],
		open:   openFor(model.DomainProducts),
		stage:  func() pipeline.Stage[model.UnifiedProduct] { return transform.NewProducts(opts...) },
		sink:   published[model.UnifiedProduct](ikafka.NewPublisher(writerFor(productsTopic), ikafka.ProductKey), productsTopic, reg),
		mapFn:  mapper.MapProduct,
	}
	ga4 := &worker[model.GA4Record]{
		domain: model.DomainGA4,
		topic:  cfg.KafkaRawTopics[model.DomainGA4],
		open:   openFor(model.DomainGA4),
		stage:  func() pipeline.Stage[model.GA4Record] { return transform.NewGA4(opts...) },
		sink:   published[model.GA4Record](ikafka.NewPublisher(writerFor(ga4Topic), ikafka.GA4Key), ga4Topic, reg),
	}

	ads.windowSize, ads.windowSpan = cfg.TransformWindow, cfg.TransformMaxSpan
	orders.windowSize, orders.windowSpan = cfg.TransformWindow, cfg.TransformMaxSpan
	products.windowSize, products.windowSpan = cfg.TransformWindow, cfg.TransformMaxSpan
	ga4.windowSize, ga4.windowSpan = cfg.TransformWindow, cfg.TransformMaxSpan

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return configure(ads, dead, reg, log).run(gctx) })
	g.Go(func() error { return configure(orders, dead, reg, log).run(gctx) })
	g.Go(func() error { return configure(products, dead, reg, log).run(gctx) })
	g.Go(func() error { return configure(ga4, dead, reg, log).run(gctx) })
	g.Go(func() error { return mapper.Watch(gctx, cfg.SKUMappingPath, cfg.SKUReload) })

	ops := &http.Server{Addr: cfg.TransformerMetricsAddr, Handler: httpx.OpsMux(reg.Handler(), nil), ReadHeaderTimeout: 10 * time.Second}
	g.Go(func() error { return httpx.Serve(gctx, ops, log) })

	log.WithField("metrics_addr", cfg.TransformerMetricsAddr).Info("transformer started")
	if err := g.Wait(); err != nil {
		log.WithField("error", err.Error()).Error("transformer stopped")
		os.Exit(1)
	}
	log.Info("transformer shutdown complete")
}

func configure[T any](w *worker[T], dead pipeline.Sink[model.ErrorRecord], reg *metrics.Registry, log logrus.FieldLogger) *worker[T] {
	w.dead = dead
	w.metrics = reg
	w.log = log
	w.backoff = 5 * time.Second
	w.lagTick = 15 * time.Second
	if w.windowSize == 0 {
		w.windowSize = 500
	}
	if w.windowSpan == 0 {
		w.windowSpan = 5 * time.Second
	}
	return w
}

// withItems publishes each order batch and then its flattened line items.
func withItems(orders pipeline.Sink[model.UnifiedOrder], items pipeline.Sink[model.OrderItemRecord], now func() time.Time) pipeline.Sink[model.UnifiedOrder] {
	return pipeline.SinkFunc[model.UnifiedOrder](func(ctx context.Context, records ...model.UnifiedOrder) error {
		if err := orders.Write(ctx, records...); err != nil {
			return err
		}
		stamp := now().UTC()
		var flat []model.OrderItemRecord
		for _, o := range records {
			flat = append(flat, transform.FlattenItems(o, stamp)...)
		}
		if len(flat) == 0 {
			return nil
		}
		return items.Write(ctx, flat...)
	})
}
