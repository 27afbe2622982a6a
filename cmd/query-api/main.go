package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"market-etl/internal/ch"
	"market-etl/internal/config"
	"market-etl/internal/httpx"
	"market-etl/internal/logging"
	"market-etl/internal/metrics"
	"market-etl/internal/skumap"
	"market-etl/internal/transform"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	log := logging.Service(logging.New(cfg.LogLevel, cfg.LogFormat), "query_api")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := ch.New(ctx, cfg.ClickHouseDSN)
	if err != nil {
		log.WithField("error", err.Error()).Fatal("connect clickhouse")
	}
	defer client.Close()

	mapper := skumap.New(skumap.WithLogger(log))
	if _, err := mapper.LoadFile(cfg.SKUMappingPath); errors.Is(err, os.ErrNotExist) {
		log.WithField("file", cfg.SKUMappingPath).Warn("SKU mapping file not found, starting empty")
	} else if err != nil {
		log.WithField("error", err.Error()).Fatal("load SKU mappings")
	}

	reg := metrics.NewRegistry()
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpx.NewHTTPMetrics(reg.Registerer(), "query_api").Handler())
	router.GET("/metrics", gin.WrapH(reg.Handler()))

	s := &server{
		reports:     client,
		mapper:      mapper,
		mappingPath: cfg.SKUMappingPath,
		timezone:    cfg.Timezone,
		maxBody:     cfg.MaxBodyBytes,
		opts: []transform.Option{
			transform.WithRates(cfg.Rates),
			transform.WithTimezone(cfg.Timezone),
			transform.WithLogger(log),
		},
		log: log,
	}
	s.routes(router, httpx.AdminAuth(cfg.AdminAPIKey))
	if cfg.AdminAPIKey == "" {
		log.Warn("ADMIN_API_KEY is empty, SKU mapping writes are unauthenticated")
	}

	log.WithField("addr", cfg.QueryAddr).Info("starting query API")
	srv := &http.Server{Addr: cfg.QueryAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	if err := httpx.Serve(ctx, srv, log); err != nil {
		log.WithField("error", err.Error()).Error("query server failed")
		os.Exit(1)
	}
	log.Info("query API shutdown complete")
}
