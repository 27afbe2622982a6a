package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"market-etl/internal/config"
	"market-etl/internal/httpx"
	ikafka "market-etl/internal/kafka"
	"market-etl/internal/logging"
	"market-etl/internal/metrics"
	"market-etl/internal/model"
	"market-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	log := logging.Service(logging.New(cfg.LogLevel, cfg.LogFormat), "ingest_api")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	publishers := make(map[string]pipeline.Sink[model.Raw], len(cfg.KafkaRawTopics))
	for domain, topic := range cfg.KafkaRawTopics {
		w := ikafka.NewWriter(cfg.KafkaBrokers, topic)
		defer w.Close()
		publishers[domain] = ikafka.NewPublisher(w, ikafka.RawKey)
	}

	creds := make(map[string]httpx.Credential, len(cfg.Sources))
	for id, c := range cfg.Sources {
		creds[id] = httpx.Credential{APIKey: c.APIKey, HMACSecret: c.HMACSecret}
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpx.NewHTTPMetrics(reg.Registerer(), "ingest_api").Handler())
	s := &server{publishers: publishers, topics: cfg.KafkaRawTopics, metrics: reg, log: log}
	s.routes(router, httpx.SourceAuth(creds, cfg.HMACSecret, cfg.MaxBodyBytes))
	router.GET("/metrics", gin.WrapH(reg.Handler()))

	log.WithField("addr", cfg.IngestAddr).Info("starting ingest API")
	srv := &http.Server{Addr: cfg.IngestAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	if err := httpx.Serve(ctx, srv, log); err != nil {
		log.WithField("error", err.Error()).Error("ingest server failed")
		os.Exit(1)
	}
	log.Info("ingest API shutdown complete")
}

type server struct {
	publishers map[string]pipeline.Sink[model.Raw]
	topics     map[string]string
	metrics    *metrics.Registry
	log        logrus.FieldLogger
}

func (s *server) routes(r *gin.Engine, auth gin.HandlerFunc) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/v1/ingest/:domain", auth, s.handleIngest)
}

// handleIngest accepts one extractor envelope or an array of them and
// publishes each to the domain's raw topic unchanged.
func (s *server) handleIngest(c *gin.Context) {
	domain := c.Param("domain")
	pub, ok := s.publishers[domain]
	if !ok || !slices.Contains(model.Domains(), domain) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown domain"})
		return
	}
	records, err := model.DecodeRawBatch(httpx.Body(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no records"})
		return
	}

	topic := s.topics[domain]
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	if err := pub.Write(ctx, records...); err != nil {
		s.log.WithFields(logrus.Fields{"domain": domain, "topic": topic, "error": err.Error()}).Error("publish raw records failed")
		s.metrics.PublishErrors.WithLabelValues(topic).Inc()
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue unavailable"})
		return
	}
	s.metrics.PublishedTotal.WithLabelValues(topic).Add(float64(len(records)))
	s.log.WithFields(logrus.Fields{
		"domain":  domain,
		"source":  c.GetString(httpx.ContextSource),
		"records": len(records),
	}).Debug("records queued")
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "records": len(records)})
}
