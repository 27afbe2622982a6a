package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"market-etl/internal/ch"
	"market-etl/internal/skumap"
	"market-etl/internal/transform"
)

// reportStore is what the report handlers read from.
type reportStore interface {
	Ping(ctx context.Context) error
	DailySpend(ctx context.Context, from, to time.Time, level string) ([]ch.SpendPoint, error)
	DailyRevenue(ctx context.Context, from, to time.Time, tz string) ([]ch.RevenuePoint, error)
	DeadLetterCounts(ctx context.Context, from, to time.Time) ([]ch.DeadLetterCount, error)
}

type server struct {
	reports     reportStore
	mapper      *skumap.Mapper
	mappingPath string
	timezone    string
	maxBody     int64
	opts        []transform.Option
	log         logrus.FieldLogger

	// saveMu orders mapping edits with their file writes so a slower save
	// never replaces a newer table.
	saveMu sync.Mutex
}

func (s *server) routes(r *gin.Engine, admin gin.HandlerFunc) {
	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.reports.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	v1.GET("/reports/ad-spend", s.handleAdSpend)
	v1.GET("/reports/revenue", s.handleRevenue)
	v1.GET("/reports/dead-letters", s.handleDeadLetters)

	v1.GET("/sku-mappings", s.handleListMappings)
	v1.GET("/sku-mappings/:platform/:sku", s.handleGetMapping)
	v1.PUT("/sku-mappings/:platform/:sku", admin, s.handlePutMapping)
	v1.DELETE("/sku-mappings/:platform/:sku", admin, s.handleDeleteMapping)
	v1.GET("/master-skus/:master", s.handleMasterSKU)
	v1.GET("/sku-stats", s.handleStats)

	v1.POST("/transform/:domain", s.handleTransform)
}
