package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"market-etl/internal/model"
	"market-etl/internal/pipeline"
	"market-etl/internal/skumap"
	"market-etl/internal/transform"
)

type dryRunResponse[T any] struct {
	Result      pipeline.Result         `json:"result"`
	Records     []T                     `json:"records"`
	DeadLetters []model.ErrorRecord     `json:"dead_letters"`
	Items       []model.OrderItemRecord `json:"items,omitempty"`
	Unmapped    []skumap.Unmapped       `json:"unmapped,omitempty"`
}

// handleTransform runs posted raw records through a fresh stage and returns
// what the pipeline would publish, without touching any topic.
func (s *server) handleTransform(c *gin.Context) {
	domain := c.Param("domain")
	if !slices.Contains(model.Domains(), domain) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown domain"})
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body failed"})
		return
	}
	records, err := model.DecodeRawBatch(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	switch domain {
	case model.DomainAds:
		resp, err := dryRun[model.UnifiedAd](ctx, domain, transform.NewAds(s.opts...), nil, records)
		s.reply(c, resp, err)
	case model.DomainOrders:
		resp, err := dryRun[model.UnifiedOrder](ctx, domain, transform.NewOrders(s.opts...), nil, records)
		if err == nil {
			now := model.NowUTC()
			for _, o := range resp.Records {
				resp.Items = append(resp.Items, transform.FlattenItems(o, now)...)
			}
		}
		s.reply(c, resp, err)
	case model.DomainProducts:
		resp, err := dryRun[model.UnifiedProduct](ctx, domain, transform.NewProducts(s.opts...), s.mapper.MapProduct, records)
		if err == nil {
			resp.Unmapped = s.mapper.UnmappedSKUs(resp.Records)
		}
		s.reply(c, resp, err)
	case model.DomainGA4:
		resp, err := dryRun[model.GA4Record](ctx, domain, transform.NewGA4(s.opts...), nil, records)
		s.reply(c, resp, err)
	}
}

func (s *server) reply(c *gin.Context, resp any, err error) {
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func dryRun[T any](ctx context.Context, domain string, stage pipeline.Stage[T], mapFn func(T) T, records []model.Raw) (*dryRunResponse[T], error) {
	out := &pipeline.Collector[T]{}
	dead := &pipeline.Collector[model.ErrorRecord]{}
	r := &pipeline.Runner[T]{Domain: domain, Stage: stage, Sink: out, DeadLetters: dead, Map: mapFn}
	res, err := r.Run(ctx, slices.Values(records))
	if err != nil {
		return nil, err
	}
	resp := &dryRunResponse[T]{Result: res, Records: out.Records, DeadLetters: dead.Records}
	if resp.Records == nil {
		resp.Records = []T{}
	}
	if resp.DeadLetters == nil {
		resp.DeadLetters = []model.ErrorRecord{}
	}
	return resp, nil
}
