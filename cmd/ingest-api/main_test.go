package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"market-etl/internal/httpx"
	"market-etl/internal/metrics"
	"market-etl/internal/model"
	"market-etl/internal/pipeline"
)

func newTestServer(t *testing.T, fail error) (*gin.Engine, *pipeline.Collector[model.Raw]) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	out := &pipeline.Collector[model.Raw]{}
	var ads pipeline.Sink[model.Raw] = out
	if fail != nil {
		ads = pipeline.SinkFunc[model.Raw](func(context.Context, ...model.Raw) error { return fail })
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	s := &server{
		publishers: map[string]pipeline.Sink[model.Raw]{model.DomainAds: ads},
		topics:     map[string]string{model.DomainAds: "etl.raw.ads"},
		metrics:    metrics.NewRegistry(),
		log:        log,
	}
	r := gin.New()
	s.routes(r, httpx.SourceAuth(map[string]httpx.Credential{"ads-extractor": {APIKey: "k"}}, "", 1<<20))
	return r, out
}

func ingest(r http.Handler, domain, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/ingest/"+domain, strings.NewReader(body))
	req.Header.Set(httpx.SourceHeader, "ads-extractor")
	req.Header.Set(httpx.APIKeyHeader, "k")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestIngestPublishesEachRecord(t *testing.T) {
	r, out := newTestServer(t, nil)
	rec := ingest(r, "ads", `[{"platform": "facebook_ads", "data": {"spend": "1.50"}}, {"advertiser_id": "a"}]`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2.0, resp["records"])
	require.Len(t, out.Records, 2)
	require.Equal(t, json.Number("1.50"), out.Records[0]["data"].(map[string]any)["spend"])
}

func TestIngestRejectsBadInput(t *testing.T) {
	r, out := newTestServer(t, nil)
	require.Equal(t, http.StatusNotFound, ingest(r, "orders", `{}`).Code, "no publisher for orders")
	require.Equal(t, http.StatusNotFound, ingest(r, "events", `{}`).Code)
	require.Equal(t, http.StatusBadRequest, ingest(r, "ads", `"text"`).Code)
	require.Equal(t, http.StatusBadRequest, ingest(r, "ads", `[]`).Code)
	require.Empty(t, out.Records)
}

func TestIngestRequiresAuth(t *testing.T) {
	r, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/ingest/ads", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIngestReportsQueueFailure(t *testing.T) {
	r, _ := newTestServer(t, errors.New("no leader"))
	require.Equal(t, http.StatusServiceUnavailable, ingest(r, "ads", `{"a": 1}`).Code)
}
