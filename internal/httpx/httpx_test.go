package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func TestHMACVerify(t *testing.T) {
	secret := "super-secret"
	body := []byte(`{"hello":"world"}`)

	sig := ComputeSignature(secret, body)
	require.True(t, VerifySignature(secret, body, sig))
	require.True(t, VerifySignature(secret, body, "sha256="+sig))
	require.False(t, VerifySignature(secret, body, "deadbeef"))
	require.False(t, VerifySignature(secret, body, "not-hex"))
}

func authRouter() *gin.Engine {
	r := gin.New()
	sources := map[string]Credential{
		"ads":  {APIKey: "k1", HMACSecret: "s1"},
		"shop": {APIKey: "k2"},
	}
	r.POST("/in", SourceAuth(sources, "", 64), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextSource)+":"+string(Body(c)))
	})
	return r
}

func post(r http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/in", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSourceAuth(t *testing.T) {
	r := authRouter()
	body := `{"a":1}`

	cases := []struct {
		name    string
		headers map[string]string
		status  int
	}{
		{"unknown source", map[string]string{SourceHeader: "nope", APIKeyHeader: "k1"}, http.StatusUnauthorized},
		{"bad key", map[string]string{SourceHeader: "shop", APIKeyHeader: "k1"}, http.StatusUnauthorized},
		{"unsigned when secret set", map[string]string{SourceHeader: "ads", APIKeyHeader: "k1"}, http.StatusUnauthorized},
		{"signed", map[string]string{SourceHeader: "ads", APIKeyHeader: "k1", SignatureHeader: ComputeSignature("s1", []byte(body))}, http.StatusOK},
		{"no secret configured", map[string]string{SourceHeader: "shop", APIKeyHeader: "k2"}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(r, body, tc.headers)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}

	rec := post(r, body, map[string]string{SourceHeader: "shop", APIKeyHeader: "k2"})
	require.Equal(t, `shop:{"a":1}`, rec.Body.String())
}

func TestSourceAuthLimitsBody(t *testing.T) {
	rec := post(authRouter(), strings.Repeat("x", 65), map[string]string{SourceHeader: "shop", APIKeyHeader: "k2"})
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAdminAuth(t *testing.T) {
	r := gin.New()
	r.DELETE("/x", AdminAuth("root"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodDelete, "/x", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set("Authorization", "Bearer root")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHTTPMetricsUseRouteTemplate(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg, "test")
	r := gin.New()
	r.Use(m.Handler())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, id := range []string{"1", "2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
	}
	require.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/items/:id", "404")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Errors.WithLabelValues("GET", "/items/:id", "404")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))
}

func TestOpsMuxHealth(t *testing.T) {
	var down error
	mux := OpsMux(http.NotFoundHandler(), func(context.Context) error { return down })

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	down = errors.New("clickhouse unreachable")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "clickhouse unreachable")
}
