package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAnalysis(t *testing.T) {
	m := New()
	m.ObserveAnalysis("stock", "completed")
	m.ObserveAnalysis("stock", "completed")
	m.ObserveAnalysis("futures", "failed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.analyses.WithLabelValues("stock", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analyses.WithLabelValues("futures", "failed")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAnalysis("stock", "completed")
		m.ObserveUpstream("health", 200, time.Second)
		m.SetSessions(3)
	})
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	m.ObserveUpstream("stock_analyze", 200, 1500*time.Millisecond)
	m.SetSessions(2)

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ping/:id", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping/1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()

	assert.True(t, strings.Contains(body, `stock_scanner_http_requests_total{code="200",method="GET",path="/ping/:id"} 1`))
	assert.Contains(t, body, `stock_scanner_upstream_request_duration_seconds_count{code="200",endpoint="stock_analyze"} 1`)
	assert.Contains(t, body, "stock_scanner_sessions 2")
}
