// Package metrics 暴露 Prometheus 指标
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stock_scanner"

// Metrics 服务使用的全部指标
type Metrics struct {
	registry *prometheus.Registry

	analyses *prometheus.CounterVec
	upstream *prometheus.HistogramVec
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	sessions prometheus.Gauge
}

// New 创建指标并注册到独立的 registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_total",
			Help:      "Number of single analyses partitioned by kind and outcome.",
		}, []string{"kind", "outcome"}),
		upstream: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Time spent calling the analysis service partitioned by endpoint and status code.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"endpoint", "code"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests partitioned by status code, method and HTTP path.",
		}, []string{"code", "method", "path"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_milliseconds",
			Help:      "Time spent on the request partitioned by status code, method and HTTP path.",
			Buckets:   []float64{10, 50, 100, 300, 500, 1000, 5000},
		}, []string{"code", "method", "path"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Number of live analysis sessions.",
		}),
	}
	m.registry.MustRegister(
		m.analyses, m.upstream, m.requests, m.latency, m.sessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry 指标 registry，测试中用于读取
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAnalysis 记录一次单项分析的结束方式
func (m *Metrics) ObserveAnalysis(kind, outcome string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(kind, outcome).Inc()
}

// ObserveUpstream 记录一次上游调用，code 为 0 表示传输层失败
func (m *Metrics) ObserveUpstream(endpoint string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upstream.WithLabelValues(endpoint, strconv.Itoa(code)).Observe(elapsed.Seconds())
}

// SetSessions 更新存活会话数
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}
