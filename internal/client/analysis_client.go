// Package client 分析服务的 HTTP 客户端
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/fran0220/stock-scanner/internal/cache"
	"github.com/fran0220/stock-scanner/internal/config"
	"github.com/fran0220/stock-scanner/internal/logger"
	"github.com/fran0220/stock-scanner/internal/metrics"
	"github.com/fran0220/stock-scanner/internal/model"
)

// 上游接口名，用作指标标签和缓存键前缀
const (
	EndpointStockAnalyze   = "stock_analyze"
	EndpointStockBatch     = "stock_batch_analyze"
	EndpointMarketStocks   = "market_stocks"
	EndpointFuturesAnalyze = "futures_analyze"
	EndpointFuturesBatch   = "futures_batch_analyze"
	EndpointMarketFutures  = "market_futures"
	EndpointHealth         = "health"
)

// APIError 分析服务返回的错误
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("分析服务返回错误(%d): %s", e.StatusCode, e.Message)
}

// Retryable 传输错误和 5xx 可以重试，4xx 不重试
func (e *APIError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// Client 分析服务客户端
type Client struct {
	baseURL   string
	http      *http.Client
	retry     int
	staleTime time.Duration
	cache     cache.Provider
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
	log       *logrus.Entry
}

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 指定 HTTP 客户端
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache 指定列表查询使用的缓存
func WithCache(p cache.Provider) Option {
	return func(c *Client) { c.cache = p }
}

// WithMetrics 指定指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLimiter 指定上游限流器
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// New 创建客户端
func New(cfg config.UpstreamConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      &http.Client{Timeout: cfg.Timeout},
		retry:     cfg.Retry,
		staleTime: cfg.StaleTime,
		log:       logger.For("client"),
	}
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AnalyzeStock 分析单只股票
func (c *Client) AnalyzeStock(ctx context.Context, req model.StockAnalyzeRequest) (*model.StockAnalysisResult, error) {
	var result model.StockAnalysisResult
	if err := c.doOnce(ctx, EndpointStockAnalyze, http.MethodPost, "/api/stock/analyze", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// BatchAnalyzeStocks 批量分析股票，服务端只返回不低于 min_score 的结果
func (c *Client) BatchAnalyzeStocks(ctx context.Context, req model.StockBatchRequest) ([]model.StockAnalysisResult, error) {
	var results []model.StockAnalysisResult
	if err := c.do(ctx, EndpointStockBatch, http.MethodPost, "/api/stock/batch-analyze", req, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// MarketStocks 获取市场股票代码列表
func (c *Client) MarketStocks(ctx context.Context, market string) ([]string, error) {
	return c.marketList(ctx, EndpointMarketStocks, "/api/stock/market-stocks", market)
}

// AnalyzeFutures 分析单个期货合约
func (c *Client) AnalyzeFutures(ctx context.Context, req model.FuturesAnalyzeRequest) (*model.FuturesAnalysisResult, error) {
	var result model.FuturesAnalysisResult
	if err := c.doOnce(ctx, EndpointFuturesAnalyze, http.MethodPost, "/api/futures/analyze", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// BatchAnalyzeFutures 批量分析期货
func (c *Client) BatchAnalyzeFutures(ctx context.Context, req model.FuturesBatchRequest) ([]model.FuturesAnalysisResult, error) {
	var results []model.FuturesAnalysisResult
	if err := c.do(ctx, EndpointFuturesBatch, http.MethodPost, "/api/futures/batch-analyze", req, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// MarketFutures 获取市场期货代码列表
func (c *Client) MarketFutures(ctx context.Context, market string) ([]string, error) {
	return c.marketList(ctx, EndpointMarketFutures, "/api/futures/market-futures", market)
}

// Health 检查分析服务状态，/health 不使用统一响应包装
func (c *Client) Health(ctx context.Context) (*model.HealthStatus, error) {
	var status model.HealthStatus
	err := c.withRetry(ctx, EndpointHealth, func() error {
		body, err := c.send(ctx, EndpointHealth, http.MethodGet, "/health", nil)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &status); err != nil {
			return fmt.Errorf("解析响应失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	status.CheckedAt = time.Now()
	return &status, nil
}

// marketList 列表查询在缓存有效期内直接使用缓存
func (c *Client) marketList(ctx context.Context, endpoint, path, market string) ([]string, error) {
	key := endpoint + ":" + market
	var codes []string
	if c.cache != nil {
		err := c.cache.Get(ctx, key, &codes)
		if err == nil {
			return codes, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			c.log.WithError(err).Warn("读取缓存失败")
		}
	}

	q := url.Values{}
	q.Set("market", market)
	if err := c.do(ctx, endpoint, http.MethodGet, path+"?"+q.Encode(), nil, &codes); err != nil {
		return nil, err
	}
	if codes == nil {
		codes = []string{}
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, codes, c.staleTime); err != nil {
			c.log.WithError(err).Warn("写入缓存失败")
		}
	}
	return codes, nil
}

// do 发送请求并解析统一响应包装，传输错误和 5xx 按配置重试
func (c *Client) do(ctx context.Context, endpoint, method, path string, in, out any) error {
	return c.withRetry(ctx, endpoint, func() error {
		return c.doOnce(ctx, endpoint, method, path, in, out)
	})
}

// doOnce 只发送一次，单项分析耗时长，失败后由用户决定是否重试
func (c *Client) doOnce(ctx context.Context, endpoint, method, path string, in, out any) error {
	body, err := c.send(ctx, endpoint, method, path, in)
	if err != nil {
		return err
	}

	var env model.APIResponse[json.RawMessage]
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	if !env.OK() {
		msg := env.Message
		if msg == "" {
			msg = "分析服务返回失败"
		}
		return &APIError{StatusCode: http.StatusOK, Message: msg}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("解析响应数据失败: %w", err)
	}
	return nil
}

func (c *Client) withRetry(ctx context.Context, endpoint string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= c.retry; attempt++ {
		if attempt > 0 {
			c.log.WithFields(logrus.Fields{
				"endpoint": endpoint,
				"attempt":  attempt,
			}).WithError(err).Warn("请求分析服务失败，重试")
		}
		err = fn()
		if err == nil || !retryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	var tErr *transportError
	return errors.As(err, &tErr)
}

// transportError 请求未得到响应
type transportError struct {
	err error
}

func (e *transportError) Error() string { return fmt.Sprintf("请求分析服务失败: %v", e.err) }
func (e *transportError) Unwrap() error { return e.err }

// send 发送一次请求，返回 2xx 响应体，非 2xx 转为 APIError
func (c *Client) send(ctx context.Context, endpoint, method, path string, in any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("序列化请求失败: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(endpoint, 0, time.Since(start))
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.metrics.ObserveUpstream(endpoint, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("读取响应失败: %w", err)}
	}

	c.log.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"status":   resp.StatusCode,
		"elapsed":  time.Since(start).String(),
	}).Debug("分析服务响应")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, body)}
	}
	return body, nil
}

// errorMessage 提取错误信息：FastAPI 的 detail 可能是字符串或校验错误列表
func errorMessage(status int, body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if len(payload.Detail) > 0 {
			var s string
			if json.Unmarshal(payload.Detail, &s) == nil {
				return s
			}
			var items []struct {
				Msg string `json:"msg"`
			}
			if json.Unmarshal(payload.Detail, &items) == nil && len(items) > 0 {
				msgs := make([]string, 0, len(items))
				for _, it := range items {
					msgs = append(msgs, it.Msg)
				}
				return strings.Join(msgs, "; ")
			}
			return string(payload.Detail)
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 {
		return text
	}
	return http.StatusText(status)
}
