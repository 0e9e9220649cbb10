// Package mockservice 模拟分析服务，供本地联调和测试使用
package mockservice

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Version 模拟服务版本
const Version = "2.0.0-mock"

var marketCodes = map[string][]string{
	"stock:A":        {"600519", "000858", "601318", "000001", "300750"},
	"stock:US":       {"AAPL", "MSFT", "NVDA", "TSLA"},
	"stock:HK":       {"00700", "09988", "03690"},
	"futures:CN":     {"CU2409", "RB2410", "AU2412", "M2409"},
	"futures:GLOBAL": {"CL", "GC", "SI"},
}

// Server 模拟分析服务
type Server struct {
	mu       sync.Mutex
	delay    time.Duration
	failures map[string]string
	calls    map[string]int
	now      func() time.Time
	engine   *gin.Engine
}

// Option 选项
type Option func(*Server)

// WithDelay 单项分析的响应延迟
func WithDelay(d time.Duration) Option {
	return func(s *Server) { s.delay = d }
}

// New 创建模拟服务
func New(opts ...Option) *Server {
	s := &Server{
		failures: make(map[string]string),
		calls:    make(map[string]int),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.count())
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "股票与期货分析系统API", "version": Version})
	})
	r.POST("/api/stock/analyze", s.analyzeStock)
	r.POST("/api/stock/batch-analyze", s.batchStocks)
	r.GET("/api/stock/market-stocks", s.marketList("stock", "A"))
	r.POST("/api/futures/analyze", s.analyzeFutures)
	r.POST("/api/futures/batch-analyze", s.batchFutures)
	r.GET("/api/futures/market-futures", s.marketList("futures", "CN"))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": s.now().Format(time.RFC3339),
			"version":   Version,
		})
	})
	s.engine = r
	return s
}

// Handler HTTP 处理器
func (s *Server) Handler() http.Handler {
	return s.engine
}

// FailWith 让指定代码的单项分析返回 500 和给定信息
func (s *Server) FailWith(code, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[strings.ToUpper(code)] = detail
}

// SetDelay 修改响应延迟
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Calls 某个路径被调用的次数
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

func (s *Server) count() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		s.calls[c.Request.URL.Path]++
		s.mu.Unlock()
		c.Next()
	}
}

type analyzeRequest struct {
	StockCode    string `json:"stockCode"`
	StockCodeAlt string `json:"stock_code"`
	Symbol       string `json:"symbol"`
	FuturesCode  string `json:"futures_code"`
	Market       string `json:"market"`
}

type batchRequest struct {
	StockCodes   []string `json:"stockCodes"`
	FuturesCodes []string `json:"futuresCodes"`
	Market       string   `json:"market"`
	MinScore     *float64 `json:"min_score"`
}

func (r batchRequest) minScore() float64 {
	if r.MinScore == nil {
		return 60
	}
	return *r.MinScore
}

func (s *Server) analyzeStock(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	code := firstNonEmpty(req.StockCode, req.StockCodeAlt)
	if !s.prepare(c, code, "股票代码不能为空") {
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": StockResult(code, orDefault(req.Market, "A"), s.now())})
}

func (s *Server) analyzeFutures(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	code := firstNonEmpty(req.Symbol, req.FuturesCode)
	if !s.prepare(c, code, "期货代码不能为空") {
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": FuturesResult(code, orDefault(req.Market, "CN"), s.now())})
}

// prepare 处理延迟、空代码和预设失败，返回 false 表示已写入错误响应
func (s *Server) prepare(c *gin.Context, code, emptyMsg string) bool {
	s.mu.Lock()
	delay := s.delay
	detail, fail := s.failures[strings.ToUpper(code)]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-c.Request.Context().Done():
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return false
		}
	}
	if code == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": emptyMsg})
		return false
	}
	if fail {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": detail})
		return false
	}
	return true
}

func (s *Server) batchStocks(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	market := orDefault(req.Market, "A")
	now := s.now()
	results := []any{}
	for _, code := range req.StockCodes {
		if s.failed(code) {
			continue
		}
		r := StockResult(code, market, now)
		if r.Score >= req.minScore() {
			results = append(results, r)
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": results})
}

func (s *Server) batchFutures(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	market := orDefault(req.Market, "CN")
	now := s.now()
	results := []any{}
	for _, code := range req.FuturesCodes {
		if s.failed(code) {
			continue
		}
		r := FuturesResult(code, market, now)
		if r.Score >= req.minScore() {
			results = append(results, r)
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": results})
}

func (s *Server) failed(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.failures[strings.ToUpper(code)]
	return ok
}

func (s *Server) marketList(kind, def string) gin.HandlerFunc {
	return func(c *gin.Context) {
		market := c.DefaultQuery("market", def)
		codes, ok := marketCodes[kind+":"+market]
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "不支持的市场类型: " + market})
			return
		}
		out := append([]string(nil), codes...)
		sort.Strings(out)
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": out})
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
