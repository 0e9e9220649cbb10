// Package handler HTTP 处理器
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fran0220/stock-scanner/internal/logger"
	"github.com/fran0220/stock-scanner/internal/model"
	"github.com/fran0220/stock-scanner/internal/service"
)

// Handler 页面和 API 处理器
type Handler struct {
	svc       *service.Service
	signer    *sessionSigner
	log       *logrus.Entry
	keepAlive time.Duration
}

// New 创建处理器，secret 为空时随机生成签名密钥
func New(svc *service.Service, secret string) *Handler {
	return &Handler{
		svc:       svc,
		signer:    newSessionSigner(secret),
		log:       logger.For("handler"),
		keepAlive: 15 * time.Second,
	}
}

// Register 注册页面和 API 路由
func (h *Handler) Register(r *gin.Engine) {
	pages := r.Group("/", h.SessionMiddleware())
	{
		pages.GET("/", h.Index)
		for _, kind := range []model.AnalysisKind{model.KindStock, model.KindFutures} {
			g := pages.Group("/" + string(kind))
			g.GET("", h.Page(kind))
			g.POST("/analyze", h.SubmitAnalyze(kind))
			g.POST("/retry", h.SubmitRetry(kind))
			g.POST("/stop", h.SubmitStop(kind))
			g.POST("/batch", h.SubmitBatch(kind))
			g.POST("/batch/retry", h.SubmitBatchRetry(kind))
			g.POST("/notice/dismiss", h.SubmitDismiss(kind))
		}
	}

	api := r.Group("/api", h.SessionMiddleware())
	{
		// 单项分析
		api.POST("/stock/analyze", h.StartStockAnalysis)
		api.POST("/futures/analyze", h.StartFuturesAnalysis)

		// 会话状态
		api.GET("/sessions/:kind", h.GetSession)
		api.GET("/sessions/:kind/events", h.SessionEvents)
		api.DELETE("/sessions/:kind", h.StopSession)
		api.POST("/sessions/:kind/retry", h.RetrySession)
		api.DELETE("/sessions/:kind/notice", h.DismissNotice)

		// 批量分析与市场列表
		api.POST("/stock/batch-analyze", h.BatchAnalyze(model.KindStock))
		api.POST("/futures/batch-analyze", h.BatchAnalyze(model.KindFutures))
		api.GET("/stock/market-stocks", h.MarketCodes(model.KindStock))
		api.GET("/futures/market-futures", h.MarketCodes(model.KindFutures))
	}

	r.GET("/health", h.Health)
}

// statusFor 服务错误对应的 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrNothingToRetry):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnknownKind):
		return http.StatusNotFound
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

func kindParam(c *gin.Context) (model.AnalysisKind, bool) {
	kind := model.AnalysisKind(c.Param("kind"))
	if !kind.Valid() {
		fail(c, http.StatusNotFound, "未知的分析类型")
		return "", false
	}
	return kind, true
}
