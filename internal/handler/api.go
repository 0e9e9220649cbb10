package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fran0220/stock-scanner/internal/model"
	"github.com/fran0220/stock-scanner/internal/service"
)

// StartStockAnalysis 开始单只股票分析
func (h *Handler) StartStockAnalysis(c *gin.Context) {
	var req model.StockAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "请求参数错误")
		return
	}
	h.respondStart(c, model.KindStock, req.StockCode, req.Market)
}

// StartFuturesAnalysis 开始单个期货合约分析
func (h *Handler) StartFuturesAnalysis(c *gin.Context) {
	var req model.FuturesAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "请求参数错误")
		return
	}
	h.respondStart(c, model.KindFutures, req.Symbol, req.Market)
}

func (h *Handler) respondStart(c *gin.Context, kind model.AnalysisKind, code, market string) {
	view, err := h.svc.Analyze(sessionID(c), kind, code, market)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"success": false, "message": noticeText(view, err), "data": view})
		return
	}
	c.JSON(http.StatusAccepted, view)
}

// GetSession 会话当前状态
func (h *Handler) GetSession(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	view, err := h.svc.Snapshot(sessionID(c), kind)
	if err != nil {
		fail(c, statusFor(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, view)
}

// StopSession 取消进行中的分析
func (h *Handler) StopSession(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	view, err := h.svc.Stop(sessionID(c), kind)
	if err != nil {
		fail(c, statusFor(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, view)
}

// RetrySession 重试上一次单项分析
func (h *Handler) RetrySession(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	view, err := h.svc.Retry(sessionID(c), kind)
	if err != nil {
		fail(c, statusFor(err), noticeText(view, err))
		return
	}
	c.JSON(http.StatusAccepted, view)
}

// DismissNotice 关闭提示
func (h *Handler) DismissNotice(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	view, err := h.svc.DismissNotice(sessionID(c), kind)
	if err != nil {
		fail(c, statusFor(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, view)
}

// batchRequest 批量分析请求，兼容股票和期货两种字段名
type batchRequest struct {
	StockCodes   []string `json:"stockCodes"`
	FuturesCodes []string `json:"futuresCodes"`
	Market       string   `json:"market"`
	MinScore     *int     `json:"min_score" binding:"omitempty,min=0,max=100"`
}

// BatchAnalyze 批量分析
func (h *Handler) BatchAnalyze(kind model.AnalysisKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req batchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "请求参数错误")
			return
		}
		codes := req.StockCodes
		if kind == model.KindFutures {
			codes = req.FuturesCodes
		}
		minScore := model.DefaultMinScore
		if req.MinScore != nil {
			minScore = *req.MinScore
		}

		view, err := h.svc.Batch(c.Request.Context(), sessionID(c), kind, strings.Join(codes, "\n"), req.Market, minScore)
		if err != nil {
			fail(c, statusFor(err), noticeText(view, err))
			return
		}

		var data any = view.Batch.Stocks
		if kind == model.KindFutures {
			data = view.Batch.Futures
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "批量分析完成",
			"data":    data,
		})
	}
}

// MarketCodes 市场代码列表
func (h *Handler) MarketCodes(kind model.AnalysisKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		codes, err := h.svc.MarketCodes(c.Request.Context(), kind, c.Query("market"))
		if err != nil {
			fail(c, statusFor(err), err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "获取成功",
			"data":    codes,
		})
	}
}

// Health 本服务及分析服务健康状态
func (h *Handler) Health(c *gin.Context) {
	upstream, err := h.svc.Health(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"status":   "degraded",
			"upstream": gin.H{"status": "unavailable", "error": err.Error()},
			"sessions": h.svc.SessionCount(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"upstream": upstream,
		"sessions": h.svc.SessionCount(),
	})
}

// fail 统一的错误响应
func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "message": msg})
}

// noticeText 优先使用页面提示的文案
func noticeText(view service.View, err error) string {
	if n := view.Notice; n != nil {
		if n.Message != "" {
			return n.Title + ": " + n.Message
		}
		return n.Title
	}
	return err.Error()
}
