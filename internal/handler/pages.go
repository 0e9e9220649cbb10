package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fran0220/stock-scanner/internal/model"
	"github.com/fran0220/stock-scanner/internal/service"
	"github.com/fran0220/stock-scanner/internal/web"
)

// pageData 页面模板数据
type pageData struct {
	Title       string
	Active      string
	Refresh     bool
	Kind        model.AnalysisKind
	Tab         string
	ShowGuide   bool
	Markets     []web.MarketOption
	View        service.View
	BatchCodes  string
	BatchMarket string
	MinScore    int
	Health      *model.HealthStatus
	HealthError string
}

// Index 首页
func (h *Handler) Index(c *gin.Context) {
	data := pageData{Title: "首页", Active: "home"}
	health, err := h.svc.Health(c.Request.Context())
	if err != nil {
		data.HealthError = err.Error()
	} else {
		data.Health = health
	}
	c.HTML(http.StatusOK, "index.html", data)
}

// Page 股票或期货分析页面，分析进行中时每秒刷新
func (h *Handler) Page(kind model.AnalysisKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := h.svc.Snapshot(sessionID(c), kind)
		if err != nil {
			c.String(http.StatusNotFound, err.Error())
			return
		}

		data := pageData{
			Title:       kind.DisplayName() + "分析",
			Active:      string(kind),
			Kind:        kind,
			Tab:         c.DefaultQuery("tab", "single"),
			ShowGuide:   c.Query("guide") == "1",
			Markets:     web.Markets(kind),
			View:        view,
			BatchMarket: model.DefaultMarket(kind),
			MinScore:    model.DefaultMinScore,
		}
		if view.Market == "" {
			data.View.Market = model.DefaultMarket(kind)
		}
		if b := view.Batch; b != nil {
			data.BatchCodes = strings.Join(b.Codes, "\n")
			data.BatchMarket = b.Market
			data.MinScore = b.MinScore
		}
		data.Refresh = data.Tab != "batch" && view.Active()

		c.HTML(http.StatusOK, "analysis.html", data)
	}
}

// SubmitAnalyze 单项分析表单
func (h *Handler) SubmitAnalyze(kind model.AnalysisKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := sessionID(c)
		var code, market string
		var err error
		if kind == model.KindFutures {
			var req model.FuturesAnalyzeRequest
			err = c.ShouldBind(&req)
			code, market = req.Symbol, req.Market
		} else {
			var req model.StockAnalyzeRequest
			err = c.ShouldBind(&req)
			code, market = req.StockCode, req.Market
		}
		if err != nil {
			h.log.WithField("kind", kind).WithError(err).Debug("表单解析失败")
			_ = h.svc.Notify(sid, kind, &service.Notice{
				Title:   "参数错误",
				Message: "提交的表单无法解析，请重新输入",
				Variant: service.NoticeDestructive,
			})
			redirect(c, kind, "")
			return
		}

		// 校验失败和限流都已经写入页面提示
		if _, err := h.svc.Analyze(sid, kind, code, market); err != nil {
			h.logSubmitError(kind, err)
		}
		redirect(c, kind, "")
	}
}

// SubmitRetry 重试上一次单项分析
func (h *Handler) SubmitRetry(kind model.AnalysisKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := h.svc.Retry(sessionID(c), kind); err != nil {
			h.logSubmitError(kind, err)
		}
		redirect(c, kind, "")
	}
}

// SubmitStop 取消进行中的分析
func (h *Handler) SubmitStop(kind model.AnalysisKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _ = h.svc.Stop(sessionID(c), kind)
		redirect(c, kind, "")
	}
}

// SubmitBatch 批量分析表单，同步等待结果
func (h *Handler) SubmitBatch(kind model.AnalysisKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := sessionID(c)
		var form model.BatchForm
		if err := c.ShouldBind(&form); err != nil {
			_ = h.svc.Notify(sid, kind, &service.Notice{
				Title:   "参数错误",
				Message: "最低评分需在 0-100 之间",
				Variant: service.NoticeDestructive,
			})
			redirect(c, kind, "batch")
			return
		}

		if _, err := h.svc.Batch(c.Request.Context(), sid, kind, form.Codes, form.Market, form.MinScore); err != nil {
			h.logSubmitError(kind, err)
		}
		redirect(c, kind, "batch")
	}
}

// SubmitBatchRetry 重试上一次批量分析
func (h *Handler) SubmitBatchRetry(kind model.AnalysisKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := h.svc.RetryBatch(c.Request.Context(), sessionID(c), kind); err != nil {
			h.logSubmitError(kind, err)
		}
		redirect(c, kind, "batch")
	}
}

// SubmitDismiss 关闭提示
func (h *Handler) SubmitDismiss(kind model.AnalysisKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _ = h.svc.DismissNotice(sessionID(c), kind)
		tab := ""
		if c.PostForm("tab") == "batch" {
			tab = "batch"
		}
		redirect(c, kind, tab)
	}
}

func (h *Handler) logSubmitError(kind model.AnalysisKind, err error) {
	entry := h.log.WithField("kind", kind).WithError(err)
	if errors.Is(err, service.ErrInvalidInput) || errors.Is(err, service.ErrRateLimited) {
		entry.Debug("提交被拒绝")
		return
	}
	entry.Warn("提交失败")
}

func redirect(c *gin.Context, kind model.AnalysisKind, tab string) {
	target := "/" + string(kind)
	if tab != "" {
		target += "?tab=" + tab
	}
	c.Redirect(http.StatusSeeOther, target)
}
