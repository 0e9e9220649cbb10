package service

import (
	"context"
	"errors"

	"github.com/fran0220/stock-scanner/internal/model"
)

var (
	// ErrInvalidInput 输入校验失败，不会发出请求
	ErrInvalidInput = errors.New("invalid input")
	// ErrRateLimited 提交过于频繁
	ErrRateLimited = errors.New("too many submissions")
	// ErrUnknownKind 未知的分析类型
	ErrUnknownKind = errors.New("unknown analysis kind")
	// ErrNothingToRetry 没有可以重试的分析
	ErrNothingToRetry = errors.New("nothing to retry")
)

// Analyzer 分析服务，*client.Client 实现了该接口
type Analyzer interface {
	AnalyzeStock(ctx context.Context, req model.StockAnalyzeRequest) (*model.StockAnalysisResult, error)
	BatchAnalyzeStocks(ctx context.Context, req model.StockBatchRequest) ([]model.StockAnalysisResult, error)
	MarketStocks(ctx context.Context, market string) ([]string, error)
	AnalyzeFutures(ctx context.Context, req model.FuturesAnalyzeRequest) (*model.FuturesAnalysisResult, error)
	BatchAnalyzeFutures(ctx context.Context, req model.FuturesBatchRequest) ([]model.FuturesAnalysisResult, error)
	MarketFutures(ctx context.Context, market string) ([]string, error)
	Health(ctx context.Context) (*model.HealthStatus, error)
}

// Result 单项分析结果，按类型只填充其中一个
type Result struct {
	Stock   *model.StockAnalysisResult   `json:"stock,omitempty"`
	Futures *model.FuturesAnalysisResult `json:"futures,omitempty"`
}

// AIText AI分析原文
func (r Result) AIText() string {
	if r.Stock != nil {
		return r.Stock.AIText()
	}
	return r.Futures.AIText()
}

// Notice 可关闭的提示
type Notice struct {
	Title   string `json:"title"`
	Message string `json:"message,omitempty"`
	Variant string `json:"variant"` // default, destructive
}

const (
	NoticeDefault     = "default"
	NoticeDestructive = "destructive"
)

func destructive(title, msg string) *Notice {
	return &Notice{Title: title, Message: msg, Variant: NoticeDestructive}
}

func rateLimitedNotice() *Notice {
	return destructive("提交过于频繁", "请稍后再试")
}

// errorText 错误信息为空时的默认提示
func errorText(msg string) string {
	if msg == "" {
		return "请稍后重试"
	}
	return msg
}
