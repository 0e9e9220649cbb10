package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fran0220/stock-scanner/internal/model"
)

// BatchView 批量分析结果
type BatchView struct {
	Market   string                        `json:"market"`
	MinScore int                           `json:"min_score"`
	Codes    []string                      `json:"codes"`
	Stocks   []model.StockAnalysisResult   `json:"stocks,omitempty"`
	Futures  []model.FuturesAnalysisResult `json:"futures,omitempty"`
	Error    string                        `json:"error,omitempty"`
	At       time.Time                     `json:"at"`
}

// Count 符合条件的结果数量
func (b *BatchView) Count() int {
	if b == nil {
		return 0
	}
	return len(b.Stocks) + len(b.Futures)
}

type batchInput struct {
	codes    []string
	market   string
	minScore int
}

// Batch 批量分析，同步等待服务返回
//
// codesText 支持换行、逗号和空白分隔。
func (s *Service) Batch(ctx context.Context, sid string, kind model.AnalysisKind, codesText, market string, minScore int) (View, error) {
	if !kind.Valid() {
		return View{}, ErrUnknownKind
	}
	p := s.page(sid, kind)

	codes := model.ParseCodeList(codesText)
	if market == "" {
		market = model.DefaultMarket(kind)
	}
	if len(codes) == 0 {
		p.setNotice(destructive(fmt.Sprintf("请输入至少一个%s代码", kind.DisplayName()), ""))
		return s.view(p), fmt.Errorf("%w: 代码列表为空", ErrInvalidInput)
	}
	if !model.ValidMarket(kind, market) {
		p.setNotice(destructive("不支持的市场类型", market))
		return s.view(p), fmt.Errorf("%w: 市场 %s", ErrInvalidInput, market)
	}
	if minScore < 0 || minScore > 100 {
		p.setNotice(destructive("最低评分需在 0-100 之间", ""))
		return s.view(p), fmt.Errorf("%w: 最低评分 %d", ErrInvalidInput, minScore)
	}
	if !p.limiter.Allow() {
		p.setNotice(rateLimitedNotice())
		return s.view(p), ErrRateLimited
	}

	in := batchInput{codes: codes, market: market, minScore: minScore}
	return s.runBatch(ctx, p, in)
}

// RetryBatch 重新执行上一次的批量分析
func (s *Service) RetryBatch(ctx context.Context, sid string, kind model.AnalysisKind) (View, error) {
	if !kind.Valid() {
		return View{}, ErrUnknownKind
	}
	p := s.page(sid, kind)
	p.mu.Lock()
	last := p.last
	p.mu.Unlock()
	if last == nil {
		return s.view(p), ErrNothingToRetry
	}
	return s.runBatch(ctx, p, *last)
}

func (s *Service) runBatch(ctx context.Context, p *page, in batchInput) (View, error) {
	entry := s.log.WithFields(logrus.Fields{
		"kind":      p.kind,
		"market":    in.market,
		"count":     len(in.codes),
		"min_score": in.minScore,
	})
	entry.Info("开始批量分析")

	out := &BatchView{
		Market:   in.market,
		MinScore: in.minScore,
		Codes:    in.codes,
	}
	var err error
	if p.kind == model.KindFutures {
		out.Futures, err = s.api.BatchAnalyzeFutures(ctx, model.FuturesBatchRequest{
			FuturesCodes: in.codes,
			Market:       in.market,
			MinScore:     in.minScore,
		})
	} else {
		out.Stocks, err = s.api.BatchAnalyzeStocks(ctx, model.StockBatchRequest{
			StockCodes: in.codes,
			Market:     in.market,
			MinScore:   in.minScore,
		})
	}
	out.At = s.now()

	p.mu.Lock()
	p.last = &in
	if err != nil {
		out.Error = errorText(err.Error())
		p.notice = destructive("批量分析失败", out.Error)
	} else {
		p.notice = nil
	}
	p.batch = out
	p.mu.Unlock()
	p.broadcast()

	if err != nil {
		entry.WithError(err).Warn("批量分析失败")
		return s.view(p), err
	}
	entry.WithField("matched", out.Count()).Info("批量分析完成")
	return s.view(p), nil
}

// MarketCodes 市场全部代码
func (s *Service) MarketCodes(ctx context.Context, kind model.AnalysisKind, market string) ([]string, error) {
	if !kind.Valid() {
		return nil, ErrUnknownKind
	}
	if market == "" {
		market = model.DefaultMarket(kind)
	}
	if !model.ValidMarket(kind, market) {
		return nil, fmt.Errorf("%w: 市场 %s", ErrInvalidInput, market)
	}
	if kind == model.KindFutures {
		return s.api.MarketFutures(ctx, market)
	}
	return s.api.MarketStocks(ctx, market)
}

// Health 分析服务健康状态
func (s *Service) Health(ctx context.Context) (*model.HealthStatus, error) {
	return s.api.Health(ctx)
}
