// Package service 管理每个浏览器会话的分析状态
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fran0220/stock-scanner/internal/config"
	"github.com/fran0220/stock-scanner/internal/logger"
	"github.com/fran0220/stock-scanner/internal/metrics"
	"github.com/fran0220/stock-scanner/internal/model"
	"github.com/fran0220/stock-scanner/internal/progress"
	"github.com/fran0220/stock-scanner/internal/sections"
)

// Service 分析会话服务
type Service struct {
	api     Analyzer
	cfg     config.ProgressConfig
	clock   progress.Clock
	metrics *metrics.Metrics
	log     *logrus.Entry
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*session
}

// Option 服务选项
type Option func(*Service)

// WithClock 指定进度定时器使用的时钟
func WithClock(c progress.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithMetrics 指定指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithNow 指定会话过期计算使用的当前时间
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New 创建服务
func New(api Analyzer, cfg config.ProgressConfig, opts ...Option) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		api:      api,
		cfg:      cfg,
		clock:    progress.RealClock,
		log:      logger.For("service"),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*session),
	}
	if s.cfg.SessionTTL <= 0 {
		s.cfg.SessionTTL = 30 * time.Minute
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// View 页面展示所需的全部状态
type View struct {
	Kind     model.AnalysisKind     `json:"kind"`
	Code     string                 `json:"code"`
	Market   string                 `json:"market"`
	State    progress.State[Result] `json:"state"`
	Sections sections.View          `json:"sections"`
	Notice   *Notice                `json:"notice,omitempty"`
	Batch    *BatchView             `json:"batch,omitempty"`
}

// Active 分析进行中或进度卡片仍在显示
func (v View) Active() bool {
	return v.State.Status == progress.RunRunning || v.State.Progress.Visible
}

// Terminal 分析已结束且进度卡片已收起，或停在错误状态
func (v View) Terminal() bool {
	switch v.State.Status {
	case progress.RunFailed:
		return true
	case progress.RunSucceeded:
		return !v.State.Progress.Visible
	}
	return v.State.Status == progress.RunIdle
}

// Analyze 开始单项分析，之前未完成的分析被取代
func (s *Service) Analyze(sid string, kind model.AnalysisKind, code, market string) (View, error) {
	if !kind.Valid() {
		return View{}, ErrUnknownKind
	}
	p := s.page(sid, kind)

	code = strings.TrimSpace(code)
	if market == "" {
		market = model.DefaultMarket(kind)
	}
	if code == "" {
		p.setNotice(destructive(fmt.Sprintf("请输入%s代码", kind.DisplayName()), ""))
		return s.view(p), fmt.Errorf("%w: 代码为空", ErrInvalidInput)
	}
	if !model.ValidMarket(kind, market) {
		p.setNotice(destructive("不支持的市场类型", market))
		return s.view(p), fmt.Errorf("%w: 市场 %s", ErrInvalidInput, market)
	}
	if !p.limiter.Allow() {
		p.setNotice(rateLimitedNotice())
		return s.view(p), ErrRateLimited
	}

	p.mu.Lock()
	p.code = code
	p.market = market
	p.notice = nil
	p.mu.Unlock()

	gen := p.driver.Start(s.ctx, s.runner(kind, code, market))
	s.log.WithFields(logrus.Fields{
		"kind":       kind,
		"code":       code,
		"market":     market,
		"generation": gen,
	}).Info("开始分析")
	return s.view(p), nil
}

// Retry 重新提交上一次的单项分析
func (s *Service) Retry(sid string, kind model.AnalysisKind) (View, error) {
	if !kind.Valid() {
		return View{}, ErrUnknownKind
	}
	p := s.page(sid, kind)
	p.mu.Lock()
	code, market := p.code, p.market
	p.mu.Unlock()
	if code == "" {
		return s.view(p), ErrNothingToRetry
	}
	return s.Analyze(sid, kind, code, market)
}

// Stop 离开页面：取消进行中的分析并隐藏进度
func (s *Service) Stop(sid string, kind model.AnalysisKind) (View, error) {
	if !kind.Valid() {
		return View{}, ErrUnknownKind
	}
	p, ok := s.lookup(sid, kind)
	if !ok {
		return s.view(s.page(sid, kind)), nil
	}
	p.driver.Stop()
	return s.view(p), nil
}

// DismissNotice 关闭提示
func (s *Service) DismissNotice(sid string, kind model.AnalysisKind) (View, error) {
	if !kind.Valid() {
		return View{}, ErrUnknownKind
	}
	p := s.page(sid, kind)
	p.setNotice(nil)
	return s.view(p), nil
}

// Notify 设置页面提示，nil 表示清除
func (s *Service) Notify(sid string, kind model.AnalysisKind, n *Notice) error {
	if !kind.Valid() {
		return ErrUnknownKind
	}
	s.page(sid, kind).setNotice(n)
	return nil
}

// Snapshot 页面当前状态
func (s *Service) Snapshot(sid string, kind model.AnalysisKind) (View, error) {
	if !kind.Valid() {
		return View{}, ErrUnknownKind
	}
	return s.view(s.page(sid, kind)), nil
}

// Close 停止所有会话
func (s *Service) Close() {
	s.cancel()

	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range all {
		for _, p := range sess.pages {
			p.driver.Close()
			p.closeWatchers()
		}
	}
}

func (s *Service) runner(kind model.AnalysisKind, code, market string) func(ctx context.Context) (Result, error) {
	if kind == model.KindFutures {
		return func(ctx context.Context) (Result, error) {
			res, err := s.api.AnalyzeFutures(ctx, model.FuturesAnalyzeRequest{Symbol: code, Market: market})
			return Result{Futures: res}, err
		}
	}
	return func(ctx context.Context) (Result, error) {
		res, err := s.api.AnalyzeStock(ctx, model.StockAnalyzeRequest{StockCode: code, Market: market})
		return Result{Stock: res}, err
	}
}

// settled 分析结束：记录指标，失败时给出提示
func (s *Service) settled(p *page, gen uint64, outcome progress.Outcome) {
	s.metrics.ObserveAnalysis(string(p.kind), string(outcome))

	entry := s.log.WithFields(logrus.Fields{
		"kind":       p.kind,
		"generation": gen,
		"outcome":    outcome,
	})
	if outcome != progress.OutcomeFailed {
		entry.Info("分析结束")
		return
	}

	st := p.driver.State()
	if st.Generation != gen {
		return
	}
	entry.WithField("error", st.Error).Warn("分析失败")
	p.setNotice(destructive("分析失败", errorText(st.Error)))
}

func (s *Service) view(p *page) View {
	st := p.driver.State()

	p.mu.Lock()
	v := View{
		Kind:   p.kind,
		Code:   p.code,
		Market: p.market,
		State:  st,
		Notice: p.notice,
		Batch:  p.batch,
	}
	p.mu.Unlock()

	if st.HasResult {
		v.Sections = sections.BuildView(st.Result.AIText())
	}
	return v
}

func (p *page) setNotice(n *Notice) {
	p.mu.Lock()
	p.notice = n
	p.mu.Unlock()
	p.broadcast()
}
