package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/fran0220/stock-scanner/internal/model"
	"github.com/fran0220/stock-scanner/internal/progress"
)

// session 一个浏览器会话，股票页和期货页各自独立
type session struct {
	id        string
	expiresAt time.Time
	pages     map[model.AnalysisKind]*page
}

// page 一个分析页面的状态
//
// driver 的方法不能在持有 mu 时调用：driver 的回调会再获取 mu。
type page struct {
	kind    model.AnalysisKind
	driver  *progress.Driver[Result]
	limiter *rate.Limiter

	mu     sync.Mutex
	code   string
	market string
	notice *Notice
	batch  *BatchView
	last   *batchInput

	wmu      sync.Mutex
	watchers map[chan struct{}]struct{}
}

// NewSessionID 生成会话ID
func NewSessionID() string {
	return uuid.NewString()
}

// ValidSessionID 会话ID是否为合法的 uuid
func ValidSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// page 获取或创建会话页面，同时续期
func (s *Service) page(sid string, kind model.AnalysisKind) *page {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sid]
	if !ok {
		sess = &session{id: sid, pages: make(map[model.AnalysisKind]*page)}
		s.sessions[sid] = sess
		s.metrics.SetSessions(len(s.sessions))
	}
	sess.expiresAt = now.Add(s.cfg.SessionTTL)

	p, ok := sess.pages[kind]
	if !ok {
		p = s.newPage(kind)
		sess.pages[kind] = p
	}
	return p
}

// lookup 只查找不创建
func (s *Service) lookup(sid string, kind model.AnalysisKind) (*page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sid]
	if !ok {
		return nil, false
	}
	p, ok := sess.pages[kind]
	return p, ok
}

func (s *Service) newPage(kind model.AnalysisKind) *page {
	p := &page{
		kind:     kind,
		market:   model.DefaultMarket(kind),
		watchers: make(map[chan struct{}]struct{}),
	}

	limit := rate.Inf
	if s.cfg.SubmitRPS > 0 {
		limit = rate.Limit(s.cfg.SubmitRPS)
	}
	burst := s.cfg.SubmitBurst
	if burst <= 0 {
		burst = 1
	}
	p.limiter = rate.NewLimiter(limit, burst)

	p.driver = progress.NewDriver[Result](progress.DriverOptions{
		Clock:         s.clock,
		Schedule:      s.cfg.Schedule,
		CompleteDelay: s.cfg.CompleteDelay,
		HideDelay:     s.cfg.HideDelay,
		OnChange:      p.broadcast,
		OnSettle: func(gen uint64, outcome progress.Outcome) {
			s.settled(p, gen, outcome)
		},
	})
	return p
}

// Sweep 清理过期会话并停止其定时器，返回清理数量
func (s *Service) Sweep() int {
	now := s.now()

	s.mu.Lock()
	var expired []*session
	for id, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.metrics.SetSessions(len(s.sessions))
	s.mu.Unlock()

	for _, sess := range expired {
		for _, p := range sess.pages {
			p.driver.Close()
			p.closeWatchers()
		}
	}
	if len(expired) > 0 {
		s.log.WithField("count", len(expired)).Debug("清理过期会话")
	}
	return len(expired)
}

// SessionCount 存活会话数
func (s *Service) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Subscribe 订阅页面状态变化，返回的通道在有变化时收到信号
func (s *Service) Subscribe(sid string, kind model.AnalysisKind) (<-chan struct{}, func(), error) {
	if !kind.Valid() {
		return nil, nil, ErrUnknownKind
	}
	p := s.page(sid, kind)
	ch := make(chan struct{}, 1)

	p.wmu.Lock()
	p.watchers[ch] = struct{}{}
	p.wmu.Unlock()

	cancel := func() {
		p.wmu.Lock()
		defer p.wmu.Unlock()
		if _, ok := p.watchers[ch]; ok {
			delete(p.watchers, ch)
			close(ch)
		}
	}
	return ch, cancel, nil
}

func (p *page) broadcast() {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	for ch := range p.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (p *page) closeWatchers() {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	for ch := range p.watchers {
		delete(p.watchers, ch)
		close(ch)
	}
}
