package progress

import (
	"sync"
	"time"
)

// DefaultCompleteDelay 进入完成状态到触发 onComplete 的延迟
const DefaultCompleteDelay = 1000 * time.Millisecond

// Input 步进器的外部输入，每次变化都整体重算
type Input struct {
	Visible      bool
	PhaseIndex   int
	StillLoading bool
	HasError     bool
	ErrorMessage string
}

// Snapshot 步进器当前显示状态的副本
type Snapshot struct {
	Steps       []Step `json:"steps"`
	Progress    int    `json:"progress"`
	CurrentStep int    `json:"current_step"`
	Completed   bool   `json:"completed"`
	HasError    bool   `json:"has_error"`
	Visible     bool   `json:"visible"`
}

// StepperOption 步进器选项
type StepperOption func(*Stepper)

// WithClock 指定时钟
func WithClock(c Clock) StepperOption {
	return func(s *Stepper) { s.clock = c }
}

// WithCompleteDelay 指定完成回调延迟
func WithCompleteDelay(d time.Duration) StepperOption {
	return func(s *Stepper) { s.delay = d }
}

// WithOnComplete 指定完成回调，每个完成事件最多触发一次
func WithOnComplete(f func()) StepperOption {
	return func(s *Stepper) {
		if f == nil {
			s.onComplete = nil
			return
		}
		s.onComplete = func(uint64) { f() }
	}
}

// withCompletionHandler 完成回调带上完成事件编号，供驱动器识别过期回调
func withCompletionHandler(f func(ev uint64)) StepperOption {
	return func(s *Stepper) { s.onComplete = f }
}

// WithSteps 自定义步骤，顺序即阶段顺序
func WithSteps(defs []StepDef) StepperOption {
	return func(s *Stepper) {
		if len(defs) > 0 {
			s.defs = defs
		}
	}
}

// Stepper 分析进度步进器
//
// 不自行推进阶段，只根据输入重算每个步骤的状态。唯一的内部定时器是
// 完成后延迟触发 onComplete，重新输入或 Close 会取消尚未触发的回调。
type Stepper struct {
	mu         sync.Mutex
	clock      Clock
	delay      time.Duration
	onComplete func(ev uint64)
	defs       []StepDef

	steps     []Step
	progress  int
	current   int
	completed bool
	hasError  bool
	visible   bool

	pending Timer
	event   uint64
	closed  bool
}

// NewStepper 创建步进器，初始为隐藏状态
func NewStepper(opts ...StepperOption) *Stepper {
	s := &Stepper{
		clock: RealClock,
		delay: DefaultCompleteDelay,
		defs:  DefaultSteps,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.steps = make([]Step, len(s.defs))
	s.resetLocked()
	return s
}

// Len 步骤数量
func (s *Stepper) Len() int {
	return len(s.defs)
}

// Update 根据输入重算状态并返回快照
func (s *Stepper) Update(in Input) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.snapshotLocked()
	}

	switch {
	case !in.Visible:
		s.cancelPendingLocked()
		s.resetLocked()

	case in.HasError:
		// 出错后只标记当前步骤，其余步骤保持原状态，进度不变
		s.cancelPendingLocked()
		s.visible = true
		s.completed = false
		s.hasError = true
		idx := s.clamp(in.PhaseIndex)
		msg := in.ErrorMessage
		if msg == "" {
			msg = DefaultErrorMessage
		}
		s.steps[idx].Status = StatusError
		s.steps[idx].Message = msg

	case !in.StillLoading:
		s.visible = true
		s.hasError = false
		for i := range s.steps {
			s.steps[i].Status = StatusCompleted
			s.steps[i].Message = ""
		}
		s.progress = 100
		s.current = len(s.steps) - 1
		if !s.completed {
			s.completed = true
			s.scheduleCompleteLocked()
		}

	default:
		s.cancelPendingLocked()
		s.visible = true
		s.completed = false
		s.hasError = false
		idx := s.clamp(in.PhaseIndex)
		for i := range s.steps {
			switch {
			case i < idx:
				s.steps[i].Status = StatusCompleted
			case i == idx:
				s.steps[i].Status = StatusProcessing
			default:
				s.steps[i].Status = StatusWaiting
			}
			s.steps[i].Message = ""
		}
		s.current = idx
		s.progress = Percent(idx, len(s.steps))
	}

	return s.snapshotLocked()
}

// Snapshot 当前状态副本
func (s *Stepper) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close 取消未触发的完成回调，之后的输入被忽略
func (s *Stepper) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelPendingLocked()
	s.closed = true
}

// Percent 阶段对应的进度百分比：floor(index/(total-1)*100)，限制在 [0,100]
func Percent(index, total int) int {
	if total <= 1 {
		return 0
	}
	if index < 0 {
		index = 0
	}
	if index > total-1 {
		index = total - 1
	}
	return index * 100 / (total - 1)
}

func (s *Stepper) clamp(idx int) int {
	if idx < 0 {
		return 0
	}
	if idx > len(s.steps)-1 {
		return len(s.steps) - 1
	}
	return idx
}

func (s *Stepper) resetLocked() {
	for i, def := range s.defs {
		s.steps[i] = Step{ID: def.ID, Name: def.Name, Status: StatusWaiting}
	}
	s.progress = 0
	s.current = 0
	s.completed = false
	s.hasError = false
	s.visible = false
}

func (s *Stepper) scheduleCompleteLocked() {
	s.cancelPendingLocked()
	ev := s.event
	s.pending = s.clock.AfterFunc(s.delay, func() { s.fireComplete(ev) })
}

// cancelPendingLocked 停止定时器并使已在路上的回调失效
func (s *Stepper) cancelPendingLocked() {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	s.event++
}

func (s *Stepper) fireComplete(ev uint64) {
	s.mu.Lock()
	if s.closed || ev != s.event || !s.completed {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	s.event++
	cb := s.onComplete
	s.mu.Unlock()

	if cb != nil {
		cb(ev)
	}
}

// pendingCompletion 已排定但尚未触发的完成事件编号，没有则为 0
func (s *Stepper) pendingCompletion() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil || !s.completed || s.closed {
		return 0
	}
	return s.event
}

func (s *Stepper) snapshotLocked() Snapshot {
	steps := make([]Step, len(s.steps))
	copy(steps, s.steps)
	return Snapshot{
		Steps:       steps,
		Progress:    s.progress,
		CurrentStep: s.current,
		Completed:   s.completed,
		HasError:    s.hasError,
		Visible:     s.visible,
	}
}
