package progress

import (
	"context"
	"sync"
	"time"
)

// DefaultSchedule 各阶段之间的模拟耗时，接近后端各阶段的实际用时
var DefaultSchedule = []time.Duration{
	1000 * time.Millisecond,
	1200 * time.Millisecond,
	1500 * time.Millisecond,
	2000 * time.Millisecond,
}

// DefaultHideDelay 完成回调之后隐藏进度卡片的延迟
const DefaultHideDelay = 500 * time.Millisecond

// RunStatus 一次分析的运行状态
type RunStatus string

const (
	RunIdle      RunStatus = "idle"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Outcome 一次分析的结束方式
type Outcome string

const (
	OutcomeCompleted  Outcome = "completed"
	OutcomeFailed     Outcome = "failed"
	OutcomeSuperseded Outcome = "superseded" // 被新的提交取代
	OutcomeStopped    Outcome = "stopped"    // 离开页面
)

// State 驱动器状态快照
type State[T any] struct {
	Generation uint64    `json:"generation"`
	Status     RunStatus `json:"status"`
	Phase      int       `json:"phase"`
	Progress   Snapshot  `json:"progress"`
	Result     T         `json:"result"`
	HasResult  bool      `json:"has_result"`
	Error      string    `json:"error,omitempty"`
	Finished   bool      `json:"finished"` // onComplete 已触发
}

// DriverOptions 驱动器选项
type DriverOptions struct {
	Clock         Clock
	Schedule      []time.Duration
	CompleteDelay time.Duration
	HideDelay     time.Duration
	Steps         []StepDef
	// OnChange 每次状态变化后调用（不持有锁）
	OnChange func()
	// OnSettle 某一代分析结束时调用（不持有锁）
	OnSettle func(gen uint64, outcome Outcome)
}

// Driver 请求驱动器
//
// 发出真实请求的同时按固定时间表推进阶段，两者互不依赖；真实请求返回后
// 强制进入完成状态，失败则进入错误状态并停止推进。每次 Start 都会生成新的
// 代次，旧代次的定时器和请求结果一律丢弃。
type Driver[T any] struct {
	mu        sync.Mutex
	clock     Clock
	schedule  []time.Duration
	hideDelay time.Duration
	stepper   *Stepper
	onChange  func()
	onSettle  func(gen uint64, outcome Outcome)

	gen      uint64
	status   RunStatus
	phase    int
	visible  bool
	loading  bool
	failed   bool
	errMsg   string
	result   T
	has      bool
	finished bool
	// completeEv 当前代次等待的完成事件，其它事件的回调一律忽略
	completeEv uint64
	timer      Timer
	cancel     context.CancelFunc
}

// NewDriver 创建驱动器
func NewDriver[T any](opts DriverOptions) *Driver[T] {
	if opts.Clock == nil {
		opts.Clock = RealClock
	}
	if opts.Schedule == nil {
		opts.Schedule = DefaultSchedule
	}
	if opts.CompleteDelay <= 0 {
		opts.CompleteDelay = DefaultCompleteDelay
	}
	if opts.HideDelay <= 0 {
		opts.HideDelay = DefaultHideDelay
	}

	d := &Driver[T]{
		clock:     opts.Clock,
		schedule:  opts.Schedule,
		hideDelay: opts.HideDelay,
		onChange:  opts.OnChange,
		onSettle:  opts.OnSettle,
		status:    RunIdle,
	}
	d.stepper = NewStepper(
		WithClock(opts.Clock),
		WithCompleteDelay(opts.CompleteDelay),
		WithSteps(opts.Steps),
		withCompletionHandler(d.handleComplete),
	)
	return d
}

// Start 开始新一代分析并返回代次，之前未完成的分析被取代
func (d *Driver[T]) Start(parent context.Context, run func(ctx context.Context) (T, error)) uint64 {
	d.mu.Lock()
	prevGen, prevRunning := d.gen, d.status == RunRunning
	d.invalidateLocked()

	gen := d.gen
	ctx, cancel := context.WithCancel(parent)
	d.cancel = cancel

	var zero T
	d.status = RunRunning
	d.visible = true
	d.loading = true
	d.failed = false
	d.errMsg = ""
	d.result = zero
	d.has = false
	d.finished = false

	d.phase = int(PhaseRequestSent)
	d.applyLocked()
	// 请求已发出
	d.phase = int(PhaseDataFetched)
	d.applyLocked()
	d.scheduleLocked(gen, 0)
	d.mu.Unlock()

	if prevRunning {
		d.settle(prevGen, OutcomeSuperseded)
	}
	d.changed()

	go d.await(ctx, gen, run)
	return gen
}

// Stop 离开页面：取消请求和定时器并隐藏进度
func (d *Driver[T]) Stop() {
	d.mu.Lock()
	prevGen, prevRunning := d.gen, d.status == RunRunning
	d.invalidateLocked()
	d.status = RunIdle
	d.visible = false
	d.loading = false
	d.failed = false
	d.errMsg = ""
	d.finished = false
	d.applyLocked()
	d.mu.Unlock()

	if prevRunning {
		d.settle(prevGen, OutcomeStopped)
	}
	d.changed()
}

// Close 停止并释放步进器
func (d *Driver[T]) Close() {
	d.Stop()
	d.stepper.Close()
}

// State 当前状态
func (d *Driver[T]) State() State[T] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State[T]{
		Generation: d.gen,
		Status:     d.status,
		Phase:      d.phase,
		Progress:   d.stepper.Snapshot(),
		Result:     d.result,
		HasResult:  d.has,
		Error:      d.errMsg,
		Finished:   d.finished,
	}
}

// Generation 当前代次
func (d *Driver[T]) Generation() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen
}

func (d *Driver[T]) await(ctx context.Context, gen uint64, run func(ctx context.Context) (T, error)) {
	res, err := run(ctx)

	d.mu.Lock()
	if gen != d.gen {
		// 已被新的提交或 Stop 取代
		d.mu.Unlock()
		return
	}
	d.stopTimerLocked()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}

	outcome := OutcomeCompleted
	if err != nil {
		outcome = OutcomeFailed
		d.status = RunFailed
		d.failed = true
		d.errMsg = err.Error()
	} else {
		d.status = RunSucceeded
		d.loading = false
		d.result = res
		d.has = true
	}
	d.applyLocked()
	if outcome == OutcomeCompleted {
		d.completeEv = d.stepper.pendingCompletion()
	}
	d.mu.Unlock()

	d.settle(gen, outcome)
	d.changed()
}

func (d *Driver[T]) scheduleLocked(gen uint64, i int) {
	d.timer = nil
	if i >= len(d.schedule) || d.phase >= d.stepper.Len()-1 {
		return
	}
	d.timer = d.clock.AfterFunc(d.schedule[i], func() { d.advance(gen, i) })
}

func (d *Driver[T]) advance(gen uint64, i int) {
	d.mu.Lock()
	if gen != d.gen || !d.loading || d.failed {
		d.mu.Unlock()
		return
	}
	d.phase++
	d.applyLocked()
	d.scheduleLocked(gen, i+1)
	d.mu.Unlock()

	d.changed()
}

func (d *Driver[T]) handleComplete(ev uint64) {
	d.mu.Lock()
	if ev == 0 || ev != d.completeEv || d.status != RunSucceeded || d.finished {
		d.mu.Unlock()
		return
	}
	d.finished = true
	gen := d.gen
	d.stopTimerLocked()
	d.timer = d.clock.AfterFunc(d.hideDelay, func() { d.hide(gen) })
	d.mu.Unlock()

	d.changed()
}

func (d *Driver[T]) hide(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.visible {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.visible = false
	d.applyLocked()
	d.mu.Unlock()

	d.changed()
}

// invalidateLocked 进入新代次：旧的定时器、请求和完成回调全部失效
func (d *Driver[T]) invalidateLocked() {
	d.gen++
	d.completeEv = 0
	d.stopTimerLocked()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

func (d *Driver[T]) stopTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Driver[T]) applyLocked() {
	d.stepper.Update(Input{
		Visible:      d.visible,
		PhaseIndex:   d.phase,
		StillLoading: d.loading,
		HasError:     d.failed,
		ErrorMessage: d.errMsg,
	})
}

func (d *Driver[T]) changed() {
	if d.onChange != nil {
		d.onChange()
	}
}

func (d *Driver[T]) settle(gen uint64, outcome Outcome) {
	if d.onSettle != nil {
		d.onSettle(gen, outcome)
	}
}
