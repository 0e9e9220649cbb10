// Package scheduler 按固定间隔运行后台任务
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/fran0220/stock-scanner/internal/logger"
)

// Job 定时任务
type Job struct {
	Name          string
	Interval      time.Duration
	RunAtStart    bool          // 启动时先执行一次
	MaxRetry      int           // 失败后的重试次数
	RetryInterval time.Duration // 重试间隔
	Run           func(ctx context.Context) error
}

// every 固定间隔调度，不受 cron 的秒级精度限制
type every time.Duration

func (e every) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}

// Scheduler 定时任务调度器，上一次未结束时跳过本次执行
type Scheduler struct {
	mu   sync.Mutex
	jobs []Job
	cron *cron.Cron
	wg   sync.WaitGroup
	log  *logrus.Entry
}

// New 创建调度器
func New() *Scheduler {
	log := logger.For("scheduler")
	cl := cron.PrintfLogger(log)
	return &Scheduler{
		log: log,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

// Add 添加任务，间隔不大于0的任务被忽略
func (s *Scheduler) Add(job Job) {
	if job.Interval <= 0 || job.Run == nil {
		s.log.WithField("job", job.Name).Warn("任务间隔无效，已忽略")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
}

// Start 启动所有任务，ctx 取消后停止调度并等待执行中的任务结束
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	jobs := append([]Job(nil), s.jobs...)
	s.mu.Unlock()

	for _, job := range jobs {
		s.cron.Schedule(every(job.Interval), cron.FuncJob(func() {
			s.runWithRetry(ctx, job)
		}))
		if job.RunAtStart {
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.runWithRetry(ctx, job)
			}()
		}
		s.log.WithFields(logrus.Fields{
			"job":      job.Name,
			"interval": job.Interval.String(),
		}).Info("定时任务已启动")
	}
	s.cron.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-ctx.Done()
		<-s.cron.Stop().Done()
	}()
}

// Wait 等待所有任务退出
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// runWithRetry 带重试地执行一次任务
func (s *Scheduler) runWithRetry(ctx context.Context, job Job) {
	entry := s.log.WithField("job", job.Name)
	for i := 0; i <= job.MaxRetry; i++ {
		if i > 0 {
			entry.Infof("第 %d 次重试", i)
		}

		err := job.Run(ctx)
		if err == nil {
			entry.Debug("任务完成")
			return
		}
		entry.WithError(err).Warn("任务执行失败")
		if i == job.MaxRetry {
			break
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(job.RetryInterval):
		}
	}
	if job.MaxRetry > 0 {
		entry.Warnf("任务失败，已重试 %d 次", job.MaxRetry)
	}
}
