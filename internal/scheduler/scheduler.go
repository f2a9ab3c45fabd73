package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"breakcode4d/internal/logger"
)

// Job 定时任务
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc 把函数包装成 Job
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j JobFunc) Name() string                  { return j.JobName }
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }

// Scheduler 按 cron 表达式（5段标准格式）运行任务
//
// 同一任务上一次还没结束时，本次触发被跳过。
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// New 创建调度器
func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob 注册任务，表达式例如 "30 20 * * *" 或 "@every 6h"
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.RunNow(job); err != nil {
			logger.Errorf("Job %s failed: %v", job.Name(), err)
		}
	})
	if err != nil {
		return err
	}
	logger.Infof("Job %s registered with schedule %q", job.Name(), schedule)
	return nil
}

// RunNow 立即执行一次任务
func (s *Scheduler) RunNow(job Job) error {
	logger.Debugf("Running job %s", job.Name())
	return job.Run(s.ctx)
}

// Start 启动调度器
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("Scheduler started")
}

// Stop 取消正在运行的任务并等待其退出
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	logger.Info("Scheduler stopped")
}
