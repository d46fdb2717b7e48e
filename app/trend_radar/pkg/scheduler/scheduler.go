// Package scheduler 按 cron 表达式周期性触发报告生成
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job 一个定时任务
type Job func(ctx context.Context) error

// Scheduler 管理定时任务，同名任务上一轮未结束时跳过本轮
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	log     logrus.FieldLogger

	mu   sync.Mutex
	jobs map[string]cron.EntryID
}

// JobInfo 任务的调度信息
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}

// New 创建调度器，timeout 为单次任务的超时时间，<=0 表示不限
func New(loc *time.Location, timeout time.Duration, log logrus.FieldLogger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		timeout: timeout,
		log:     log,
		jobs:    make(map[string]cron.EntryID),
	}
}

// AddJob 添加任务，schedule 为五段式 cron 表达式，例如 "0 8 * * *"
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	running := make(chan struct{}, 1)
	id, err := s.cron.AddFunc(schedule, func() {
		select {
		case running <- struct{}{}:
			defer func() { <-running }()
		default:
			s.log.Warnf("[scheduler] 任务 %s 上一轮仍在运行，跳过", name)
			return
		}
		if err := s.RunNow(name, job); err != nil {
			s.log.Errorf("[scheduler] 任务 %s 失败: %v", name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("添加定时任务 %s 失败: %w", name, err)
	}

	s.mu.Lock()
	if old, ok := s.jobs[name]; ok {
		s.cron.Remove(old)
	}
	s.jobs[name] = id
	s.mu.Unlock()

	s.log.Infof("[scheduler] 已添加任务: %s (%s)", name, schedule)
	return nil
}

// RemoveJob 移除任务
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.jobs[name]; ok {
		s.cron.Remove(id)
		delete(s.jobs, name)
		s.log.Infof("[scheduler] 已移除任务: %s", name)
	}
}

// RunNow 立即执行一次任务
func (s *Scheduler) RunNow(name string, job Job) error {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.log.Infof("[scheduler] 开始执行任务: %s", name)
	start := time.Now()
	if err := job(ctx); err != nil {
		return err
	}
	s.log.Infof("[scheduler] 任务 %s 完成，耗时 %v", name, time.Since(start).Round(time.Millisecond))
	return nil
}

// Start 启动调度
func (s *Scheduler) Start() {
	s.log.Info("[scheduler] 启动调度器")
	s.cron.Start()
}

// Stop 停止调度，返回的 context 在运行中的任务全部结束后关闭
func (s *Scheduler) Stop() context.Context {
	s.log.Info("[scheduler] 停止调度器")
	return s.cron.Stop()
}

// ListJobs 返回所有任务的下次与上次执行时间
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for name, id := range s.jobs {
		entry := s.cron.Entry(id)
		if !entry.Valid() {
			continue
		}
		infos = append(infos, JobInfo{Name: name, NextRun: entry.Next, LastRun: entry.Prev})
	}
	return infos
}
