// Package scheduler 封装任务注册表：cron 触发、间隔触发与单次触发，
// 按任务ID注册/更新/移除。
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-chatmsg-core/internal/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Trigger 触发方式，三选一
type Trigger struct {
	CronExpr string        // 5段cron表达式（含 @every 形式）
	OneShot  time.Duration // 延迟单次触发
	At       time.Time     // 定点单次触发
}

// Scheduler 任务注册表
type Scheduler struct {
	cron *cron.Cron

	mu     sync.Mutex
	jobs   map[string]cron.EntryID
	timers map[string]*time.Timer
}

// New 创建并启动调度器
func New() *Scheduler {
	c := cron.New()
	c.Start()
	return &Scheduler{
		cron:   c,
		jobs:   make(map[string]cron.EntryID),
		timers: make(map[string]*time.Timer),
	}
}

// Register 注册或更新任务；同ID的旧任务先被移除
func (s *Scheduler) Register(id string, tr Trigger, fn func()) error {
	s.Remove(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case tr.CronExpr != "":
		entryID, err := s.cron.AddFunc(tr.CronExpr, fn)
		if err != nil {
			return fmt.Errorf("注册cron任务失败 [%s]: %w", tr.CronExpr, err)
		}
		s.jobs[id] = entryID
		logger.Logger.Info("任务已注册",
			zap.String("job", id), zap.String("cron", tr.CronExpr))
	case !tr.At.IsZero():
		delay := time.Until(tr.At)
		if delay < 0 {
			delay = 0
		}
		s.timers[id] = s.oneShot(id, delay, fn)
		logger.Logger.Info("定点任务已注册",
			zap.String("job", id), zap.Time("at", tr.At))
	default:
		s.timers[id] = s.oneShot(id, tr.OneShot, fn)
		logger.Logger.Info("单次任务已注册",
			zap.String("job", id), zap.Duration("delay", tr.OneShot))
	}
	return nil
}

func (s *Scheduler) oneShot(id string, delay time.Duration, fn func()) *time.Timer {
	if delay < 0 {
		delay = 0
	}
	return time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()
		fn()
	})
}

// Remove 移除任务
func (s *Scheduler) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.jobs[id]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, id)
	}
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
}

// Stop 停止调度器并释放所有任务，等待在跑任务完成
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	<-s.cron.Stop().Done()
}
