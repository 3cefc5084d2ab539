// Package scheduler 周期性刷新选举状态。多实例部署时通过分布式锁保证同一时刻只有一个实例执行。
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lvdashuaibi/campusvote/config"
	"github.com/lvdashuaibi/campusvote/internal/lock"
)

const StatusSyncLockName = "election:status:sync"

// Syncer 由 service.StatusSynchronizer 实现
type Syncer interface {
	Sync(ctx context.Context) error
}

type StatusScheduler struct {
	syncer      Syncer
	lock        lock.Lock
	interval    time.Duration
	lockTimeout time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewStatusScheduler lk 为 nil 时每次直接执行，适用于单实例部署
func NewStatusScheduler(syncer Syncer, lk lock.Lock, cfg config.SyncConfig) *StatusScheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	lockTimeout := cfg.LockTimeout
	if lockTimeout <= 0 {
		lockTimeout = interval
	}
	return &StatusScheduler{
		syncer:      syncer,
		lock:        lk,
		interval:    interval,
		lockTimeout: lockTimeout,
		stopChan:    make(chan struct{}),
	}
}

// Start 启动定时刷新，启动时先立即执行一次
func (s *StatusScheduler) Start() {
	ticker := time.NewTicker(s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()

		s.RunOnce(context.Background())
		for {
			select {
			case <-ticker.C:
				s.RunOnce(context.Background())
			case <-s.stopChan:
				log.Println("选举状态刷新任务已停止")
				return
			}
		}
	}()

	log.Printf("选举状态刷新任务已启动，刷新间隔: %v", s.interval)
}

// RunOnce 获取锁后执行一次刷新，未获取到锁则跳过本轮。返回本轮是否执行了刷新
func (s *StatusScheduler) RunOnce(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	if s.lock != nil {
		acquired, err := s.lock.TryAcquire(ctx, StatusSyncLockName, s.lockTimeout)
		if err != nil {
			log.Printf("获取状态刷新锁失败: %v", err)
			return false
		}
		if !acquired {
			return false
		}
		defer func() {
			if err := s.lock.Release(context.Background(), StatusSyncLockName); err != nil {
				log.Printf("释放状态刷新锁失败: %v", err)
			}
		}()
	}

	if err := s.syncer.Sync(ctx); err != nil {
		log.Printf("定时%v", err)
	}
	return true
}

// Stop 停止定时刷新，可重复调用
func (s *StatusScheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}
