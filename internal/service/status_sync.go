package service

import (
	"context"
	"fmt"
	"log"

	"github.com/lvdashuaibi/campusvote/internal/clock"
)

// StatusSynchronizer 按时钟刷新选举状态。
// 可以被多个请求并发、重复调用：同一时刻结果相同，且三条更新在同一事务内提交。
type StatusSynchronizer struct {
	store Store
	clock clock.Clock
}

func NewStatusSynchronizer(store Store, clk clock.Clock) *StatusSynchronizer {
	return &StatusSynchronizer{store: store, clock: clk}
}

// Sync 刷新所有非取消状态的选举
func (s *StatusSynchronizer) Sync(ctx context.Context) error {
	now := s.clock.Now()
	changed, err := s.store.BatchUpdateElectionStatus(ctx, now)
	if err != nil {
		return fmt.Errorf("刷新选举状态失败: %w", err)
	}
	if changed > 0 {
		log.Printf("选举状态已刷新: 变更 %d 条, 时间=%s", changed, now.UTC().Format("2006-01-02 15:04:05"))
	}
	return nil
}

// syncQuietly 读路径上的刷新，失败只记录日志
func (s *StatusSynchronizer) syncQuietly(ctx context.Context) {
	if err := s.Sync(ctx); err != nil {
		log.Printf("读取前%v", err)
	}
}
