// Package lock 提供分布式互斥锁，用于在多实例部署中选出唯一执行定时任务的节点
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/lvdashuaibi/campusvote/config"
)

// Lock 分布式锁接口
type Lock interface {
	// TryAcquire 尝试获取锁，不阻塞等待。
	// 返回值：bool表示是否成功获取锁，error表示获取过程中的错误
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (bool, error)

	// Release 释放锁，未持有时直接返回
	Release(ctx context.Context, name string) error

	// Close 释放所有持有的锁并关闭客户端
	Close() error
}

const (
	BackendEtcd  = "etcd"
	BackendRedis = "redis"
)

// New 按配置选择锁的实现
func New(ctx context.Context, cfg *config.Config) (Lock, error) {
	switch cfg.Lock.Backend {
	case BackendEtcd:
		return NewEtcdLock(cfg.ETCD)
	case BackendRedis:
		return NewRedLock(ctx, cfg.Redis, cfg.Lock.RetryCount)
	default:
		return nil, fmt.Errorf("不支持的锁类型: %q", cfg.Lock.Backend)
	}
}
