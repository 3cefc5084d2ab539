package lock

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/lvdashuaibi/campusvote/config"
)

const redisKeyPrefix = "campusvote:lock:"

// 只删除自己持有的锁
var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// RedLock 在多个独立Redis节点上实现的Redlock算法
type RedLock struct {
	clients []*redis.Client
	addrs   []string
	retries int

	mu    sync.Mutex
	locks map[string]string // key是锁名，value是token值
}

// NewRedLock 创建新的分布式锁客户端
func NewRedLock(ctx context.Context, cfg config.RedisConfig, retries int) (*RedLock, error) {
	if len(cfg.LockAddresses) == 0 {
		return nil, fmt.Errorf("未配置Redis锁节点")
	}
	if retries <= 0 {
		retries = 1
	}

	var clients []*redis.Client
	for _, addr := range cfg.LockAddresses {
		client := redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MaxRetries:   cfg.MaxRetries,
			DialTimeout:  cfg.Timeout,
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
		})

		// 测试连接
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("Redis锁节点 %s 连接测试失败: %v", addr, err)
			client.Close()
			for _, c := range clients {
				c.Close()
			}
			return nil, fmt.Errorf("Redis锁节点 %s 连接测试失败: %w", addr, err)
		}
		clients = append(clients, client)
	}

	return &RedLock{
		clients: clients,
		addrs:   cfg.LockAddresses,
		retries: retries,
		locks:   make(map[string]string),
	}, nil
}

// quorum 多数派节点数
func quorum(n int) int {
	return n/2 + 1
}

func (r *RedLock) TryAcquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.locks[name]; ok {
		return false, fmt.Errorf("锁 %s 已被当前实例持有", name)
	}

	key := redisKeyPrefix + name
	token := uuid.NewString()

	for attempt := 0; attempt < r.retries; attempt++ {
		success := 0
		start := time.Now()

		for i, client := range r.clients {
			ok, err := client.SetNX(ctx, key, token, ttl).Result()
			if err != nil {
				log.Printf("在节点 %s 获取锁 %s 失败: %v", r.addrs[i], name, err)
				continue
			}
			if ok {
				success++
			}
		}

		// 多数节点成功且锁仍在有效期内
		if success >= quorum(len(r.clients)) && time.Since(start) < ttl {
			r.locks[name] = token
			return true, nil
		}

		r.unlockAll(ctx, key, token)

		if attempt+1 < r.retries {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(100 * time.Millisecond):
			}
		}
	}
	return false, nil
}

func (r *RedLock) Release(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.locks[name]
	if !ok {
		return nil
	}
	r.unlockAll(ctx, redisKeyPrefix+name, token)
	delete(r.locks, name)
	return nil
}

// unlockAll 在所有节点上释放锁
func (r *RedLock) unlockAll(ctx context.Context, key, token string) {
	for i, client := range r.clients {
		if err := unlockScript.Run(ctx, client, []string{key}, token).Err(); err != nil {
			log.Printf("在节点 %s 释放锁 %s 失败: %v", r.addrs[i], key, err)
		}
	}
}

// Close 关闭分布式锁客户端
func (r *RedLock) Close() error {
	r.mu.Lock()
	for name, token := range r.locks {
		r.unlockAll(context.Background(), redisKeyPrefix+name, token)
	}
	r.locks = make(map[string]string)
	r.mu.Unlock()

	for _, client := range r.clients {
		if err := client.Close(); err != nil {
			log.Printf("关闭Redis客户端失败: %v", err)
		}
	}
	return nil
}
