package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvdashuaibi/campusvote/config"
)

const testLockName = "election:status:sync"

func startNodes(t *testing.T, n int) ([]*miniredis.Miniredis, config.RedisConfig) {
	t.Helper()
	var nodes []*miniredis.Miniredis
	var cfg config.RedisConfig
	for i := 0; i < n; i++ {
		mr := miniredis.RunT(t)
		nodes = append(nodes, mr)
		cfg.LockAddresses = append(cfg.LockAddresses, mr.Addr())
	}
	return nodes, cfg
}

func newTestRedLock(t *testing.T, cfg config.RedisConfig) *RedLock {
	t.Helper()
	rl, err := NewRedLock(context.Background(), cfg, 1)
	require.NoError(t, err)
	t.Cleanup(func() { rl.Close() })
	return rl
}

func TestRedLockMutualExclusion(t *testing.T) {
	ctx := context.Background()
	nodes, cfg := startNodes(t, 3)
	a := newTestRedLock(t, cfg)
	b := newTestRedLock(t, cfg)

	ok, err := a.TryAcquire(ctx, testLockName, 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	for _, mr := range nodes {
		assert.True(t, mr.Exists(redisKeyPrefix+testLockName))
	}

	ok, err = b.TryAcquire(ctx, testLockName, 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	// 同一实例重复获取
	_, err = a.TryAcquire(ctx, testLockName, 5*time.Second)
	assert.Error(t, err)

	// 未持有时释放不影响持有者
	require.NoError(t, b.Release(ctx, testLockName))
	assert.True(t, nodes[0].Exists(redisKeyPrefix+testLockName))

	require.NoError(t, a.Release(ctx, testLockName))
	for _, mr := range nodes {
		assert.False(t, mr.Exists(redisKeyPrefix+testLockName))
	}

	ok, err = b.TryAcquire(ctx, testLockName, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedLockReleaseKeepsForeignHolder(t *testing.T) {
	ctx := context.Background()
	nodes, cfg := startNodes(t, 1)
	rl := newTestRedLock(t, cfg)

	ok, err := rl.TryAcquire(ctx, testLockName, 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// 锁过期后被其他实例抢到
	nodes[0].Set(redisKeyPrefix+testLockName, "foreign-token")

	require.NoError(t, rl.Release(ctx, testLockName))
	got, err := nodes[0].Get(redisKeyPrefix + testLockName)
	require.NoError(t, err)
	assert.Equal(t, "foreign-token", got)
}

func TestRedLockQuorum(t *testing.T) {
	ctx := context.Background()
	nodes, cfg := startNodes(t, 3)
	key := redisKeyPrefix + testLockName

	// 1/3 节点被占用，多数派仍可获取
	nodes[0].Set(key, "foreign-token")
	rl := newTestRedLock(t, cfg)
	ok, err := rl.TryAcquire(ctx, testLockName, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, rl.Release(ctx, testLockName))

	got, err := nodes[0].Get(key)
	require.NoError(t, err)
	assert.Equal(t, "foreign-token", got)

	// 2/3 节点被占用，获取失败并清理已写入的节点
	nodes[1].Set(key, "foreign-token")
	ok, err = rl.TryAcquire(ctx, testLockName, 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, nodes[2].Exists(key))
}

func TestRedLockExpires(t *testing.T) {
	ctx := context.Background()
	nodes, cfg := startNodes(t, 3)
	a := newTestRedLock(t, cfg)
	b := newTestRedLock(t, cfg)

	ok, err := a.TryAcquire(ctx, testLockName, 2*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	for _, mr := range nodes {
		mr.FastForward(3 * time.Second)
	}

	ok, err = b.TryAcquire(ctx, testLockName, 2*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewSelectsRedisBackend(t *testing.T) {
	_, redisCfg := startNodes(t, 1)
	cfg := &config.Config{
		Lock:  config.LockConfig{Backend: BackendRedis, RetryCount: 2},
		Redis: redisCfg,
	}

	lk, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer lk.Close()

	ok, err := lk.TryAcquire(context.Background(), testLockName, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}
