package lock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/lvdashuaibi/campusvote/config"
)

const etcdKeyPrefix = "/campusvote/locks/"

// EtcdLock 基于租约的etcd锁，持有期间后台自动续约
type EtcdLock struct {
	client         *clientv3.Client
	requestTimeout time.Duration
	minTTL         time.Duration         // 租约最短时长
	mu             sync.Mutex            // 保护locks的互斥锁
	locks          map[string]*lockEntry // 当前持有的锁
}

type lockEntry struct {
	leaseID clientv3.LeaseID
	key     string
	cancel  context.CancelFunc // 用于停止自动续约
}

func NewEtcdLock(cfg config.ETCDConfig) (*EtcdLock, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("创建etcd客户端失败: %w", err)
	}

	return &EtcdLock{
		client:         cli,
		requestTimeout: cfg.RequestTimeout,
		minTTL:         cfg.SessionTTL,
		locks:          make(map[string]*lockEntry),
	}, nil
}

// leaseSeconds etcd租约以秒为单位，最少1秒
func leaseSeconds(ttl time.Duration) int64 {
	s := int64(ttl / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}

func (el *EtcdLock) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if el.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, el.requestTimeout)
}

func (el *EtcdLock) TryAcquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	el.mu.Lock()
	defer el.mu.Unlock()

	// 检查是否已持有锁
	if _, ok := el.locks[name]; ok {
		return false, fmt.Errorf("锁 %s 已被当前实例持有", name)
	}

	if ttl < el.minTTL {
		ttl = el.minTTL
	}

	key := etcdKeyPrefix + name
	reqCtx, cancel := el.withTimeout(ctx)
	defer cancel()

	// 创建租约
	grantResp, err := el.client.Grant(reqCtx, leaseSeconds(ttl))
	if err != nil {
		return false, fmt.Errorf("创建租约失败: %w", err)
	}

	// 键不存在时才写入
	txnResp, err := el.client.Txn(reqCtx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, "", clientv3.WithLease(grantResp.ID))).
		Commit()
	if err != nil {
		el.client.Revoke(context.Background(), grantResp.ID)
		return false, fmt.Errorf("事务执行失败: %w", err)
	}
	if !txnResp.Succeeded {
		el.client.Revoke(context.Background(), grantResp.ID)
		return false, nil
	}

	// 启动自动续约
	keepAliveCtx, keepAliveCancel := context.WithCancel(context.Background())
	go el.keepAlive(keepAliveCtx, grantResp.ID, ttl)

	el.locks[name] = &lockEntry{
		leaseID: grantResp.ID,
		key:     key,
		cancel:  keepAliveCancel,
	}
	return true, nil
}

func (el *EtcdLock) Release(ctx context.Context, name string) error {
	el.mu.Lock()
	defer el.mu.Unlock()

	return el.release(ctx, name)
}

func (el *EtcdLock) Close() error {
	el.mu.Lock()
	for name := range el.locks {
		if err := el.release(context.Background(), name); err != nil {
			log.Printf("关闭时释放锁 %s 失败: %v", name, err)
		}
	}
	el.mu.Unlock()
	return el.client.Close()
}

// keepAlive 每半个TTL续约一次，租约丢失时退出
func (el *EtcdLock) keepAlive(ctx context.Context, leaseID clientv3.LeaseID, ttl time.Duration) {
	interval := time.Duration(leaseSeconds(ttl)) * time.Second / 2
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := el.client.KeepAliveOnce(ctx, leaseID); err != nil {
				if errors.Is(err, rpctypes.ErrLeaseNotFound) {
					log.Printf("etcd租约 %x 已失效", leaseID)
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// release 调用方需持有el.mu
func (el *EtcdLock) release(ctx context.Context, name string) error {
	entry, ok := el.locks[name]
	if !ok {
		return nil
	}

	// 停止自动续约
	entry.cancel()
	delete(el.locks, name)

	reqCtx, cancel := el.withTimeout(ctx)
	defer cancel()

	// 撤销租约会同时删除绑定的键
	if _, err := el.client.Revoke(reqCtx, entry.leaseID); err != nil {
		if errors.Is(err, rpctypes.ErrLeaseNotFound) {
			return nil
		}
		return fmt.Errorf("释放租约失败: %w", err)
	}
	return nil
}
