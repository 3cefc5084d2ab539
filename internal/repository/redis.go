package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/lvdashuaibi/campusvote/config"
	"github.com/lvdashuaibi/campusvote/internal/model"
)

// Redis键前缀
const OfficialResultsKey = "election:results:official:"

// 只在键不存在时写入，正式结果一经写入不再覆盖。
// Script.Run 先走EVALSHA，脚本被清空时自动退回EVAL
var setOfficialResultsScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 1 then
		return 0
	end
	redis.call('SET', KEYS[1], ARGV[1])
	return 1
`)

// RedisRepository 缓存正式结果。正式结果不可变，因此不设过期时间；
// 非正式（实时）结果始终从账本计算，不进入缓存。
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(ctx context.Context, cfg config.RedisConfig) (*RedisRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.DataAddress,
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
		client.Close()
		return nil, fmt.Errorf("Redis数据节点连接测试失败: %w", err)
	}

	// 预加载Lua脚本
	if err := setOfficialResultsScript.Load(ctx, client).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("预加载Lua脚本失败: %w", err)
	}

	return &RedisRepository{client: client}, nil
}

// GetOfficialResults 从缓存获取正式结果，未命中返回 (nil, false, nil)
func (r *RedisRepository) GetOfficialResults(ctx context.Context, electionID string) (*model.ElectionResults, bool, error) {
	data, err := r.client.Get(ctx, OfficialResultsKey+electionID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil // 缓存未命中
		}
		return nil, false, fmt.Errorf("获取正式结果缓存失败: %w", err)
	}

	var results model.ElectionResults
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		return nil, false, fmt.Errorf("解析正式结果缓存失败: %w", err)
	}
	return &results, true, nil
}

// SetOfficialResults 缓存正式结果，已存在时不覆盖
func (r *RedisRepository) SetOfficialResults(ctx context.Context, results *model.ElectionResults) error {
	if !results.IsOfficial {
		return fmt.Errorf("选举 %s 结果尚未正式确认，不能缓存", results.ElectionID)
	}

	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("序列化正式结果失败: %w", err)
	}

	keys := []string{OfficialResultsKey + results.ElectionID}
	if err := setOfficialResultsScript.Run(ctx, r.client, keys, data).Err(); err != nil {
		return fmt.Errorf("写入正式结果缓存失败: %w", err)
	}
	return nil
}

// Close 关闭Redis连接
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
