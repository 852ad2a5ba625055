package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// New 创建 redis 客户端。
func New(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// MarkProcessed 消费幂等标记。返回 false 表示该 key 已存在，
// 即同一事件此前已被处理过。
func MarkProcessed(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (bool, error) {
	return rdb.SetNX(ctx, key, 1, ttl).Result()
}

// ClearProcessed 处理失败时清掉幂等标记，让消息可以重投。
func ClearProcessed(ctx context.Context, rdb *redis.Client, key string) error {
	return rdb.Del(ctx, key).Err()
}
