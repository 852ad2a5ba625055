package infrastructure

import (
	"context"

	"github.com/redis/go-redis/v9"

	"vivero/internal/pkg/redisx"
	"vivero/internal/service/order/port"
)

// RedisStatusCache 把订单最新状态写进 redis，供推送网关握手时读取。
type RedisStatusCache struct {
	rdb *redis.Client
}

func NewRedisStatusCache(rdb *redis.Client) *RedisStatusCache {
	return &RedisStatusCache{rdb: rdb}
}

var _ port.StatusCache = (*RedisStatusCache)(nil)

func (c *RedisStatusCache) Set(ctx context.Context, orderID, state string) error {
	return c.rdb.Set(ctx, redisx.OrderStatusKey(orderID), state, redisx.OrderStatusTTL).Err()
}
