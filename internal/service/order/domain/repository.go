package domain

import "context"

// OrderRepository 订单仓储。
type OrderRepository interface {
	// Create 落单，订单号撞唯一索引时返回冲突错误。
	Create(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	FindByNumber(ctx context.Context, number string) (*Order, error)
	// SaveTransition 条件更新状态（state = from 守卫）并追加历史行。
	// 守卫落败返回 false。
	SaveTransition(ctx context.Context, orderID string, change StateChange) (bool, error)
}
