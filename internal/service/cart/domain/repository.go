package domain

import "context"

// CartRepository 购物车仓储。
type CartRepository interface {
	FindByID(ctx context.Context, id string) (*Cart, error)
	// MarkProcessed 条件迁移 active → processed，已被并发下单转走时返回 false。
	MarkProcessed(ctx context.Context, id string) (bool, error)
}
