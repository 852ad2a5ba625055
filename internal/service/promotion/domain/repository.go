package domain

import "context"

// CouponRepository 券仓储。全局用量只通过守卫式 UPDATE 变化。
type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// IncrementUsesGuarded 在 max_uses 未用尽时 times_used 加一。
	IncrementUsesGuarded(ctx context.Context, id string) (bool, error)
	// DecrementUses 补偿回退，下限为 0。
	DecrementUses(ctx context.Context, id string) error
}

// UsageRepository 单人用量仓储，行级锁下增减。
type UsageRepository interface {
	CountFor(ctx context.Context, couponID, userID string) (int, error)
	// IncrementLocked 锁行后校验单人上限再加一，超限返回 false。
	IncrementLocked(ctx context.Context, couponID, userID string, maxPerUser int) (bool, error)
	Decrement(ctx context.Context, couponID, userID string) error
}
