package domain

import (
	"context"
	"time"
)

// ProductRepository 商品台账仓储。
// 所有写操作都是条件化 UPDATE：守卫条件不满足时返回 false，
// 由应用层决定是冲突还是缺口。
type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*Product, error)
	FindByIDs(ctx context.Context, ids []string) ([]*Product, error)
	// ReserveGuarded 在 stock - stock_reserved >= qty 时增加预占量。
	ReserveGuarded(ctx context.Context, productID string, qty int) (bool, error)
	// ReleaseReserved 归还预占量。
	ReleaseReserved(ctx context.Context, productID string, qty int) error
	// CommitReserved 把预占转为实扣：stock 与 stock_reserved 同减，times_sold 增加。
	CommitReserved(ctx context.Context, productID string, qty int) (bool, error)
	// DecrementGuarded 无预占直扣，守卫同 ReserveGuarded。
	DecrementGuarded(ctx context.Context, productID string, qty int) (bool, error)
	// RestoreStock 取消订单时回补库存。
	RestoreStock(ctx context.Context, productID string, qty int) error
}

// ReservationRepository 预占台账仓储。
type ReservationRepository interface {
	// Create 同一 (product, order_ref) 的活跃预占只允许一条。
	Create(ctx context.Context, res *StockReservation) error
	FindActiveByOrderRef(ctx context.Context, orderRef string) ([]*StockReservation, error)
	// MarkStatus 条件迁移，from 不匹配时返回 false。
	MarkStatus(ctx context.Context, id string, from, to ReservationStatus) (bool, error)
	FindExpired(ctx context.Context, now time.Time, limit int) ([]*StockReservation, error)
}
