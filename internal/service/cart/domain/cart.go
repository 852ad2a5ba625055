package domain

import "time"

// CartStatus 购物车状态。同一用户同时只有一个 active 购物车，
// 下单成功后在同一事务里条件迁移为 processed。
type CartStatus string

const (
	CartActive    CartStatus = "active"
	CartProcessed CartStatus = "processed"
	CartAbandoned CartStatus = "abandoned"
)

// Cart 购物车聚合。Items 里的 UnitPrice 是加入时的快照价，
// 结算前必须拿当前价重新核对。
type Cart struct {
	ID        string
	UserID    string
	Status    CartStatus
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CartItem struct {
	ProductID string
	Qty       int
	UnitPrice float64
}

// SnapshotSubtotal 按快照价算的小计，仅用于展示漂移。
func (c *Cart) SnapshotSubtotal() float64 {
	var sum float64
	for _, item := range c.Items {
		sum += item.UnitPrice * float64(item.Qty)
	}
	return sum
}
