package domain

import (
	"context"
	"time"
)

// CommissionRepository 佣金仓储，(order, seller) 唯一。
type CommissionRepository interface {
	// Create 撞 (order, seller) 唯一索引时返回冲突。
	Create(ctx context.Context, c *Commission) error
	FindByID(ctx context.Context, id string) (*Commission, error)
	FindByOrderAndSeller(ctx context.Context, orderID, sellerID string) (*Commission, error)
	// MarkState 守卫式状态更新，顺带落时间戳。
	MarkState(ctx context.Context, id string, from, to CommissionState, at time.Time) (bool, error)
	// PendingPayout 卖家已批准未支付的佣金合计。
	PendingPayout(ctx context.Context, sellerID string) (float64, error)
}

// InvoiceRepository 发票仓储，number 与 (order, revision) 双唯一。
type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) error
	FindByID(ctx context.Context, id string) (*Invoice, error)
	// FindCurrentByOrder 订单当前（revision 最大的）发票。
	FindCurrentByOrder(ctx context.Context, orderID string) (*Invoice, error)
	// NextSequence 当月下一个序号，必须在事务内调用。
	NextSequence(ctx context.Context, prefix string) (int, error)
	MarkState(ctx context.Context, id string, from, to InvoiceState, at time.Time) (bool, error)
	// SetDueDate 签发时落账期到期日。
	SetDueDate(ctx context.Context, id string, due time.Time) error
	SetPDFURL(ctx context.Context, id, url string) error
}
