package port

import "context"

// RestoreItem 取消订单时需要回补的库存。
type RestoreItem struct {
	ProductID string
	Qty       int
}

// StockRestorer 订单取消对库存台账的出口。
type StockRestorer interface {
	Restore(ctx context.Context, items []RestoreItem) error
}
