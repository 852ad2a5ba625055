package port

import "context"

// StatusCache 订单状态缓存，推送网关握手时读取。尽力而为。
type StatusCache interface {
	Set(ctx context.Context, orderID, state string) error
}
