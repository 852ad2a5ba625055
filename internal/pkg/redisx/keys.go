package redisx

import (
	"fmt"
	"time"
)

// 键名与 TTL 集中定义，避免散落在各个 worker 里。
const (
	BillingDedupTTL = 24 * time.Hour
	OrderStatusTTL  = 10 * time.Minute
)

// BillingEventKey billing-worker 对 order.confirmed 事件的幂等键。
func BillingEventKey(eventID string) string {
	return fmt.Sprintf("billing:event:%s", eventID)
}

// OrderStatusKey push-gateway 握手时读取的订单状态缓存键。
func OrderStatusKey(orderID string) string {
	return fmt.Sprintf("order:status:%s", orderID)
}
