package port

import "context"

// SlotReleaser 订单取消对配送档期的出口。
type SlotReleaser interface {
	Release(ctx context.Context, slotID, orderRef string) error
}
