package adapter

import (
	"context"

	deliveryapp "vivero/internal/service/delivery/application"
	"vivero/internal/service/order/port"
)

// DeliveryAdapter 把档期应用服务适配成订单取消的释放出口。
type DeliveryAdapter struct {
	delivery *deliveryapp.Service
}

func NewDeliveryAdapter(delivery *deliveryapp.Service) *DeliveryAdapter {
	return &DeliveryAdapter{delivery: delivery}
}

var _ port.SlotReleaser = (*DeliveryAdapter)(nil)

func (a *DeliveryAdapter) Release(ctx context.Context, slotID, orderRef string) error {
	return a.delivery.ReleaseSlot(ctx, slotID, orderRef)
}
