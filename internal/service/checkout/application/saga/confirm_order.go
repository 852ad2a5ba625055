package saga

import (
	"go.opentelemetry.io/otel/codes"

	"vivero/internal/errs"
	orderdomain "vivero/internal/service/order/domain"
)

// ConfirmOrderHandler 链路末步：在同一事务内把订单从 pending
// 推到 confirmed。守卫落败说明有并发迁移，整单冲突回滚。
type ConfirmOrderHandler struct {
	NextHandler
}

func (h *ConfirmOrderHandler) Handle(c *CheckoutContext) error {
	ctx, span := c.Tracer.Start(c.Ctx, "checkout.ConfirmOrder")
	defer span.End()

	if err := c.Order.Transition(orderdomain.StateConfirmed, "checkout confirmed", "checkout"); err != nil {
		span.RecordError(err)
		return err
	}
	moved, err := c.Orders.SaveTransition(ctx, c.Order.ID, *c.Order.LastChange())
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !moved {
		err := errs.NewConflict("order", "order state changed concurrently")
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return h.executeNext(c)
}
