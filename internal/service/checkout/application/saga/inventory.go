package saga

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	invapp "vivero/internal/service/inventory/application"
)

// DecrementStockHandler 事务内守卫式扣减每一行库存。任何一行
// 落败都带着逐行缺口明细失败，事务回滚让已扣的行还原。
type DecrementStockHandler struct {
	NextHandler
}

func (h *DecrementStockHandler) Handle(c *CheckoutContext) error {
	ctx, span := c.Tracer.Start(c.Ctx, "checkout.DecrementStock")
	defer span.End()

	items := make([]invapp.ItemRequest, 0, len(c.Cart.Items))
	for _, item := range c.Cart.Items {
		items = append(items, invapp.ItemRequest{ProductID: item.ProductID, Qty: item.Qty})
	}
	span.SetAttributes(attribute.Int("items", len(items)))

	if err := c.Stock.DecrementAtomic(ctx, items); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return h.executeNext(c)
}
