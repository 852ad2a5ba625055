package saga

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"vivero/internal/errs"
	orderdomain "vivero/internal/service/order/domain"
)

// CreateOrderHandler 组装订单聚合并落单，随后把购物车翻成
// processed。翻转守卫落败说明同一车已被并发下单，整单冲突。
type CreateOrderHandler struct {
	NextHandler
}

func (h *CreateOrderHandler) Handle(c *CheckoutContext) error {
	ctx, span := c.Tracer.Start(c.Ctx, "checkout.CreateOrder")
	defer span.End()

	items := make([]orderdomain.OrderItem, 0, len(c.Cart.Items))
	for _, item := range c.Cart.Items {
		items = append(items, orderdomain.OrderItem{
			ProductID:   item.ProductID,
			Name:        item.Name,
			Qty:         item.Qty,
			UnitPrice:   item.UnitPrice,
			TaxCategory: item.TaxCategory,
		})
	}
	coupons := make([]orderdomain.AppliedCoupon, 0, len(c.Resolution.Applied))
	for _, applied := range c.Resolution.Applied {
		coupons = append(coupons, orderdomain.AppliedCoupon{
			CouponID: applied.CouponID,
			Code:     applied.Code,
			Discount: applied.Discount,
		})
	}

	totals := orderdomain.Totals{
		Subtotal: c.Cart.Subtotal,
		Discount: c.Resolution.TotalDiscount,
		Shipping: c.Req.ShippingCost,
	}
	totals.ComputeTotal()

	order := &orderdomain.Order{
		ID:             c.OrderID,
		UserID:         c.Req.UserID,
		SellerID:       c.Req.SellerID,
		CartID:         c.Req.CartID,
		CustomerType:   orderdomain.CustomerType(c.Req.CustomerType),
		TaxID:          c.Req.TaxID,
		Items:          items,
		Coupons:        coupons,
		Totals:         totals,
		DeliverySlotID: c.Req.DeliverySlotID,
		State:          orderdomain.StatePending,
	}

	if err := c.Orders.CreateWithUniqueNumber(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	c.Order = order
	span.SetAttributes(
		attribute.String("order_number", order.Number),
		attribute.Float64("total", order.Totals.Total),
	)

	flipped, err := c.Carts.MarkProcessed(ctx, c.Req.CartID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !flipped {
		err := errs.NewConflict("cart", "cart was already checked out")
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return h.executeNext(c)
}
