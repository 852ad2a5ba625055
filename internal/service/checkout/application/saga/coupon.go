package saga

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	promoapp "vivero/internal/service/promotion/application"
)

// CouponHandler 解析券码并在事务内核销。无效码静默跳过，
// 核销守卫落败（名额被并发抢走）才让整单失败。
type CouponHandler struct {
	NextHandler
}

func (h *CouponHandler) Handle(c *CheckoutContext) error {
	ctx, span := c.Tracer.Start(c.Ctx, "checkout.ResolveCoupons")
	defer span.End()

	lines := make([]promoapp.CartLine, 0, len(c.Cart.Items))
	for _, item := range c.Cart.Items {
		lines = append(lines, promoapp.CartLine{
			ProductID: item.ProductID,
			Category:  item.TaxCategory,
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice,
		})
	}

	resolution, err := c.Coupons.Resolve(ctx, promoapp.ResolveInput{
		UserID:   c.Req.UserID,
		Lines:    lines,
		Subtotal: c.Cart.Subtotal,
		Codes:    c.Req.CouponCodes,
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := c.Coupons.Consume(ctx, resolution, c.Req.UserID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	c.Resolution = resolution
	span.SetAttributes(
		attribute.Int("applied", len(resolution.Applied)),
		attribute.Int("skipped", len(resolution.Skipped)),
		attribute.Float64("discount", resolution.TotalDiscount),
	)
	return h.executeNext(c)
}
