package saga

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	orderdomain "vivero/internal/service/order/domain"
)

// WholesaleHandler 批发客户的硬性校验：税号格式与最低小计。
// 零售客户直接放行。
type WholesaleHandler struct {
	NextHandler
}

func (h *WholesaleHandler) Handle(c *CheckoutContext) error {
	_, span := c.Tracer.Start(c.Ctx, "checkout.WholesaleCheck")
	defer span.End()
	span.SetAttributes(attribute.String("customer_type", c.Req.CustomerType))

	draft := orderdomain.Order{
		CustomerType: orderdomain.CustomerType(c.Req.CustomerType),
		TaxID:        c.Req.TaxID,
		Totals:       orderdomain.Totals{Subtotal: c.Cart.Subtotal},
	}
	if err := draft.ValidateWholesale(c.WholesaleMinSubtotal); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return h.executeNext(c)
}
