package saga

import (
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"vivero/internal/service/checkout/domain"
)

// PaymentRecordHandler 事务内落一条 pending 支付流水。
// 真正的网关授权在提交之后进行，结果回写这条流水。
type PaymentRecordHandler struct {
	NextHandler
}

func (h *PaymentRecordHandler) Handle(c *CheckoutContext) error {
	ctx, span := c.Tracer.Start(c.Ctx, "checkout.RecordPayment")
	defer span.End()

	payment := domain.NewPaymentTransaction(
		uuid.NewString(), c.OrderID, c.Req.PaymentMethod,
		c.Order.Totals.Total, c.PaymentFeeRate)
	if err := c.Payments.Create(ctx, payment); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	c.Payment = payment
	span.SetAttributes(
		attribute.Float64("amount", payment.Amount),
		attribute.Float64("fee", payment.Fee),
	)
	return h.executeNext(c)
}
