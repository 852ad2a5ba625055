package saga

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"vivero/internal/errs"
)

// ValidateCartHandler 整车校验。任何一行失败都拒绝整车，
// 失败明细逐行带回给调用方。
type ValidateCartHandler struct {
	NextHandler
}

func (h *ValidateCartHandler) Handle(c *CheckoutContext) error {
	ctx, span := c.Tracer.Start(c.Ctx, "checkout.ValidateCart")
	defer span.End()
	span.SetAttributes(attribute.String("cart_id", c.Req.CartID))

	result, err := c.Validator.Validate(ctx, c.Req.CartID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !result.Valid {
		issues := make([]errs.FieldIssue, 0, len(result.Issues))
		for _, issue := range result.Issues {
			issues = append(issues, errs.FieldIssue{Field: issue.ProductID, Reason: issue.Reason})
		}
		err := errs.NewValidation("cart validation failed", issues...)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	c.Cart = result
	span.SetAttributes(
		attribute.Int("items", len(result.Items)),
		attribute.Float64("subtotal", result.Subtotal),
	)
	return h.executeNext(c)
}
