package saga

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"vivero/internal/pkg/logger"
)

// HoldSlotHandler 事务之前先把档期占成带过期时间的 HELD。
// 占用成功即登记补偿：后续任何失败都把占用还回去。就算补偿
// 没跑成，过期清扫也会兜底释放。
type HoldSlotHandler struct {
	NextHandler
}

func (h *HoldSlotHandler) Handle(c *CheckoutContext) error {
	if c.Req.DeliverySlotID == "" {
		return h.executeNext(c)
	}

	ctx, span := c.Tracer.Start(c.Ctx, "checkout.HoldSlot")
	defer span.End()
	span.SetAttributes(
		attribute.String("slot_id", c.Req.DeliverySlotID),
		attribute.String("order_ref", c.OrderID),
	)

	expiresAt := time.Now().Add(c.SlotHoldTTL)
	if err := c.Slots.ReserveSlot(ctx, c.Req.DeliverySlotID, c.OrderID, &expiresAt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	c.AddCompensation(func(compCtx context.Context) {
		compCtx, compSpan := c.Tracer.Start(compCtx, "checkout.compensation.ReleaseSlot")
		defer compSpan.End()
		if err := c.Slots.ReleaseSlot(compCtx, c.Req.DeliverySlotID, c.OrderID); err != nil {
			compSpan.RecordError(err)
			logger.Ctx(compCtx).Error().Err(err).
				Str("slot_id", c.Req.DeliverySlotID).
				Str("order_ref", c.OrderID).
				Msg("failed to release slot hold during compensation")
		}
	})

	return h.executeNext(c)
}

// ConfirmSlotHandler 事务内把 HELD 转成 CONFIRMED，占位随订单一起提交。
type ConfirmSlotHandler struct {
	NextHandler
}

func (h *ConfirmSlotHandler) Handle(c *CheckoutContext) error {
	if c.Req.DeliverySlotID == "" {
		return h.executeNext(c)
	}

	ctx, span := c.Tracer.Start(c.Ctx, "checkout.ConfirmSlot")
	defer span.End()
	span.SetAttributes(attribute.String("slot_id", c.Req.DeliverySlotID))

	if err := c.Slots.ConfirmHold(ctx, c.Req.DeliverySlotID, c.OrderID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return h.executeNext(c)
}
