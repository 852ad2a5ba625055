package application

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/google/uuid"

	"vivero/internal/errs"
	"vivero/internal/pkg/database"
	"vivero/internal/pkg/logger"
	"vivero/internal/pkg/metrics"
	promoapp "vivero/internal/service/promotion/application"

	"vivero/internal/service/checkout/application/saga"
	"vivero/internal/service/checkout/domain"
	"vivero/internal/service/checkout/port"
	orderdomain "vivero/internal/service/order/domain"
)

// ConfirmResult 结算确认的返回。Skipped 带回被跳过的券码及原因，
// 调用方可原样展示。
type ConfirmResult struct {
	OrderID      string                    `json:"order_id"`
	OrderNumber  string                    `json:"order_number"`
	State        string                    `json:"state"`
	Total        float64                   `json:"total"`
	Discount     float64                   `json:"discount"`
	Applied      []promoapp.AppliedCoupon  `json:"applied_coupons,omitempty"`
	Skipped      []promoapp.SkippedCoupon  `json:"skipped_coupons,omitempty"`
	PaymentState string                    `json:"payment_state"`
}

// Service 结算编排：前置校验、单事务守卫写、提交后尽力而为的跟进。
type Service struct {
	validator saga.CartValidator
	carts     saga.CartRegistry
	coupons   saga.CouponService
	slots     saga.SlotAllocator
	stock     saga.StockWriter
	orders    saga.OrderWriter
	payments  domain.PaymentRepository

	processor port.PaymentProcessor
	notifier  port.NotificationSender
	publisher orderdomain.EventPublisher

	txm    database.TxManager
	tracer trace.Tracer

	wholesaleMinSubtotal float64
	paymentFeeRate       float64
	slotHoldTTL          time.Duration
}

type Deps struct {
	Validator saga.CartValidator
	Carts     saga.CartRegistry
	Coupons   saga.CouponService
	Slots     saga.SlotAllocator
	Stock     saga.StockWriter
	Orders    saga.OrderWriter
	Payments  domain.PaymentRepository

	Processor port.PaymentProcessor
	Notifier  port.NotificationSender
	Publisher orderdomain.EventPublisher

	TxManager database.TxManager
	Tracer    trace.Tracer

	WholesaleMinSubtotal float64
	PaymentFeeRate       float64
	SlotHoldTTL          time.Duration
}

func NewService(deps Deps) *Service {
	return &Service{
		validator:            deps.Validator,
		carts:                deps.Carts,
		coupons:              deps.Coupons,
		slots:                deps.Slots,
		stock:                deps.Stock,
		orders:               deps.Orders,
		payments:             deps.Payments,
		processor:            deps.Processor,
		notifier:             deps.Notifier,
		publisher:            deps.Publisher,
		txm:                  deps.TxManager,
		tracer:               deps.Tracer,
		wholesaleMinSubtotal: deps.WholesaleMinSubtotal,
		paymentFeeRate:       deps.PaymentFeeRate,
		slotHoldTTL:          deps.SlotHoldTTL,
	}
}

// Confirm 结算确认。前置链（校验、批发检查、档期 HELD）在事务外，
// 写链（券核销、落单、扣库存、支付流水、pending→confirmed）整个跑在
// 一个事务里，任何一步失败全部回滚，再按 LIFO 补偿事务外的占用。
// 提交成功后的支付授权、事件与通知都是尽力而为。
func (s *Service) Confirm(ctx context.Context, req saga.ConfirmRequest) (*ConfirmResult, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Confirm")
	defer span.End()
	span.SetAttributes(
		attribute.String("cart_id", req.CartID),
		attribute.String("user_id", req.UserID),
	)
	timer := prometheus.NewTimer(metrics.CheckoutDuration)
	defer timer.ObserveDuration()

	c := &saga.CheckoutContext{
		Ctx:                  ctx,
		Req:                  req,
		Tracer:               s.tracer,
		OrderID:              uuid.NewString(),
		Validator:            s.validator,
		Carts:                s.carts,
		Coupons:              s.coupons,
		Slots:                s.slots,
		Stock:                s.stock,
		Orders:               s.orders,
		Payments:             s.payments,
		WholesaleMinSubtotal: s.wholesaleMinSubtotal,
		PaymentFeeRate:       s.paymentFeeRate,
		SlotHoldTTL:          s.slotHoldTTL,
	}

	if err := buildPreChain().Handle(c); err != nil {
		c.TriggerCompensation(ctx)
		s.countFailure(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	err := s.txm.Do(ctx, func(txCtx context.Context) error {
		c.Ctx = txCtx
		return buildTxChain().Handle(c)
	})
	if err != nil {
		c.TriggerCompensation(ctx)
		s.countFailure(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("order_number", c.Order.Number))
	metrics.CheckoutTotal.WithLabelValues("confirmed").Inc()
	logger.Ctx(ctx).Info().
		Str("order_id", c.Order.ID).
		Str("order_number", c.Order.Number).
		Float64("total", c.Order.Totals.Total).
		Msg("checkout confirmed")

	s.runFollowups(ctx, c)

	return &ConfirmResult{
		OrderID:      c.Order.ID,
		OrderNumber:  c.Order.Number,
		State:        string(c.Order.State),
		Total:        c.Order.Totals.Total,
		Discount:     c.Order.Totals.Discount,
		Applied:      c.Resolution.Applied,
		Skipped:      c.Resolution.Skipped,
		PaymentState: string(c.Payment.State),
	}, nil
}

// buildPreChain 事务外：校验 → 批发检查 → 档期 HELD。
func buildPreChain() saga.Handler {
	validate := &saga.ValidateCartHandler{}
	validate.
		SetNext(&saga.WholesaleHandler{}).
		SetNext(&saga.HoldSlotHandler{})
	return validate
}

// buildTxChain 事务内：档期 CONFIRMED → 券核销 → 落单 → 扣库存 →
// 支付流水 → pending→confirmed。
func buildTxChain() saga.Handler {
	confirmSlot := &saga.ConfirmSlotHandler{}
	confirmSlot.
		SetNext(&saga.CouponHandler{}).
		SetNext(&saga.CreateOrderHandler{}).
		SetNext(&saga.DecrementStockHandler{}).
		SetNext(&saga.PaymentRecordHandler{}).
		SetNext(&saga.ConfirmOrderHandler{})
	return confirmSlot
}

func (s *Service) countFailure(err error) {
	switch {
	case errs.IsValidation(err):
		metrics.CheckoutTotal.WithLabelValues("rejected").Inc()
	case errs.IsInsufficientStock(err) || errs.IsConflict(err):
		metrics.CheckoutTotal.WithLabelValues("conflict").Inc()
	default:
		metrics.CheckoutTotal.WithLabelValues("error").Inc()
	}
}

// runFollowups 提交后的跟进：支付授权、确认事件、下单通知。
// 每一项失败都只记日志和指标，不影响已确认的订单。
func (s *Service) runFollowups(ctx context.Context, c *saga.CheckoutContext) {
	ctx, span := s.tracer.Start(ctx, "checkout.Followups")
	defer span.End()

	s.authorizePayment(ctx, c)

	if err := s.publisher.PublishConfirmed(ctx, c.Order); err != nil {
		metrics.FollowupFailures.WithLabelValues("event").Inc()
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", c.Order.ID).
			Msg("failed to publish order confirmed event")
	}

	data := map[string]any{
		"order_number": c.Order.Number,
		"total":        c.Order.Totals.Total,
	}
	if _, err := s.notifier.Send(ctx, "email", c.Order.UserID, "order_confirmed", data); err != nil {
		metrics.FollowupFailures.WithLabelValues("notification").Inc()
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", c.Order.ID).
			Msg("failed to send order confirmation")
	}
}

// authorizePayment 调网关授权并守卫式回写流水状态。网关超时或
// 报错时流水停在 pending，对账任务负责收口。
func (s *Service) authorizePayment(ctx context.Context, c *saga.CheckoutContext) {
	auth, err := s.processor.Authorize(ctx, c.Order.ID, c.Payment.Amount, c.Payment.Method)
	if err != nil {
		metrics.FollowupFailures.WithLabelValues("payment").Inc()
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", c.Order.ID).
			Str("payment_id", c.Payment.ID).
			Msg("payment authorization failed")
		return
	}

	to := domain.PaymentApproved
	if auth.Status != "approved" {
		to = domain.PaymentRejected
	}
	moved, err := s.payments.MarkState(ctx, c.Payment.ID, domain.PaymentPending, to, auth.TransactionID)
	if err != nil || !moved {
		metrics.FollowupFailures.WithLabelValues("payment").Inc()
		logger.Ctx(ctx).Error().Err(err).
			Str("payment_id", c.Payment.ID).
			Bool("moved", moved).
			Msg("failed to record payment authorization result")
		return
	}
	c.Payment.State = to
	c.Payment.GatewayRef = auth.TransactionID
}
