package saga

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"vivero/internal/pkg/logger"
	cartapp "vivero/internal/service/cart/application"
	"vivero/internal/service/checkout/domain"
	invapp "vivero/internal/service/inventory/application"
	orderdomain "vivero/internal/service/order/domain"
	promoapp "vivero/internal/service/promotion/application"
)

// ConfirmRequest 结算确认请求。金额字段一律以快照口径传入，
// 链路内不再回读购物车原始价。
type ConfirmRequest struct {
	CartID         string
	UserID         string
	SellerID       string
	CustomerType   string
	TaxID          string
	DeliverySlotID string
	ShippingCost   float64
	PaymentMethod  string
	CouponCodes    []string
}

// CartValidator 购物车校验入口。
type CartValidator interface {
	Validate(ctx context.Context, cartID string) (*cartapp.Result, error)
}

// CartRegistry 购物车状态翻转，守卫落败说明已被并发下单转走。
type CartRegistry interface {
	MarkProcessed(ctx context.Context, id string) (bool, error)
}

// CouponService 券解析与核销。
type CouponService interface {
	Resolve(ctx context.Context, in promoapp.ResolveInput) (*promoapp.Resolution, error)
	Consume(ctx context.Context, resolution *promoapp.Resolution, userID string) error
}

// SlotAllocator 配送档期占用。
type SlotAllocator interface {
	ReserveSlot(ctx context.Context, slotID, orderRef string, expiresAt *time.Time) error
	ConfirmHold(ctx context.Context, slotID, orderRef string) error
	ReleaseSlot(ctx context.Context, slotID, orderRef string) error
}

// StockWriter 库存扣减。
type StockWriter interface {
	DecrementAtomic(ctx context.Context, items []invapp.ItemRequest) error
}

// OrderWriter 落单与守卫式状态迁移。
type OrderWriter interface {
	CreateWithUniqueNumber(ctx context.Context, order *orderdomain.Order) error
	SaveTransition(ctx context.Context, orderID string, change orderdomain.StateChange) (bool, error)
}

// CheckoutContext 在结算链路中传递的上下文。步骤间的产出
// （校验结果、券解析、订单聚合）都挂在这里。
type CheckoutContext struct {
	Ctx    context.Context
	Req    ConfirmRequest
	Tracer trace.Tracer

	// 预生成的订单 ID，档期占用与落单共用同一引用。
	OrderID string

	Cart       *cartapp.Result
	Resolution *promoapp.Resolution
	Order      *orderdomain.Order
	Payment    *domain.PaymentTransaction

	Validator CartValidator
	Carts     CartRegistry
	Coupons   CouponService
	Slots     SlotAllocator
	Stock     StockWriter
	Orders    OrderWriter
	Payments  domain.PaymentRepository

	WholesaleMinSubtotal float64
	PaymentFeeRate       float64
	SlotHoldTTL          time.Duration

	compensations []func(ctx context.Context)
	compLock      sync.Mutex
}

// AddCompensation 头插补偿函数，触发时按 LIFO 执行。
// 只登记事务之外的资源，事务内的写由回滚兜底。
func (c *CheckoutContext) AddCompensation(comp func(ctx context.Context)) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	c.compensations = append([]func(context.Context){comp}, c.compensations...)
}

// TriggerCompensation 逆序执行登记过的补偿。
func (c *CheckoutContext) TriggerCompensation(ctx context.Context) {
	c.compLock.Lock()
	comps := c.compensations
	c.compensations = nil
	c.compLock.Unlock()

	if len(comps) == 0 {
		return
	}
	logger.Ctx(ctx).Info().
		Str("order_id", c.OrderID).
		Int("count", len(comps)).
		Msg("running checkout compensations")
	for _, comp := range comps {
		comp(ctx)
	}
}

// Handler 结算链路单个步骤。
type Handler interface {
	SetNext(handler Handler) Handler
	Handle(c *CheckoutContext) error
}

type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(c *CheckoutContext) error {
	if h.next != nil {
		return h.next.Handle(c)
	}
	return nil
}
