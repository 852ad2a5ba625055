package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"vivero/internal/errs"
	cartapp "vivero/internal/service/cart/application"
	"vivero/internal/service/checkout/application/saga"
	"vivero/internal/service/checkout/domain"
	"vivero/internal/service/checkout/port"
	invapp "vivero/internal/service/inventory/application"
	orderdomain "vivero/internal/service/order/domain"
	promoapp "vivero/internal/service/promotion/application"
)

type fakeValidator struct {
	result *cartapp.Result
	err    error
}

func (f *fakeValidator) Validate(ctx context.Context, cartID string) (*cartapp.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeCarts struct {
	processed map[string]bool
}

func (f *fakeCarts) MarkProcessed(ctx context.Context, id string) (bool, error) {
	if f.processed[id] {
		return false, nil
	}
	if f.processed == nil {
		f.processed = map[string]bool{}
	}
	f.processed[id] = true
	return true, nil
}

type fakeCoupons struct {
	resolution *promoapp.Resolution
	consumeErr error
	consumed   int
}

func (f *fakeCoupons) Resolve(ctx context.Context, in promoapp.ResolveInput) (*promoapp.Resolution, error) {
	return f.resolution, nil
}

func (f *fakeCoupons) Consume(ctx context.Context, resolution *promoapp.Resolution, userID string) error {
	if f.consumeErr != nil {
		return f.consumeErr
	}
	f.consumed++
	return nil
}

type fakeSlots struct {
	held      map[string]string // slotID -> orderRef
	confirmed []string
	released  []string
}

func (f *fakeSlots) ReserveSlot(ctx context.Context, slotID, orderRef string, expiresAt *time.Time) error {
	if f.held == nil {
		f.held = map[string]string{}
	}
	f.held[slotID] = orderRef
	return nil
}

func (f *fakeSlots) ConfirmHold(ctx context.Context, slotID, orderRef string) error {
	f.confirmed = append(f.confirmed, slotID)
	return nil
}

func (f *fakeSlots) ReleaseSlot(ctx context.Context, slotID, orderRef string) error {
	f.released = append(f.released, slotID)
	return nil
}

type fakeStock struct {
	err         error
	decremented []invapp.ItemRequest
}

func (f *fakeStock) DecrementAtomic(ctx context.Context, items []invapp.ItemRequest) error {
	if f.err != nil {
		return f.err
	}
	f.decremented = append(f.decremented, items...)
	return nil
}

type fakeOrders struct {
	created     *orderdomain.Order
	transitions []orderdomain.StateChange
}

func (f *fakeOrders) CreateWithUniqueNumber(ctx context.Context, order *orderdomain.Order) error {
	order.Number = "PL-260830-000001"
	f.created = order
	return nil
}

func (f *fakeOrders) SaveTransition(ctx context.Context, orderID string, change orderdomain.StateChange) (bool, error) {
	f.transitions = append(f.transitions, change)
	return true, nil
}

type fakePayments struct {
	created *domain.PaymentTransaction
	marked  []domain.PaymentState
}

func (f *fakePayments) Create(ctx context.Context, p *domain.PaymentTransaction) error {
	f.created = p
	return nil
}

func (f *fakePayments) FindByOrder(ctx context.Context, orderID string) (*domain.PaymentTransaction, error) {
	return f.created, nil
}

func (f *fakePayments) MarkState(ctx context.Context, id string, from, to domain.PaymentState, gatewayRef string) (bool, error) {
	f.marked = append(f.marked, to)
	return true, nil
}

type fakeProcessor struct {
	status string
	err    error
	calls  int
}

func (f *fakeProcessor) Authorize(ctx context.Context, orderID string, amount float64, method string) (port.AuthResult, error) {
	f.calls++
	if f.err != nil {
		return port.AuthResult{}, f.err
	}
	return port.AuthResult{TransactionID: "tx-1", Status: f.status}, nil
}

type fakeNotifier struct{ calls int }

func (f *fakeNotifier) Send(ctx context.Context, channel, recipient, template string, data map[string]any) (string, error) {
	f.calls++
	return "msg-1", nil
}

type fakePublisher struct {
	confirmed    int
	stateChanges int
}

func (f *fakePublisher) PublishConfirmed(ctx context.Context, order *orderdomain.Order) error {
	f.confirmed++
	return nil
}

func (f *fakePublisher) PublishStateChanged(ctx context.Context, order *orderdomain.Order, change orderdomain.StateChange) error {
	f.stateChanges++
	return nil
}

// recordTxManager 直通执行，同时记录事务是否被打开和回滚。
type recordTxManager struct {
	began      int
	rolledBack int
}

func (m *recordTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	m.began++
	if err := fn(ctx); err != nil {
		m.rolledBack++
		return err
	}
	return nil
}

type fixture struct {
	svc       *Service
	carts     *fakeCarts
	coupons   *fakeCoupons
	slots     *fakeSlots
	stock     *fakeStock
	orders    *fakeOrders
	payments  *fakePayments
	processor *fakeProcessor
	notifier  *fakeNotifier
	publisher *fakePublisher
	txm       *recordTxManager
}

func validCartResult() *cartapp.Result {
	return &cartapp.Result{
		CartID: "cart-1",
		UserID: "u1",
		Valid:  true,
		Items: []cartapp.ValidatedItem{
			{ProductID: "p1", Name: "Monstera", Qty: 3, UnitPrice: 10, TaxCategory: "plant"},
			{ProductID: "p2", Name: "Ceramic pot", Qty: 1, UnitPrice: 50, TaxCategory: "pot"},
		},
		Subtotal: 80,
	}
}

func newFixture() *fixture {
	f := &fixture{
		carts:     &fakeCarts{},
		coupons:   &fakeCoupons{resolution: &promoapp.Resolution{}},
		slots:     &fakeSlots{},
		stock:     &fakeStock{},
		orders:    &fakeOrders{},
		payments:  &fakePayments{},
		processor: &fakeProcessor{status: "approved"},
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
		txm:       &recordTxManager{},
	}
	f.svc = NewService(Deps{
		Validator:            &fakeValidator{result: validCartResult()},
		Carts:                f.carts,
		Coupons:              f.coupons,
		Slots:                f.slots,
		Stock:                f.stock,
		Orders:               f.orders,
		Payments:             f.payments,
		Processor:            f.processor,
		Notifier:             f.notifier,
		Publisher:            f.publisher,
		TxManager:            f.txm,
		Tracer:               otel.Tracer("test"),
		WholesaleMinSubtotal: 500000,
		PaymentFeeRate:       0.029,
		SlotHoldTTL:          30 * time.Minute,
	})
	return f
}

func confirmRequest() saga.ConfirmRequest {
	return saga.ConfirmRequest{
		CartID:         "cart-1",
		UserID:         "u1",
		SellerID:       "seller-1",
		CustomerType:   "particular",
		DeliverySlotID: "slot-1",
		ShippingCost:   5,
		PaymentMethod:  "card",
	}
}

func TestConfirmHappyPath(t *testing.T) {
	f := newFixture()
	f.coupons.resolution = &promoapp.Resolution{
		Applied:       []promoapp.AppliedCoupon{{CouponID: "c1", Code: "SAVE5", Discount: 5}},
		TotalDiscount: 5,
	}

	result, err := f.svc.Confirm(context.Background(), confirmRequest())
	require.NoError(t, err)

	assert.Equal(t, "PL-260830-000001", result.OrderNumber)
	assert.Equal(t, string(orderdomain.StateConfirmed), result.State)
	assert.InDelta(t, 80.0-5+5, result.Total, 1e-9)
	assert.Equal(t, "approved", result.PaymentState)

	// 订单快照
	require.NotNil(t, f.orders.created)
	assert.Equal(t, 80.0, f.orders.created.Totals.Subtotal)
	assert.Len(t, f.orders.created.Items, 2)
	assert.Len(t, f.orders.created.Coupons, 1)

	// 档期:先 HELD 再确认
	assert.Equal(t, f.orders.created.ID, f.slots.held["slot-1"])
	assert.Equal(t, []string{"slot-1"}, f.slots.confirmed)
	assert.Empty(t, f.slots.released)

	// 一个事务覆盖全部写入,状态推进到 confirmed
	assert.Equal(t, 1, f.txm.began)
	require.Len(t, f.orders.transitions, 1)
	assert.Equal(t, orderdomain.StateConfirmed, f.orders.transitions[0].To)

	// 库存、购物车、券、支付流水
	assert.Len(t, f.stock.decremented, 2)
	assert.True(t, f.carts.processed["cart-1"])
	assert.Equal(t, 1, f.coupons.consumed)
	require.NotNil(t, f.payments.created)
	assert.InDelta(t, 80.0*0.029, f.payments.created.Fee, 1e-9)

	// 提交后的跟进各执行一次
	assert.Equal(t, 1, f.processor.calls)
	assert.Equal(t, 1, f.publisher.confirmed)
	assert.Equal(t, 1, f.notifier.calls)
}

func TestConfirmStockFailureRollsBackAndCompensates(t *testing.T) {
	f := newFixture()
	f.stock.err = &errs.InsufficientStockError{Shortfalls: []errs.Shortfall{{ProductID: "p1", Required: 3, Available: 1}}}

	_, err := f.svc.Confirm(context.Background(), confirmRequest())
	require.Error(t, err)
	assert.True(t, errs.IsInsufficientStock(err))

	// 事务回滚,档期补偿释放
	assert.Equal(t, 1, f.txm.rolledBack)
	assert.Equal(t, []string{"slot-1"}, f.slots.released)

	// 提交后的跟进一个都不能跑
	assert.Equal(t, 0, f.processor.calls)
	assert.Equal(t, 0, f.publisher.confirmed)
	assert.Equal(t, 0, f.notifier.calls)
	assert.Empty(t, f.payments.marked)
}

func TestConfirmInvalidCartRejectedBeforeTransaction(t *testing.T) {
	f := newFixture()
	f.svc = NewService(Deps{
		Validator: &fakeValidator{result: &cartapp.Result{
			CartID: "cart-1", UserID: "u1", Valid: false,
			Issues: []cartapp.ItemIssue{{ProductID: "p1", Reason: cartapp.ReasonOutOfStock}},
		}},
		Carts: f.carts, Coupons: f.coupons, Slots: f.slots, Stock: f.stock,
		Orders: f.orders, Payments: f.payments, Processor: f.processor,
		Notifier: f.notifier, Publisher: f.publisher, TxManager: f.txm,
		Tracer: otel.Tracer("test"),
	})

	_, err := f.svc.Confirm(context.Background(), confirmRequest())
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
	assert.Equal(t, 0, f.txm.began, "validation failures must not open a transaction")
	assert.Empty(t, f.slots.held)
}

func TestConfirmWholesaleMinimumBlocks(t *testing.T) {
	f := newFixture()
	req := confirmRequest()
	req.CustomerType = "wholesale"
	req.TaxID = "12345678-9"

	_, err := f.svc.Confirm(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err), "subtotal below wholesale minimum must be rejected")
	assert.Equal(t, 0, f.txm.began)
}

func TestConfirmCartAlreadyProcessedConflicts(t *testing.T) {
	f := newFixture()
	f.carts.processed = map[string]bool{"cart-1": true}

	_, err := f.svc.Confirm(context.Background(), confirmRequest())
	require.Error(t, err)
	assert.True(t, errs.IsConflict(err))
	assert.Equal(t, 1, f.txm.rolledBack)
	assert.Equal(t, []string{"slot-1"}, f.slots.released)
}

func TestConfirmCouponConsumeConflictAborts(t *testing.T) {
	f := newFixture()
	f.coupons.resolution = &promoapp.Resolution{
		Applied:       []promoapp.AppliedCoupon{{CouponID: "c1", Code: "ONCE", Discount: 5}},
		TotalDiscount: 5,
	}
	f.coupons.consumeErr = errs.NewConflict("coupon", "coupon ONCE is no longer available")

	_, err := f.svc.Confirm(context.Background(), confirmRequest())
	require.Error(t, err)
	assert.True(t, errs.IsConflict(err))
	assert.Equal(t, 1, f.txm.rolledBack)
	assert.Equal(t, 0, f.publisher.confirmed)
}

func TestConfirmGatewayFailureLeavesPaymentPending(t *testing.T) {
	f := newFixture()
	f.processor.err = errs.NewExternal("payment_gateway", assert.AnError)

	result, err := f.svc.Confirm(context.Background(), confirmRequest())
	require.NoError(t, err, "gateway trouble must not fail a committed checkout")

	assert.Equal(t, string(domain.PaymentPending), result.PaymentState)
	assert.Empty(t, f.payments.marked)
	// 其余跟进照常执行
	assert.Equal(t, 1, f.publisher.confirmed)
	assert.Equal(t, 1, f.notifier.calls)
}

func TestConfirmWithoutSlotSkipsSlotSteps(t *testing.T) {
	f := newFixture()
	req := confirmRequest()
	req.DeliverySlotID = ""

	_, err := f.svc.Confirm(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, f.slots.held)
	assert.Empty(t, f.slots.confirmed)
}
