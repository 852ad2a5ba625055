package domain

import (
	"time"

	"vivero/internal/errs"
)

// PaymentState 支付流水状态。
type PaymentState string

const (
	PaymentPending  PaymentState = "pending"
	PaymentApproved PaymentState = "approved"
	PaymentRejected PaymentState = "rejected"
	PaymentExpired  PaymentState = "expired"
)

var paymentNext = map[PaymentState]map[PaymentState]bool{
	PaymentPending:  {PaymentApproved: true, PaymentRejected: true, PaymentExpired: true},
	PaymentApproved: {},
	PaymentRejected: {},
	PaymentExpired:  {},
}

// PaymentTransaction 订单的支付流水。确认事务内先落 pending，
// 网关授权在事务之外进行，结果回写状态。一单可以有多次尝试，
// (order, attempt) 唯一。
type PaymentTransaction struct {
	ID         string
	OrderID    string
	Attempt    int
	Method     string
	Amount     float64
	Fee        float64
	Net        float64
	State      PaymentState
	GatewayRef string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewPaymentTransaction 按费率拆出通道费与净额，attempt 从 1 起。
func NewPaymentTransaction(id, orderID, method string, amount, feeRate float64) *PaymentTransaction {
	fee := amount * feeRate
	return &PaymentTransaction{
		ID:      id,
		OrderID: orderID,
		Attempt: 1,
		Method:  method,
		Amount:  amount,
		Fee:     fee,
		Net:     amount - fee,
		State:   PaymentPending,
	}
}

// Retry 在被拒或过期之后开下一次尝试，金额口径沿用上一笔。
func (p *PaymentTransaction) Retry(id string) (*PaymentTransaction, error) {
	if p.State != PaymentRejected && p.State != PaymentExpired {
		return nil, &errs.InvalidStateTransitionError{Entity: "payment", From: string(p.State), To: string(PaymentPending)}
	}
	return &PaymentTransaction{
		ID:      id,
		OrderID: p.OrderID,
		Attempt: p.Attempt + 1,
		Method:  p.Method,
		Amount:  p.Amount,
		Fee:     p.Fee,
		Net:     p.Net,
		State:   PaymentPending,
	}, nil
}

// Transition 白名单迁移。
func (p *PaymentTransaction) Transition(to PaymentState) error {
	if !paymentNext[p.State][to] {
		return &errs.InvalidStateTransitionError{Entity: "payment", From: string(p.State), To: string(to)}
	}
	p.State = to
	return nil
}
