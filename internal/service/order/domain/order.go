package domain

import (
	"fmt"
	"math/rand"
	"regexp"
	"time"

	"vivero/internal/errs"
)

// CustomerType 客户类型。
type CustomerType string

const (
	CustomerParticular CustomerType = "particular"
	CustomerWholesale  CustomerType = "wholesale"
)

// taxIDPattern 批发客户税号格式。
var taxIDPattern = regexp.MustCompile(`^[0-9]{8,11}-[0-9]$`)

// Totals 下单时刻的金额快照，确认后不再变。
type Totals struct {
	Subtotal float64
	Discount float64
	Shipping float64
	Total    float64
}

// OrderItem 行项快照：名称与单价都固化在下单时刻。
type OrderItem struct {
	ProductID   string
	Name        string
	Qty         int
	UnitPrice   float64
	Discount    float64
	TaxCategory string
}

// AppliedCoupon 订单上生效的券。
type AppliedCoupon struct {
	CouponID string
	Code     string
	Discount float64
}

// StateChange 状态变更历史，只追加。
type StateChange struct {
	From   State
	To     State
	Reason string
	Actor  string
	At     time.Time
}

// Order 订单聚合根。
type Order struct {
	ID             string
	Number         string
	UserID         string
	SellerID       string
	CartID         string
	CustomerType   CustomerType
	TaxID          string
	Items          []OrderItem
	Coupons        []AppliedCoupon
	Totals         Totals
	DeliverySlotID string
	State          State
	History        []StateChange
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Transition 白名单内迁移并追加历史，否则返回迁移错误。
func (o *Order) Transition(to State, reason, actor string) error {
	if !to.Valid() {
		return &errs.InvalidStateTransitionError{Entity: "order", From: string(o.State), To: string(to)}
	}
	if !CanTransition(o.State, to) {
		return &errs.InvalidStateTransitionError{Entity: "order", From: string(o.State), To: string(to)}
	}
	change := StateChange{From: o.State, To: to, Reason: reason, Actor: actor, At: time.Now()}
	o.State = to
	o.History = append(o.History, change)
	return nil
}

// LastChange 最近一条历史。
func (o *Order) LastChange() *StateChange {
	if len(o.History) == 0 {
		return nil
	}
	return &o.History[len(o.History)-1]
}

// ValidateWholesale 批发单确认前的硬性校验：税号格式与最低小计。
// 两类失败给出可区分的错误。
func (o *Order) ValidateWholesale(minSubtotal float64) error {
	if o.CustomerType != CustomerWholesale {
		return nil
	}
	if !taxIDPattern.MatchString(o.TaxID) {
		return errs.NewValidation("wholesale order rejected",
			errs.FieldIssue{Field: "tax_id", Reason: "tax id must match NN…N-N format (8-11 digits, check digit)"})
	}
	if o.Totals.Subtotal < minSubtotal {
		return errs.NewValidation("wholesale order rejected",
			errs.FieldIssue{Field: "subtotal", Reason: fmt.Sprintf("wholesale orders require a subtotal of at least %.2f", minSubtotal)})
	}
	return nil
}

// ComputeTotal 按快照口径汇总：小计 − 折扣 + 运费。
func (t *Totals) ComputeTotal() {
	t.Total = t.Subtotal - t.Discount + t.Shipping
	if t.Total < 0 {
		t.Total = 0
	}
}

// GenerateNumber 生成订单号 PL-YYMMDD-XXXXXX。
// 唯一性靠数据库唯一索引兜底，撞号由调用方重试。
func GenerateNumber(now time.Time) string {
	return fmt.Sprintf("PL-%s-%06d", now.Format("060102"), rand.Intn(1000000))
}
