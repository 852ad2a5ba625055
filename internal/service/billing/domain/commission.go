package domain

import (
	"time"

	"vivero/internal/errs"
)

// CommissionType 佣金计算模式。
type CommissionType string

const (
	CommissionPercentage CommissionType = "percentage"
	CommissionFixed      CommissionType = "fixed"
	CommissionMixed      CommissionType = "mixed"
	CommissionTiered     CommissionType = "tiered"
)

// Tier 阶梯佣金的一档。To 为 0 表示不封顶。
// 阶梯是累进的：每一档只对落在该区间的金额计费。
type Tier struct {
	From float64
	To   float64
	Rate float64
}

// CommissionConfig 佣金配置。Min/Max 为空表示不钳制；
// Min 生效时抬高到下限，Max 生效时压到上限。
type CommissionConfig struct {
	Type         CommissionType
	Rate         float64
	FixedAmount  float64
	MixedTakeMax bool
	Tiers        []Tier
	Min          *float64
	Max          *float64
}

// Calculate 对基数计算佣金额。
func (c CommissionConfig) Calculate(base float64) float64 {
	if base < 0 {
		base = 0
	}
	var amount float64
	switch c.Type {
	case CommissionPercentage:
		amount = base * c.Rate
	case CommissionFixed:
		amount = c.FixedAmount
	case CommissionMixed:
		pct := base * c.Rate
		if c.MixedTakeMax {
			amount = pct
			if c.FixedAmount > amount {
				amount = c.FixedAmount
			}
		} else {
			amount = pct + c.FixedAmount
		}
	case CommissionTiered:
		for _, tier := range c.Tiers {
			upper := tier.To
			if upper <= 0 || upper > base {
				upper = base
			}
			if upper > tier.From {
				amount += (upper - tier.From) * tier.Rate
			}
		}
	}
	if c.Min != nil && amount < *c.Min {
		amount = *c.Min
	}
	if c.Max != nil && amount > *c.Max {
		amount = *c.Max
	}
	return amount
}

// CommissionState 佣金生命周期。
type CommissionState string

const (
	CommissionCalculated CommissionState = "calculated"
	CommissionApproved   CommissionState = "approved"
	CommissionPaid       CommissionState = "paid"
	CommissionCancelled  CommissionState = "cancelled"
)

var commissionNext = map[CommissionState]map[CommissionState]bool{
	CommissionCalculated: {CommissionApproved: true, CommissionCancelled: true},
	CommissionApproved:   {CommissionPaid: true, CommissionCancelled: true},
	CommissionPaid:       {},
	CommissionCancelled:  {},
}

// Commission 一笔订单对一个卖家的佣金，(order, seller) 唯一。
type Commission struct {
	ID            string
	OrderID       string
	SellerID      string
	Type          CommissionType
	GrossSale     float64
	Base          float64
	Amount        float64
	EffectiveRate float64
	State         CommissionState
	ApprovedAt    *time.Time
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewCommission 按配置对快照计算一笔佣金。
func NewCommission(id string, s OrderSnapshot, cfg CommissionConfig) *Commission {
	base := CommissionBase(s)
	amount := cfg.Calculate(base)
	var effective float64
	if base > 0 {
		effective = amount / base
	}
	return &Commission{
		ID:            id,
		OrderID:       s.OrderID,
		SellerID:      s.SellerID,
		Type:          cfg.Type,
		GrossSale:     s.Total,
		Base:          base,
		Amount:        amount,
		EffectiveRate: effective,
		State:         CommissionCalculated,
	}
}

// Transition 白名单迁移。
func (c *Commission) Transition(to CommissionState) error {
	if !commissionNext[c.State][to] {
		return &errs.InvalidStateTransitionError{Entity: "commission", From: string(c.State), To: string(to)}
	}
	now := time.Now()
	switch to {
	case CommissionApproved:
		c.ApprovedAt = &now
	case CommissionPaid:
		c.PaidAt = &now
	}
	c.State = to
	return nil
}
