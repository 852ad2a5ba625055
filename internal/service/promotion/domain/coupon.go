package domain

import (
	"math"
	"time"
)

// CouponType 折扣类型。
type CouponType string

const (
	CouponPercentage CouponType = "percentage"
	CouponFixed      CouponType = "fixed"
)

// 跳过原因，机器可读，随解析结果返回给调用方。
const (
	SkipNotFound        = "not_found"
	SkipInactive        = "inactive"
	SkipNotStarted      = "not_started"
	SkipExpired         = "expired"
	SkipExhausted       = "exhausted"
	SkipUserLimit       = "user_limit_reached"
	SkipMinSubtotal     = "min_subtotal_not_met"
	SkipNoEligibleItems = "no_eligible_items"
	SkipRuleRejected    = "rule_rejected"
	SkipRuleError       = "rule_error"
	SkipDuplicate       = "duplicate_code"
)

// Coupon 优惠券。MaxUses/MaxUsesPerUser 为 0 表示不限；
// Categories 为空表示对整车生效，否则只对这些品类的金额生效。
type Coupon struct {
	ID             string
	Code           string
	Active         bool
	StartsAt       *time.Time
	EndsAt         *time.Time
	Type           CouponType
	Value          float64
	MaxDiscount    float64
	MinSubtotal    float64
	Categories     []string
	RuleDefinition string
	MaxUses        int
	MaxUsesPerUser int
	TimesUsed      int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ValidateAt 静态校验：状态、有效期、全局与单人次数、最低消费。
// 返回空串表示通过，否则是跳过原因。
func (c *Coupon) ValidateAt(now time.Time, subtotal float64, userUses int) string {
	if !c.Active {
		return SkipInactive
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return SkipNotStarted
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return SkipExpired
	}
	if c.MaxUses > 0 && c.TimesUsed >= c.MaxUses {
		return SkipExhausted
	}
	if c.MaxUsesPerUser > 0 && userUses >= c.MaxUsesPerUser {
		return SkipUserLimit
	}
	if c.MinSubtotal > 0 && subtotal < c.MinSubtotal {
		return SkipMinSubtotal
	}
	return ""
}

// AppliesToCategory 该品类是否在券的适用范围内。
func (c *Coupon) AppliesToCategory(category string) bool {
	if len(c.Categories) == 0 {
		return true
	}
	for _, cat := range c.Categories {
		if cat == category {
			return true
		}
	}
	return false
}

// Discount 对给定的适用金额计算折扣。
// 百分比券受 MaxDiscount 封顶，固定券不超过适用金额。
func (c *Coupon) Discount(eligible float64) float64 {
	if eligible <= 0 {
		return 0
	}
	switch c.Type {
	case CouponPercentage:
		d := eligible * c.Value / 100
		if c.MaxDiscount > 0 {
			d = math.Min(d, c.MaxDiscount)
		}
		return math.Min(d, eligible)
	case CouponFixed:
		return math.Min(c.Value, eligible)
	default:
		return 0
	}
}
