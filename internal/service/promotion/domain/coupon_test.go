package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateAtReasons(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	base := Coupon{Active: true, StartsAt: &past, EndsAt: &future, MaxUses: 10, MaxUsesPerUser: 1, MinSubtotal: 50}

	assert.Equal(t, "", base.ValidateAt(now, 100, 0))

	inactive := base
	inactive.Active = false
	assert.Equal(t, SkipInactive, inactive.ValidateAt(now, 100, 0))

	notStarted := base
	notStarted.StartsAt = &future
	assert.Equal(t, SkipNotStarted, notStarted.ValidateAt(now, 100, 0))

	expired := base
	expired.EndsAt = &past
	assert.Equal(t, SkipExpired, expired.ValidateAt(now, 100, 0))

	exhausted := base
	exhausted.TimesUsed = 10
	assert.Equal(t, SkipExhausted, exhausted.ValidateAt(now, 100, 0))

	assert.Equal(t, SkipUserLimit, base.ValidateAt(now, 100, 1))
	assert.Equal(t, SkipMinSubtotal, base.ValidateAt(now, 20, 0))
}

func TestDiscountPercentageCaps(t *testing.T) {
	c := Coupon{Type: CouponPercentage, Value: 20, MaxDiscount: 15}
	assert.InDelta(t, 15.0, c.Discount(100), 1e-9, "capped by MaxDiscount")

	uncapped := Coupon{Type: CouponPercentage, Value: 20}
	assert.InDelta(t, 20.0, uncapped.Discount(100), 1e-9)

	// 100% 以上也不会超过适用金额
	silly := Coupon{Type: CouponPercentage, Value: 150}
	assert.InDelta(t, 100.0, silly.Discount(100), 1e-9)
}

func TestDiscountFixedNeverExceedsEligible(t *testing.T) {
	c := Coupon{Type: CouponFixed, Value: 30}
	assert.InDelta(t, 30.0, c.Discount(100), 1e-9)
	assert.InDelta(t, 10.0, c.Discount(10), 1e-9)
	assert.Equal(t, 0.0, c.Discount(0))
}

func TestAppliesToCategory(t *testing.T) {
	all := Coupon{}
	assert.True(t, all.AppliesToCategory("plant"))

	scoped := Coupon{Categories: []string{"plant", "pot"}}
	assert.True(t, scoped.AppliesToCategory("pot"))
	assert.False(t, scoped.AppliesToCategory("tool"))
}
