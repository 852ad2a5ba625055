package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(subtotal, shipping float64) OrderSnapshot {
	return OrderSnapshot{
		OrderID:  "order-1",
		SellerID: "seller-1",
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal + shipping,
	}
}

func TestCommissionBaseExcludesShipping(t *testing.T) {
	s := snapshot(300, 25)
	assert.Equal(t, 300.0, CommissionBase(s))
}

func TestCalculatePercentage(t *testing.T) {
	cfg := CommissionConfig{Type: CommissionPercentage, Rate: 0.10}
	assert.InDelta(t, 30.0, cfg.Calculate(300), 1e-9)
	assert.Equal(t, 0.0, cfg.Calculate(-50))
}

func TestCalculateFixed(t *testing.T) {
	cfg := CommissionConfig{Type: CommissionFixed, FixedAmount: 12.5}
	assert.Equal(t, 12.5, cfg.Calculate(300))
	assert.Equal(t, 12.5, cfg.Calculate(0))
}

func TestCalculateTieredProgressive(t *testing.T) {
	cfg := CommissionConfig{
		Type: CommissionTiered,
		Tiers: []Tier{
			{From: 0, To: 100, Rate: 0.05},
			{From: 100, To: 500, Rate: 0.10},
		},
	}
	// 100*5% + 200*10% = 25
	assert.InDelta(t, 25.0, cfg.Calculate(300), 1e-9)
	// 基数没到第二档时只计第一档
	assert.InDelta(t, 4.0, cfg.Calculate(80), 1e-9)
	// To = 0 的末档不封顶
	open := CommissionConfig{
		Type: CommissionTiered,
		Tiers: []Tier{
			{From: 0, To: 100, Rate: 0.05},
			{From: 100, To: 0, Rate: 0.10},
		},
	}
	assert.InDelta(t, 5.0+90.0, open.Calculate(1000), 1e-9)
}

func TestCalculateMixed(t *testing.T) {
	sum := CommissionConfig{Type: CommissionMixed, Rate: 0.10, FixedAmount: 5}
	assert.InDelta(t, 35.0, sum.Calculate(300), 1e-9)

	takeMax := CommissionConfig{Type: CommissionMixed, Rate: 0.10, FixedAmount: 50, MixedTakeMax: true}
	assert.InDelta(t, 50.0, takeMax.Calculate(300), 1e-9)
	assert.InDelta(t, 60.0, takeMax.Calculate(600), 1e-9)
}

func TestCalculateClamps(t *testing.T) {
	min, max := 10.0, 20.0
	cfg := CommissionConfig{Type: CommissionPercentage, Rate: 0.10, Min: &min, Max: &max}
	assert.Equal(t, 10.0, cfg.Calculate(50))  // 5 抬到下限
	assert.Equal(t, 20.0, cfg.Calculate(900)) // 90 压到上限
	assert.InDelta(t, 15.0, cfg.Calculate(150), 1e-9)
}

func TestNewCommissionEffectiveRate(t *testing.T) {
	cfg := CommissionConfig{Type: CommissionFixed, FixedAmount: 15}
	c := NewCommission("c1", snapshot(300, 25), cfg)
	assert.Equal(t, 300.0, c.Base)
	assert.Equal(t, 15.0, c.Amount)
	assert.InDelta(t, 0.05, c.EffectiveRate, 1e-9)
	assert.Equal(t, CommissionCalculated, c.State)
}

func TestCommissionTransitions(t *testing.T) {
	c := NewCommission("c1", snapshot(100, 0), CommissionConfig{Type: CommissionPercentage, Rate: 0.1})

	require.Error(t, c.Transition(CommissionPaid), "calculated cannot jump straight to paid")

	require.NoError(t, c.Transition(CommissionApproved))
	require.NotNil(t, c.ApprovedAt)
	require.NoError(t, c.Transition(CommissionPaid))
	require.NotNil(t, c.PaidAt)

	assert.Error(t, c.Transition(CommissionCancelled), "paid is terminal")
}
