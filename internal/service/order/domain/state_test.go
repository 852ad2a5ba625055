package domain

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionAllowList(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{StatePending, StateConfirmed, true},
		{StateConfirmed, StateProcessing, true},
		{StateProcessing, StatePacked, true},
		{StatePacked, StateShipped, true},
		{StateShipped, StateInTransit, true},
		{StateInTransit, StateDelivered, true},
		{StateDelivered, StateReturned, true},

		// 跳级与逆行都不允许
		{StatePending, StateProcessing, false},
		{StateConfirmed, StatePending, false},
		{StateDelivered, StateCancelled, false},
		{StateCancelled, StateConfirmed, false},
		{StateReturned, StatePending, false},

		// 交付前任一状态可取消
		{StatePending, StateCancelled, true},
		{StateConfirmed, StateCancelled, true},
		{StateInTransit, StateCancelled, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StateCancelled))
	assert.True(t, IsTerminal(StateReturned))
	assert.False(t, IsTerminal(StateDelivered))
	assert.False(t, IsTerminal(StatePending))
}

func TestTransitionAppendsHistory(t *testing.T) {
	o := &Order{State: StatePending}
	require.NoError(t, o.Transition(StateConfirmed, "checkout confirmed", "checkout"))
	require.Len(t, o.History, 1)
	assert.Equal(t, StatePending, o.History[0].From)
	assert.Equal(t, StateConfirmed, o.History[0].To)

	err := o.Transition(StateDelivered, "", "ops")
	require.Error(t, err)
	assert.Len(t, o.History, 1, "rejected transition must not append history")
	assert.Equal(t, StateConfirmed, o.State)
}

func TestTransitionRejectsUnknownState(t *testing.T) {
	o := &Order{State: StatePending}
	assert.Error(t, o.Transition(State("teleported"), "", ""))
}

func TestGenerateNumberFormat(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	number := GenerateNumber(now)
	assert.Regexp(t, regexp.MustCompile(`^PL-260830-\d{6}$`), number)
}

func TestValidateWholesale(t *testing.T) {
	o := &Order{
		CustomerType: CustomerWholesale,
		TaxID:        "12345678-9",
		Totals:       Totals{Subtotal: 600000},
	}
	require.NoError(t, o.ValidateWholesale(500000))

	badTax := *o
	badTax.TaxID = "not-a-tax-id"
	assert.Error(t, badTax.ValidateWholesale(500000))

	tooSmall := *o
	tooSmall.Totals.Subtotal = 400000
	assert.Error(t, tooSmall.ValidateWholesale(500000))

	retail := &Order{CustomerType: CustomerParticular}
	assert.NoError(t, retail.ValidateWholesale(500000), "retail orders skip wholesale rules")
}

func TestComputeTotalFloorsAtZero(t *testing.T) {
	totals := Totals{Subtotal: 10, Discount: 50, Shipping: 5}
	totals.ComputeTotal()
	assert.Equal(t, 0.0, totals.Total)

	totals = Totals{Subtotal: 80, Discount: 10, Shipping: 5}
	totals.ComputeTotal()
	assert.Equal(t, 75.0, totals.Total)
}
