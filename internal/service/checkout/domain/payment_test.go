package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vivero/internal/errs"
)

func TestNewPaymentTransactionSplitsFee(t *testing.T) {
	p := NewPaymentTransaction("pay-1", "order-1", "card", 80, 0.029)

	assert.Equal(t, PaymentPending, p.State)
	assert.Equal(t, 1, p.Attempt)
	assert.InDelta(t, 2.32, p.Fee, 1e-9)
	assert.InDelta(t, 77.68, p.Net, 1e-9)
	assert.InDelta(t, p.Amount, p.Fee+p.Net, 1e-9)
}

func TestPaymentTransitions(t *testing.T) {
	p := NewPaymentTransaction("pay-1", "order-1", "card", 80, 0)

	require.NoError(t, p.Transition(PaymentApproved))
	assert.Equal(t, PaymentApproved, p.State)

	// approved 是终态
	err := p.Transition(PaymentRejected)
	require.Error(t, err)
	assert.True(t, errs.IsInvalidTransition(err))
	assert.Equal(t, PaymentApproved, p.State)
}

func TestPaymentRetryOpensNextAttempt(t *testing.T) {
	p := NewPaymentTransaction("pay-1", "order-1", "card", 80, 0.029)
	require.NoError(t, p.Transition(PaymentRejected))

	retry, err := p.Retry("pay-2")
	require.NoError(t, err)
	assert.Equal(t, 2, retry.Attempt)
	assert.Equal(t, PaymentPending, retry.State)
	assert.Equal(t, p.OrderID, retry.OrderID)
	assert.InDelta(t, p.Amount, retry.Amount, 1e-9)

	// 还在途或已成功的流水不能开新尝试
	approved := NewPaymentTransaction("pay-3", "order-2", "card", 50, 0)
	require.NoError(t, approved.Transition(PaymentApproved))
	_, err = approved.Retry("pay-4")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidTransition(err))
}

func TestPaymentPendingCanExpire(t *testing.T) {
	p := NewPaymentTransaction("pay-1", "order-1", "transfer", 120, 0.01)
	require.NoError(t, p.Transition(PaymentExpired))
	require.Error(t, p.Transition(PaymentApproved))
}
