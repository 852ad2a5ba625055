package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 购物车 3×$10 + 1×$50 的确认场景：发票重算小计 80，总额 80+税。
func TestInvoiceRecomputesEightyDollarCart(t *testing.T) {
	s := OrderSnapshot{
		OrderID: "order-1",
		Lines: []OrderLine{
			{ProductID: "p1", Name: "Monstera", Qty: 3, UnitPrice: 10, TaxCategory: "plant"},
			{ProductID: "p2", Name: "Ceramic pot", Qty: 1, UnitPrice: 50, TaxCategory: "pot"},
		},
		Subtotal: 80,
		Total:    80,
	}
	rates := map[string]float64{"plant": 0.10, "pot": 0.21}

	inv := &Invoice{State: InvoiceDraft}
	inv.Lines = BuildLines(s, rates, 0.19)
	inv.ComputeTotals(0, 0)

	require.Len(t, inv.Lines, 2)
	assert.InDelta(t, 30.0, inv.Lines[0].Subtotal, 1e-9)
	assert.InDelta(t, 3.0, inv.Lines[0].TaxAmount, 1e-9)
	assert.InDelta(t, 50.0, inv.Lines[1].Subtotal, 1e-9)
	assert.InDelta(t, 10.5, inv.Lines[1].TaxAmount, 1e-9)

	assert.InDelta(t, 80.0, inv.Totals.Subtotal, 1e-9)
	assert.InDelta(t, 80.0+13.5, inv.Totals.Total, 1e-9)
	assert.InDelta(t, 0.0, inv.DriftAgainst(s), TotalsTolerance)
}

func TestBuildLinesFallsBackToDefaultRate(t *testing.T) {
	s := OrderSnapshot{Lines: []OrderLine{{ProductID: "p1", Qty: 1, UnitPrice: 100, TaxCategory: "unknown"}}}
	lines := BuildLines(s, map[string]float64{"plant": 0.10}, 0.19)
	require.Len(t, lines, 1)
	assert.InDelta(t, 0.19, lines[0].TaxRate, 1e-9)
	assert.InDelta(t, 19.0, lines[0].TaxAmount, 1e-9)
}

func TestBuildLinesFloorsNegativeLineSubtotal(t *testing.T) {
	s := OrderSnapshot{Lines: []OrderLine{{ProductID: "p1", Qty: 1, UnitPrice: 10, Discount: 25}}}
	lines := BuildLines(s, nil, 0.19)
	assert.Equal(t, 0.0, lines[0].Subtotal)
	assert.Equal(t, 0.0, lines[0].TaxAmount)
}

func TestComputeTotalsAppliesDiscountAndShipping(t *testing.T) {
	inv := &Invoice{Lines: []InvoiceLine{{Subtotal: 100, TaxAmount: 19}}}
	inv.ComputeTotals(10, 5)
	assert.InDelta(t, 100-10+19+5, inv.Totals.Total, 1e-9)
}

func TestDriftAgainstDetectsMismatch(t *testing.T) {
	s := OrderSnapshot{Total: 75}
	inv := &Invoice{Lines: []InvoiceLine{{Subtotal: 80}}}
	inv.ComputeTotals(0, 0)
	assert.Greater(t, inv.DriftAgainst(s), TotalsTolerance)
}

func TestInvoiceTransitions(t *testing.T) {
	inv := &Invoice{State: InvoiceDraft}

	require.Error(t, inv.Transition(InvoiceSent), "draft cannot be sent before issuing")

	require.NoError(t, inv.Transition(InvoiceIssued))
	require.NotNil(t, inv.IssuedAt)
	require.NoError(t, inv.Transition(InvoiceSent))
	require.NoError(t, inv.Transition(InvoicePaid))

	// void 可以从已付款进入（冲红场景）
	require.NoError(t, inv.Transition(InvoiceVoid))
	assert.Error(t, inv.Transition(InvoiceIssued), "void is terminal")
}

func TestInvoiceNumberFormat(t *testing.T) {
	at := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "FV-202603", NumberPrefix(at))
	assert.Equal(t, "FV-202603-000042", InvoiceNumber(at, 42))
}
