package domain

import (
	"fmt"
	"math"
	"time"

	"vivero/internal/errs"
)

// TotalsTolerance 发票重算金额与订单快照金额的允许偏差。
const TotalsTolerance = 0.01

// InvoiceState 发票生命周期。void 可从任何非 void 状态进入。
type InvoiceState string

const (
	InvoiceDraft  InvoiceState = "draft"
	InvoiceIssued InvoiceState = "issued"
	InvoiceSent   InvoiceState = "sent"
	InvoicePaid   InvoiceState = "paid"
	InvoiceVoid   InvoiceState = "void"
)

var invoiceNext = map[InvoiceState]map[InvoiceState]bool{
	InvoiceDraft:  {InvoiceIssued: true, InvoiceVoid: true},
	InvoiceIssued: {InvoiceSent: true, InvoicePaid: true, InvoiceVoid: true},
	InvoiceSent:   {InvoicePaid: true, InvoiceVoid: true},
	InvoicePaid:   {InvoiceVoid: true},
	InvoiceVoid:   {},
}

// InvoiceLine 发票行项，金额从订单行重算，不抄订单总额。
type InvoiceLine struct {
	ProductID string
	Name      string
	Qty       int
	UnitPrice float64
	Discount  float64
	Subtotal  float64
	TaxRate   float64
	TaxAmount float64
}

// InvoiceTotals 发票汇总，全部由行项重算得出。
type InvoiceTotals struct {
	Subtotal float64
	Discount float64
	Tax      float64
	Shipping float64
	Total    float64
}

// Invoice 销售发票。Revision 从 1 起，(order, revision) 唯一，
// 强制重开时旧票作废、revision 递增。
type Invoice struct {
	ID           string
	Number       string
	OrderID      string
	OrderNumber  string
	UserID       string
	CustomerType string
	TaxID        string
	Revision     int
	Lines        []InvoiceLine
	Totals       InvoiceTotals
	State        InvoiceState
	IssuedAt     *time.Time
	DueAt        *time.Time
	SentAt       *time.Time
	PaidAt       *time.Time
	PDFURL       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BuildLines 从订单快照重算发票行：行小计 = 数量×单价 − 行折扣，
// 税按商品品类取率，查不到用默认税率。
func BuildLines(s OrderSnapshot, taxRates map[string]float64, defaultRate float64) []InvoiceLine {
	lines := make([]InvoiceLine, 0, len(s.Lines))
	for _, src := range s.Lines {
		rate, ok := taxRates[src.TaxCategory]
		if !ok {
			rate = defaultRate
		}
		subtotal := float64(src.Qty)*src.UnitPrice - src.Discount
		if subtotal < 0 {
			subtotal = 0
		}
		lines = append(lines, InvoiceLine{
			ProductID: src.ProductID,
			Name:      src.Name,
			Qty:       src.Qty,
			UnitPrice: src.UnitPrice,
			Discount:  src.Discount,
			Subtotal:  subtotal,
			TaxRate:   rate,
			TaxAmount: subtotal * rate,
		})
	}
	return lines
}

// ComputeTotals 由行项与订单级折扣、运费汇总发票金额。
func (inv *Invoice) ComputeTotals(orderDiscount, shipping float64) {
	totals := InvoiceTotals{Discount: orderDiscount, Shipping: shipping}
	for _, line := range inv.Lines {
		totals.Subtotal += line.Subtotal
		totals.Tax += line.TaxAmount
	}
	totals.Total = totals.Subtotal - totals.Discount + totals.Tax + totals.Shipping
	if totals.Total < 0 {
		totals.Total = 0
	}
	inv.Totals = totals
}

// DriftAgainst 发票的税前口径与订单存储的总额之差。
// 超过容差说明订单金额与行项不一致，应当暴露而不是照抄。
func (inv *Invoice) DriftAgainst(s OrderSnapshot) float64 {
	preTax := inv.Totals.Subtotal - inv.Totals.Discount + inv.Totals.Shipping
	return math.Abs(preTax - s.Total)
}

// Transition 白名单迁移并打时间戳。
func (inv *Invoice) Transition(to InvoiceState) error {
	if !invoiceNext[inv.State][to] {
		return &errs.InvalidStateTransitionError{Entity: "invoice", From: string(inv.State), To: string(to)}
	}
	now := time.Now()
	switch to {
	case InvoiceIssued:
		inv.IssuedAt = &now
	case InvoiceSent:
		inv.SentAt = &now
	case InvoicePaid:
		inv.PaidAt = &now
	}
	inv.State = to
	return nil
}

// NumberPrefix 当月发票号前缀 FV-YYYYMM。
func NumberPrefix(t time.Time) string {
	return "FV-" + t.Format("200601")
}

// InvoiceNumber 月内单调序列号，零填充到六位。
func InvoiceNumber(t time.Time, seq int) string {
	return fmt.Sprintf("%s-%06d", NumberPrefix(t), seq)
}
