package infrastructure

import "vivero/internal/service/billing/domain"

func toCommissionModel(c *domain.Commission) *CommissionModel {
	return &CommissionModel{
		ID:            c.ID,
		OrderID:       c.OrderID,
		SellerID:      c.SellerID,
		Type:          string(c.Type),
		GrossSale:     c.GrossSale,
		Base:          c.Base,
		Amount:        c.Amount,
		EffectiveRate: c.EffectiveRate,
		State:         string(c.State),
		ApprovedAt:    c.ApprovedAt,
		PaidAt:        c.PaidAt,
	}
}

func toDomainCommission(m *CommissionModel) *domain.Commission {
	return &domain.Commission{
		ID:            m.ID,
		OrderID:       m.OrderID,
		SellerID:      m.SellerID,
		Type:          domain.CommissionType(m.Type),
		GrossSale:     m.GrossSale,
		Base:          m.Base,
		Amount:        m.Amount,
		EffectiveRate: m.EffectiveRate,
		State:         domain.CommissionState(m.State),
		ApprovedAt:    m.ApprovedAt,
		PaidAt:        m.PaidAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toInvoiceModel(inv *domain.Invoice) *InvoiceModel {
	return &InvoiceModel{
		ID:           inv.ID,
		Number:       inv.Number,
		OrderID:      inv.OrderID,
		Revision:     inv.Revision,
		OrderNumber:  inv.OrderNumber,
		UserID:       inv.UserID,
		CustomerType: inv.CustomerType,
		TaxID:        inv.TaxID,
		Subtotal:     inv.Totals.Subtotal,
		Discount:     inv.Totals.Discount,
		Tax:          inv.Totals.Tax,
		Shipping:     inv.Totals.Shipping,
		Total:        inv.Totals.Total,
		State:        string(inv.State),
		IssuedAt:     inv.IssuedAt,
		DueAt:        inv.DueAt,
		SentAt:       inv.SentAt,
		PaidAt:       inv.PaidAt,
		PDFURL:       inv.PDFURL,
	}
}

func toInvoiceLineModel(invoiceID string, line domain.InvoiceLine) *InvoiceLineModel {
	return &InvoiceLineModel{
		InvoiceID: invoiceID,
		ProductID: line.ProductID,
		Name:      line.Name,
		Qty:       line.Qty,
		UnitPrice: line.UnitPrice,
		Discount:  line.Discount,
		Subtotal:  line.Subtotal,
		TaxRate:   line.TaxRate,
		TaxAmount: line.TaxAmount,
	}
}

func toDomainInvoice(m *InvoiceModel, lineModels []InvoiceLineModel) *domain.Invoice {
	inv := &domain.Invoice{
		ID:           m.ID,
		Number:       m.Number,
		OrderID:      m.OrderID,
		OrderNumber:  m.OrderNumber,
		UserID:       m.UserID,
		CustomerType: m.CustomerType,
		TaxID:        m.TaxID,
		Revision:     m.Revision,
		Totals: domain.InvoiceTotals{
			Subtotal: m.Subtotal,
			Discount: m.Discount,
			Tax:      m.Tax,
			Shipping: m.Shipping,
			Total:    m.Total,
		},
		State:     domain.InvoiceState(m.State),
		IssuedAt:  m.IssuedAt,
		DueAt:     m.DueAt,
		SentAt:    m.SentAt,
		PaidAt:    m.PaidAt,
		PDFURL:    m.PDFURL,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	for _, lm := range lineModels {
		inv.Lines = append(inv.Lines, domain.InvoiceLine{
			ProductID: lm.ProductID,
			Name:      lm.Name,
			Qty:       lm.Qty,
			UnitPrice: lm.UnitPrice,
			Discount:  lm.Discount,
			Subtotal:  lm.Subtotal,
			TaxRate:   lm.TaxRate,
			TaxAmount: lm.TaxAmount,
		})
	}
	return inv
}
