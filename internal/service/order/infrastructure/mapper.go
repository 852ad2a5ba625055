package infrastructure

import "vivero/internal/service/order/domain"

func toOrderModel(o *domain.Order) *OrderModel {
	return &OrderModel{
		ID:             o.ID,
		Number:         o.Number,
		UserID:         o.UserID,
		SellerID:       o.SellerID,
		CartID:         o.CartID,
		CustomerType:   string(o.CustomerType),
		TaxID:          o.TaxID,
		Subtotal:       o.Totals.Subtotal,
		Discount:       o.Totals.Discount,
		Shipping:       o.Totals.Shipping,
		Total:          o.Totals.Total,
		DeliverySlotID: o.DeliverySlotID,
		State:          string(o.State),
	}
}

func toDomainOrder(m *OrderModel, items []OrderItemModel, coupons []OrderCouponModel, history []OrderHistoryModel) *domain.Order {
	order := &domain.Order{
		ID:           m.ID,
		Number:       m.Number,
		UserID:       m.UserID,
		SellerID:     m.SellerID,
		CartID:       m.CartID,
		CustomerType: domain.CustomerType(m.CustomerType),
		TaxID:        m.TaxID,
		Totals: domain.Totals{
			Subtotal: m.Subtotal,
			Discount: m.Discount,
			Shipping: m.Shipping,
			Total:    m.Total,
		},
		DeliverySlotID: m.DeliverySlotID,
		State:          domain.State(m.State),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	for _, im := range items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:   im.ProductID,
			Name:        im.Name,
			Qty:         im.Qty,
			UnitPrice:   im.UnitPrice,
			Discount:    im.Discount,
			TaxCategory: im.TaxCategory,
		})
	}
	for _, cm := range coupons {
		order.Coupons = append(order.Coupons, domain.AppliedCoupon{
			CouponID: cm.CouponID,
			Code:     cm.Code,
			Discount: cm.Discount,
		})
	}
	for _, hm := range history {
		order.History = append(order.History, domain.StateChange{
			From:   domain.State(hm.FromState),
			To:     domain.State(hm.ToState),
			Reason: hm.Reason,
			Actor:  hm.Actor,
			At:     hm.At,
		})
	}
	return order
}
