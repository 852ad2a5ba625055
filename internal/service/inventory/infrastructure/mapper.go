package infrastructure

import "vivero/internal/service/inventory/domain"

func toDomainProduct(m *ProductModel) *domain.Product {
	return &domain.Product{
		ID:               m.ID,
		Name:             m.Name,
		Price:            m.Price,
		Stock:            m.Stock,
		StockReserved:    m.StockReserved,
		TaxCategory:      m.TaxCategory,
		WholesaleEnabled: m.WholesaleEnabled,
		TimesSold:        m.TimesSold,
		Active:           m.Active,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func toDomainReservation(m *StockReservationModel) *domain.StockReservation {
	return &domain.StockReservation{
		ID:        m.ID,
		ProductID: m.ProductID,
		OrderRef:  m.OrderRef,
		Qty:       m.Qty,
		Status:    domain.ReservationStatus(m.Status),
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toReservationModel(r *domain.StockReservation) *StockReservationModel {
	return &StockReservationModel{
		ID:        r.ID,
		ProductID: r.ProductID,
		OrderRef:  r.OrderRef,
		Qty:       r.Qty,
		Status:    string(r.Status),
		ExpiresAt: r.ExpiresAt,
	}
}
