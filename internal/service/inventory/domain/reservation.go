package domain

import "time"

// ReservationStatus 预占台账状态。
type ReservationStatus string

const (
	ReservationReserved  ReservationStatus = "RESERVED"
	ReservationCommitted ReservationStatus = "COMMITTED"
	ReservationReleased  ReservationStatus = "RELEASED"
	ReservationExpired   ReservationStatus = "EXPIRED"
)

// StockReservation 独立预占台账，按 (product_id, order_ref) 去重，
// 带到期时间供后台清扫。
type StockReservation struct {
	ID        string
	ProductID string
	OrderRef  string
	Qty       int
	Status    ReservationStatus
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired 是否已过期且仍占着库存。
func (r *StockReservation) Expired(now time.Time) bool {
	return r.Status == ReservationReserved && now.After(r.ExpiresAt)
}
