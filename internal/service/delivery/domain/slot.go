package domain

import "time"

// SlotState 档期状态。full 由容量归零显式派生，blocked 为人工下线。
type SlotState string

const (
	SlotAvailable SlotState = "available"
	SlotFull      SlotState = "full"
	SlotBlocked   SlotState = "blocked"
)

// DeliverySlot 某一天某个时段的可约档期实例。
// CapacityAvailable 只通过守卫式 UPDATE 变化，恒 >= 0。
type DeliverySlot struct {
	ID                string
	WindowID          string
	Date              time.Time
	StartTime         string
	EndTime           string
	CapacityMax       int
	CapacityAvailable int
	State             SlotState
	Surcharge         float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HoldStatus 档期占用状态。
type HoldStatus string

const (
	HoldHeld      HoldStatus = "HELD"
	HoldConfirmed HoldStatus = "CONFIRMED"
	HoldReleased  HoldStatus = "RELEASED"
	HoldExpired   HoldStatus = "EXPIRED"
)

// SlotReservation 档期占用记录，(slot_id, order_ref) 唯一。
// HELD 带到期时间，订单确认后转 CONFIRMED。
type SlotReservation struct {
	ID        string
	SlotID    string
	OrderRef  string
	Status    HoldStatus
	ExpiresAt *time.Time
	CreatedAt time.Time
}
