package domain

import (
	"context"
	"time"
)

// SlotRepository 配送档期仓储。容量变化全部是条件化 UPDATE。
type SlotRepository interface {
	WindowByID(ctx context.Context, id string) (*DeliveryWindow, error)
	SlotByID(ctx context.Context, id string) (*DeliverySlot, error)
	SlotExists(ctx context.Context, windowID string, date time.Time) (bool, error)
	CreateSlot(ctx context.Context, slot *DeliverySlot) error
	// ReserveCapacity 在 capacity_available > 0 时减一。
	ReserveCapacity(ctx context.Context, slotID string) (bool, error)
	// RestoreCapacity 在未达上限时加一。
	RestoreCapacity(ctx context.Context, slotID string) error
	// RefreshSlotState 按剩余容量显式派生 available/full，不动 blocked。
	RefreshSlotState(ctx context.Context, slotID string) error

	// CreateHold 同一 (slot, order_ref) 只允许一条。
	CreateHold(ctx context.Context, hold *SlotReservation) error
	FindHold(ctx context.Context, slotID, orderRef string) (*SlotReservation, error)
	// MarkHoldStatus 条件迁移，from 不匹配时返回 false。
	MarkHoldStatus(ctx context.Context, id string, from, to HoldStatus) (bool, error)
	FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*SlotReservation, error)
}
