package infrastructure

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"vivero/internal/errs"
	"vivero/internal/pkg/database"
	"vivero/internal/service/delivery/domain"
)

// GormSlotRepository 配送档期仓储。
type GormSlotRepository struct {
	db *gorm.DB
}

func NewGormSlotRepository(db *gorm.DB) *GormSlotRepository {
	return &GormSlotRepository{db: db}
}

var _ domain.SlotRepository = (*GormSlotRepository)(nil)

func (r *GormSlotRepository) conn(ctx context.Context) *gorm.DB {
	return database.FromCtx(ctx, r.db).WithContext(ctx)
}

func (r *GormSlotRepository) WindowByID(ctx context.Context, id string) (*domain.DeliveryWindow, error) {
	var m DeliveryWindowModel
	if err := r.conn(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFound("delivery_window", id)
		}
		return nil, errors.Wrap(err, "find delivery window")
	}
	return toDomainWindow(&m), nil
}

func (r *GormSlotRepository) SlotByID(ctx context.Context, id string) (*domain.DeliverySlot, error) {
	var m DeliverySlotModel
	if err := r.conn(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFound("delivery_slot", id)
		}
		return nil, errors.Wrap(err, "find delivery slot")
	}
	return toDomainSlot(&m), nil
}

func (r *GormSlotRepository) SlotExists(ctx context.Context, windowID string, date time.Time) (bool, error) {
	var count int64
	err := r.conn(ctx).Model(&DeliverySlotModel{}).
		Where("window_id = ? AND date = ?", windowID, date).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "check slot existence")
	}
	return count > 0, nil
}

func (r *GormSlotRepository) CreateSlot(ctx context.Context, slot *domain.DeliverySlot) error {
	err := r.conn(ctx).Create(toSlotModel(slot)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.NewConflict("delivery_slot", "slot already exists for this window and date")
		}
		return errors.Wrap(err, "create slot")
	}
	return nil
}

func (r *GormSlotRepository) ReserveCapacity(ctx context.Context, slotID string) (bool, error) {
	result := r.conn(ctx).Model(&DeliverySlotModel{}).
		Where("id = ? AND capacity_available > 0 AND state <> ?", slotID, string(domain.SlotBlocked)).
		UpdateColumn("capacity_available", gorm.Expr("capacity_available - 1"))
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "reserve slot capacity")
	}
	return result.RowsAffected == 1, nil
}

func (r *GormSlotRepository) RestoreCapacity(ctx context.Context, slotID string) error {
	err := r.conn(ctx).Model(&DeliverySlotModel{}).
		Where("id = ? AND capacity_available < capacity_max", slotID).
		UpdateColumn("capacity_available", gorm.Expr("capacity_available + 1")).Error
	return errors.Wrap(err, "restore slot capacity")
}

func (r *GormSlotRepository) RefreshSlotState(ctx context.Context, slotID string) error {
	err := r.conn(ctx).Model(&DeliverySlotModel{}).
		Where("id = ? AND state <> ?", slotID, string(domain.SlotBlocked)).
		UpdateColumn("state", gorm.Expr("IF(capacity_available <= 0, ?, ?)",
			string(domain.SlotFull), string(domain.SlotAvailable))).Error
	return errors.Wrap(err, "refresh slot state")
}

func (r *GormSlotRepository) CreateHold(ctx context.Context, hold *domain.SlotReservation) error {
	err := r.conn(ctx).Create(toHoldModel(hold)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.NewConflict("slot_reservation", "order already holds this slot")
		}
		return errors.Wrap(err, "create slot hold")
	}
	return nil
}

func (r *GormSlotRepository) FindHold(ctx context.Context, slotID, orderRef string) (*domain.SlotReservation, error) {
	var m SlotReservationModel
	err := r.conn(ctx).First(&m, "slot_id = ? AND order_ref = ?", slotID, orderRef).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFound("slot_reservation", slotID+"/"+orderRef)
		}
		return nil, errors.Wrap(err, "find slot hold")
	}
	return toDomainHold(&m), nil
}

func (r *GormSlotRepository) MarkHoldStatus(ctx context.Context, id string, from, to domain.HoldStatus) (bool, error) {
	result := r.conn(ctx).Model(&SlotReservationModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		UpdateColumn("status", string(to))
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "mark hold status")
	}
	return result.RowsAffected == 1, nil
}

func (r *GormSlotRepository) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*domain.SlotReservation, error) {
	var models []SlotReservationModel
	err := r.conn(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", string(domain.HoldHeld), now).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "find expired holds")
	}
	out := make([]*domain.SlotReservation, 0, len(models))
	for i := range models {
		out = append(out, toDomainHold(&models[i]))
	}
	return out, nil
}

func toDomainWindow(m *DeliveryWindowModel) *domain.DeliveryWindow {
	w := &domain.DeliveryWindow{
		ID:            m.ID,
		Name:          m.Name,
		StartTime:     m.StartTime,
		EndTime:       m.EndTime,
		CapacityMax:   m.CapacityMax,
		AllowHolidays: m.AllowHolidays,
		Surcharge:     m.Surcharge,
		Active:        m.Active,
		ValidFrom:     m.ValidFrom,
		ValidUntil:    m.ValidUntil,
	}
	for _, part := range strings.Split(m.Weekdays, ",") {
		if part == "" {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil && n >= 0 && n <= 6 {
			w.Weekdays = append(w.Weekdays, time.Weekday(n))
		}
	}
	return w
}

func toDomainSlot(m *DeliverySlotModel) *domain.DeliverySlot {
	return &domain.DeliverySlot{
		ID:                m.ID,
		WindowID:          m.WindowID,
		Date:              m.Date,
		StartTime:         m.StartTime,
		EndTime:           m.EndTime,
		CapacityMax:       m.CapacityMax,
		CapacityAvailable: m.CapacityAvailable,
		State:             domain.SlotState(m.State),
		Surcharge:         m.Surcharge,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func toSlotModel(s *domain.DeliverySlot) *DeliverySlotModel {
	return &DeliverySlotModel{
		ID:                s.ID,
		WindowID:          s.WindowID,
		Date:              s.Date,
		StartTime:         s.StartTime,
		EndTime:           s.EndTime,
		CapacityMax:       s.CapacityMax,
		CapacityAvailable: s.CapacityAvailable,
		State:             string(s.State),
		Surcharge:         s.Surcharge,
	}
}

func toHoldModel(h *domain.SlotReservation) *SlotReservationModel {
	return &SlotReservationModel{
		ID:        h.ID,
		SlotID:    h.SlotID,
		OrderRef:  h.OrderRef,
		Status:    string(h.Status),
		ExpiresAt: h.ExpiresAt,
		CreatedAt: h.CreatedAt,
	}
}

func toDomainHold(m *SlotReservationModel) *domain.SlotReservation {
	return &domain.SlotReservation{
		ID:        m.ID,
		SlotID:    m.SlotID,
		OrderRef:  m.OrderRef,
		Status:    domain.HoldStatus(m.Status),
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
	}
}
