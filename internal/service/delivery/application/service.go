package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"vivero/internal/errs"
	"vivero/internal/pkg/database"
	"vivero/internal/pkg/logger"
	"vivero/internal/pkg/metrics"
	"vivero/internal/service/delivery/domain"
)

// Service 配送档期应用服务。
type Service struct {
	repo     domain.SlotRepository
	txm      database.TxManager
	holidays map[string]bool
	tracer   trace.Tracer
}

func NewService(repo domain.SlotRepository, txm database.TxManager, holidays []string, tracer trace.Tracer) *Service {
	hs := make(map[string]bool, len(holidays))
	for _, h := range holidays {
		hs[h] = true
	}
	return &Service{repo: repo, txm: txm, holidays: hs, tracer: tracer}
}

// GenerateSlots 从模板生成未来 days 天的档期。幂等：已有档期的日期、
// 节假日（除非模板允许）、模板之外的星期都跳过。返回新建条数。
func (s *Service) GenerateSlots(ctx context.Context, windowID string, from time.Time, days int) (int, error) {
	ctx, span := s.tracer.Start(ctx, "delivery.GenerateSlots")
	defer span.End()
	span.SetAttributes(
		attribute.String("window_id", windowID),
		attribute.Int("days", days),
	)

	window, err := s.repo.WindowByID(ctx, windowID)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	created := 0
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for i := 0; i < days; i++ {
		date := day.AddDate(0, 0, i)
		if !window.CoversDate(date, s.holidays) {
			continue
		}
		exists, err := s.repo.SlotExists(ctx, windowID, date)
		if err != nil {
			span.RecordError(err)
			return created, err
		}
		if exists {
			continue
		}
		slot := &domain.DeliverySlot{
			ID:                uuid.NewString(),
			WindowID:          windowID,
			Date:              date,
			StartTime:         window.StartTime,
			EndTime:           window.EndTime,
			CapacityMax:       window.CapacityMax,
			CapacityAvailable: window.CapacityMax,
			State:             domain.SlotAvailable,
			Surcharge:         window.Surcharge,
		}
		if err := s.repo.CreateSlot(ctx, slot); err != nil {
			if errs.IsConflict(err) {
				// 并发生成撞到同一天，视同已存在
				continue
			}
			span.RecordError(err)
			return created, err
		}
		created++
	}
	span.SetAttributes(attribute.Int("created", created))
	return created, nil
}

// ReserveSlot 为订单占一个档期。expiresAt 非空表示未确认的占用，
// 留给清扫任务回收；空表示直接确认。容量守卫落败返回冲突。
// 扣容量与落占用行在同一事务内，失败路径不消耗容量。
func (s *Service) ReserveSlot(ctx context.Context, slotID, orderRef string, expiresAt *time.Time) error {
	ctx, span := s.tracer.Start(ctx, "delivery.ReserveSlot")
	defer span.End()
	span.SetAttributes(
		attribute.String("slot_id", slotID),
		attribute.String("order_ref", orderRef),
	)

	return s.txm.Do(ctx, func(ctx context.Context) error {
		slot, err := s.repo.SlotByID(ctx, slotID)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if slot.State == domain.SlotBlocked {
			return errs.NewConflict("delivery_slot", "slot is blocked")
		}

		// 同单重复占用在扣容量之前拦下
		if _, err := s.repo.FindHold(ctx, slotID, orderRef); err == nil {
			conflict := errs.NewConflict("slot_reservation", "order already holds this slot")
			span.SetStatus(codes.Error, conflict.Error())
			return conflict
		} else if !errs.IsNotFound(err) {
			span.RecordError(err)
			return err
		}

		ok, err := s.repo.ReserveCapacity(ctx, slotID)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if !ok {
			err := errs.NewConflict("delivery_slot", "slot has no remaining capacity")
			span.SetStatus(codes.Error, err.Error())
			return err
		}

		status := domain.HoldConfirmed
		if expiresAt != nil {
			status = domain.HoldHeld
		}
		hold := &domain.SlotReservation{
			ID:        uuid.NewString(),
			SlotID:    slotID,
			OrderRef:  orderRef,
			Status:    status,
			ExpiresAt: expiresAt,
		}
		if err := s.repo.CreateHold(ctx, hold); err != nil {
			span.RecordError(err)
			return err
		}
		return s.repo.RefreshSlotState(ctx, slotID)
	})
}

// ConfirmHold 把未确认的占用转为确认，幂等。
func (s *Service) ConfirmHold(ctx context.Context, slotID, orderRef string) error {
	ctx, span := s.tracer.Start(ctx, "delivery.ConfirmHold")
	defer span.End()

	hold, err := s.repo.FindHold(ctx, slotID, orderRef)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if hold.Status == domain.HoldConfirmed {
		return nil
	}
	moved, err := s.repo.MarkHoldStatus(ctx, hold.ID, domain.HoldHeld, domain.HoldConfirmed)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !moved {
		return errs.NewConflict("slot_reservation", "hold no longer held")
	}
	return nil
}

// ReleaseSlot 释放订单的档期占用。没有匹配占用时是安全的空操作，
// 绝不凭空回补容量。
func (s *Service) ReleaseSlot(ctx context.Context, slotID, orderRef string) error {
	ctx, span := s.tracer.Start(ctx, "delivery.ReleaseSlot")
	defer span.End()
	span.SetAttributes(
		attribute.String("slot_id", slotID),
		attribute.String("order_ref", orderRef),
	)

	return s.txm.Do(ctx, func(ctx context.Context) error {
		hold, err := s.repo.FindHold(ctx, slotID, orderRef)
		if err != nil {
			if errs.IsNotFound(err) {
				return nil
			}
			return err
		}
		from := hold.Status
		if from != domain.HoldHeld && from != domain.HoldConfirmed {
			return nil
		}
		moved, err := s.repo.MarkHoldStatus(ctx, hold.ID, from, domain.HoldReleased)
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		if err := s.repo.RestoreCapacity(ctx, slotID); err != nil {
			return err
		}
		return s.repo.RefreshSlotState(ctx, slotID)
	})
}

// SweepExpired 回收过期未确认的档期占用，返回释放条数。
func (s *Service) SweepExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	ctx, span := s.tracer.Start(ctx, "delivery.SweepExpired")
	defer span.End()

	expired, err := s.repo.FindExpiredHolds(ctx, now, limit)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	released := 0
	for _, hold := range expired {
		err := s.txm.Do(ctx, func(ctx context.Context) error {
			moved, err := s.repo.MarkHoldStatus(ctx, hold.ID, domain.HoldHeld, domain.HoldExpired)
			if err != nil {
				return err
			}
			if !moved {
				return nil
			}
			released++
			if err := s.repo.RestoreCapacity(ctx, hold.SlotID); err != nil {
				return err
			}
			return s.repo.RefreshSlotState(ctx, hold.SlotID)
		})
		if err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("hold_id", hold.ID).
				Msg("failed to release expired slot hold")
		}
	}
	if released > 0 {
		metrics.HoldsReleased.WithLabelValues("slot").Add(float64(released))
	}
	span.SetAttributes(attribute.Int("released", released))
	return released, nil
}
