package application

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"vivero/internal/errs"
	"vivero/internal/pkg/database"
	"vivero/internal/pkg/logger"
	"vivero/internal/pkg/metrics"
	"vivero/internal/service/inventory/domain"
)

// ItemRequest 一次库存操作里的单项需求。
type ItemRequest struct {
	ProductID string
	Qty       int
}

// AvailabilityCheck 单项可用性结论。
type AvailabilityCheck struct {
	ProductID  string
	Required   int
	Available  int
	Sufficient bool
}

// Service 库存应用服务。写路径全部走条件化 UPDATE，
// 同一次操作内的多个商品按 ID 排序后依次加锁，避免互相死锁。
type Service struct {
	products     domain.ProductRepository
	reservations domain.ReservationRepository
	txm          database.TxManager
	tracer       trace.Tracer
}

func NewService(products domain.ProductRepository, reservations domain.ReservationRepository, txm database.TxManager, tracer trace.Tracer) *Service {
	return &Service{products: products, reservations: reservations, txm: txm, tracer: tracer}
}

// ValidateAvailability 逐项核对当前可售量，只读不写。
func (s *Service) ValidateAvailability(ctx context.Context, items []ItemRequest) ([]AvailabilityCheck, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.ValidateAvailability")
	defer span.End()

	checks := make([]AvailabilityCheck, 0, len(items))
	for _, item := range items {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			if errs.IsNotFound(err) {
				checks = append(checks, AvailabilityCheck{ProductID: item.ProductID, Required: item.Qty})
				continue
			}
			span.RecordError(err)
			return nil, err
		}
		checks = append(checks, AvailabilityCheck{
			ProductID:  item.ProductID,
			Required:   item.Qty,
			Available:  product.Available(),
			Sufficient: product.Available() >= item.Qty,
		})
	}
	return checks, nil
}

// Reserve 为 orderRef 预占库存，带 TTL，整体成功或整体失败。
func (s *Service) Reserve(ctx context.Context, orderRef string, items []ItemRequest, ttl time.Duration) error {
	ctx, span := s.tracer.Start(ctx, "inventory.Reserve")
	defer span.End()
	span.SetAttributes(
		attribute.String("order_ref", orderRef),
		attribute.Int("item_count", len(items)),
	)

	sorted := sortedItems(items)
	expiresAt := time.Now().Add(ttl)

	err := s.txm.Do(ctx, func(ctx context.Context) error {
		for _, item := range sorted {
			ok, err := s.products.ReserveGuarded(ctx, item.ProductID, item.Qty)
			if err != nil {
				return err
			}
			if !ok {
				metrics.StockConflicts.Inc()
				return s.shortfallError(ctx, sorted)
			}
			res := &domain.StockReservation{
				ID:        uuid.NewString(),
				ProductID: item.ProductID,
				OrderRef:  orderRef,
				Qty:       item.Qty,
				Status:    domain.ReservationReserved,
				ExpiresAt: expiresAt,
			}
			if err := s.reservations.Create(ctx, res); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Commit 把 orderRef 的预占转为实扣。
func (s *Service) Commit(ctx context.Context, orderRef string) error {
	ctx, span := s.tracer.Start(ctx, "inventory.Commit")
	defer span.End()
	span.SetAttributes(attribute.String("order_ref", orderRef))

	return s.txm.Do(ctx, func(ctx context.Context) error {
		active, err := s.reservations.FindActiveByOrderRef(ctx, orderRef)
		if err != nil {
			return err
		}
		if len(active) == 0 {
			return errs.NewNotFound("reservation", orderRef)
		}
		for _, res := range active {
			ok, err := s.products.CommitReserved(ctx, res.ProductID, res.Qty)
			if err != nil {
				return err
			}
			if !ok {
				return errs.NewConflict("stock_reservation", "reserved quantity no longer held")
			}
			moved, err := s.reservations.MarkStatus(ctx, res.ID, domain.ReservationReserved, domain.ReservationCommitted)
			if err != nil {
				return err
			}
			if !moved {
				return errs.NewConflict("stock_reservation", "reservation changed concurrently")
			}
		}
		return nil
	})
}

// Release 归还 orderRef 的全部预占。重复调用是安全的空操作。
func (s *Service) Release(ctx context.Context, orderRef string) error {
	ctx, span := s.tracer.Start(ctx, "inventory.Release")
	defer span.End()
	span.SetAttributes(attribute.String("order_ref", orderRef))

	return s.txm.Do(ctx, func(ctx context.Context) error {
		active, err := s.reservations.FindActiveByOrderRef(ctx, orderRef)
		if err != nil {
			return err
		}
		for _, res := range active {
			moved, err := s.reservations.MarkStatus(ctx, res.ID, domain.ReservationReserved, domain.ReservationReleased)
			if err != nil {
				return err
			}
			if !moved {
				continue
			}
			if err := s.products.ReleaseReserved(ctx, res.ProductID, res.Qty); err != nil {
				return err
			}
		}
		return nil
	})
}

// DecrementAtomic 无预占直扣，运行在调用方事务上（不自己开事务）。
// 任何一项守卫失败都返回逐项缺口错误，由调用方回滚整个事务。
func (s *Service) DecrementAtomic(ctx context.Context, items []ItemRequest) error {
	ctx, span := s.tracer.Start(ctx, "inventory.DecrementAtomic")
	defer span.End()
	span.SetAttributes(attribute.Int("item_count", len(items)))

	sorted := sortedItems(items)
	for _, item := range sorted {
		ok, err := s.products.DecrementGuarded(ctx, item.ProductID, item.Qty)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if !ok {
			metrics.StockConflicts.Inc()
			err := s.shortfallError(ctx, sorted)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	return nil
}

// Restore 取消订单时回补已扣库存。
func (s *Service) Restore(ctx context.Context, items []ItemRequest) error {
	ctx, span := s.tracer.Start(ctx, "inventory.Restore")
	defer span.End()

	return s.txm.Do(ctx, func(ctx context.Context) error {
		for _, item := range sortedItems(items) {
			if err := s.products.RestoreStock(ctx, item.ProductID, item.Qty); err != nil {
				return err
			}
		}
		return nil
	})
}

// SweepExpired 释放已过期的预占，返回释放条数。
func (s *Service) SweepExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.SweepExpired")
	defer span.End()

	expired, err := s.reservations.FindExpired(ctx, now, limit)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	released := 0
	for _, res := range expired {
		err := s.txm.Do(ctx, func(ctx context.Context) error {
			moved, err := s.reservations.MarkStatus(ctx, res.ID, domain.ReservationReserved, domain.ReservationExpired)
			if err != nil {
				return err
			}
			if !moved {
				// 已被确认或释放，跳过
				return nil
			}
			released++
			return s.products.ReleaseReserved(ctx, res.ProductID, res.Qty)
		})
		if err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("reservation_id", res.ID).
				Msg("failed to release expired reservation")
		}
	}
	if released > 0 {
		metrics.HoldsReleased.WithLabelValues("stock").Add(float64(released))
	}
	span.SetAttributes(attribute.Int("released", released))
	return released, nil
}

// shortfallError 重新读一遍台账，把所有缺口一次性报出来。
func (s *Service) shortfallError(ctx context.Context, items []ItemRequest) error {
	var shortfalls []errs.Shortfall
	for _, item := range items {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			shortfalls = append(shortfalls, errs.Shortfall{ProductID: item.ProductID, Required: item.Qty})
			continue
		}
		if product.Available() < item.Qty {
			shortfalls = append(shortfalls, errs.Shortfall{
				ProductID: item.ProductID,
				Required:  item.Qty,
				Available: product.Available(),
			})
		}
	}
	if len(shortfalls) == 0 {
		return errs.NewConflict("product", "stock changed concurrently")
	}
	return &errs.InsufficientStockError{Shortfalls: shortfalls}
}

func sortedItems(items []ItemRequest) []ItemRequest {
	sorted := make([]ItemRequest, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })
	return sorted
}
