package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"vivero/internal/errs"
	"vivero/internal/pkg/database"
	"vivero/internal/pkg/logger"
	"vivero/internal/service/order/domain"
	"vivero/internal/service/order/port"
)

// maxNumberRetries 订单号撞唯一索引的重试上限。
const maxNumberRetries = 5

// Service 订单应用服务：落单、状态推进、取消与退货。
type Service struct {
	orders      domain.OrderRepository
	publisher   domain.EventPublisher
	stock       port.StockRestorer
	slots       port.SlotReleaser
	statusCache port.StatusCache
	txm         database.TxManager
	tracer      trace.Tracer
}

func NewService(orders domain.OrderRepository, publisher domain.EventPublisher,
	stock port.StockRestorer, slots port.SlotReleaser, statusCache port.StatusCache,
	txm database.TxManager, tracer trace.Tracer) *Service {
	return &Service{
		orders:      orders,
		publisher:   publisher,
		stock:       stock,
		slots:       slots,
		statusCache: statusCache,
		txm:         txm,
		tracer:      tracer,
	}
}

// CreateWithUniqueNumber 生成订单号并落单，撞号时换号重试，
// 有限次之后放弃。运行在调用方事务上。
func (s *Service) CreateWithUniqueNumber(ctx context.Context, order *domain.Order) error {
	ctx, span := s.tracer.Start(ctx, "order.Create")
	defer span.End()

	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		order.Number = domain.GenerateNumber(time.Now())
		err := s.orders.Create(ctx, order)
		if err == nil {
			span.SetAttributes(attribute.String("order_number", order.Number))
			return nil
		}
		if errs.IsConflict(err) {
			logger.Ctx(ctx).Warn().Str("order_number", order.Number).Msg("order number collision, retrying")
			continue
		}
		span.RecordError(err)
		return err
	}
	err := errs.NewConflict("order_number", "could not allocate a unique order number")
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Get")
	defer span.End()
	return s.orders.FindByID(ctx, id)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.GetByNumber")
	defer span.End()
	return s.orders.FindByNumber(ctx, number)
}

// Transition 推进订单状态。域校验 + 守卫式落库，落库守卫落败
// 说明有并发迁移，报冲突。状态更新与历史追加同一事务落库，
// 成功后发事件、刷状态缓存。
func (s *Service) Transition(ctx context.Context, orderID string, to domain.State, reason, actor string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.String("to_state", string(to)),
	)

	var order *domain.Order
	var change domain.StateChange
	err := s.txm.Do(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.Transition(to, reason, actor); err != nil {
			return err
		}
		change = *order.LastChange()
		moved, err := s.orders.SaveTransition(ctx, orderID, change)
		if err != nil {
			return err
		}
		if !moved {
			return errs.NewConflict("order", "order state changed concurrently")
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.afterTransition(ctx, order, change)
	return order, nil
}

// Cancel 取消订单：白名单迁移、库存回补、档期释放，同一事务内完成。
func (s *Service) Cancel(ctx context.Context, orderID, reason, actor string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Cancel")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID))

	var order *domain.Order
	err := s.txm.Do(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.Transition(domain.StateCancelled, reason, actor); err != nil {
			return err
		}
		moved, err := s.orders.SaveTransition(ctx, orderID, *order.LastChange())
		if err != nil {
			return err
		}
		if !moved {
			return errs.NewConflict("order", "order state changed concurrently")
		}

		items := make([]port.RestoreItem, 0, len(order.Items))
		for _, item := range order.Items {
			items = append(items, port.RestoreItem{ProductID: item.ProductID, Qty: item.Qty})
		}
		if err := s.stock.Restore(ctx, items); err != nil {
			return err
		}
		if order.DeliverySlotID != "" {
			if err := s.slots.Release(ctx, order.DeliverySlotID, order.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.afterTransition(ctx, order, *order.LastChange())
	return order, nil
}

// Return 退货：仅 delivered → returned，纯记账，不回补库存。
func (s *Service) Return(ctx context.Context, orderID, reason, actor string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Return")
	defer span.End()
	return s.Transition(ctx, orderID, domain.StateReturned, reason, actor)
}

// afterTransition 事件与缓存都是尽力而为，失败只记日志。
func (s *Service) afterTransition(ctx context.Context, order *domain.Order, change domain.StateChange) {
	if err := s.publisher.PublishStateChanged(ctx, order, change); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", order.ID).
			Str("to_state", string(change.To)).
			Msg("failed to publish order state change")
	}
	if s.statusCache != nil {
		if err := s.statusCache.Set(ctx, order.ID, string(order.State)); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("order_id", order.ID).Msg("failed to cache order status")
		}
	}
}
