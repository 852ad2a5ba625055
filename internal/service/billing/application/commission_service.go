package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"vivero/internal/errs"
	"vivero/internal/service/billing/domain"
)

// CommissionService 佣金应用服务。
type CommissionService struct {
	repo     domain.CommissionRepository
	defaults domain.CommissionConfig
	tracer   trace.Tracer
}

func NewCommissionService(repo domain.CommissionRepository, defaults domain.CommissionConfig, tracer trace.Tracer) *CommissionService {
	return &CommissionService{repo: repo, defaults: defaults, tracer: tracer}
}

// CreateForOrder 对订单快照计算并落一笔佣金。cfg 为空用默认配置。
// (order, seller) 已存在时返回冲突，消费侧据此做幂等。
func (s *CommissionService) CreateForOrder(ctx context.Context, snapshot domain.OrderSnapshot, cfg *domain.CommissionConfig) (*domain.Commission, error) {
	ctx, span := s.tracer.Start(ctx, "billing.CreateCommission")
	defer span.End()
	span.SetAttributes(
		attribute.String("order_id", snapshot.OrderID),
		attribute.String("seller_id", snapshot.SellerID),
	)

	effective := s.defaults
	if cfg != nil {
		effective = *cfg
	}
	commission := domain.NewCommission(uuid.NewString(), snapshot, effective)
	if err := s.repo.Create(ctx, commission); err != nil {
		if errs.IsConflict(err) {
			span.AddEvent("commission already exists")
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}
	span.SetAttributes(attribute.Float64("amount", commission.Amount))
	return commission, nil
}

// Approve calculated → approved。
func (s *CommissionService) Approve(ctx context.Context, id string) (*domain.Commission, error) {
	return s.transition(ctx, "billing.ApproveCommission", id, domain.CommissionApproved)
}

// MarkPaid approved → paid。
func (s *CommissionService) MarkPaid(ctx context.Context, id string) (*domain.Commission, error) {
	return s.transition(ctx, "billing.PayCommission", id, domain.CommissionPaid)
}

// Cancel calculated/approved → cancelled。
func (s *CommissionService) Cancel(ctx context.Context, id string) (*domain.Commission, error) {
	return s.transition(ctx, "billing.CancelCommission", id, domain.CommissionCancelled)
}

func (s *CommissionService) transition(ctx context.Context, spanName, id string, to domain.CommissionState) (*domain.Commission, error) {
	ctx, span := s.tracer.Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(attribute.String("commission_id", id))

	commission, err := s.repo.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	from := commission.State
	if err := commission.Transition(to); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	moved, err := s.repo.MarkState(ctx, id, from, to, time.Now())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !moved {
		return nil, errs.NewConflict("commission", "commission state changed concurrently")
	}
	return commission, nil
}

// PendingPayout 卖家待结算金额。
func (s *CommissionService) PendingPayout(ctx context.Context, sellerID string) (float64, error) {
	ctx, span := s.tracer.Start(ctx, "billing.PendingPayout")
	defer span.End()
	span.SetAttributes(attribute.String("seller_id", sellerID))
	return s.repo.PendingPayout(ctx, sellerID)
}
