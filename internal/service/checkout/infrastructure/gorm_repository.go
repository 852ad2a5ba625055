package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"vivero/internal/errs"
	"vivero/internal/pkg/database"
	"vivero/internal/service/checkout/domain"
)

// GormPaymentRepository 支付流水仓储。
type GormPaymentRepository struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

var _ domain.PaymentRepository = (*GormPaymentRepository)(nil)

func (r *GormPaymentRepository) conn(ctx context.Context) *gorm.DB {
	return database.FromCtx(ctx, r.db).WithContext(ctx)
}

func (r *GormPaymentRepository) Create(ctx context.Context, p *domain.PaymentTransaction) error {
	if err := r.conn(ctx).Create(toPaymentModel(p)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.NewConflict("payment", "payment attempt already recorded for this order")
		}
		return errors.Wrap(err, "create payment transaction")
	}
	return nil
}

// FindByOrder 返回订单最近一次尝试的流水。
func (r *GormPaymentRepository) FindByOrder(ctx context.Context, orderID string) (*domain.PaymentTransaction, error) {
	var m PaymentModel
	err := r.conn(ctx).Where("order_id = ?", orderID).Order("attempt DESC").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NewNotFound("payment", orderID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "find payment by order")
	}
	return toPaymentDomain(&m), nil
}

// MarkState 守卫式状态更新，state = from 不成立时返回 false。
func (r *GormPaymentRepository) MarkState(ctx context.Context, id string, from, to domain.PaymentState, gatewayRef string) (bool, error) {
	res := r.conn(ctx).Model(&PaymentModel{}).
		Where("id = ? AND state = ?", id, string(from)).
		Updates(map[string]any{"state": string(to), "gateway_ref": gatewayRef})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "mark payment state")
	}
	return res.RowsAffected == 1, nil
}

func toPaymentModel(p *domain.PaymentTransaction) *PaymentModel {
	return &PaymentModel{
		ID:         p.ID,
		OrderID:    p.OrderID,
		Attempt:    p.Attempt,
		Method:     p.Method,
		Amount:     p.Amount,
		Fee:        p.Fee,
		Net:        p.Net,
		State:      string(p.State),
		GatewayRef: p.GatewayRef,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func toPaymentDomain(m *PaymentModel) *domain.PaymentTransaction {
	return &domain.PaymentTransaction{
		ID:         m.ID,
		OrderID:    m.OrderID,
		Attempt:    m.Attempt,
		Method:     m.Method,
		Amount:     m.Amount,
		Fee:        m.Fee,
		Net:        m.Net,
		State:      domain.PaymentState(m.State),
		GatewayRef: m.GatewayRef,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
