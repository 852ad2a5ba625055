package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"vivero/internal/errs"
	"vivero/internal/pkg/database"
	"vivero/internal/service/order/domain"
)

// GormOrderRepository 订单仓储。
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

var _ domain.OrderRepository = (*GormOrderRepository)(nil)

func (r *GormOrderRepository) conn(ctx context.Context) *gorm.DB {
	return database.FromCtx(ctx, r.db).WithContext(ctx)
}

// Create 主表、行项、券、初始历史一并插入。运行在调用方事务上时
// 任一失败整体回滚。
func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	conn := r.conn(ctx)

	if err := conn.Create(toOrderModel(order)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.NewConflict("order_number", "order number already taken")
		}
		return errors.Wrap(err, "create order")
	}

	for _, item := range order.Items {
		im := OrderItemModel{
			OrderID:     order.ID,
			ProductID:   item.ProductID,
			Name:        item.Name,
			Qty:         item.Qty,
			UnitPrice:   item.UnitPrice,
			Discount:    item.Discount,
			TaxCategory: item.TaxCategory,
		}
		if err := conn.Create(&im).Error; err != nil {
			return errors.Wrap(err, "create order item")
		}
	}
	for _, coupon := range order.Coupons {
		cm := OrderCouponModel{
			OrderID:  order.ID,
			CouponID: coupon.CouponID,
			Code:     coupon.Code,
			Discount: coupon.Discount,
		}
		if err := conn.Create(&cm).Error; err != nil {
			return errors.Wrap(err, "create order coupon")
		}
	}
	for _, change := range order.History {
		if err := r.appendHistory(ctx, order.ID, change); err != nil {
			return err
		}
	}
	return nil
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var m OrderModel
	if err := r.conn(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFound("order", id)
		}
		return nil, errors.Wrap(err, "find order")
	}
	return r.load(ctx, &m)
}

func (r *GormOrderRepository) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	var m OrderModel
	if err := r.conn(ctx).First(&m, "number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFound("order", number)
		}
		return nil, errors.Wrap(err, "find order by number")
	}
	return r.load(ctx, &m)
}

func (r *GormOrderRepository) load(ctx context.Context, m *OrderModel) (*domain.Order, error) {
	conn := r.conn(ctx)
	var items []OrderItemModel
	if err := conn.Where("order_id = ?", m.ID).Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "load order items")
	}
	var coupons []OrderCouponModel
	if err := conn.Where("order_id = ?", m.ID).Find(&coupons).Error; err != nil {
		return nil, errors.Wrap(err, "load order coupons")
	}
	var history []OrderHistoryModel
	if err := conn.Where("order_id = ?", m.ID).Order("id ASC").Find(&history).Error; err != nil {
		return nil, errors.Wrap(err, "load order history")
	}
	return toDomainOrder(m, items, coupons, history), nil
}

// SaveTransition 守卫式状态更新 + 历史追加。
func (r *GormOrderRepository) SaveTransition(ctx context.Context, orderID string, change domain.StateChange) (bool, error) {
	result := r.conn(ctx).Model(&OrderModel{}).
		Where("id = ? AND state = ?", orderID, string(change.From)).
		UpdateColumn("state", string(change.To))
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "save order transition")
	}
	if result.RowsAffected != 1 {
		return false, nil
	}
	if err := r.appendHistory(ctx, orderID, change); err != nil {
		return false, err
	}
	return true, nil
}

func (r *GormOrderRepository) appendHistory(ctx context.Context, orderID string, change domain.StateChange) error {
	hm := OrderHistoryModel{
		OrderID:   orderID,
		FromState: string(change.From),
		ToState:   string(change.To),
		Reason:    change.Reason,
		Actor:     change.Actor,
		At:        change.At,
	}
	return errors.Wrap(r.conn(ctx).Create(&hm).Error, "append order history")
}
