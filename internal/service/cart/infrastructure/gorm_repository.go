package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"vivero/internal/errs"
	"vivero/internal/pkg/database"
	"vivero/internal/service/cart/domain"
)

// GormCartRepository 购物车仓储。
type GormCartRepository struct {
	db *gorm.DB
}

func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

var _ domain.CartRepository = (*GormCartRepository)(nil)

func (r *GormCartRepository) conn(ctx context.Context) *gorm.DB {
	return database.FromCtx(ctx, r.db).WithContext(ctx)
}

func (r *GormCartRepository) FindByID(ctx context.Context, id string) (*domain.Cart, error) {
	var m CartModel
	if err := r.conn(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFound("cart", id)
		}
		return nil, errors.Wrap(err, "find cart")
	}
	var itemModels []CartItemModel
	if err := r.conn(ctx).Where("cart_id = ?", id).Find(&itemModels).Error; err != nil {
		return nil, errors.Wrap(err, "find cart items")
	}

	cart := &domain.Cart{
		ID:        m.ID,
		UserID:    m.UserID,
		Status:    domain.CartStatus(m.Status),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	for _, im := range itemModels {
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: im.ProductID,
			Qty:       im.Qty,
			UnitPrice: im.UnitPrice,
		})
	}
	return cart, nil
}

func (r *GormCartRepository) MarkProcessed(ctx context.Context, id string) (bool, error) {
	result := r.conn(ctx).Model(&CartModel{}).
		Where("id = ? AND status = ?", id, string(domain.CartActive)).
		UpdateColumn("status", string(domain.CartProcessed))
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "mark cart processed")
	}
	return result.RowsAffected == 1, nil
}
