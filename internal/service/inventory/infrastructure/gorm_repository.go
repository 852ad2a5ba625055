package infrastructure

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"vivero/internal/errs"
	"vivero/internal/pkg/database"
	"vivero/internal/service/inventory/domain"
)

// GormProductRepository 商品台账仓储。所有写入都是单条条件化 UPDATE，
// 靠 WHERE 守卫 + RowsAffected 判定成败，不做读改写。
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

var _ domain.ProductRepository = (*GormProductRepository)(nil)

func (r *GormProductRepository) conn(ctx context.Context) *gorm.DB {
	return database.FromCtx(ctx, r.db).WithContext(ctx)
}

func (r *GormProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	var m ProductModel
	if err := r.conn(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFound("product", id)
		}
		return nil, errors.Wrap(err, "find product")
	}
	return toDomainProduct(&m), nil
}

func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Product, error) {
	var models []ProductModel
	if err := r.conn(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "find products")
	}
	products := make([]*domain.Product, 0, len(models))
	for i := range models {
		products = append(products, toDomainProduct(&models[i]))
	}
	return products, nil
}

func (r *GormProductRepository) ReserveGuarded(ctx context.Context, productID string, qty int) (bool, error) {
	result := r.conn(ctx).Model(&ProductModel{}).
		Where("id = ? AND stock - stock_reserved >= ?", productID, qty).
		UpdateColumn("stock_reserved", gorm.Expr("stock_reserved + ?", qty))
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "reserve stock")
	}
	return result.RowsAffected == 1, nil
}

func (r *GormProductRepository) ReleaseReserved(ctx context.Context, productID string, qty int) error {
	err := r.conn(ctx).Model(&ProductModel{}).
		Where("id = ? AND stock_reserved >= ?", productID, qty).
		UpdateColumn("stock_reserved", gorm.Expr("stock_reserved - ?", qty)).Error
	return errors.Wrap(err, "release reserved stock")
}

func (r *GormProductRepository) CommitReserved(ctx context.Context, productID string, qty int) (bool, error) {
	result := r.conn(ctx).Model(&ProductModel{}).
		Where("id = ? AND stock_reserved >= ? AND stock >= ?", productID, qty, qty).
		UpdateColumns(map[string]interface{}{
			"stock":          gorm.Expr("stock - ?", qty),
			"stock_reserved": gorm.Expr("stock_reserved - ?", qty),
			"times_sold":     gorm.Expr("times_sold + ?", qty),
		})
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "commit reserved stock")
	}
	return result.RowsAffected == 1, nil
}

func (r *GormProductRepository) DecrementGuarded(ctx context.Context, productID string, qty int) (bool, error) {
	result := r.conn(ctx).Model(&ProductModel{}).
		Where("id = ? AND stock - stock_reserved >= ?", productID, qty).
		UpdateColumns(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", qty),
			"times_sold": gorm.Expr("times_sold + ?", qty),
		})
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "decrement stock")
	}
	return result.RowsAffected == 1, nil
}

func (r *GormProductRepository) RestoreStock(ctx context.Context, productID string, qty int) error {
	err := r.conn(ctx).Model(&ProductModel{}).
		Where("id = ?", productID).
		UpdateColumns(map[string]interface{}{
			"stock":      gorm.Expr("stock + ?", qty),
			"times_sold": gorm.Expr("GREATEST(times_sold - ?, 0)", qty),
		}).Error
	return errors.Wrap(err, "restore stock")
}

// GormReservationRepository 预占台账仓储。
type GormReservationRepository struct {
	db *gorm.DB
}

func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

var _ domain.ReservationRepository = (*GormReservationRepository)(nil)

func (r *GormReservationRepository) conn(ctx context.Context) *gorm.DB {
	return database.FromCtx(ctx, r.db).WithContext(ctx)
}

func (r *GormReservationRepository) Create(ctx context.Context, res *domain.StockReservation) error {
	err := r.conn(ctx).Create(toReservationModel(res)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.NewConflict("stock_reservation", "reservation already exists for this order and product")
		}
		return errors.Wrap(err, "create reservation")
	}
	return nil
}

func (r *GormReservationRepository) FindActiveByOrderRef(ctx context.Context, orderRef string) ([]*domain.StockReservation, error) {
	var models []StockReservationModel
	err := r.conn(ctx).
		Where("order_ref = ? AND status = ?", orderRef, string(domain.ReservationReserved)).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "find active reservations")
	}
	out := make([]*domain.StockReservation, 0, len(models))
	for i := range models {
		out = append(out, toDomainReservation(&models[i]))
	}
	return out, nil
}

func (r *GormReservationRepository) MarkStatus(ctx context.Context, id string, from, to domain.ReservationStatus) (bool, error) {
	result := r.conn(ctx).Model(&StockReservationModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		UpdateColumn("status", string(to))
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "mark reservation status")
	}
	return result.RowsAffected == 1, nil
}

func (r *GormReservationRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]*domain.StockReservation, error) {
	var models []StockReservationModel
	err := r.conn(ctx).
		Where("status = ? AND expires_at < ?", string(domain.ReservationReserved), now).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "find expired reservations")
	}
	out := make([]*domain.StockReservation, 0, len(models))
	for i := range models {
		out = append(out, toDomainReservation(&models[i]))
	}
	return out, nil
}
