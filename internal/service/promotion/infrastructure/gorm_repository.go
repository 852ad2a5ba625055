package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vivero/internal/errs"
	"vivero/internal/pkg/database"
	"vivero/internal/service/promotion/domain"
)

// GormCouponRepository 券仓储。
type GormCouponRepository struct {
	db *gorm.DB
}

func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

var _ domain.CouponRepository = (*GormCouponRepository)(nil)

func (r *GormCouponRepository) conn(ctx context.Context) *gorm.DB {
	return database.FromCtx(ctx, r.db).WithContext(ctx)
}

func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var m CouponModel
	if err := r.conn(ctx).First(&m, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFound("coupon", code)
		}
		return nil, errors.Wrap(err, "find coupon")
	}
	return toDomainCoupon(&m), nil
}

func (r *GormCouponRepository) IncrementUsesGuarded(ctx context.Context, id string) (bool, error) {
	result := r.conn(ctx).Model(&CouponModel{}).
		Where("id = ? AND active = 1 AND (max_uses = 0 OR times_used < max_uses)", id).
		UpdateColumn("times_used", gorm.Expr("times_used + 1"))
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "increment coupon uses")
	}
	return result.RowsAffected == 1, nil
}

func (r *GormCouponRepository) DecrementUses(ctx context.Context, id string) error {
	err := r.conn(ctx).Model(&CouponModel{}).
		Where("id = ? AND times_used > 0", id).
		UpdateColumn("times_used", gorm.Expr("times_used - 1")).Error
	return errors.Wrap(err, "decrement coupon uses")
}

// GormUsageRepository 单人用量仓储。
type GormUsageRepository struct {
	db *gorm.DB
}

func NewGormUsageRepository(db *gorm.DB) *GormUsageRepository {
	return &GormUsageRepository{db: db}
}

var _ domain.UsageRepository = (*GormUsageRepository)(nil)

func (r *GormUsageRepository) conn(ctx context.Context) *gorm.DB {
	return database.FromCtx(ctx, r.db).WithContext(ctx)
}

func (r *GormUsageRepository) CountFor(ctx context.Context, couponID, userID string) (int, error) {
	var m CouponUsageModel
	err := r.conn(ctx).First(&m, "coupon_id = ? AND user_id = ?", couponID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "count coupon usage")
	}
	return m.UsedCount, nil
}

// IncrementLocked 锁行后校验单人上限再加一。没有记录时先建一条。
// 必须运行在事务内，锁持有到事务结束。
func (r *GormUsageRepository) IncrementLocked(ctx context.Context, couponID, userID string, maxPerUser int) (bool, error) {
	conn := r.conn(ctx)

	var m CouponUsageModel
	err := conn.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&m, "coupon_id = ? AND user_id = ?", couponID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		m = CouponUsageModel{CouponID: couponID, UserID: userID, UsedCount: 0}
		if err := conn.Create(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// 并发建行，重新锁取
				if err := conn.Clauses(clause.Locking{Strength: "UPDATE"}).
					First(&m, "coupon_id = ? AND user_id = ?", couponID, userID).Error; err != nil {
					return false, errors.Wrap(err, "relock coupon usage")
				}
			} else {
				return false, errors.Wrap(err, "create coupon usage")
			}
		}
	} else if err != nil {
		return false, errors.Wrap(err, "lock coupon usage")
	}

	if maxPerUser > 0 && m.UsedCount >= maxPerUser {
		return false, nil
	}
	err = conn.Model(&CouponUsageModel{}).
		Where("id = ?", m.ID).
		UpdateColumn("used_count", gorm.Expr("used_count + 1")).Error
	if err != nil {
		return false, errors.Wrap(err, "increment coupon usage")
	}
	return true, nil
}

func (r *GormUsageRepository) Decrement(ctx context.Context, couponID, userID string) error {
	err := r.conn(ctx).Model(&CouponUsageModel{}).
		Where("coupon_id = ? AND user_id = ? AND used_count > 0", couponID, userID).
		UpdateColumn("used_count", gorm.Expr("used_count - 1")).Error
	return errors.Wrap(err, "decrement coupon usage")
}
