package infrastructure

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"vivero/internal/errs"
	"vivero/internal/pkg/database"
	"vivero/internal/service/billing/domain"
)

// GormCommissionRepository 佣金仓储。
type GormCommissionRepository struct {
	db *gorm.DB
}

func NewGormCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

var _ domain.CommissionRepository = (*GormCommissionRepository)(nil)

func (r *GormCommissionRepository) conn(ctx context.Context) *gorm.DB {
	return database.FromCtx(ctx, r.db).WithContext(ctx)
}

func (r *GormCommissionRepository) Create(ctx context.Context, c *domain.Commission) error {
	err := r.conn(ctx).Create(toCommissionModel(c)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.NewConflict("commission", "commission already exists for this order and seller")
		}
		return errors.Wrap(err, "create commission")
	}
	return nil
}

func (r *GormCommissionRepository) FindByID(ctx context.Context, id string) (*domain.Commission, error) {
	var m CommissionModel
	if err := r.conn(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFound("commission", id)
		}
		return nil, errors.Wrap(err, "find commission")
	}
	return toDomainCommission(&m), nil
}

func (r *GormCommissionRepository) FindByOrderAndSeller(ctx context.Context, orderID, sellerID string) (*domain.Commission, error) {
	var m CommissionModel
	err := r.conn(ctx).First(&m, "order_id = ? AND seller_id = ?", orderID, sellerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFound("commission", orderID+"/"+sellerID)
		}
		return nil, errors.Wrap(err, "find commission by order and seller")
	}
	return toDomainCommission(&m), nil
}

func (r *GormCommissionRepository) MarkState(ctx context.Context, id string, from, to domain.CommissionState, at time.Time) (bool, error) {
	updates := map[string]interface{}{"state": string(to)}
	switch to {
	case domain.CommissionApproved:
		updates["approved_at"] = at
	case domain.CommissionPaid:
		updates["paid_at"] = at
	}
	result := r.conn(ctx).Model(&CommissionModel{}).
		Where("id = ? AND state = ?", id, string(from)).
		Updates(updates)
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "mark commission state")
	}
	return result.RowsAffected == 1, nil
}

func (r *GormCommissionRepository) PendingPayout(ctx context.Context, sellerID string) (float64, error) {
	var total float64
	err := r.conn(ctx).Model(&CommissionModel{}).
		Where("seller_id = ? AND state = ?", sellerID, string(domain.CommissionApproved)).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, errors.Wrap(err, "sum pending payout")
	}
	return total, nil
}

// GormInvoiceRepository 发票仓储。
type GormInvoiceRepository struct {
	db *gorm.DB
}

func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

var _ domain.InvoiceRepository = (*GormInvoiceRepository)(nil)

func (r *GormInvoiceRepository) conn(ctx context.Context) *gorm.DB {
	return database.FromCtx(ctx, r.db).WithContext(ctx)
}

func (r *GormInvoiceRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	conn := r.conn(ctx)
	err := conn.Create(toInvoiceModel(inv)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 撞号与撞 (order, revision) 分开报告，前者可重试
			if strings.Contains(err.Error(), "uk_invoice_number") {
				return errs.NewConflict("invoice_number", "invoice number already taken")
			}
			return errs.NewConflict("invoice", "invoice already exists for this order revision")
		}
		return errors.Wrap(err, "create invoice")
	}
	for _, line := range inv.Lines {
		lm := toInvoiceLineModel(inv.ID, line)
		if err := conn.Create(lm).Error; err != nil {
			return errors.Wrap(err, "create invoice line")
		}
	}
	return nil
}

func (r *GormInvoiceRepository) FindByID(ctx context.Context, id string) (*domain.Invoice, error) {
	var m InvoiceModel
	if err := r.conn(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFound("invoice", id)
		}
		return nil, errors.Wrap(err, "find invoice")
	}
	return r.load(ctx, &m)
}

func (r *GormInvoiceRepository) FindCurrentByOrder(ctx context.Context, orderID string) (*domain.Invoice, error) {
	var m InvoiceModel
	err := r.conn(ctx).
		Where("order_id = ?", orderID).
		Order("revision DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFound("invoice", orderID)
		}
		return nil, errors.Wrap(err, "find invoice by order")
	}
	return r.load(ctx, &m)
}

func (r *GormInvoiceRepository) load(ctx context.Context, m *InvoiceModel) (*domain.Invoice, error) {
	var lines []InvoiceLineModel
	if err := r.conn(ctx).Where("invoice_id = ?", m.ID).Order("id ASC").Find(&lines).Error; err != nil {
		return nil, errors.Wrap(err, "load invoice lines")
	}
	return toDomainInvoice(m, lines), nil
}

// NextSequence 当月最大序号加一。必须在事务内调用，
// 并发撞号由 number 唯一索引兜底。
func (r *GormInvoiceRepository) NextSequence(ctx context.Context, prefix string) (int, error) {
	var maxSeq int
	err := r.conn(ctx).Model(&InvoiceModel{}).
		Where("number LIKE ?", prefix+"-%").
		Select("COALESCE(MAX(CAST(SUBSTRING_INDEX(number, '-', -1) AS UNSIGNED)), 0)").
		Scan(&maxSeq).Error
	if err != nil {
		return 0, errors.Wrap(err, "next invoice sequence")
	}
	return maxSeq + 1, nil
}

func (r *GormInvoiceRepository) MarkState(ctx context.Context, id string, from, to domain.InvoiceState, at time.Time) (bool, error) {
	updates := map[string]interface{}{"state": string(to)}
	switch to {
	case domain.InvoiceIssued:
		updates["issued_at"] = at
	case domain.InvoiceSent:
		updates["sent_at"] = at
	case domain.InvoicePaid:
		updates["paid_at"] = at
	}
	result := r.conn(ctx).Model(&InvoiceModel{}).
		Where("id = ? AND state = ?", id, string(from)).
		Updates(updates)
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "mark invoice state")
	}
	return result.RowsAffected == 1, nil
}

func (r *GormInvoiceRepository) SetDueDate(ctx context.Context, id string, due time.Time) error {
	err := r.conn(ctx).Model(&InvoiceModel{}).
		Where("id = ?", id).
		UpdateColumn("due_at", due).Error
	return errors.Wrap(err, "set invoice due date")
}

func (r *GormInvoiceRepository) SetPDFURL(ctx context.Context, id, url string) error {
	err := r.conn(ctx).Model(&InvoiceModel{}).
		Where("id = ?", id).
		UpdateColumn("pdf_url", url).Error
	return errors.Wrap(err, "set invoice pdf url")
}
