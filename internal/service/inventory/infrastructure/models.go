package infrastructure

import "time"

// ProductModel products 表。
type ProductModel struct {
	ID               string    `gorm:"column:id;primaryKey;size:36"`
	Name             string    `gorm:"column:name;size:200"`
	Price            float64   `gorm:"column:price"`
	Stock            int       `gorm:"column:stock"`
	StockReserved    int       `gorm:"column:stock_reserved"`
	TaxCategory      string    `gorm:"column:tax_category;size:50"`
	WholesaleEnabled bool      `gorm:"column:wholesale_enabled"`
	TimesSold        int       `gorm:"column:times_sold"`
	Active           bool      `gorm:"column:active;default:true"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (ProductModel) TableName() string { return "products" }

// StockReservationModel stock_reservations 表。
// (product_id, order_ref) 唯一索引保证同一订单对同一商品只占一次。
type StockReservationModel struct {
	ID        string    `gorm:"column:id;primaryKey;size:36"`
	ProductID string    `gorm:"column:product_id;size:36;uniqueIndex:uk_product_order"`
	OrderRef  string    `gorm:"column:order_ref;size:64;uniqueIndex:uk_product_order"`
	Qty       int       `gorm:"column:qty"`
	Status    string    `gorm:"column:status;size:20;index:idx_status_expires"`
	ExpiresAt time.Time `gorm:"column:expires_at;index:idx_status_expires"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (StockReservationModel) TableName() string { return "stock_reservations" }
