package infrastructure

import "time"

// CartModel carts 表。
type CartModel struct {
	ID        string    `gorm:"column:id;primaryKey;size:36"`
	UserID    string    `gorm:"column:user_id;size:36;index"`
	Status    string    `gorm:"column:status;size:20"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (CartModel) TableName() string { return "carts" }

// CartItemModel cart_items 表，UnitPrice 为加入时的快照价。
type CartItemModel struct {
	ID        uint    `gorm:"column:id;primaryKey;autoIncrement"`
	CartID    string  `gorm:"column:cart_id;size:36;index"`
	ProductID string  `gorm:"column:product_id;size:36"`
	Qty       int     `gorm:"column:qty"`
	UnitPrice float64 `gorm:"column:unit_price"`
}

func (CartItemModel) TableName() string { return "cart_items" }
