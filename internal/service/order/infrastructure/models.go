package infrastructure

import "time"

// OrderModel orders 表。
type OrderModel struct {
	ID             string    `gorm:"column:id;primaryKey;size:36"`
	Number         string    `gorm:"column:number;size:20;uniqueIndex"`
	UserID         string    `gorm:"column:user_id;size:36;index"`
	SellerID       string    `gorm:"column:seller_id;size:36;index"`
	CartID         string    `gorm:"column:cart_id;size:36"`
	CustomerType   string    `gorm:"column:customer_type;size:20"`
	TaxID          string    `gorm:"column:tax_id;size:20"`
	Subtotal       float64   `gorm:"column:subtotal"`
	Discount       float64   `gorm:"column:discount"`
	Shipping       float64   `gorm:"column:shipping"`
	Total          float64   `gorm:"column:total"`
	DeliverySlotID string    `gorm:"column:delivery_slot_id;size:36"`
	State          string    `gorm:"column:state;size:20;index"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (OrderModel) TableName() string { return "orders" }

// OrderItemModel order_items 表，行项快照。
type OrderItemModel struct {
	ID          uint    `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID     string  `gorm:"column:order_id;size:36;index"`
	ProductID   string  `gorm:"column:product_id;size:36"`
	Name        string  `gorm:"column:name;size:200"`
	Qty         int     `gorm:"column:qty"`
	UnitPrice   float64 `gorm:"column:unit_price"`
	Discount    float64 `gorm:"column:discount"`
	TaxCategory string  `gorm:"column:tax_category;size:50"`
}

func (OrderItemModel) TableName() string { return "order_items" }

// OrderCouponModel order_coupons 表，订单上生效的券。
type OrderCouponModel struct {
	ID       uint    `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID  string  `gorm:"column:order_id;size:36;index"`
	CouponID string  `gorm:"column:coupon_id;size:36"`
	Code     string  `gorm:"column:code;size:50"`
	Discount float64 `gorm:"column:discount"`
}

func (OrderCouponModel) TableName() string { return "order_coupons" }

// OrderHistoryModel order_state_history 表，只插入不更新。
type OrderHistoryModel struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   string    `gorm:"column:order_id;size:36;index"`
	FromState string    `gorm:"column:from_state;size:20"`
	ToState   string    `gorm:"column:to_state;size:20"`
	Reason    string    `gorm:"column:reason;size:500"`
	Actor     string    `gorm:"column:actor;size:100"`
	At        time.Time `gorm:"column:at"`
}

func (OrderHistoryModel) TableName() string { return "order_state_history" }
