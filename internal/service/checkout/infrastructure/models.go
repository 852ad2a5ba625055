package infrastructure

import "time"

// PaymentModel payment_transactions 表。一单每次支付尝试一行，
// (order_id, attempt) 唯一。
type PaymentModel struct {
	ID         string    `gorm:"column:id;primaryKey;size:36"`
	OrderID    string    `gorm:"column:order_id;size:36;uniqueIndex:uk_payment_order_attempt"`
	Attempt    int       `gorm:"column:attempt;uniqueIndex:uk_payment_order_attempt"`
	Method     string    `gorm:"column:method;size:32"`
	Amount     float64   `gorm:"column:amount"`
	Fee        float64   `gorm:"column:fee"`
	Net        float64   `gorm:"column:net"`
	State      string    `gorm:"column:state;size:16;index"`
	GatewayRef string    `gorm:"column:gateway_ref;size:64"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (PaymentModel) TableName() string { return "payment_transactions" }
