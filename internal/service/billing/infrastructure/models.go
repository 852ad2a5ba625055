package infrastructure

import "time"

// CommissionModel commissions 表，(order_id, seller_id) 唯一。
type CommissionModel struct {
	ID            string     `gorm:"column:id;primaryKey;size:36"`
	OrderID       string     `gorm:"column:order_id;size:36;uniqueIndex:uk_order_seller"`
	SellerID      string     `gorm:"column:seller_id;size:36;uniqueIndex:uk_order_seller;index"`
	Type          string     `gorm:"column:type;size:20"`
	GrossSale     float64    `gorm:"column:gross_sale"`
	Base          float64    `gorm:"column:base"`
	Amount        float64    `gorm:"column:amount"`
	EffectiveRate float64    `gorm:"column:effective_rate"`
	State         string     `gorm:"column:state;size:20;index"`
	ApprovedAt    *time.Time `gorm:"column:approved_at"`
	PaidAt        *time.Time `gorm:"column:paid_at"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

func (CommissionModel) TableName() string { return "commissions" }

// InvoiceModel invoices 表，number 唯一，(order_id, revision) 唯一。
type InvoiceModel struct {
	ID           string     `gorm:"column:id;primaryKey;size:36"`
	Number       string     `gorm:"column:number;size:20;uniqueIndex:uk_invoice_number"`
	OrderID      string     `gorm:"column:order_id;size:36;uniqueIndex:uk_order_revision"`
	Revision     int        `gorm:"column:revision;uniqueIndex:uk_order_revision"`
	OrderNumber  string     `gorm:"column:order_number;size:20"`
	UserID       string     `gorm:"column:user_id;size:36;index"`
	CustomerType string     `gorm:"column:customer_type;size:20"`
	TaxID        string     `gorm:"column:tax_id;size:20"`
	Subtotal     float64    `gorm:"column:subtotal"`
	Discount     float64    `gorm:"column:discount"`
	Tax          float64    `gorm:"column:tax"`
	Shipping     float64    `gorm:"column:shipping"`
	Total        float64    `gorm:"column:total"`
	State        string     `gorm:"column:state;size:20;index"`
	IssuedAt     *time.Time `gorm:"column:issued_at"`
	DueAt        *time.Time `gorm:"column:due_at"`
	SentAt       *time.Time `gorm:"column:sent_at"`
	PaidAt       *time.Time `gorm:"column:paid_at"`
	PDFURL       string     `gorm:"column:pdf_url;size:500"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (InvoiceModel) TableName() string { return "invoices" }

// InvoiceLineModel invoice_lines 表。
type InvoiceLineModel struct {
	ID        uint    `gorm:"column:id;primaryKey;autoIncrement"`
	InvoiceID string  `gorm:"column:invoice_id;size:36;index"`
	ProductID string  `gorm:"column:product_id;size:36"`
	Name      string  `gorm:"column:name;size:200"`
	Qty       int     `gorm:"column:qty"`
	UnitPrice float64 `gorm:"column:unit_price"`
	Discount  float64 `gorm:"column:discount"`
	Subtotal  float64 `gorm:"column:subtotal"`
	TaxRate   float64 `gorm:"column:tax_rate"`
	TaxAmount float64 `gorm:"column:tax_amount"`
}

func (InvoiceLineModel) TableName() string { return "invoice_lines" }
