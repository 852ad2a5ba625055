package infrastructure

import "time"

// CouponModel coupons 表。Categories 存 JSON 数组。
type CouponModel struct {
	ID             string     `gorm:"column:id;primaryKey;size:36"`
	Code           string     `gorm:"column:code;size:50;uniqueIndex"`
	Active         bool       `gorm:"column:active;default:true"`
	StartsAt       *time.Time `gorm:"column:starts_at"`
	EndsAt         *time.Time `gorm:"column:ends_at"`
	Type           string     `gorm:"column:type;size:20"`
	Value          float64    `gorm:"column:value"`
	MaxDiscount    float64    `gorm:"column:max_discount"`
	MinSubtotal    float64    `gorm:"column:min_subtotal"`
	Categories     string     `gorm:"column:categories;type:json"`
	RuleDefinition string     `gorm:"column:rule_definition;size:500"`
	MaxUses        int        `gorm:"column:max_uses"`
	MaxUsesPerUser int        `gorm:"column:max_uses_per_user"`
	TimesUsed      int        `gorm:"column:times_used"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
}

func (CouponModel) TableName() string { return "coupons" }

// CouponUsageModel coupon_usages 表，(coupon_id, user_id) 唯一。
type CouponUsageModel struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	CouponID  string    `gorm:"column:coupon_id;size:36;uniqueIndex:uk_coupon_user"`
	UserID    string    `gorm:"column:user_id;size:36;uniqueIndex:uk_coupon_user"`
	UsedCount int       `gorm:"column:used_count"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (CouponUsageModel) TableName() string { return "coupon_usages" }
