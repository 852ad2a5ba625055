package infrastructure

import "time"

// DeliveryWindowModel delivery_windows 表。Weekdays 存为 "1,3,5" 形式。
type DeliveryWindowModel struct {
	ID            string     `gorm:"column:id;primaryKey;size:36"`
	Name          string     `gorm:"column:name;size:100"`
	Weekdays      string     `gorm:"column:weekdays;size:20"`
	StartTime     string     `gorm:"column:start_time;size:5"`
	EndTime       string     `gorm:"column:end_time;size:5"`
	CapacityMax   int        `gorm:"column:capacity_max"`
	AllowHolidays bool       `gorm:"column:allow_holidays"`
	Surcharge     float64    `gorm:"column:surcharge"`
	Active        bool       `gorm:"column:active;default:true"`
	ValidFrom     *time.Time `gorm:"column:valid_from"`
	ValidUntil    *time.Time `gorm:"column:valid_until"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

func (DeliveryWindowModel) TableName() string { return "delivery_windows" }

// DeliverySlotModel delivery_slots 表，(window_id, date) 唯一。
type DeliverySlotModel struct {
	ID                string    `gorm:"column:id;primaryKey;size:36"`
	WindowID          string    `gorm:"column:window_id;size:36;uniqueIndex:uk_window_date"`
	Date              time.Time `gorm:"column:date;uniqueIndex:uk_window_date"`
	StartTime         string    `gorm:"column:start_time;size:5"`
	EndTime           string    `gorm:"column:end_time;size:5"`
	CapacityMax       int       `gorm:"column:capacity_max"`
	CapacityAvailable int       `gorm:"column:capacity_available"`
	State             string    `gorm:"column:state;size:20"`
	Surcharge         float64   `gorm:"column:surcharge"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (DeliverySlotModel) TableName() string { return "delivery_slots" }

// SlotReservationModel slot_reservations 表，(slot_id, order_ref) 唯一。
type SlotReservationModel struct {
	ID        string     `gorm:"column:id;primaryKey;size:36"`
	SlotID    string     `gorm:"column:slot_id;size:36;uniqueIndex:uk_slot_order"`
	OrderRef  string     `gorm:"column:order_ref;size:64;uniqueIndex:uk_slot_order"`
	Status    string     `gorm:"column:status;size:20;index:idx_hold_status_expires"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index:idx_hold_status_expires"`
	CreatedAt time.Time  `gorm:"column:created_at"`
}

func (SlotReservationModel) TableName() string { return "slot_reservations" }
