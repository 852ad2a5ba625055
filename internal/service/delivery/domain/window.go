package domain

import "time"

// DeliveryWindow 每周配送模板：哪些星期几、什么时段、多大容量。
// 具体某天的可约档期由它生成为 DeliverySlot。
type DeliveryWindow struct {
	ID            string
	Name          string
	Weekdays      []time.Weekday
	StartTime     string // "HH:MM"
	EndTime       string
	CapacityMax   int
	AllowHolidays bool
	Surcharge     float64
	Active        bool
	ValidFrom     *time.Time
	ValidUntil    *time.Time
}

// CoversDate 模板在该日期是否开放。holidays 的键为 yyyy-mm-dd。
func (w *DeliveryWindow) CoversDate(date time.Time, holidays map[string]bool) bool {
	if !w.Active {
		return false
	}
	if w.ValidFrom != nil && date.Before(*w.ValidFrom) {
		return false
	}
	if w.ValidUntil != nil && date.After(*w.ValidUntil) {
		return false
	}
	if !w.AllowHolidays && holidays[date.Format("2006-01-02")] {
		return false
	}
	for _, wd := range w.Weekdays {
		if date.Weekday() == wd {
			return true
		}
	}
	return false
}
