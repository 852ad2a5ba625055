package domain

import (
	"context"
	"time"
)

// 事件类型。confirmed 走独立 topic 供账务 worker 消费，
// 状态变更走通用事件 topic 供推送与通知。
const (
	EventOrderConfirmed    = "order.confirmed"
	EventOrderStateChanged = "order.state_changed"
)

// Event 订单事件信封。EventID 供消费侧去重。
type Event struct {
	EventID     string    `json:"event_id"`
	Type        string    `json:"type"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      string    `json:"user_id"`
	SellerID    string    `json:"seller_id"`
	FromState   string    `json:"from_state,omitempty"`
	ToState     string    `json:"to_state"`
	Total       float64   `json:"total"`
	At          time.Time `json:"at"`
}

// EventPublisher 订单事件出口。
type EventPublisher interface {
	PublishConfirmed(ctx context.Context, order *Order) error
	PublishStateChanged(ctx context.Context, order *Order, change StateChange) error
}
