package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"vivero/internal/pkg/mq"
	"vivero/internal/service/order/domain"
)

// KafkaEventPublisher 订单事件出口：confirmed 走账务 topic，
// 状态变更走通用事件 topic。
type KafkaEventPublisher struct {
	confirmedWriter *kafka.Writer
	eventsWriter    *kafka.Writer
}

func NewKafkaEventPublisher(confirmedWriter, eventsWriter *kafka.Writer) *KafkaEventPublisher {
	return &KafkaEventPublisher{confirmedWriter: confirmedWriter, eventsWriter: eventsWriter}
}

var _ domain.EventPublisher = (*KafkaEventPublisher)(nil)

func (p *KafkaEventPublisher) PublishConfirmed(ctx context.Context, order *domain.Order) error {
	event := domain.Event{
		EventID:     uuid.NewString(),
		Type:        domain.EventOrderConfirmed,
		OrderID:     order.ID,
		OrderNumber: order.Number,
		UserID:      order.UserID,
		SellerID:    order.SellerID,
		ToState:     string(order.State),
		Total:       order.Totals.Total,
		At:          time.Now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal order confirmed event")
	}
	return mq.ProduceMessage(ctx, p.confirmedWriter, order.ID, payload)
}

func (p *KafkaEventPublisher) PublishStateChanged(ctx context.Context, order *domain.Order, change domain.StateChange) error {
	event := domain.Event{
		EventID:     uuid.NewString(),
		Type:        domain.EventOrderStateChanged,
		OrderID:     order.ID,
		OrderNumber: order.Number,
		UserID:      order.UserID,
		SellerID:    order.SellerID,
		FromState:   string(change.From),
		ToState:     string(change.To),
		Total:       order.Totals.Total,
		At:          change.At,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal order state event")
	}
	return mq.ProduceMessage(ctx, p.eventsWriter, order.ID, payload)
}
