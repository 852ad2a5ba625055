package adapter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"vivero/internal/pkg/mq"
	"vivero/internal/service/billing/port"
)

// NotificationKafkaAdapter 把通知投到派发 topic，由独立消费者
// 负责真正送达。发出即视为成功。
type NotificationKafkaAdapter struct {
	writer *kafka.Writer
}

func NewNotificationKafkaAdapter(writer *kafka.Writer) *NotificationKafkaAdapter {
	return &NotificationKafkaAdapter{writer: writer}
}

var _ port.NotificationSender = (*NotificationKafkaAdapter)(nil)

type notificationMessage struct {
	MessageID string         `json:"message_id"`
	Channel   string         `json:"channel"`
	Recipient string         `json:"recipient"`
	Template  string         `json:"template"`
	Data      map[string]any `json:"data"`
	At        time.Time      `json:"at"`
}

func (a *NotificationKafkaAdapter) Send(ctx context.Context, channel, recipient, template string, data map[string]any) (string, error) {
	msg := notificationMessage{
		MessageID: uuid.NewString(),
		Channel:   channel,
		Recipient: recipient,
		Template:  template,
		Data:      data,
		At:        time.Now(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", errors.Wrap(err, "marshal notification")
	}
	if err := mq.ProduceMessage(ctx, a.writer, recipient, payload); err != nil {
		return "", err
	}
	return msg.MessageID, nil
}
