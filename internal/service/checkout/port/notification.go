package port

import "context"

// NotificationSender 下单确认通知出口，幂等可重试。
type NotificationSender interface {
	Send(ctx context.Context, channel, recipient, template string, data map[string]any) (string, error)
}
