package port

import "context"

// NotificationSender 通知出口（邮件、WhatsApp 等），幂等可重试。
type NotificationSender interface {
	Send(ctx context.Context, channel, recipient, template string, data map[string]any) (string, error)
}
