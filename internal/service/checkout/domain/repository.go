package domain

import "context"

// PaymentRepository 支付流水仓储。
type PaymentRepository interface {
	Create(ctx context.Context, p *PaymentTransaction) error
	FindByOrder(ctx context.Context, orderID string) (*PaymentTransaction, error)
	// MarkState 守卫式状态更新，顺带写网关引用。
	MarkState(ctx context.Context, id string, from, to PaymentState, gatewayRef string) (bool, error)
}
