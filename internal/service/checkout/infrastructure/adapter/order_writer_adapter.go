package adapter

import (
	"context"

	orderapp "vivero/internal/service/order/application"
	orderdomain "vivero/internal/service/order/domain"
)

// OrderWriterAdapter 把订单应用服务与仓储拼成结算链路需要的写口：
// 落单走应用服务（带撞号重试），事务内的状态迁移直连仓储守卫，
// 避免应用服务在提交前就发事件。
type OrderWriterAdapter struct {
	service *orderapp.Service
	repo    orderdomain.OrderRepository
}

func NewOrderWriterAdapter(service *orderapp.Service, repo orderdomain.OrderRepository) *OrderWriterAdapter {
	return &OrderWriterAdapter{service: service, repo: repo}
}

func (a *OrderWriterAdapter) CreateWithUniqueNumber(ctx context.Context, order *orderdomain.Order) error {
	return a.service.CreateWithUniqueNumber(ctx, order)
}

func (a *OrderWriterAdapter) SaveTransition(ctx context.Context, orderID string, change orderdomain.StateChange) (bool, error) {
	return a.repo.SaveTransition(ctx, orderID, change)
}
