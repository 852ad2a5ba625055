package adapter

import (
	"context"

	inventoryapp "vivero/internal/service/inventory/application"
	"vivero/internal/service/order/port"
)

// InventoryAdapter 把库存应用服务适配成订单取消的回补出口。
type InventoryAdapter struct {
	inventory *inventoryapp.Service
}

func NewInventoryAdapter(inventory *inventoryapp.Service) *InventoryAdapter {
	return &InventoryAdapter{inventory: inventory}
}

var _ port.StockRestorer = (*InventoryAdapter)(nil)

func (a *InventoryAdapter) Restore(ctx context.Context, items []port.RestoreItem) error {
	reqs := make([]inventoryapp.ItemRequest, 0, len(items))
	for _, item := range items {
		reqs = append(reqs, inventoryapp.ItemRequest{ProductID: item.ProductID, Qty: item.Qty})
	}
	return a.inventory.Restore(ctx, reqs)
}
