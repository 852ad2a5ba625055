package infrastructure

import (
	"context"

	"vivero/internal/service/cart/port"
	inventorydomain "vivero/internal/service/inventory/domain"
)

// CatalogAdapter 把库存台账适配成购物车校验所需的只读商品目录。
type CatalogAdapter struct {
	products inventorydomain.ProductRepository
}

func NewCatalogAdapter(products inventorydomain.ProductRepository) *CatalogAdapter {
	return &CatalogAdapter{products: products}
}

var _ port.CatalogReader = (*CatalogAdapter)(nil)

func (a *CatalogAdapter) ProductsByIDs(ctx context.Context, ids []string) (map[string]port.CatalogProduct, error) {
	products, err := a.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]port.CatalogProduct, len(products))
	for _, p := range products {
		out[p.ID] = port.CatalogProduct{
			ID:          p.ID,
			Name:        p.Name,
			Price:       p.Price,
			Available:   p.Available(),
			TaxCategory: p.TaxCategory,
			Active:      p.Active,
		}
	}
	return out, nil
}
