package port

import "context"

// CatalogProduct 校验购物车所需的商品读模型。
type CatalogProduct struct {
	ID          string
	Name        string
	Price       float64
	Available   int
	TaxCategory string
	Active      bool
}

// CatalogReader 购物车校验对商品台账的只读依赖。
type CatalogReader interface {
	ProductsByIDs(ctx context.Context, ids []string) (map[string]CatalogProduct, error)
}
