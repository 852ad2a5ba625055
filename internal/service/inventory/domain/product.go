package domain

import "time"

// Product 商品库存台账。
// 可售量恒为 Stock - StockReserved，任何写入都不允许让它为负。
type Product struct {
	ID               string
	Name             string
	Price            float64
	Stock            int
	StockReserved    int
	TaxCategory      string
	WholesaleEnabled bool
	TimesSold        int
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Available 当前可售量。
func (p *Product) Available() int {
	return p.Stock - p.StockReserved
}
