package domain

// OrderLine 账务视角的订单行项快照。
type OrderLine struct {
	ProductID   string
	Name        string
	Qty         int
	UnitPrice   float64
	Discount    float64
	TaxCategory string
}

// OrderSnapshot 账务计算的输入：下单时刻的不可变快照，
// 佣金与发票都只认它，不回读订单。
type OrderSnapshot struct {
	OrderID      string
	OrderNumber  string
	UserID       string
	SellerID     string
	CustomerType string
	TaxID        string
	Lines        []OrderLine
	Subtotal     float64
	Discount     float64
	Shipping     float64
	Total        float64
}

// CommissionBase 佣金基数的唯一定义：商品小计。
// 不含运费，券折扣也不转嫁给卖家。所有调用方一律走这里。
func CommissionBase(s OrderSnapshot) float64 {
	return s.Subtotal
}
