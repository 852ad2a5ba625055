package port

import "context"

// AuthResult 支付网关授权结果。
type AuthResult struct {
	TransactionID string
	Status        string // approved | rejected
}

// PaymentProcessor 支付网关出口。只在事务提交后调用，按幂等处理：
// 同一订单重复授权返回同一笔结果。
type PaymentProcessor interface {
	Authorize(ctx context.Context, orderID string, amount float64, method string) (AuthResult, error)
}
