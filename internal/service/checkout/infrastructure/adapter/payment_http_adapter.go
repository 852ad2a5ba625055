package adapter

import (
	"context"

	"vivero/internal/errs"
	"vivero/internal/pkg/httpclient"
	"vivero/internal/service/checkout/port"
)

// PaymentHTTPAdapter 调支付网关的授权接口。网关侧按 order_id 幂等，
// 重复授权返回同一笔交易。
type PaymentHTTPAdapter struct {
	client     *httpclient.Client
	gatewayURL string
}

func NewPaymentHTTPAdapter(client *httpclient.Client, gatewayURL string) *PaymentHTTPAdapter {
	return &PaymentHTTPAdapter{client: client, gatewayURL: gatewayURL}
}

var _ port.PaymentProcessor = (*PaymentHTTPAdapter)(nil)

type authorizeRequest struct {
	OrderID string  `json:"order_id"`
	Amount  float64 `json:"amount"`
	Method  string  `json:"method"`
}

type authorizeResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

func (a *PaymentHTTPAdapter) Authorize(ctx context.Context, orderID string, amount float64, method string) (port.AuthResult, error) {
	req := authorizeRequest{OrderID: orderID, Amount: amount, Method: method}
	var resp authorizeResponse
	if err := a.client.PostJSON(ctx, a.gatewayURL+"/v1/authorize", req, &resp); err != nil {
		return port.AuthResult{}, errs.NewExternal("payment_gateway", err)
	}
	return port.AuthResult{TransactionID: resp.TransactionID, Status: resp.Status}, nil
}
