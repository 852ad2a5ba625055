package adapter

import (
	"context"

	"vivero/internal/pkg/httpclient"
	"vivero/internal/service/billing/domain"
	"vivero/internal/service/billing/port"
)

// PdfHTTPAdapter 调用外部渲染服务生成发票 PDF。
type PdfHTTPAdapter struct {
	client     *httpclient.Client
	serviceURL string
}

func NewPdfHTTPAdapter(client *httpclient.Client, serviceURL string) *PdfHTTPAdapter {
	return &PdfHTTPAdapter{client: client, serviceURL: serviceURL}
}

var _ port.PdfRenderer = (*PdfHTTPAdapter)(nil)

type renderRequest struct {
	InvoiceNumber string             `json:"invoice_number"`
	OrderNumber   string             `json:"order_number"`
	Lines         []renderLine       `json:"lines"`
	Totals        map[string]float64 `json:"totals"`
}

type renderLine struct {
	Name      string  `json:"name"`
	Qty       int     `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
	TaxAmount float64 `json:"tax_amount"`
}

type renderResponse struct {
	URL string `json:"url"`
}

func (a *PdfHTTPAdapter) Render(ctx context.Context, inv *domain.Invoice) (string, error) {
	req := renderRequest{
		InvoiceNumber: inv.Number,
		OrderNumber:   inv.OrderNumber,
		Totals: map[string]float64{
			"subtotal": inv.Totals.Subtotal,
			"discount": inv.Totals.Discount,
			"tax":      inv.Totals.Tax,
			"shipping": inv.Totals.Shipping,
			"total":    inv.Totals.Total,
		},
	}
	for _, line := range inv.Lines {
		req.Lines = append(req.Lines, renderLine{
			Name:      line.Name,
			Qty:       line.Qty,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal,
			TaxAmount: line.TaxAmount,
		})
	}
	var resp renderResponse
	if err := a.client.PostJSON(ctx, a.serviceURL, req, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}
