package port

import (
	"context"

	"vivero/internal/service/billing/domain"
)

// PdfRenderer 发票 PDF 渲染出口，返回可下载地址。
// 只在事务边界之外调用，按可重试处理。
type PdfRenderer interface {
	Render(ctx context.Context, inv *domain.Invoice) (string, error)
}
