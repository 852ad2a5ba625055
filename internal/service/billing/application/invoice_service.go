package application

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"vivero/internal/errs"
	"vivero/internal/pkg/database"
	"vivero/internal/pkg/logger"
	"vivero/internal/service/billing/domain"
	"vivero/internal/service/billing/port"
)

// maxNumberRetries 发票号并发撞号的重试上限。
const maxNumberRetries = 5

// GenerateOptions Force 为真时作废现有发票并开新的 revision。
type GenerateOptions struct {
	Force bool
}

// GenerateResult 生成结果。DriftDetected 表示重算金额与订单
// 存储金额不一致，发票仍以重算为准。
type GenerateResult struct {
	Invoice       *domain.Invoice
	Drift         float64
	DriftDetected bool
}

// InvoiceService 发票应用服务。
type InvoiceService struct {
	repo        domain.InvoiceRepository
	pdf         port.PdfRenderer
	notifier    port.NotificationSender
	taxRates    map[string]float64
	defaultRate float64
	dueDays     int
	txm         database.TxManager
	tracer      trace.Tracer
}

func NewInvoiceService(repo domain.InvoiceRepository, pdf port.PdfRenderer, notifier port.NotificationSender,
	taxRates map[string]float64, defaultRate float64, dueDays int,
	txm database.TxManager, tracer trace.Tracer) *InvoiceService {
	return &InvoiceService{
		repo:        repo,
		pdf:         pdf,
		notifier:    notifier,
		taxRates:    taxRates,
		defaultRate: defaultRate,
		dueDays:     dueDays,
		txm:         txm,
		tracer:      tracer,
	}
}

// Generate 为订单开票。每单一张（(order, revision) 唯一索引兜底），
// Force 时作废旧票并递增 revision。行项与汇总全部从快照重算，
// 与订单存储金额的偏差超过容差会在结果里暴露。
func (s *InvoiceService) Generate(ctx context.Context, snapshot domain.OrderSnapshot, opts GenerateOptions) (*GenerateResult, error) {
	ctx, span := s.tracer.Start(ctx, "billing.GenerateInvoice")
	defer span.End()
	span.SetAttributes(
		attribute.String("order_id", snapshot.OrderID),
		attribute.Bool("force", opts.Force),
	)

	revision := 1
	existing, err := s.repo.FindCurrentByOrder(ctx, snapshot.OrderID)
	if err != nil && !errs.IsNotFound(err) {
		span.RecordError(err)
		return nil, err
	}
	if existing != nil {
		if !opts.Force {
			return nil, errs.NewConflict("invoice", "order already has an invoice")
		}
		if existing.State != domain.InvoiceVoid {
			if err := s.voidExisting(ctx, existing); err != nil {
				span.RecordError(err)
				return nil, err
			}
		}
		revision = existing.Revision + 1
	}

	invoice := &domain.Invoice{
		ID:           uuid.NewString(),
		OrderID:      snapshot.OrderID,
		OrderNumber:  snapshot.OrderNumber,
		UserID:       snapshot.UserID,
		CustomerType: snapshot.CustomerType,
		TaxID:        snapshot.TaxID,
		Revision:     revision,
		Lines:        domain.BuildLines(snapshot, s.taxRates, s.defaultRate),
		State:        domain.InvoiceDraft,
	}
	invoice.ComputeTotals(snapshot.Discount, snapshot.Shipping)
	drift := invoice.DriftAgainst(snapshot)
	if drift > domain.TotalsTolerance {
		logger.Ctx(ctx).Warn().
			Str("order_id", snapshot.OrderID).
			Float64("drift", drift).
			Msg("invoice totals drift from stored order totals")
	}

	now := time.Now()
	var createErr error
	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		createErr = s.txm.Do(ctx, func(ctx context.Context) error {
			seq, err := s.repo.NextSequence(ctx, domain.NumberPrefix(now))
			if err != nil {
				return err
			}
			invoice.Number = domain.InvoiceNumber(now, seq)
			return s.repo.Create(ctx, invoice)
		})
		if createErr == nil {
			break
		}
		if conflict, ok := asConflict(createErr); ok && conflict.Resource == "invoice_number" {
			logger.Ctx(ctx).Warn().Str("number", invoice.Number).Msg("invoice number collision, retrying")
			continue
		}
		span.RecordError(createErr)
		span.SetStatus(codes.Error, createErr.Error())
		return nil, createErr
	}
	if createErr != nil {
		return nil, errs.NewConflict("invoice_number", "could not allocate a unique invoice number")
	}

	span.SetAttributes(
		attribute.String("invoice_number", invoice.Number),
		attribute.Float64("total", invoice.Totals.Total),
	)
	return &GenerateResult{
		Invoice:       invoice,
		Drift:         drift,
		DriftDetected: drift > domain.TotalsTolerance,
	}, nil
}

func (s *InvoiceService) voidExisting(ctx context.Context, existing *domain.Invoice) error {
	from := existing.State
	if err := existing.Transition(domain.InvoiceVoid); err != nil {
		return err
	}
	moved, err := s.repo.MarkState(ctx, existing.ID, from, domain.InvoiceVoid, time.Now())
	if err != nil {
		return err
	}
	if !moved {
		return errs.NewConflict("invoice", "invoice state changed concurrently")
	}
	return nil
}

// Issue draft → issued，打签发时间并按账期算到期日，
// 状态迁移与到期日同一事务落库。
func (s *InvoiceService) Issue(ctx context.Context, id string) (*domain.Invoice, error) {
	ctx, span := s.tracer.Start(ctx, "billing.IssueInvoice")
	defer span.End()

	var invoice *domain.Invoice
	err := s.txm.Do(ctx, func(ctx context.Context) error {
		var err error
		invoice, err = s.transition(ctx, id, domain.InvoiceIssued)
		if err != nil {
			return err
		}
		due := invoice.IssuedAt.AddDate(0, 0, s.dueDays)
		invoice.DueAt = &due
		return s.repo.SetDueDate(ctx, id, due)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return invoice, nil
}

// Send 发送发票：通知出口成功后 issued → sent。
// 下游失败包装为外部依赖错误，状态不动。
func (s *InvoiceService) Send(ctx context.Context, id, channel, recipient string) (*domain.Invoice, error) {
	ctx, span := s.tracer.Start(ctx, "billing.SendInvoice")
	defer span.End()
	span.SetAttributes(attribute.String("invoice_id", id))

	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if invoice.State != domain.InvoiceIssued {
		return nil, &errs.InvalidStateTransitionError{Entity: "invoice", From: string(invoice.State), To: string(domain.InvoiceSent)}
	}

	_, err = s.notifier.Send(ctx, channel, recipient, "invoice", map[string]any{
		"invoice_number": invoice.Number,
		"order_number":   invoice.OrderNumber,
		"total":          invoice.Totals.Total,
	})
	if err != nil {
		wrapped := errs.NewExternal("notification", err)
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, wrapped.Error())
		return nil, wrapped
	}
	return s.transition(ctx, id, domain.InvoiceSent)
}

// MarkPaid issued/sent → paid。
func (s *InvoiceService) MarkPaid(ctx context.Context, id string) (*domain.Invoice, error) {
	ctx, span := s.tracer.Start(ctx, "billing.PayInvoice")
	defer span.End()
	return s.transition(ctx, id, domain.InvoicePaid)
}

// Void 任意非 void 状态作废。
func (s *InvoiceService) Void(ctx context.Context, id string) (*domain.Invoice, error) {
	ctx, span := s.tracer.Start(ctx, "billing.VoidInvoice")
	defer span.End()
	return s.transition(ctx, id, domain.InvoiceVoid)
}

// ExportPDF 渲染 PDF 并把地址存回发票。
func (s *InvoiceService) ExportPDF(ctx context.Context, id string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "billing.ExportInvoicePDF")
	defer span.End()
	span.SetAttributes(attribute.String("invoice_id", id))

	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	url, err := s.pdf.Render(ctx, invoice)
	if err != nil {
		wrapped := errs.NewExternal("pdf_renderer", err)
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, wrapped.Error())
		return "", wrapped
	}
	if err := s.repo.SetPDFURL(ctx, id, url); err != nil {
		span.RecordError(err)
		return "", err
	}
	return url, nil
}

func (s *InvoiceService) transition(ctx context.Context, id string, to domain.InvoiceState) (*domain.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := invoice.State
	if err := invoice.Transition(to); err != nil {
		return nil, err
	}
	moved, err := s.repo.MarkState(ctx, id, from, to, time.Now())
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, errs.NewConflict("invoice", "invoice state changed concurrently")
	}
	return invoice, nil
}

func asConflict(err error) (*errs.ConflictError, bool) {
	var conflict *errs.ConflictError
	if stderrors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}
