package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"vivero/internal/errs"
	"vivero/internal/service/billing/domain"
)

type passTxManager struct{}

func (passTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeInvoiceRepo struct {
	invoices map[string]*domain.Invoice
	dues     map[string]time.Time
	seq      int
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		invoices: map[string]*domain.Invoice{},
		dues:     map[string]time.Time{},
	}
}

func (f *fakeInvoiceRepo) Create(ctx context.Context, inv *domain.Invoice) error {
	for _, existing := range f.invoices {
		if existing.Number == inv.Number {
			return errs.NewConflict("invoice_number", "invoice number already taken")
		}
		if existing.OrderID == inv.OrderID && existing.Revision == inv.Revision {
			return errs.NewConflict("invoice", "invoice already exists for this order revision")
		}
	}
	cp := *inv
	f.invoices[inv.ID] = &cp
	return nil
}

func (f *fakeInvoiceRepo) FindByID(ctx context.Context, id string) (*domain.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return nil, errs.NewNotFound("invoice", id)
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInvoiceRepo) FindCurrentByOrder(ctx context.Context, orderID string) (*domain.Invoice, error) {
	var current *domain.Invoice
	for _, inv := range f.invoices {
		if inv.OrderID == orderID && (current == nil || inv.Revision > current.Revision) {
			current = inv
		}
	}
	if current == nil {
		return nil, errs.NewNotFound("invoice", orderID)
	}
	cp := *current
	return &cp, nil
}

func (f *fakeInvoiceRepo) NextSequence(ctx context.Context, prefix string) (int, error) {
	f.seq++
	return f.seq, nil
}

func (f *fakeInvoiceRepo) MarkState(ctx context.Context, id string, from, to domain.InvoiceState, at time.Time) (bool, error) {
	inv, ok := f.invoices[id]
	if !ok || inv.State != from {
		return false, nil
	}
	inv.State = to
	switch to {
	case domain.InvoiceIssued:
		inv.IssuedAt = &at
	case domain.InvoiceSent:
		inv.SentAt = &at
	case domain.InvoicePaid:
		inv.PaidAt = &at
	}
	return true, nil
}

func (f *fakeInvoiceRepo) SetDueDate(ctx context.Context, id string, due time.Time) error {
	if inv, ok := f.invoices[id]; ok {
		d := due
		inv.DueAt = &d
	}
	f.dues[id] = due
	return nil
}

func (f *fakeInvoiceRepo) SetPDFURL(ctx context.Context, id, url string) error {
	if inv, ok := f.invoices[id]; ok {
		inv.PDFURL = url
	}
	return nil
}

type noopPdf struct{}

func (noopPdf) Render(ctx context.Context, inv *domain.Invoice) (string, error) {
	return "http://files/" + inv.Number + ".pdf", nil
}

type noopSender struct{}

func (noopSender) Send(ctx context.Context, channel, recipient, template string, data map[string]any) (string, error) {
	return "msg-1", nil
}

func newTestInvoiceService(repo *fakeInvoiceRepo) *InvoiceService {
	rates := map[string]float64{"plant": 0.10, "pot": 0.21}
	return NewInvoiceService(repo, noopPdf{}, noopSender{}, rates, 0.19, 30,
		passTxManager{}, otel.Tracer("test"))
}

func orderSnapshot() domain.OrderSnapshot {
	return domain.OrderSnapshot{
		OrderID:     "order-1",
		OrderNumber: "PL-260830-000001",
		UserID:      "u1",
		Lines: []domain.OrderLine{
			{ProductID: "p1", Name: "Monstera", Qty: 3, UnitPrice: 10, TaxCategory: "plant"},
			{ProductID: "p2", Name: "Ceramic pot", Qty: 1, UnitPrice: 50, TaxCategory: "pot"},
		},
		Subtotal: 80,
		Total:    80,
	}
}

func TestIssuePersistsDueDate(t *testing.T) {
	repo := newFakeInvoiceRepo()
	svc := newTestInvoiceService(repo)

	result, err := svc.Generate(context.Background(), orderSnapshot(), GenerateOptions{})
	require.NoError(t, err)
	id := result.Invoice.ID

	issued, err := svc.Issue(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceIssued, issued.State)
	require.NotNil(t, issued.DueAt)
	assert.Equal(t, issued.IssuedAt.AddDate(0, 0, 30), *issued.DueAt)

	// 到期日必须落库，不能只留在内存里
	due, ok := repo.dues[id]
	require.True(t, ok, "due date was never written to the repository")
	assert.Equal(t, *issued.DueAt, due)

	reloaded, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, reloaded.DueAt)
	assert.Equal(t, due, *reloaded.DueAt)
}

func TestGenerateSecondInvoiceConflictsWithoutForce(t *testing.T) {
	repo := newFakeInvoiceRepo()
	svc := newTestInvoiceService(repo)

	_, err := svc.Generate(context.Background(), orderSnapshot(), GenerateOptions{})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), orderSnapshot(), GenerateOptions{})
	require.Error(t, err)
	assert.True(t, errs.IsConflict(err))
}

func TestGenerateForceVoidsAndBumpsRevision(t *testing.T) {
	repo := newFakeInvoiceRepo()
	svc := newTestInvoiceService(repo)

	first, err := svc.Generate(context.Background(), orderSnapshot(), GenerateOptions{})
	require.NoError(t, err)

	second, err := svc.Generate(context.Background(), orderSnapshot(), GenerateOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Invoice.Revision)

	old, err := repo.FindByID(context.Background(), first.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceVoid, old.State)
}
