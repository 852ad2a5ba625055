package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"vivero/internal/errs"
	"vivero/internal/service/inventory/domain"
)

// passTxManager 直通事务管理器：回调直接执行。
type passTxManager struct{}

func (passTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeProductRepo struct {
	products map[string]*domain.Product
}

func (f *fakeProductRepo) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, errs.NewNotFound("product", id)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProductRepo) FindByIDs(ctx context.Context, ids []string) ([]*domain.Product, error) {
	var out []*domain.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) ReserveGuarded(ctx context.Context, productID string, qty int) (bool, error) {
	p, ok := f.products[productID]
	if !ok || p.Available() < qty {
		return false, nil
	}
	p.StockReserved += qty
	return true, nil
}

func (f *fakeProductRepo) ReleaseReserved(ctx context.Context, productID string, qty int) error {
	if p, ok := f.products[productID]; ok {
		p.StockReserved -= qty
		if p.StockReserved < 0 {
			p.StockReserved = 0
		}
	}
	return nil
}

func (f *fakeProductRepo) CommitReserved(ctx context.Context, productID string, qty int) (bool, error) {
	p, ok := f.products[productID]
	if !ok || p.StockReserved < qty {
		return false, nil
	}
	p.Stock -= qty
	p.StockReserved -= qty
	p.TimesSold += qty
	return true, nil
}

func (f *fakeProductRepo) DecrementGuarded(ctx context.Context, productID string, qty int) (bool, error) {
	p, ok := f.products[productID]
	if !ok || p.Available() < qty {
		return false, nil
	}
	p.Stock -= qty
	p.TimesSold += qty
	return true, nil
}

func (f *fakeProductRepo) RestoreStock(ctx context.Context, productID string, qty int) error {
	if p, ok := f.products[productID]; ok {
		p.Stock += qty
		p.TimesSold -= qty
		if p.TimesSold < 0 {
			p.TimesSold = 0
		}
	}
	return nil
}

type fakeReservationRepo struct {
	reservations map[string]*domain.StockReservation
}

func (f *fakeReservationRepo) Create(ctx context.Context, res *domain.StockReservation) error {
	if f.reservations == nil {
		f.reservations = map[string]*domain.StockReservation{}
	}
	f.reservations[res.ID] = res
	return nil
}

func (f *fakeReservationRepo) FindActiveByOrderRef(ctx context.Context, orderRef string) ([]*domain.StockReservation, error) {
	var out []*domain.StockReservation
	for _, res := range f.reservations {
		if res.OrderRef == orderRef && res.Status == domain.ReservationReserved {
			out = append(out, res)
		}
	}
	return out, nil
}

func (f *fakeReservationRepo) MarkStatus(ctx context.Context, id string, from, to domain.ReservationStatus) (bool, error) {
	res, ok := f.reservations[id]
	if !ok || res.Status != from {
		return false, nil
	}
	res.Status = to
	return true, nil
}

func (f *fakeReservationRepo) FindExpired(ctx context.Context, now time.Time, limit int) ([]*domain.StockReservation, error) {
	var out []*domain.StockReservation
	for _, res := range f.reservations {
		if res.Expired(now) {
			out = append(out, res)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func newTestService(products map[string]*domain.Product) (*Service, *fakeProductRepo, *fakeReservationRepo) {
	pr := &fakeProductRepo{products: products}
	rr := &fakeReservationRepo{}
	return NewService(pr, rr, passTxManager{}, otel.Tracer("test")), pr, rr
}

func stocked(id string, stock int) *domain.Product {
	return &domain.Product{ID: id, Stock: stock, Active: true}
}

func TestDecrementAtomicReducesExactQuantities(t *testing.T) {
	svc, pr, _ := newTestService(map[string]*domain.Product{
		"p1": stocked("p1", 10),
		"p2": stocked("p2", 5),
	})

	err := svc.DecrementAtomic(context.Background(), []ItemRequest{
		{ProductID: "p1", Qty: 3},
		{ProductID: "p2", Qty: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, pr.products["p1"].Stock)
	assert.Equal(t, 4, pr.products["p2"].Stock)
	assert.Equal(t, 3, pr.products["p1"].TimesSold)
}

func TestDecrementAtomicReportsAllShortfalls(t *testing.T) {
	svc, _, _ := newTestService(map[string]*domain.Product{
		"p1": stocked("p1", 2),
		"p2": stocked("p2", 0),
	})

	err := svc.DecrementAtomic(context.Background(), []ItemRequest{
		{ProductID: "p1", Qty: 5},
		{ProductID: "p2", Qty: 1},
	})
	require.Error(t, err)
	require.True(t, errs.IsInsufficientStock(err))

	var stockErr *errs.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Shortfalls, 2)
	byProduct := map[string]errs.Shortfall{}
	for _, s := range stockErr.Shortfalls {
		byProduct[s.ProductID] = s
	}
	assert.Equal(t, 5, byProduct["p1"].Required)
	assert.Equal(t, 2, byProduct["p1"].Available)
	assert.Equal(t, 1, byProduct["p2"].Required)
	assert.Equal(t, 0, byProduct["p2"].Available)
}

func TestReserveThenCommit(t *testing.T) {
	svc, pr, _ := newTestService(map[string]*domain.Product{"p1": stocked("p1", 10)})

	require.NoError(t, svc.Reserve(context.Background(), "order-1", []ItemRequest{{ProductID: "p1", Qty: 4}}, time.Hour))
	assert.Equal(t, 6, pr.products["p1"].Available())
	assert.Equal(t, 10, pr.products["p1"].Stock, "reserve must not touch physical stock")

	require.NoError(t, svc.Commit(context.Background(), "order-1"))
	assert.Equal(t, 6, pr.products["p1"].Stock)
	assert.Equal(t, 0, pr.products["p1"].StockReserved)
}

func TestReleaseIsIdempotent(t *testing.T) {
	svc, pr, _ := newTestService(map[string]*domain.Product{"p1": stocked("p1", 10)})

	require.NoError(t, svc.Reserve(context.Background(), "order-1", []ItemRequest{{ProductID: "p1", Qty: 4}}, time.Hour))
	require.NoError(t, svc.Release(context.Background(), "order-1"))
	assert.Equal(t, 10, pr.products["p1"].Available())

	// 第二次释放没有活跃预占，必须是安全的空操作
	require.NoError(t, svc.Release(context.Background(), "order-1"))
	assert.Equal(t, 10, pr.products["p1"].Available())
}

func TestSweepExpiredReleasesOnlyExpiredHolds(t *testing.T) {
	svc, pr, rr := newTestService(map[string]*domain.Product{"p1": stocked("p1", 10)})

	require.NoError(t, svc.Reserve(context.Background(), "stale", []ItemRequest{{ProductID: "p1", Qty: 3}}, -time.Minute))
	require.NoError(t, svc.Reserve(context.Background(), "fresh", []ItemRequest{{ProductID: "p1", Qty: 2}}, time.Hour))
	require.Equal(t, 5, pr.products["p1"].Available())

	released, err := svc.SweepExpired(context.Background(), time.Now(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.Equal(t, 7, pr.products["p1"].Available(), "only the stale hold is returned")

	for _, res := range rr.reservations {
		if res.OrderRef == "stale" {
			assert.Equal(t, domain.ReservationExpired, res.Status)
		}
	}
}
