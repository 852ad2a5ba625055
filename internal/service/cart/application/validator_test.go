package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"vivero/internal/errs"
	"vivero/internal/service/cart/domain"
	"vivero/internal/service/cart/port"
)

type fakeCartRepo struct {
	carts map[string]*domain.Cart
}

func (f *fakeCartRepo) FindByID(ctx context.Context, id string) (*domain.Cart, error) {
	c, ok := f.carts[id]
	if !ok {
		return nil, errs.NewNotFound("cart", id)
	}
	return c, nil
}

func (f *fakeCartRepo) MarkProcessed(ctx context.Context, id string) (bool, error) {
	c, ok := f.carts[id]
	if !ok || c.Status != domain.CartActive {
		return false, nil
	}
	c.Status = domain.CartProcessed
	return true, nil
}

type fakeCatalog struct {
	products map[string]port.CatalogProduct
}

func (f *fakeCatalog) ProductsByIDs(ctx context.Context, ids []string) (map[string]port.CatalogProduct, error) {
	out := map[string]port.CatalogProduct{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func newTestValidator(carts map[string]*domain.Cart, products map[string]port.CatalogProduct) *Validator {
	return NewValidator(&fakeCartRepo{carts: carts}, &fakeCatalog{products: products}, otel.Tracer("test"))
}

func activeCart(id string, items ...domain.CartItem) *domain.Cart {
	return &domain.Cart{ID: id, UserID: "u1", Status: domain.CartActive, Items: items}
}

func TestValidateHappyPathRefreshesPricesAndSubtotal(t *testing.T) {
	v := newTestValidator(
		map[string]*domain.Cart{"cart-1": activeCart("cart-1",
			domain.CartItem{ProductID: "p1", Qty: 3, UnitPrice: 10},
			domain.CartItem{ProductID: "p2", Qty: 1, UnitPrice: 50},
		)},
		map[string]port.CatalogProduct{
			"p1": {ID: "p1", Name: "Monstera", Price: 10, Available: 5, Active: true, TaxCategory: "plant"},
			"p2": {ID: "p2", Name: "Ceramic pot", Price: 50, Available: 2, Active: true, TaxCategory: "pot"},
		},
	)

	result, err := v.Validate(context.Background(), "cart-1")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	require.Len(t, result.Items, 2)
	assert.InDelta(t, 80.0, result.Subtotal, 1e-9)
	assert.Equal(t, "plant", result.Items[0].TaxCategory)
}

func TestValidateCollectsAllIssues(t *testing.T) {
	v := newTestValidator(
		map[string]*domain.Cart{"cart-1": activeCart("cart-1",
			domain.CartItem{ProductID: "gone", Qty: 1, UnitPrice: 10},
			domain.CartItem{ProductID: "retired", Qty: 1, UnitPrice: 10},
			domain.CartItem{ProductID: "scarce", Qty: 5, UnitPrice: 10},
			domain.CartItem{ProductID: "drifted", Qty: 1, UnitPrice: 10},
		)},
		map[string]port.CatalogProduct{
			"retired": {ID: "retired", Price: 10, Available: 9, Active: false},
			"scarce":  {ID: "scarce", Price: 10, Available: 2, Active: true},
			"drifted": {ID: "drifted", Price: 12.5, Available: 9, Active: true},
		},
	)

	result, err := v.Validate(context.Background(), "cart-1")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.Issues, 4)

	reasons := map[string]ItemIssue{}
	for _, issue := range result.Issues {
		reasons[issue.ProductID] = issue
	}
	assert.Equal(t, ReasonProductMissing, reasons["gone"].Reason)
	assert.Equal(t, ReasonProductInactive, reasons["retired"].Reason)
	assert.Equal(t, ReasonOutOfStock, reasons["scarce"].Reason)
	assert.Equal(t, 5, reasons["scarce"].Required)
	assert.Equal(t, 2, reasons["scarce"].Available)
	assert.Equal(t, ReasonPriceDrift, reasons["drifted"].Reason)
	assert.Equal(t, 10.0, reasons["drifted"].OldPrice)
	assert.Equal(t, 12.5, reasons["drifted"].NewPrice)
}

func TestValidateToleratesSubCentDrift(t *testing.T) {
	v := newTestValidator(
		map[string]*domain.Cart{"cart-1": activeCart("cart-1",
			domain.CartItem{ProductID: "p1", Qty: 1, UnitPrice: 10.004},
		)},
		map[string]port.CatalogProduct{
			"p1": {ID: "p1", Price: 10.0, Available: 5, Active: true},
		},
	)

	result, err := v.Validate(context.Background(), "cart-1")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	// 行价以当前目录价为准
	assert.InDelta(t, 10.0, result.Items[0].UnitPrice, 1e-9)
}

func TestValidateRejectsNonActiveCart(t *testing.T) {
	processed := activeCart("cart-1", domain.CartItem{ProductID: "p1", Qty: 1, UnitPrice: 10})
	processed.Status = domain.CartProcessed
	v := newTestValidator(map[string]*domain.Cart{"cart-1": processed}, nil)

	_, err := v.Validate(context.Background(), "cart-1")
	require.Error(t, err)
	assert.True(t, errs.IsConflict(err))
}

func TestValidateRejectsEmptyCart(t *testing.T) {
	v := newTestValidator(map[string]*domain.Cart{"cart-1": activeCart("cart-1")}, nil)

	_, err := v.Validate(context.Background(), "cart-1")
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
}
