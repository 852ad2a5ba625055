package application

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"vivero/internal/errs"
	"vivero/internal/service/cart/domain"
	"vivero/internal/service/cart/port"
)

// PriceTolerance 快照价与当前价的绝对容差，超过即视为漂移。
const PriceTolerance = 0.01

// ValidatedItem 通过校验的行项，价格已刷新为当前价。
type ValidatedItem struct {
	ProductID   string
	Name        string
	Qty         int
	UnitPrice   float64
	TaxCategory string
}

// ItemIssue 单行校验失败明细。
type ItemIssue struct {
	ProductID string  `json:"product_id"`
	Reason    string  `json:"reason"`
	Required  int     `json:"required,omitempty"`
	Available int     `json:"available,omitempty"`
	OldPrice  float64 `json:"old_price,omitempty"`
	NewPrice  float64 `json:"new_price,omitempty"`
}

const (
	ReasonProductMissing  = "product_missing"
	ReasonProductInactive = "product_inactive"
	ReasonOutOfStock      = "out_of_stock"
	ReasonPriceDrift      = "price_drift"
)

// Result 整车校验结论。只有 Valid 为真时 Items/Subtotal 才可用于下单。
type Result struct {
	CartID   string
	UserID   string
	Valid    bool
	Items    []ValidatedItem
	Issues   []ItemIssue
	Subtotal float64
}

// Validator 结算前的购物车校验。每次调用都重读当前价与库存，
// 结果不缓存、不复用。
type Validator struct {
	carts   domain.CartRepository
	catalog port.CatalogReader
	tracer  trace.Tracer
}

func NewValidator(carts domain.CartRepository, catalog port.CatalogReader, tracer trace.Tracer) *Validator {
	return &Validator{carts: carts, catalog: catalog, tracer: tracer}
}

// Validate 核对购物车每一行的存在性、上架状态、库存与价格漂移。
func (v *Validator) Validate(ctx context.Context, cartID string) (*Result, error) {
	ctx, span := v.tracer.Start(ctx, "cart.Validate")
	defer span.End()
	span.SetAttributes(attribute.String("cart_id", cartID))

	cart, err := v.carts.FindByID(ctx, cartID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if cart.Status != domain.CartActive {
		return nil, errs.NewConflict("cart", fmt.Sprintf("cart is %s, not active", cart.Status))
	}
	if len(cart.Items) == 0 {
		return nil, errs.NewValidation("cart is empty")
	}

	ids := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := v.catalog.ProductsByIDs(ctx, ids)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := &Result{CartID: cart.ID, UserID: cart.UserID, Valid: true}
	for _, item := range cart.Items {
		product, ok := products[item.ProductID]
		if !ok {
			result.Valid = false
			result.Issues = append(result.Issues, ItemIssue{ProductID: item.ProductID, Reason: ReasonProductMissing})
			continue
		}
		if !product.Active {
			result.Valid = false
			result.Issues = append(result.Issues, ItemIssue{ProductID: item.ProductID, Reason: ReasonProductInactive})
			continue
		}
		if product.Available < item.Qty {
			result.Valid = false
			result.Issues = append(result.Issues, ItemIssue{
				ProductID: item.ProductID,
				Reason:    ReasonOutOfStock,
				Required:  item.Qty,
				Available: product.Available,
			})
			continue
		}
		if math.Abs(product.Price-item.UnitPrice) > PriceTolerance {
			result.Valid = false
			result.Issues = append(result.Issues, ItemIssue{
				ProductID: item.ProductID,
				Reason:    ReasonPriceDrift,
				OldPrice:  item.UnitPrice,
				NewPrice:  product.Price,
			})
			continue
		}
		result.Items = append(result.Items, ValidatedItem{
			ProductID:   product.ID,
			Name:        product.Name,
			Qty:         item.Qty,
			UnitPrice:   product.Price,
			TaxCategory: product.TaxCategory,
		})
		result.Subtotal += product.Price * float64(item.Qty)
	}

	span.SetAttributes(
		attribute.Bool("valid", result.Valid),
		attribute.Int("issue_count", len(result.Issues)),
	)
	return result, nil
}
