package interfaces

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"vivero/internal/pkg/httpapi"
	"vivero/internal/service/checkout/application"
	"vivero/internal/service/checkout/application/saga"
)

// HTTPHandler 结算确认入口。
type HTTPHandler struct {
	checkout *application.Service
	tracer   trace.Tracer
}

func NewHTTPHandler(checkout *application.Service, tracer trace.Tracer) *HTTPHandler {
	return &HTTPHandler{checkout: checkout, tracer: tracer}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /checkout/confirm", h.confirm)
}

type confirmRequest struct {
	CartID         string   `json:"cart_id"`
	UserID         string   `json:"user_id"`
	SellerID       string   `json:"seller_id"`
	CustomerType   string   `json:"customer_type"`
	TaxID          string   `json:"tax_id,omitempty"`
	DeliverySlotID string   `json:"delivery_slot_id,omitempty"`
	ShippingCost   float64  `json:"shipping_cost"`
	PaymentMethod  string   `json:"payment_method"`
	CouponCodes    []string `json:"coupon_codes,omitempty"`
}

func (h *HTTPHandler) confirm(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "http.ConfirmCheckout")
	defer span.End()

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.CartID == "" || req.UserID == "" {
		http.Error(w, "cart_id and user_id are required", http.StatusBadRequest)
		return
	}
	if req.CustomerType == "" {
		req.CustomerType = "particular"
	}

	result, err := h.checkout.Confirm(ctx, saga.ConfirmRequest{
		CartID:         req.CartID,
		UserID:         req.UserID,
		SellerID:       req.SellerID,
		CustomerType:   req.CustomerType,
		TaxID:          req.TaxID,
		DeliverySlotID: req.DeliverySlotID,
		ShippingCost:   req.ShippingCost,
		PaymentMethod:  req.PaymentMethod,
		CouponCodes:    req.CouponCodes,
	})
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusCreated, result)
}
