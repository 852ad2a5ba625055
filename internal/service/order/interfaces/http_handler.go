package interfaces

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"vivero/internal/pkg/httpapi"
	"vivero/internal/service/order/application"
	"vivero/internal/service/order/domain"
)

// HTTPHandler 订单查询与状态操作入口。
type HTTPHandler struct {
	orders *application.Service
	tracer trace.Tracer
}

func NewHTTPHandler(orders *application.Service, tracer trace.Tracer) *HTTPHandler {
	return &HTTPHandler{orders: orders, tracer: tracer}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /orders/{id}", h.getOrder)
	mux.HandleFunc("POST /orders/{id}/transition", h.transition)
	mux.HandleFunc("POST /orders/{id}/cancel", h.cancel)
	mux.HandleFunc("POST /orders/{id}/return", h.returnOrder)
}

type orderResponse struct {
	ID           string              `json:"id"`
	Number       string              `json:"number"`
	UserID       string              `json:"user_id"`
	State        string              `json:"state"`
	CustomerType string              `json:"customer_type"`
	Subtotal     float64             `json:"subtotal"`
	Discount     float64             `json:"discount"`
	Shipping     float64             `json:"shipping"`
	Total        float64             `json:"total"`
	History      []stateChangeEntry  `json:"history"`
}

type stateChangeEntry struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
	At     string `json:"at"`
}

func toOrderResponse(o *domain.Order) orderResponse {
	resp := orderResponse{
		ID:           o.ID,
		Number:       o.Number,
		UserID:       o.UserID,
		State:        string(o.State),
		CustomerType: string(o.CustomerType),
		Subtotal:     o.Totals.Subtotal,
		Discount:     o.Totals.Discount,
		Shipping:     o.Totals.Shipping,
		Total:        o.Totals.Total,
	}
	for _, c := range o.History {
		resp.History = append(resp.History, stateChangeEntry{
			From:   string(c.From),
			To:     string(c.To),
			Reason: c.Reason,
			Actor:  c.Actor,
			At:     c.At.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return resp
}

func (h *HTTPHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "http.GetOrder")
	defer span.End()

	order, err := h.orders.Get(ctx, r.PathValue("id"))
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toOrderResponse(order))
}

type transitionRequest struct {
	To     string `json:"to"`
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
}

func (h *HTTPHandler) transition(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "http.TransitionOrder")
	defer span.End()

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	order, err := h.orders.Transition(ctx, r.PathValue("id"), domain.State(req.To), req.Reason, req.Actor)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *HTTPHandler) cancel(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "http.CancelOrder")
	defer span.End()

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	order, err := h.orders.Cancel(ctx, r.PathValue("id"), req.Reason, req.Actor)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *HTTPHandler) returnOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "http.ReturnOrder")
	defer span.End()

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	order, err := h.orders.Return(ctx, r.PathValue("id"), req.Reason, req.Actor)
	if err != nil {
		httpapi.WriteError(w, r, err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, toOrderResponse(order))
}
