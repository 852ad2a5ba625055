package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"vivero/internal/errs"
	"vivero/internal/pkg/logger"
)

// WriteJSON 写 JSON 响应。
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Error         string `json:"error"`
	Kind          string `json:"kind"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Details       any    `json:"details,omitempty"`
}

// WriteError 把错误分类映射成 HTTP 状态码。未分类错误返回 500，
// 带关联 ID 并落一条带同 ID 的日志，方便排查。
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errs.IsValidation(err):
		var ve *errs.ValidationError
		details := any(nil)
		if errors.As(err, &ve) {
			details = ve.Issues
		}
		WriteJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Kind: "validation", Details: details})
	case errs.IsInsufficientStock(err):
		var se *errs.InsufficientStockError
		details := any(nil)
		if errors.As(err, &se) {
			details = se.Shortfalls
		}
		WriteJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Kind: "insufficient_stock", Details: details})
	case errs.IsInvalidTransition(err):
		WriteJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Kind: "invalid_transition"})
	case errs.IsConflict(err):
		WriteJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Kind: "conflict"})
	case errs.IsNotFound(err):
		WriteJSON(w, http.StatusNotFound, errorBody{Error: err.Error(), Kind: "not_found"})
	case errs.IsExternal(err):
		WriteJSON(w, http.StatusBadGateway, errorBody{Error: err.Error(), Kind: "external_dependency"})
	default:
		correlationID := uuid.NewString()
		logger.Ctx(r.Context()).Error().Err(err).
			Str("correlation_id", correlationID).
			Str("path", r.URL.Path).
			Msg("unhandled error")
		WriteJSON(w, http.StatusInternalServerError, errorBody{
			Error:         "internal error",
			Kind:          "internal",
			CorrelationID: correlationID,
		})
	}
}
