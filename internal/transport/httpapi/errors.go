package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: code, Message: message})
}

// writeDomainError транслирует ошибку доменного слоя в HTTP-статус.
// Таксономия фиксированная: not found — 404, конфликты состояния и
// уникальности — 409, ошибки валидации входа — 400, недоступность
// customers API — 502, всё остальное — 500.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	status, code := classifyError(err)

	resp := errorResponse{Error: code, Message: err.Error()}

	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		resp.Available = &stockErr.Available
		resp.Requested = &stockErr.Requested
	}

	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).Error("request failed")
	}

	writeJSON(w, status, resp)
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, "order_not_found"
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound, "product_not_found"
	case errors.Is(err, domain.ErrCustomerNotFound):
		return http.StatusNotFound, "customer_not_found"

	case domain.IsInsufficientStock(err):
		return http.StatusConflict, "insufficient_stock"
	case domain.IsInvalidTransition(err):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrOrderAlreadyCanceled):
		return http.StatusConflict, "order_already_canceled"
	case errors.Is(err, domain.ErrCancellationWindowExpired):
		return http.StatusConflict, "cancellation_window_expired"
	case errors.Is(err, domain.ErrDuplicateSKU):
		return http.StatusConflict, "duplicate_sku"
	case errors.Is(err, domain.ErrIdempotencyKeyConflict):
		return http.StatusConflict, "idempotency_key_conflict"
	case errors.Is(err, domain.ErrOrderExists):
		return http.StatusConflict, "order_already_exists"

	case errors.Is(err, domain.ErrIdempotencyKeyRequired),
		errors.Is(err, domain.ErrCustomerRequired),
		errors.Is(err, domain.ErrItemsRequired),
		errors.Is(err, domain.ErrItemQtyInvalid),
		errors.Is(err, domain.ErrItemPriceInvalid),
		errors.Is(err, domain.ErrAmountNegative),
		errors.Is(err, domain.ErrAmountMismatch),
		errors.Is(err, domain.ErrProductSKURequired),
		errors.Is(err, domain.ErrProductNameRequired),
		errors.Is(err, domain.ErrProductPriceInvalid),
		errors.Is(err, domain.ErrProductStockInvalid):
		return http.StatusBadRequest, "validation_failed"

	case errors.Is(err, domain.ErrCustomerServiceUnavailable):
		return http.StatusBadGateway, "customers_unavailable"
	}

	return http.StatusInternalServerError, "internal_error"
}
