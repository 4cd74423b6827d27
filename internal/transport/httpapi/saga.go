package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
	"github.com/vladislavdragonenkov/orderhub/internal/service/saga"
)

// операция в ключе кэша ответов; отделяет оркестрацию от прочих команд.
const placeOrderCacheOp = "place-order"

// PlaceOrder прогоняет полную сагу размещения заказа: валидация клиента,
// создание с резервом стока, подтверждение. Повтор с тем же ключом
// идемпотентности не дублирует шаги: сначала проверяется кэш ответов,
// затем ledger внутри самой саги.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get(idempotencyKeyHeader)
	if key == "" {
		h.writeDomainError(w, domain.ErrIdempotencyKeyRequired)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid_json", err.Error())
		return
	}

	if h.respCache != nil {
		cacheKey := h.respCache.Key(placeOrderCacheOp, key)
		cached, ok, err := h.respCache.Get(r.Context(), cacheKey)
		if err != nil {
			// Кэш — ускорение, а не источник истины: при его недоступности
			// идём в сагу, идемпотентность обеспечит ledger.
			h.logger.WithError(err).Warn("response cache lookup failed")
		} else if ok {
			writeRawJSON(w, http.StatusOK, cached)
			return
		}
	}

	placed, err := h.saga.PlaceOrder(r.Context(), saga.PlaceOrderInput{
		IdempotencyKey: key,
		CustomerID:     req.CustomerID,
		Items:          mapItemInputs(req.Items),
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	body, err := json.Marshal(placeOrderResponse{
		Order:    mapOrder(placed.Order),
		Customer: mapCustomer(placed.Customer),
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	if h.respCache != nil {
		cacheKey := h.respCache.Key(placeOrderCacheOp, key)
		if err := h.respCache.Set(r.Context(), cacheKey, body, domain.IdempotencyTTL); err != nil {
			h.logger.WithError(err).Warn("response cache store failed")
		}
	}

	writeRawJSON(w, http.StatusCreated, body)
}
