// Package httpapi реализует HTTP-границу сервиса: chi-роутер, обработчики
// команд и запросов, трансляцию доменных ошибок в статусы.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderhub/internal/cache"
	"github.com/vladislavdragonenkov/orderhub/internal/domain"
	"github.com/vladislavdragonenkov/orderhub/internal/service/order"
	"github.com/vladislavdragonenkov/orderhub/internal/service/product"
	"github.com/vladislavdragonenkov/orderhub/internal/service/saga"
)

// заголовок, через который клиент передаёт ключ идемпотентности команды.
const idempotencyKeyHeader = "Idempotency-Key"

// Handler связывает HTTP-запросы с сервисами заказов, каталога и сагой.
type Handler struct {
	orders   *order.Service
	products *product.Service
	saga     *saga.Orchestrator
	// respCache может быть nil — тогда оркестрация всегда идёт в сагу,
	// а идемпотентность обеспечивает только ledger в основном хранилище.
	respCache cache.ResponseCache
	logger    *log.Entry
}

// HandlerOption настраивает необязательные зависимости Handler.
type HandlerOption func(*Handler)

// WithResponseCache подключает кэш ответов оркестрации.
func WithResponseCache(c cache.ResponseCache) HandlerOption {
	return func(h *Handler) {
		h.respCache = c
	}
}

// WithLogger задаёт логгер обработчиков.
func WithLogger(logger *log.Entry) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler создаёт HTTP-обработчик поверх сервисов.
func NewHandler(orders *order.Service, products *product.Service, orchestrator *saga.Orchestrator, options ...HandlerOption) *Handler {
	h := &Handler{
		orders:   orders,
		products: products,
		saga:     orchestrator,
		logger:   log.WithField("component", "httpapi"),
	}
	for _, option := range options {
		option(h)
	}
	return h
}

// CreateOrder создаёт заказ с резервированием стока.
// Ключ идемпотентности обязателен; повтор с тем же ключом возвращает
// исходный заказ со статусом 200 вместо 201.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid_json", err.Error())
		return
	}

	in := order.CreateInput{
		IdempotencyKey: r.Header.Get(idempotencyKeyHeader),
		CustomerID:     req.CustomerID,
		Items:          mapItemInputs(req.Items),
	}

	created, replayed, err := h.orders.Create(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, mapOrder(created))
}

// GetOrder возвращает заказ по идентификатору.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	found, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(found))
}

// SearchOrders ищет заказы по фильтру с cursor-пагинацией.
func (h *Handler) SearchOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := parseOrderFilter(r)
	if err != nil {
		writeBadRequest(w, "invalid_filter", err.Error())
		return
	}

	orders, nextCursor, err := h.orders.Search(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchOrdersResponse{
		Orders:     mapOrders(orders),
		NextCursor: nextCursor,
	})
}

// ConfirmOrder подтверждает заказ. Команда идемпотентна по заголовку
// Idempotency-Key: повтор возвращает результат первого подтверждения.
func (h *Handler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	confirmed, _, err := h.orders.Confirm(r.Context(), r.Header.Get(idempotencyKeyHeader), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(confirmed))
}

// CancelOrder отменяет заказ и возвращает резерв на сток.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelOrderRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid_json", err.Error())
			return
		}
	}

	canceled, err := h.orders.Cancel(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(canceled))
}

// OrderTimeline возвращает события жизненного цикла заказа.
func (h *Handler) OrderTimeline(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	events, err := h.orders.Timeline(r.Context(), orderID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapTimeline(orderID, events))
}

func mapItemInputs(items []orderItemRequest) []order.CreateItemInput {
	out := make([]order.CreateItemInput, len(items))
	for i, item := range items {
		out[i] = order.CreateItemInput{
			ProductID: item.ProductID,
			Qty:       item.Qty,
		}
	}
	return out
}

func parseOrderFilter(r *http.Request) (domain.OrderFilter, error) {
	query := r.URL.Query()

	filter := domain.OrderFilter{
		CustomerID: query.Get("customer_id"),
		Status:     domain.OrderStatus(query.Get("status")),
		Cursor:     query.Get("cursor"),
	}

	if raw := query.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.OrderFilter{}, err
		}
		filter.From = from
	}
	if raw := query.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.OrderFilter{}, err
		}
		filter.To = to
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return domain.OrderFilter{}, err
		}
		filter.Limit = limit
	}

	return filter, nil
}
