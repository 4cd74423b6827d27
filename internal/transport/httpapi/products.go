package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
	"github.com/vladislavdragonenkov/orderhub/internal/service/product"
)

// CreateProduct заводит товар в каталоге.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid_json", err.Error())
		return
	}

	created, err := h.products.Create(r.Context(), product.CreateInput{
		SKU:        req.SKU,
		Name:       req.Name,
		PriceMinor: req.PriceMinor,
		Stock:      req.Stock,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapProduct(created))
}

// GetProduct возвращает товар по идентификатору либо по SKU
// (query-параметр sku обрабатывается маршрутом списка).
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	found, err := h.products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProduct(found))
}

// UpdateProduct частично обновляет товар: отсутствующие в теле поля
// не меняются, SKU неизменяем.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req updateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid_json", err.Error())
		return
	}

	updated, err := h.products.Update(r.Context(), chi.URLParam(r, "id"), product.UpdateInput{
		Name:       req.Name,
		PriceMinor: req.PriceMinor,
		Stock:      req.Stock,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProduct(updated))
}

// SearchProducts ищет товары по подстроке имени или SKU.
// Точное совпадение по SKU доступно через параметр sku.
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if sku := query.Get("sku"); sku != "" {
		found, err := h.products.GetBySKU(r.Context(), sku)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, searchProductsResponse{
			Products: []productResponse{mapProduct(found)},
		})
		return
	}

	filter := domain.ProductFilter{
		Query:  query.Get("q"),
		Cursor: query.Get("cursor"),
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(w, "invalid_filter", err.Error())
			return
		}
		filter.Limit = limit
	}

	products, nextCursor, err := h.products.Search(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = mapProduct(p)
	}
	writeJSON(w, http.StatusOK, searchProductsResponse{
		Products:   out,
		NextCursor: nextCursor,
	})
}
