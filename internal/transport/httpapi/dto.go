package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

type createOrderRequest struct {
	CustomerID string             `json:"customer_id"`
	Items      []orderItemRequest `json:"items"`
}

type orderItemRequest struct {
	ProductID string `json:"product_id"`
	Qty       int32  `json:"qty"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	CustomerID      string              `json:"customer_id"`
	Status          string              `json:"status"`
	AmountMinor     int64               `json:"amount_minor"`
	Items           []orderItemResponse `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
	StatusChangedAt time.Time           `json:"status_changed_at"`
}

type orderItemResponse struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	SKU        string `json:"sku"`
	Qty        int32  `json:"qty"`
	PriceMinor int64  `json:"price_minor"`
}

type searchOrdersResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type timelineEventResponse struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

type timelineResponse struct {
	OrderID string                  `json:"order_id"`
	Events  []timelineEventResponse `json:"events"`
}

type placeOrderResponse struct {
	Order    orderResponse           `json:"order"`
	Customer customerSummaryResponse `json:"customer"`
}

type customerSummaryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type createProductRequest struct {
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	PriceMinor int64  `json:"price_minor"`
	Stock      int32  `json:"stock"`
}

type updateProductRequest struct {
	Name       *string `json:"name"`
	PriceMinor *int64  `json:"price_minor"`
	Stock      *int32  `json:"stock"`
}

type productResponse struct {
	ID         string    `json:"id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	PriceMinor int64     `json:"price_minor"`
	Stock      int32     `json:"stock"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type searchProductsResponse struct {
	Products   []productResponse `json:"products"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	// Заполняются только для ошибки нехватки стока.
	Available *int32 `json:"available,omitempty"`
	Requested *int32 `json:"requested,omitempty"`
}

func mapOrder(order domain.Order) orderResponse {
	items := make([]orderItemResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = orderItemResponse{
			ID:         item.ID,
			ProductID:  item.ProductID,
			SKU:        item.SKU,
			Qty:        item.Qty,
			PriceMinor: item.PriceMinor,
		}
	}
	return orderResponse{
		ID:              order.ID,
		CustomerID:      order.CustomerID,
		Status:          string(order.Status),
		AmountMinor:     order.AmountMinor,
		Items:           items,
		CreatedAt:       order.CreatedAt,
		StatusChangedAt: order.StatusChangedAt,
	}
}

func mapOrders(orders []domain.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i, order := range orders {
		out[i] = mapOrder(order)
	}
	return out
}

func mapCustomer(summary domain.CustomerSummary) customerSummaryResponse {
	return customerSummaryResponse{
		ID:    summary.ID,
		Name:  summary.Name,
		Email: summary.Email,
		Phone: summary.Phone,
	}
}

func mapProduct(product domain.Product) productResponse {
	return productResponse{
		ID:         product.ID,
		SKU:        product.SKU,
		Name:       product.Name,
		PriceMinor: product.PriceMinor,
		Stock:      product.Stock,
		CreatedAt:  product.CreatedAt,
		UpdatedAt:  product.UpdatedAt,
	}
}

func mapTimeline(orderID string, events []domain.TimelineEvent) timelineResponse {
	out := make([]timelineEventResponse, len(events))
	for i, event := range events {
		out[i] = timelineEventResponse{
			Type:     event.Type,
			Reason:   event.Reason,
			Occurred: event.Occurred,
		}
	}
	return timelineResponse{OrderID: orderID, Events: out}
}
