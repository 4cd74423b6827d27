package memory

import (
	"sort"
	"time"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

// orderRepository — in-memory реализация OrderRepository поверх общего state.
type orderRepository struct {
	st *state
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (r *orderRepository) Create(order domain.Order) error {
	if _, exists := r.st.orders[order.ID]; exists {
		return domain.ErrOrderExists
	}
	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.st.orders[order.ID] = cloneOrder(order)
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepository) Get(id string) (domain.Order, error) {
	order, ok := r.st.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// UpdateStatus применяет переход статуса; позиции заказа не трогаются.
func (r *orderRepository) UpdateStatus(id string, status domain.OrderStatus, statusChangedAt time.Time) (domain.Order, error) {
	order, ok := r.st.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	order.Status = status
	order.StatusChangedAt = statusChangedAt.UTC()
	r.st.orders[id] = order
	return cloneOrder(order), nil
}

// Search перебирает заказы с фильтрами и cursor-пагинацией.
func (r *orderRepository) Search(filter domain.OrderFilter) ([]domain.Order, string, error) {
	matched := make([]domain.Order, 0, len(r.st.orders))
	for _, order := range r.st.orders {
		if filter.CustomerID != "" && order.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && order.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && order.CreatedAt.After(filter.To) {
			continue
		}
		matched = append(matched, cloneOrder(order))
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	return paginateOrders(matched, filter.Cursor, filter.Limit)
}

func paginateOrders(orders []domain.Order, cursor string, limit int) ([]domain.Order, string, error) {
	start := 0
	if cursor != "" {
		for idx, order := range orders {
			if order.ID == cursor {
				start = idx + 1
				break
			}
		}
	}
	if start >= len(orders) {
		return []domain.Order{}, "", nil
	}

	page := orders[start:]
	if limit > 0 && len(page) > limit {
		next := page[limit-1].ID
		return page[:limit], next, nil
	}
	return page, "", nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
