package memory

import (
	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

// timelineRepository — in-memory история событий жизненного цикла заказа.
type timelineRepository struct {
	st *state
}

// Append добавляет событие в конец таймлайна заказа.
func (r *timelineRepository) Append(event domain.TimelineEvent) error {
	r.st.timeline[event.OrderID] = append(r.st.timeline[event.OrderID], event)
	return nil
}

// List возвращает события заказа в порядке добавления.
func (r *timelineRepository) List(orderID string) ([]domain.TimelineEvent, error) {
	events := r.st.timeline[orderID]
	return append([]domain.TimelineEvent(nil), events...), nil
}

var _ domain.TimelineRepository = (*timelineRepository)(nil)
