package postgres

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

type timelineRepository struct {
	ctx context.Context
	q   querier
}

// NewTimelineRepository создаёт PostgreSQL-реализацию TimelineRepository вне транзакций.
func NewTimelineRepository(store *Store) domain.TimelineRepository {
	return &timelineRepository{q: store.DB()}
}

func (r *timelineRepository) Append(event domain.TimelineEvent) error {
	ctx, cancel := opContext(r.ctx)
	defer cancel()

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO order_timeline (order_id, event_type, reason, occurred)
		VALUES ($1,$2,$3,$4)
	`, event.OrderID, event.Type, event.Reason, event.Occurred)
	if err != nil {
		return fmt.Errorf("append timeline event: %w", err)
	}

	return nil
}

func (r *timelineRepository) List(orderID string) ([]domain.TimelineEvent, error) {
	ctx, cancel := opContext(r.ctx)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `
		SELECT order_id, event_type, reason, occurred
		FROM order_timeline
		WHERE order_id = $1
		ORDER BY occurred ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list timeline events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.TimelineEvent, 0)
	for rows.Next() {
		var event domain.TimelineEvent
		if err := rows.Scan(&event.OrderID, &event.Type, &event.Reason, &event.Occurred); err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline events: %w", err)
	}

	return events, nil
}

var _ domain.TimelineRepository = (*timelineRepository)(nil)
