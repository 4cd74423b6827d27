package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
	outboxStatusFailed  = "failed"
)

type outboxRepository struct {
	ctx context.Context
	q   querier
}

// NewOutboxRepository создаёт PostgreSQL-реализацию OutboxRepository вне транзакций.
func NewOutboxRepository(store *Store) domain.OutboxRepository {
	return &outboxRepository{q: store.DB()}
}

func (r *outboxRepository) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	ctx, cancel := opContext(r.ctx)
	defer cancel()

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO outbox_messages (
			id, aggregate_type, aggregate_id, event_type, payload, status, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		msg.ID, msg.AggregateType, msg.AggregateID,
		msg.EventType, msg.Payload, outboxStatusPending, time.Now().UTC(),
	)
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("enqueue outbox message: %w", err)
	}

	return msg, nil
}

func (r *outboxRepository) PullPending(limit int) ([]domain.OutboxMessage, error) {
	ctx, cancel := opContext(r.ctx)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload
		FROM outbox_messages
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`, outboxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("pull pending outbox messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]domain.OutboxMessage, 0, limit)
	for rows.Next() {
		var msg domain.OutboxMessage
		if err := rows.Scan(&msg.ID, &msg.AggregateType, &msg.AggregateID, &msg.EventType, &msg.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox messages: %w", err)
	}

	return msgs, nil
}

func (r *outboxRepository) Stats() (domain.OutboxStats, error) {
	ctx, cancel := opContext(r.ctx)
	defer cancel()

	var (
		stats  domain.OutboxStats
		oldest sql.NullTime
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(created_at)
		FROM outbox_messages
		WHERE status = $1
	`, outboxStatusPending).Scan(&stats.PendingCount, &oldest)
	if err != nil {
		return domain.OutboxStats{}, fmt.Errorf("outbox stats: %w", err)
	}
	if oldest.Valid {
		stats.OldestPendingAt = oldest.Time
	}

	return stats, nil
}

func (r *outboxRepository) MarkSent(id string) error {
	return r.markStatus(id, outboxStatusSent)
}

func (r *outboxRepository) MarkFailed(id string) error {
	return r.markStatus(id, outboxStatusFailed)
}

func (r *outboxRepository) markStatus(id, status string) error {
	ctx, cancel := opContext(r.ctx)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE outbox_messages
		SET status = $1,
		    processed_at = $2
		WHERE id = $3
	`, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark outbox message %s: %w", status, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return errors.New("outbox message not found")
	}

	return nil
}

var _ domain.OutboxRepository = (*outboxRepository)(nil)
