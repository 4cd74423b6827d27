package memory

import (
	"time"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

// lockedIdempotency даёт фоновым воркерам доступ к idempotency-записям
// под мьютексом хранилища, вне транзакций.
type lockedIdempotency struct {
	s *Store
}

func (r *lockedIdempotency) Save(record domain.IdempotencyRecord, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return (&idempotencyRepository{st: r.s.st}).Save(record, now)
}

func (r *lockedIdempotency) FindByKey(key string, now time.Time) (domain.IdempotencyRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return (&idempotencyRepository{st: r.s.st}).FindByKey(key, now)
}

func (r *lockedIdempotency) DeleteExpired(before time.Time, limit int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return (&idempotencyRepository{st: r.s.st}).DeleteExpired(before, limit)
}

// lockedOutbox — то же самое для outbox relay worker.
type lockedOutbox struct {
	s *Store
}

func (r *lockedOutbox) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return (&outboxRepository{st: r.s.st}).Enqueue(msg)
}

func (r *lockedOutbox) PullPending(limit int) ([]domain.OutboxMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return (&outboxRepository{st: r.s.st}).PullPending(limit)
}

func (r *lockedOutbox) Stats() (domain.OutboxStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return (&outboxRepository{st: r.s.st}).Stats()
}

func (r *lockedOutbox) MarkSent(id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return (&outboxRepository{st: r.s.st}).MarkSent(id)
}

func (r *lockedOutbox) MarkFailed(id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return (&outboxRepository{st: r.s.st}).MarkFailed(id)
}

var _ domain.IdempotencyRepository = (*lockedIdempotency)(nil)
var _ domain.OutboxRepository = (*lockedOutbox)(nil)
