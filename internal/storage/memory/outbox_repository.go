package memory

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

// outboxRepository — in-memory реализация transactional outbox.
type outboxRepository struct {
	st *state
}

// Enqueue ставит событие в очередь публикации.
func (r *outboxRepository) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if _, exists := r.st.outbox[msg.ID]; exists {
		return domain.OutboxMessage{}, fmt.Errorf("outbox message %s already enqueued", msg.ID)
	}

	r.st.nextSeq++
	entry := &outboxEntry{
		msg:       msg,
		status:    outboxStatusPending,
		seq:       r.st.nextSeq,
		createdAt: time.Now().UTC().UnixNano(),
	}
	entry.msg.Payload = append([]byte(nil), msg.Payload...)
	r.st.outbox[msg.ID] = entry

	return msg, nil
}

// PullPending возвращает pending-сообщения в порядке постановки.
func (r *outboxRepository) PullPending(limit int) ([]domain.OutboxMessage, error) {
	entries := make([]*outboxEntry, 0, len(r.st.outbox))
	for _, entry := range r.st.outbox {
		if entry.status == outboxStatusPending {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	result := make([]domain.OutboxMessage, 0, len(entries))
	for _, entry := range entries {
		msg := entry.msg
		msg.Payload = append([]byte(nil), entry.msg.Payload...)
		result = append(result, msg)
	}
	return result, nil
}

// Stats возвращает размер backlog и возраст самой старой pending-записи.
func (r *outboxRepository) Stats() (domain.OutboxStats, error) {
	stats := domain.OutboxStats{}
	var oldest int64
	for _, entry := range r.st.outbox {
		if entry.status != outboxStatusPending {
			continue
		}
		stats.PendingCount++
		if oldest == 0 || entry.createdAt < oldest {
			oldest = entry.createdAt
		}
	}
	if oldest != 0 {
		stats.OldestPendingAt = time.Unix(0, oldest).UTC()
	}
	return stats, nil
}

// MarkSent помечает сообщение доставленным.
func (r *outboxRepository) MarkSent(id string) error {
	return r.markStatus(id, outboxStatusSent)
}

// MarkFailed помечает сообщение недоставленным после исчерпания retry.
func (r *outboxRepository) MarkFailed(id string) error {
	return r.markStatus(id, outboxStatusFailed)
}

func (r *outboxRepository) markStatus(id, status string) error {
	entry, ok := r.st.outbox[id]
	if !ok {
		return fmt.Errorf("outbox message %s not found", id)
	}
	entry.status = status
	return nil
}

var _ domain.OutboxRepository = (*outboxRepository)(nil)
