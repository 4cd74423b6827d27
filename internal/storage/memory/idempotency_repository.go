package memory

import (
	"strings"
	"time"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

// idempotencyRepository — in-memory реализация IdempotencyRepository.
type idempotencyRepository struct {
	st *state
}

// Save записывает результат команды. Дубликат ключа, ещё живой на now, —
// конфликт; просроченная запись перезаписывается.
func (r *idempotencyRepository) Save(record domain.IdempotencyRecord, now time.Time) error {
	record.Key = strings.TrimSpace(record.Key)
	if record.Key == "" {
		return domain.ErrIdempotencyKeyRequired
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.ExpiresAt.IsZero() {
		record.ExpiresAt = record.CreatedAt.Add(domain.IdempotencyTTL)
	}

	if existing, ok := r.st.idem[record.Key]; ok && !existing.Expired(now) {
		return domain.ErrIdempotencyKeyConflict
	}

	r.st.idem[record.Key] = cloneIdempotencyRecord(record)
	return nil
}

// FindByKey возвращает запись; просроченная на now трактуется как отсутствующая.
func (r *idempotencyRepository) FindByKey(key string, now time.Time) (domain.IdempotencyRecord, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyRequired
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}
	record, ok := r.st.idem[key]
	if !ok || record.Expired(now) {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyNotFound
	}
	return cloneIdempotencyRecord(record), nil
}

// DeleteExpired удаляет записи с истёкшим сроком жизни порциями limit.
func (r *idempotencyRepository) DeleteExpired(before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	removed := 0
	for key, record := range r.st.idem {
		if record.ExpiresAt.After(before) {
			continue
		}
		delete(r.st.idem, key)
		removed++
		if limit > 0 && removed >= limit {
			break
		}
	}
	return removed, nil
}

var _ domain.IdempotencyRepository = (*idempotencyRepository)(nil)
