package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

type idempotencyRepository struct {
	ctx context.Context
	q   querier
}

// NewIdempotencyRepository создаёт PostgreSQL-реализацию IdempotencyRepository вне транзакций.
func NewIdempotencyRepository(store *Store) domain.IdempotencyRepository {
	return &idempotencyRepository{q: store.DB()}
}

// Save записывает ключ идемпотентности. Ключ, живой на now, перезаписать
// нельзя, протухший — переиспользуется на месте тем же INSERT ... ON CONFLICT.
func (r *idempotencyRepository) Save(record domain.IdempotencyRecord, now time.Time) error {
	key := strings.TrimSpace(record.Key)
	if key == "" {
		return domain.ErrIdempotencyKeyRequired
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	expiresAt := record.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = createdAt.Add(domain.IdempotencyTTL)
	}

	ctx, cancel := opContext(r.ctx)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		INSERT INTO idempotency_keys (key, operation, target_id, response_body, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (key) DO UPDATE SET
			operation = EXCLUDED.operation,
			target_id = EXCLUDED.target_id,
			response_body = EXCLUDED.response_body,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
		WHERE idempotency_keys.expires_at <= $7
	`,
		key, string(record.Operation), record.TargetID,
		record.ResponseBody, createdAt, expiresAt, now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save idempotency key: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrIdempotencyKeyConflict
	}

	return nil
}

// FindByKey возвращает запись, живую на now; протухшая считается отсутствующей.
func (r *idempotencyRepository) FindByKey(key string, now time.Time) (domain.IdempotencyRecord, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyRequired
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}

	ctx, cancel := opContext(r.ctx)
	defer cancel()

	var (
		record    domain.IdempotencyRecord
		operation string
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT key, operation, target_id, response_body, created_at, expires_at
		FROM idempotency_keys
		WHERE key = $1 AND expires_at > $2
	`, key, now.UTC()).Scan(
		&record.Key, &operation, &record.TargetID,
		&record.ResponseBody, &record.CreatedAt, &record.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyNotFound
		}
		return domain.IdempotencyRecord{}, fmt.Errorf("select idempotency key: %w", err)
	}
	record.Operation = domain.IdempotencyOperation(operation)

	return record, nil
}

func (r *idempotencyRepository) DeleteExpired(before time.Time, limit int) (int, error) {
	ctx, cancel := opContext(r.ctx)
	defer cancel()

	var (
		res sql.Result
		err error
	)
	if limit > 0 {
		res, err = r.q.ExecContext(ctx, `
			DELETE FROM idempotency_keys
			WHERE key IN (
				SELECT key FROM idempotency_keys
				WHERE expires_at <= $1
				ORDER BY expires_at ASC
				LIMIT $2
			)
		`, before.UTC(), limit)
	} else {
		res, err = r.q.ExecContext(ctx, `
			DELETE FROM idempotency_keys
			WHERE expires_at <= $1
		`, before.UTC())
	}
	if err != nil {
		return 0, fmt.Errorf("delete expired idempotency keys: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return int(affected), nil
}

var _ domain.IdempotencyRepository = (*idempotencyRepository)(nil)
