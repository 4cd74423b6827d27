package domain

import "time"

// IdempotencyOperation помечает, какой командой был создан idempotency-ключ.
type IdempotencyOperation string

const (
	// OperationOrderCreation — ключ записан командой создания заказа.
	OperationOrderCreation IdempotencyOperation = "order_creation"
	// OperationOrderConfirmation — ключ записан командой подтверждения заказа.
	OperationOrderConfirmation IdempotencyOperation = "order_confirmation"
)

// IdempotencyTTL — срок жизни записи с момента создания.
const IdempotencyTTL = 24 * time.Hour

// IdempotencyRecord хранит результат первого успешного выполнения идемпотентной
// команды. Запись создаётся один раз при завершении команды и после этого не
// мутируется; просроченные записи трактуются как отсутствующие (lazy expiry).
type IdempotencyRecord struct {
	Key          string
	Operation    IdempotencyOperation
	TargetID     string
	ResponseBody []byte
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// NewIdempotencyRecord создаёт запись с дефолтным TTL от now.
func NewIdempotencyRecord(key string, op IdempotencyOperation, targetID string, responseBody []byte, now time.Time) IdempotencyRecord {
	now = now.UTC()
	return IdempotencyRecord{
		Key:          key,
		Operation:    op,
		TargetID:     targetID,
		ResponseBody: responseBody,
		CreatedAt:    now,
		ExpiresAt:    now.Add(IdempotencyTTL),
	}
}

// Expired сообщает, истёк ли срок жизни записи на момент now.
func (r IdempotencyRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
