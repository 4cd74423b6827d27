package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

const opTimeout = 5 * time.Second

// querier покрывает и *sql.DB, и *sql.Tx: репозитории работают одинаково
// в пуле и внутри транзакции.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// txSet связывает все репозитории с одной SQL-транзакцией.
type txSet struct {
	ctx context.Context
	q   querier
}

func (t *txSet) Orders() domain.OrderRepository {
	return &orderRepository{ctx: t.ctx, q: t.q, forUpdate: true}
}

func (t *txSet) Products() domain.ProductRepository {
	return &productRepository{ctx: t.ctx, q: t.q}
}

func (t *txSet) Idempotency() domain.IdempotencyRepository {
	return &idempotencyRepository{ctx: t.ctx, q: t.q}
}

func (t *txSet) Outbox() domain.OutboxRepository {
	return &outboxRepository{ctx: t.ctx, q: t.q}
}

func (t *txSet) Timeline() domain.TimelineRepository {
	return &timelineRepository{ctx: t.ctx, q: t.q}
}

var _ domain.Tx = (*txSet)(nil)

// opContext возвращает контекст операции: родительский из транзакции либо
// background с дефолтным таймаутом для standalone-репозиториев.
func opContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent != nil {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(context.Background(), opTimeout)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
