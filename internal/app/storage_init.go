package app

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
	"github.com/vladislavdragonenkov/orderhub/internal/storage/memory"
	"github.com/vladislavdragonenkov/orderhub/internal/storage/postgres"
)

// Store объединяет транзакционный контракт с репозиториями, которые
// фоновые воркеры используют вне транзакций команд.
type Store interface {
	domain.Store
	Outbox() domain.OutboxRepository
	Idempotency() domain.IdempotencyRepository
}

// initStore выбирает хранилище по конфигурации: Postgres при заданном DSN,
// иначе in-memory. Возвращает также health-проверку (nil для памяти)
// и функцию закрытия.
func initStore(ctx context.Context, cfg Config, logger *log.Entry) (Store, func() error, func(), error) {
	if cfg.PostgresDSN == "" {
		logger.Warn("postgres DSN is not configured, using in-memory store")
		return memory.NewStore(), nil, func() {}, nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, nil, nil, err
	}
	logger.Info("postgres store initialized, schema is up to date")

	check := func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return store.Ping(pingCtx)
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			logger.WithError(err).Warn("failed to close postgres store")
		}
	}
	return store, check, closeFn, nil
}
