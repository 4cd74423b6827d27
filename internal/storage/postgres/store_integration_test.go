package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

func seedProductForIntegrationTest(t *testing.T, store *Store, stock int32) domain.Product {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	product := domain.Product{
		ID:         uuid.NewString(),
		SKU:        "SKU-" + uuid.NewString()[:8],
		Name:       "integration test product",
		PriceMinor: 1500,
		Stock:      stock,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	require.NoError(t, store.WithinTx(context.Background(), func(tx domain.Tx) error {
		return tx.Products().Create(product)
	}))

	return product
}

func TestPostgresWithinTx_RollbackOnError(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	product := seedProductForIntegrationTest(t, store, 5)

	now := time.Now().UTC().Truncate(time.Microsecond)
	orderID := uuid.NewString()

	boom := errors.New("boom")
	err := store.WithinTx(context.Background(), func(tx domain.Tx) error {
		if err := tx.Products().Reserve(product.ID, 3); err != nil {
			return err
		}
		if err := tx.Orders().Create(domain.Order{
			ID:              orderID,
			CustomerID:      uuid.NewString(),
			Status:          domain.OrderStatusCreated,
			AmountMinor:     4500,
			CreatedAt:       now,
			StatusChangedAt: now,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := NewProductRepository(store).Get(product.ID)
	require.NoError(t, err)
	require.Equal(t, int32(5), got.Stock, "stock must be restored after rollback")

	_, err = NewOrderRepository(store).Get(orderID)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestPostgresProductReserve_Insufficient(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	product := seedProductForIntegrationTest(t, store, 5)

	repo := NewProductRepository(store)
	require.NoError(t, repo.Reserve(product.ID, 3))

	err := repo.Reserve(product.ID, 3)
	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, int32(2), insufficient.Available)
	require.Equal(t, int32(3), insufficient.Requested)

	require.NoError(t, repo.Release(product.ID, 3))
	got, err := repo.Get(product.ID)
	require.NoError(t, err)
	require.Equal(t, int32(5), got.Stock)
}

func TestPostgresIdempotencyRepository_ConflictAndExpiry(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewIdempotencyRepository(store)

	now := time.Now().UTC().Truncate(time.Microsecond)
	key := "create-order-" + uuid.NewString()

	require.NoError(t, repo.Save(domain.NewIdempotencyRecord(
		key, domain.OperationOrderCreation, uuid.NewString(), []byte(`{"ok":true}`), now,
	), now))

	err := repo.Save(domain.NewIdempotencyRecord(
		key, domain.OperationOrderCreation, uuid.NewString(), nil, now,
	), now)
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyConflict)

	// Срок жизни считается по now вызывающего, а не по часам базы.
	_, err = repo.FindByKey(key, now)
	require.NoError(t, err)
	_, err = repo.FindByKey(key, now.Add(domain.IdempotencyTTL+time.Minute))
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyNotFound)

	expiredKey := "confirm-order-" + uuid.NewString()
	expired := domain.NewIdempotencyRecord(
		expiredKey, domain.OperationOrderConfirmation, uuid.NewString(), nil,
		now.Add(-domain.IdempotencyTTL-time.Minute),
	)
	require.NoError(t, repo.Save(expired, now))

	_, err = repo.FindByKey(expiredKey, now)
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyNotFound)

	// Протухший ключ можно переиспользовать без удаления.
	require.NoError(t, repo.Save(domain.NewIdempotencyRecord(
		expiredKey, domain.OperationOrderConfirmation, uuid.NewString(), nil, now,
	), now))

	removed, err := repo.DeleteExpired(time.Now().UTC(), 100)
	require.NoError(t, err)
	require.GreaterOrEqual(t, removed, 0)
}

func TestPostgresOutboxRepository_PublishCycle(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	aggregateID := uuid.NewString()
	sent, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   aggregateID,
		EventType:     "order.created",
		Payload:       []byte(`{"order_id":"` + aggregateID + `"}`),
	})
	require.NoError(t, err)
	require.NotEmpty(t, sent.ID)

	failed, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   aggregateID,
		EventType:     "order.confirmed",
		Payload:       []byte(`{}`),
	})
	require.NoError(t, err)

	stats, err := repo.Stats()
	require.NoError(t, err)
	require.GreaterOrEqual(t, stats.PendingCount, 2)
	require.False(t, stats.OldestPendingAt.IsZero())

	pending, err := repo.PullPending(1000)
	require.NoError(t, err)
	pendingIDs := make(map[string]bool, len(pending))
	for _, msg := range pending {
		pendingIDs[msg.ID] = true
	}
	require.True(t, pendingIDs[sent.ID])
	require.True(t, pendingIDs[failed.ID])

	require.NoError(t, repo.MarkSent(sent.ID))
	require.NoError(t, repo.MarkFailed(failed.ID))

	pending, err = repo.PullPending(1000)
	require.NoError(t, err)
	for _, msg := range pending {
		require.NotEqual(t, sent.ID, msg.ID)
		require.NotEqual(t, failed.ID, msg.ID)
	}

	require.Error(t, repo.MarkSent(uuid.NewString()))
}

func TestPostgresTimelineRepository_AppendAndList(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewTimelineRepository(store)

	orderID := uuid.NewString()
	base := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, repo.Append(domain.TimelineEvent{
		OrderID:  orderID,
		Type:     domain.TimelineEventOrderCreated,
		Occurred: base,
	}))
	require.NoError(t, repo.Append(domain.TimelineEvent{
		OrderID:  orderID,
		Type:     domain.TimelineEventOrderCanceled,
		Reason:   "customer changed mind",
		Occurred: base.Add(time.Minute),
	}))

	events, err := repo.List(orderID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, domain.TimelineEventOrderCreated, events[0].Type)
	require.Equal(t, domain.TimelineEventOrderCanceled, events[1].Type)
	require.Equal(t, "customer changed mind", events[1].Reason)

	events, err = repo.List(uuid.NewString())
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestPostgresOrderSearch_CursorPagination(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)

	customerID := uuid.NewString()
	base := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, store.WithinTx(context.Background(), func(tx domain.Tx) error {
		for i := 0; i < 5; i++ {
			created := base.Add(time.Duration(i) * time.Second)
			if err := tx.Orders().Create(domain.Order{
				ID:              uuid.NewString(),
				CustomerID:      customerID,
				Status:          domain.OrderStatusCreated,
				AmountMinor:     100,
				CreatedAt:       created,
				StatusChangedAt: created,
			}); err != nil {
				return err
			}
		}
		return nil
	}))

	repo := NewOrderRepository(store)

	first, cursor, err := repo.Search(domain.OrderFilter{CustomerID: customerID, Limit: 3})
	require.NoError(t, err)
	require.Len(t, first, 3)
	require.NotEmpty(t, cursor)

	second, cursor, err := repo.Search(domain.OrderFilter{CustomerID: customerID, Cursor: cursor, Limit: 3})
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.Empty(t, cursor)

	require.Equal(t, first[len(first)-1].CreatedAt.Add(time.Second), second[0].CreatedAt)
}
