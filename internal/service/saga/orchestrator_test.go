package saga_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
	"github.com/vladislavdragonenkov/orderhub/internal/service/customers"
	"github.com/vladislavdragonenkov/orderhub/internal/service/order"
	"github.com/vladislavdragonenkov/orderhub/internal/service/saga"
	"github.com/vladislavdragonenkov/orderhub/internal/storage/memory"
)

// flakyCommands оборачивает реальный сервис заказов и позволяет один раз
// уронить шаг подтверждения, имитируя сбой между шагами саги.
type flakyCommands struct {
	inner        *order.Service
	failConfirms int
	confirmCalls int
}

func (f *flakyCommands) Create(ctx context.Context, in order.CreateInput) (domain.Order, bool, error) {
	return f.inner.Create(ctx, in)
}

func (f *flakyCommands) Confirm(ctx context.Context, key, orderID string) (domain.Order, bool, error) {
	f.confirmCalls++
	if f.failConfirms > 0 {
		f.failConfirms--
		return domain.Order{}, false, errors.New("transient store failure")
	}
	return f.inner.Confirm(ctx, key, orderID)
}

func seedProduct(t *testing.T, store *memory.Store, stock int32) domain.Product {
	t.Helper()

	now := time.Now().UTC()
	product := domain.Product{
		ID:         uuid.NewString(),
		SKU:        "SKU-" + uuid.NewString()[:8],
		Name:       "saga test product",
		PriceMinor: 500,
		Stock:      stock,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, store.WithinTx(context.Background(), func(tx domain.Tx) error {
		return tx.Products().Create(product)
	}))
	return product
}

func stockOf(t *testing.T, store *memory.Store, id string) int32 {
	t.Helper()

	var stock int32
	require.NoError(t, store.WithinTx(context.Background(), func(tx domain.Tx) error {
		product, err := tx.Products().Get(id)
		if err != nil {
			return err
		}
		stock = product.Stock
		return nil
	}))
	return stock
}

func TestPlaceOrder_HappyPath(t *testing.T) {
	store := memory.NewStore()
	product := seedProduct(t, store, 10)

	orders := order.NewService(store)
	orchestrator := saga.NewOrchestratorWithoutMetrics(orders, customers.NewMockValidator(), nil)

	placed, err := orchestrator.PlaceOrder(context.Background(), saga.PlaceOrderInput{
		IdempotencyKey: "saga-1",
		CustomerID:     "customer-1",
		Items:          []order.CreateItemInput{{ProductID: product.ID, Qty: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusConfirmed, placed.Order.Status)
	require.Equal(t, int64(1000), placed.Order.AmountMinor)
	require.Equal(t, "customer-1", placed.Customer.ID)
	require.Equal(t, int32(8), stockOf(t, store, product.ID))
}

func TestPlaceOrder_CustomerNotFound(t *testing.T) {
	store := memory.NewStore()
	product := seedProduct(t, store, 10)

	validator := customers.NewMockValidator()
	validator.Err = domain.ErrCustomerNotFound

	orchestrator := saga.NewOrchestratorWithoutMetrics(order.NewService(store), validator, nil)

	_, err := orchestrator.PlaceOrder(context.Background(), saga.PlaceOrderInput{
		IdempotencyKey: "saga-2",
		CustomerID:     "missing",
		Items:          []order.CreateItemInput{{ProductID: product.ID, Qty: 1}},
	})
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)

	var stepErr *saga.StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, saga.StepValidateCustomer, stepErr.Step)

	// Сток не тронут: до создания заказа сага не дошла.
	require.Equal(t, int32(10), stockOf(t, store, product.ID))
}

func TestPlaceOrder_RetryResumesInsteadOfDuplicating(t *testing.T) {
	store := memory.NewStore()
	product := seedProduct(t, store, 10)

	flaky := &flakyCommands{inner: order.NewService(store), failConfirms: 1}
	orchestrator := saga.NewOrchestratorWithoutMetrics(flaky, customers.NewMockValidator(), nil)

	input := saga.PlaceOrderInput{
		IdempotencyKey: "saga-3",
		CustomerID:     "customer-1",
		Items:          []order.CreateItemInput{{ProductID: product.ID, Qty: 2}},
	}

	_, err := orchestrator.PlaceOrder(context.Background(), input)
	require.Error(t, err)

	var stepErr *saga.StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, saga.StepConfirmOrder, stepErr.Step)

	// Заказ создан, сток зарезервирован, но подтверждение не прошло.
	require.Equal(t, int32(8), stockOf(t, store, product.ID))

	// Ретрай с тем же ключом: create переигрывается из ledger,
	// сток не резервируется повторно, confirm доводится до конца.
	placed, err := orchestrator.PlaceOrder(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusConfirmed, placed.Order.Status)
	require.Equal(t, int32(8), stockOf(t, store, product.ID))
	require.Equal(t, 2, flaky.confirmCalls)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	store := memory.NewStore()
	product := seedProduct(t, store, 1)

	orchestrator := saga.NewOrchestratorWithoutMetrics(order.NewService(store), customers.NewMockValidator(), nil)

	_, err := orchestrator.PlaceOrder(context.Background(), saga.PlaceOrderInput{
		IdempotencyKey: "saga-4",
		CustomerID:     "customer-1",
		Items:          []order.CreateItemInput{{ProductID: product.ID, Qty: 3}},
	})
	require.True(t, domain.IsInsufficientStock(err))

	var stepErr *saga.StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, saga.StepCreateOrder, stepErr.Step)
	require.Equal(t, int32(1), stockOf(t, store, product.ID))
}

func TestPlaceOrder_RequiresKey(t *testing.T) {
	store := memory.NewStore()

	orchestrator := saga.NewOrchestratorWithoutMetrics(order.NewService(store), customers.NewMockValidator(), nil)

	_, err := orchestrator.PlaceOrder(context.Background(), saga.PlaceOrderInput{
		CustomerID: "customer-1",
	})
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyRequired)
}

func TestDerivedStepKeys(t *testing.T) {
	require.Equal(t, "create-order-k42", saga.CreateOrderKey("k42"))
	require.Equal(t, "confirm-order-k42", saga.ConfirmOrderKey("k42"))
}
