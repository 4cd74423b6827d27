package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
	"github.com/vladislavdragonenkov/orderhub/internal/metrics"
	"github.com/vladislavdragonenkov/orderhub/internal/service/order"
)

// Имена шагов саги размещения заказа.
const (
	StepValidateCustomer = "validate_customer"
	StepCreateOrder      = "create_order"
	StepConfirmOrder     = "confirm_order"
)

// StepError указывает, на каком шаге сага остановилась.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("saga step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// PlaceOrderInput описывает команду размещения заказа через сагу.
type PlaceOrderInput struct {
	// IdempotencyKey — ключ всей саги; ключи шагов выводятся из него
	// детерминированно, поэтому ретрай продолжает с места остановки.
	IdempotencyKey string
	CustomerID     string
	Items          []order.CreateItemInput
}

// OrderCommands — подмножество команд сервиса заказов, которое использует сага.
type OrderCommands interface {
	Create(ctx context.Context, in order.CreateInput) (domain.Order, bool, error)
	Confirm(ctx context.Context, idempotencyKey, orderID string) (domain.Order, bool, error)
}

// Orchestrator ведёт заказ через validate → create → confirm.
// Компенсаций нет: каждый шаг идемпотентен, ретрай саги с тем же ключом
// переигрывает уже выполненные шаги из idempotency ledger и доводит
// оставшиеся до конца.
type Orchestrator struct {
	orders    OrderCommands
	customers domain.CustomerValidator
	logger    *log.Entry
	metrics   *metrics.SagaMetrics
}

// NewOrchestrator создаёт рабочий экземпляр оркестратора.
func NewOrchestrator(orders OrderCommands, customers domain.CustomerValidator, logger *log.Entry) *Orchestrator {
	if logger == nil {
		logger = log.New().WithField("component", "saga")
	}
	return &Orchestrator{
		orders:    orders,
		customers: customers,
		logger:    logger,
		metrics:   metrics.NewSagaMetrics(),
	}
}

// NewOrchestratorWithoutMetrics создаёт оркестратор без метрик (для тестов).
func NewOrchestratorWithoutMetrics(orders OrderCommands, customers domain.CustomerValidator, logger *log.Entry) *Orchestrator {
	o := NewOrchestrator(orders, customers, logger)
	o.metrics = nil
	return o
}

// CreateOrderKey выводит ключ шага создания из ключа саги.
func CreateOrderKey(sagaKey string) string {
	return "create-order-" + sagaKey
}

// ConfirmOrderKey выводит ключ шага подтверждения из ключа саги.
func ConfirmOrderKey(sagaKey string) string {
	return "confirm-order-" + sagaKey
}

// PlaceOrderResult — итог успешной саги: подтверждённый заказ и краткие
// данные клиента из шага валидации.
type PlaceOrderResult struct {
	Order    domain.Order
	Customer domain.CustomerSummary
}

// PlaceOrder выполняет сагу размещения заказа и возвращает подтверждённый заказ.
func (o *Orchestrator) PlaceOrder(ctx context.Context, in PlaceOrderInput) (PlaceOrderResult, error) {
	if in.IdempotencyKey == "" {
		return PlaceOrderResult{}, domain.ErrIdempotencyKeyRequired
	}

	start := time.Now()
	if o.metrics != nil {
		o.metrics.RecordSagaStarted()
	}
	defer func() {
		if o.metrics != nil {
			o.metrics.RecordSagaDuration(time.Since(start))
			o.metrics.RecordSagaFinished()
		}
	}()

	var customer domain.CustomerSummary
	if err := o.runStep(StepValidateCustomer, func() error {
		summary, err := o.customers.Validate(ctx, in.CustomerID)
		if err != nil {
			return err
		}
		customer = summary
		return nil
	}); err != nil {
		return PlaceOrderResult{}, o.failed(in, err)
	}

	var created domain.Order
	if err := o.runStep(StepCreateOrder, func() error {
		result, replayed, err := o.orders.Create(ctx, order.CreateInput{
			IdempotencyKey: CreateOrderKey(in.IdempotencyKey),
			CustomerID:     in.CustomerID,
			Items:          in.Items,
		})
		if err != nil {
			return err
		}
		if replayed {
			o.logger.WithFields(log.Fields{
				"order_id": result.ID,
				"saga_key": in.IdempotencyKey,
			}).Debug("create step replayed")
		}
		created = result
		return nil
	}); err != nil {
		return PlaceOrderResult{}, o.failed(in, err)
	}

	var confirmed domain.Order
	if err := o.runStep(StepConfirmOrder, func() error {
		result, replayed, err := o.orders.Confirm(ctx, ConfirmOrderKey(in.IdempotencyKey), created.ID)
		if err != nil {
			return err
		}
		if replayed {
			o.logger.WithFields(log.Fields{
				"order_id": result.ID,
				"saga_key": in.IdempotencyKey,
			}).Debug("confirm step replayed")
		}
		confirmed = result
		return nil
	}); err != nil {
		return PlaceOrderResult{}, o.failed(in, err)
	}

	if o.metrics != nil {
		o.metrics.RecordSagaCompleted()
	}
	o.logger.WithFields(log.Fields{
		"order_id": confirmed.ID,
		"saga_key": in.IdempotencyKey,
	}).Info("saga completed successfully")

	return PlaceOrderResult{Order: confirmed, Customer: customer}, nil
}

func (o *Orchestrator) runStep(step string, fn func() error) error {
	start := time.Now()
	err := fn()
	if o.metrics != nil {
		o.metrics.RecordStepDuration(step, time.Since(start))
	}
	if err != nil {
		return &StepError{Step: step, Err: err}
	}
	return nil
}

func (o *Orchestrator) failed(in PlaceOrderInput, err error) error {
	if o.metrics != nil {
		o.metrics.RecordSagaFailed()
	}
	var stepErr *StepError
	fields := log.Fields{"saga_key": in.IdempotencyKey}
	if errors.As(err, &stepErr) {
		fields["step"] = stepErr.Step
	}
	o.logger.WithError(err).WithFields(fields).Warn("saga failed")
	return err
}
