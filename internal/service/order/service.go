package order

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
	"github.com/vladislavdragonenkov/orderhub/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orderhub/internal/metrics"
)

// CreateItemInput описывает одну позицию создаваемого заказа.
type CreateItemInput struct {
	ProductID string
	Qty       int32
}

// CreateInput описывает команду создания заказа.
type CreateInput struct {
	IdempotencyKey string
	CustomerID     string
	Items          []CreateItemInput
}

// Service реализует команды жизненного цикла заказа поверх транзакционного Store.
// Каждая команда выполняется как одна атомарная единица: заказ, сток,
// idempotency ledger, outbox и timeline либо применяются вместе, либо никак.
type Service struct {
	store   domain.Store
	logger  *log.Entry
	metrics *metrics.SagaMetrics
	now     func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт логгер сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics задаёт метрики сервиса.
func WithMetrics(m *metrics.SagaMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock задаёт источник времени; guard-ы переходов считают окна от него.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService создаёт сервис заказов.
func NewService(store domain.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: log.New().WithField("component", "order-service"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create создаёт заказ с резервированием стока под каждую позицию.
// Повторный вызов с тем же ключом идемпотентности возвращает уже созданный
// заказ (replayed=true) и не трогает сток.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Order, bool, error) {
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" {
		return domain.Order{}, false, domain.ErrIdempotencyKeyRequired
	}

	var (
		result   domain.Order
		replayed bool
	)
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		now := s.now()
		record, err := tx.Idempotency().FindByKey(key, now)
		if err == nil {
			existing, getErr := tx.Orders().Get(record.TargetID)
			if getErr != nil {
				return getErr
			}
			result = existing
			replayed = true
			return nil
		}
		if err != domain.ErrIdempotencyKeyNotFound {
			return err
		}

		order, buildErr := s.buildOrder(tx, in, now)
		if buildErr != nil {
			return buildErr
		}

		if err := tx.Orders().Create(order); err != nil {
			return err
		}

		responseBody, marshalErr := json.Marshal(order)
		if marshalErr != nil {
			return marshalErr
		}
		if err := tx.Idempotency().Save(domain.NewIdempotencyRecord(
			key, domain.OperationOrderCreation, order.ID, responseBody, now,
		), now); err != nil {
			return err
		}

		if err := s.emitEvent(tx, order, kafka.EventTypeOrderCreated, ""); err != nil {
			return err
		}

		result = order
		return nil
	})
	if err != nil {
		return domain.Order{}, false, err
	}

	if replayed {
		if s.metrics != nil {
			s.metrics.RecordIdempotentReplay()
		}
		s.logger.WithFields(log.Fields{
			"order_id":        result.ID,
			"idempotency_key": key,
		}).Debug("create replayed from idempotency ledger")
		return result, true, nil
	}

	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
	}
	s.logger.WithFields(log.Fields{
		"order_id":     result.ID,
		"customer_id":  result.CustomerID,
		"amount_minor": result.AmountMinor,
	}).Info("order created")

	return result, false, nil
}

// buildOrder собирает заказ, резервируя сток по каждой позиции.
// Цена позиции снимается с товара на момент создания.
func (s *Service) buildOrder(tx domain.Tx, in CreateInput, now time.Time) (domain.Order, error) {
	if strings.TrimSpace(in.CustomerID) == "" {
		return domain.Order{}, domain.ErrCustomerRequired
	}
	if len(in.Items) == 0 {
		return domain.Order{}, domain.ErrItemsRequired
	}

	order := domain.Order{
		ID:              uuid.NewString(),
		CustomerID:      in.CustomerID,
		Status:          domain.OrderStatusCreated,
		Items:           make([]domain.OrderItem, 0, len(in.Items)),
		CreatedAt:       now,
		StatusChangedAt: now,
	}

	for _, item := range in.Items {
		if item.Qty <= 0 {
			return domain.Order{}, domain.ErrItemQtyInvalid
		}

		product, err := tx.Products().Get(item.ProductID)
		if err != nil {
			return domain.Order{}, err
		}
		if err := tx.Products().Reserve(product.ID, item.Qty); err != nil {
			return domain.Order{}, err
		}

		order.Items = append(order.Items, domain.OrderItem{
			ID:         uuid.NewString(),
			ProductID:  product.ID,
			SKU:        product.SKU,
			Qty:        item.Qty,
			PriceMinor: product.PriceMinor,
			CreatedAt:  now,
		})
		order.AmountMinor += product.PriceMinor * int64(item.Qty)
	}

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, errs[0]
	}

	return order, nil
}

// Confirm подтверждает заказ. Повторный вызов с тем же ключом возвращает
// уже подтверждённый заказ без повторного перехода.
func (s *Service) Confirm(ctx context.Context, idempotencyKey, orderID string) (domain.Order, bool, error) {
	key := strings.TrimSpace(idempotencyKey)
	if key == "" {
		return domain.Order{}, false, domain.ErrIdempotencyKeyRequired
	}

	var (
		result   domain.Order
		replayed bool
	)
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		now := s.now()
		record, err := tx.Idempotency().FindByKey(key, now)
		if err == nil {
			existing, getErr := tx.Orders().Get(record.TargetID)
			if getErr != nil {
				return getErr
			}
			result = existing
			replayed = true
			return nil
		}
		if err != domain.ErrIdempotencyKeyNotFound {
			return err
		}

		order, err := tx.Orders().Get(orderID)
		if err != nil {
			return err
		}

		if err := order.Confirm(now); err != nil {
			return err
		}

		updated, err := tx.Orders().UpdateStatus(order.ID, order.Status, order.StatusChangedAt)
		if err != nil {
			return err
		}

		responseBody, marshalErr := json.Marshal(updated)
		if marshalErr != nil {
			return marshalErr
		}
		if err := tx.Idempotency().Save(domain.NewIdempotencyRecord(
			key, domain.OperationOrderConfirmation, updated.ID, responseBody, now,
		), now); err != nil {
			return err
		}

		if err := s.emitEvent(tx, updated, kafka.EventTypeOrderConfirmed, ""); err != nil {
			return err
		}

		result = updated
		return nil
	})
	if err != nil {
		return domain.Order{}, false, err
	}

	if replayed {
		if s.metrics != nil {
			s.metrics.RecordIdempotentReplay()
		}
		return result, true, nil
	}

	if s.metrics != nil {
		s.metrics.RecordOrderConfirmed()
	}
	s.logger.WithField("order_id", result.ID).Info("order confirmed")

	return result, false, nil
}

// Cancel отменяет заказ и возвращает сток по всем позициям.
// Команда не идемпотентна по ключу: повторная отмена — это ошибка домена.
func (s *Service) Cancel(ctx context.Context, orderID, reason string) (domain.Order, error) {
	var result domain.Order
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		order, err := tx.Orders().Get(orderID)
		if err != nil {
			return err
		}

		now := s.now()
		if err := order.Cancel(now); err != nil {
			return err
		}

		for _, item := range order.Items {
			if err := tx.Products().Release(item.ProductID, item.Qty); err != nil {
				return err
			}
		}

		updated, err := tx.Orders().UpdateStatus(order.ID, order.Status, order.StatusChangedAt)
		if err != nil {
			return err
		}

		if err := s.emitEvent(tx, updated, kafka.EventTypeOrderCanceled, reason); err != nil {
			return err
		}

		result = updated
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordOrderCanceled()
	}
	s.logger.WithFields(log.Fields{
		"order_id": result.ID,
		"reason":   reason,
	}).Info("order canceled")

	return result, nil
}

// Get возвращает заказ по идентификатору.
func (s *Service) Get(ctx context.Context, orderID string) (domain.Order, error) {
	var result domain.Order
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		order, err := tx.Orders().Get(orderID)
		if err != nil {
			return err
		}
		result = order
		return nil
	})
	return result, err
}

// Search возвращает страницу заказов по фильтру.
func (s *Service) Search(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, string, error) {
	var (
		orders     []domain.Order
		nextCursor string
	)
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		found, cursor, err := tx.Orders().Search(filter)
		if err != nil {
			return err
		}
		orders = found
		nextCursor = cursor
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return orders, nextCursor, nil
}

// Timeline возвращает события жизненного цикла заказа.
func (s *Service) Timeline(ctx context.Context, orderID string) ([]domain.TimelineEvent, error) {
	var events []domain.TimelineEvent
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		if _, err := tx.Orders().Get(orderID); err != nil {
			return err
		}
		found, err := tx.Timeline().List(orderID)
		if err != nil {
			return err
		}
		events = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// emitEvent кладёт событие в outbox и timeline в рамках текущей транзакции.
func (s *Service) emitEvent(tx domain.Tx, order domain.Order, eventType kafka.EventType, reason string) error {
	event := kafka.NewOrderEvent(eventType, order.ID, order.CustomerID, string(order.Status), order.AmountMinor)
	event.Reason = reason

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := tx.Outbox().Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     string(eventType),
		Payload:       payload,
	}); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}

	return tx.Timeline().Append(domain.TimelineEvent{
		OrderID:  order.ID,
		Type:     timelineType(eventType),
		Reason:   reason,
		Occurred: order.StatusChangedAt,
	})
}

func timelineType(eventType kafka.EventType) string {
	switch eventType {
	case kafka.EventTypeOrderCreated:
		return domain.TimelineEventOrderCreated
	case kafka.EventTypeOrderConfirmed:
		return domain.TimelineEventOrderConfirmed
	case kafka.EventTypeOrderCanceled:
		return domain.TimelineEventOrderCanceled
	default:
		return string(eventType)
	}
}
