package domain

import "time"

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusCreated — заказ создан, сток зарезервирован, подтверждение ещё не выполнено.
	OrderStatusCreated OrderStatus = "created"
	// OrderStatusConfirmed — заказ подтверждён; отмена возможна только внутри окна отмены.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusCanceled — терминальный статус; резерв возвращён на склад.
	OrderStatusCanceled OrderStatus = "canceled"
)

// CancellationWindow — интервал после подтверждения, в течение которого заказ ещё можно отменить.
const CancellationWindow = 10 * time.Minute

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// ID позиции нужен для однозначной идентификации и аудита.
	ID string
	// ProductID — идентификатор товара в каталоге.
	ProductID string
	// SKU — внешний идентификатор товара.
	SKU string
	// Qty — количество единиц товара.
	Qty int32
	// PriceMinor — цена за единицу на момент создания заказа (снапшот,
	// последующие изменения цены товара заказ не трогают).
	PriceMinor int64
	// CreatedAt фиксирует момент добавления позиции в заказ.
	CreatedAt time.Time
}

// SubtotalMinor возвращает стоимость позиции: qty * price.
func (i OrderItem) SubtotalMinor() int64 {
	return int64(i.Qty) * i.PriceMinor
}

// Order агрегирует состояние заказа и его позиции. Позиции после создания
// неизменяемы; переходы статусов меняют только Status и StatusChangedAt.
type Order struct {
	ID          string
	CustomerID  string
	Status      OrderStatus
	AmountMinor int64
	Items       []OrderItem
	CreatedAt   time.Time
	// StatusChangedAt обновляется только переходами confirm/cancel.
	// Окно отмены считается от него, а не от generic updated_at.
	StatusChangedAt time.Time
}

// Confirm переводит заказ из created в confirmed.
// now передаётся явно, чтобы поведение было детерминированным в тестах.
func (o *Order) Confirm(now time.Time) error {
	if o.Status != OrderStatusCreated {
		return &InvalidTransitionError{Action: "confirm", Status: o.Status}
	}
	o.Status = OrderStatusConfirmed
	o.StatusChangedAt = now.UTC()
	return nil
}

// Cancel переводит заказ в canceled с учётом окна отмены:
// подтверждённый заказ можно отменить только в течение CancellationWindow
// после подтверждения.
func (o *Order) Cancel(now time.Time) error {
	switch o.Status {
	case OrderStatusCanceled:
		return ErrOrderAlreadyCanceled
	case OrderStatusConfirmed:
		if now.Sub(o.StatusChangedAt) > CancellationWindow {
			return ErrCancellationWindowExpired
		}
	}
	o.Status = OrderStatusCanceled
	o.StatusChangedAt = now.UTC()
	return nil
}

// CanBeCanceled — чистый предикат, зеркалящий guard метода Cancel без мутаций.
// Используется вызывающими, которым нужна предварительная проверка перед
// компенсирующими действиями.
func (o *Order) CanBeCanceled(now time.Time) bool {
	if o.Status == OrderStatusCanceled {
		return false
	}
	if o.Status == OrderStatusConfirmed {
		return now.Sub(o.StatusChangedAt) <= CancellationWindow
	}
	return true
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.AmountMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	// Сверяем сумму заказа с суммой позиций: qty * price.
	var calc int64
	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc += item.SubtotalMinor()
	}
	if calc != o.AmountMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
