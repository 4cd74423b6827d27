package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствия хотя бы одного товара в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("amount_minor must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order amount does not match items sum")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderExists сигнализирует о попытке создать заказ с занятым ID.
	ErrOrderExists = errors.New("order already exists")
	// ErrOrderAlreadyCanceled — повторная отмена терминального заказа.
	ErrOrderAlreadyCanceled = errors.New("order is already canceled")
	// ErrCancellationWindowExpired — отмена подтверждённого заказа вне окна отмены.
	ErrCancellationWindowExpired = errors.New("cannot cancel confirmed order after cancellation window")

	// ErrProductNotFound возвращается, если товар отсутствует в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrDuplicateSKU — конфликт уникальности SKU при создании/обновлении товара.
	ErrDuplicateSKU = errors.New("product with this sku already exists")
	// ErrProductSKURequired — отсутствующий SKU товара.
	ErrProductSKURequired = errors.New("product sku is required")
	// ErrProductNameRequired — отсутствующее имя товара.
	ErrProductNameRequired = errors.New("product name is required")
	// ErrProductPriceInvalid — отрицательная цена товара.
	ErrProductPriceInvalid = errors.New("product price must be non-negative")
	// ErrProductStockInvalid — отрицательный сток товара.
	ErrProductStockInvalid = errors.New("product stock must be non-negative")

	// ErrCustomerNotFound — клиент не существует по данным customers API.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrCustomerServiceUnavailable — транспортная ошибка валидации клиента;
	// отличается от ErrCustomerNotFound, чтобы не путать "нет клиента" и "нет связи".
	ErrCustomerServiceUnavailable = errors.New("customers service unavailable")

	// ErrIdempotencyKeyRequired — команда вызвана без idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyKeyNotFound — записи по ключу нет либо она просрочена.
	ErrIdempotencyKeyNotFound = errors.New("idempotency record not found")
	// ErrIdempotencyKeyConflict — повторная запись валидного ключа с другим результатом.
	ErrIdempotencyKeyConflict = errors.New("idempotency key is already recorded")
)

// InvalidTransitionError описывает недопустимый переход состояния заказа.
// Текст обязан называть текущий статус — на него опираются клиенты.
type InvalidTransitionError struct {
	Action string
	Status OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s order with status %s", e.Action, e.Status)
}

// IsInvalidTransition проверяет, является ли ошибка недопустимым переходом.
func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError
	return errors.As(err, &target)
}

// InsufficientStockError несёт структурированные данные о нехватке стока,
// чтобы вызывающий мог принять решение, не разбирая текст сообщения.
type InsufficientStockError struct {
	ProductID string
	SKU       string
	Available int32
	Requested int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (sku %s): available %d, requested %d",
		e.ProductID, e.SKU, e.Available, e.Requested)
}

// IsInsufficientStock проверяет, является ли ошибка нехваткой стока.
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}
