package domain

import (
	"context"
	"time"
)

// OrderFilter задаёт условия поиска заказов с cursor-пагинацией.
type OrderFilter struct {
	CustomerID string
	Status     OrderStatus
	From       time.Time
	To         time.Time
	Cursor     string
	Limit      int
}

// ProductFilter задаёт условия поиска товаров по имени/SKU.
type ProductFilter struct {
	Query  string
	Cursor string
	Limit  int
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ вместе с позициями.
	// Возвращает ErrOrderExists, если запись с таким ID уже существует.
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	// Внутри транзакции чтение захватывает строку заказа, чтобы конкурентные
	// confirm/cancel по одному заказу сериализовались guard-ом перехода.
	Get(id string) (Order, error)
	// UpdateStatus применяет переход статуса; меняются только status и
	// status_changed_at, позиции заказа неизменяемы.
	UpdateStatus(id string, status OrderStatus, statusChangedAt time.Time) (Order, error)
	// Search возвращает страницу заказов и курсор следующей страницы ("" — конец).
	Search(filter OrderFilter) ([]Order, string, error)
}

// ProductRepository совмещает каталог товаров и inventory ledger.
type ProductRepository interface {
	// Create сохраняет товар; ErrDuplicateSKU при конфликте уникальности SKU.
	Create(product Product) error
	// Get возвращает товар или ErrProductNotFound.
	Get(id string) (Product, error)
	// GetBySKU возвращает товар по SKU или ErrProductNotFound.
	GetBySKU(sku string) (Product, error)
	// Update перезаписывает изменяемые поля товара (имя, цену, сток).
	Update(product Product) (Product, error)
	// Search возвращает страницу товаров и курсор следующей страницы.
	Search(filter ProductFilter) ([]Product, string, error)
	// Reserve атомарно уменьшает сток на qty. Два конкурентных Reserve,
	// вместе превышающих остаток, не могут пройти оба: один получает
	// InsufficientStockError с актуальными available/requested.
	Reserve(id string, qty int32) error
	// Release атомарно возвращает qty на сток (компенсация отмены);
	// верхней границей не валидируется.
	Release(id string, qty int32) error
}

// IdempotencyRepository хранит результаты идемпотентных команд.
// Срок жизни записи всегда оценивается по now вызывающего — тем же источником
// времени, которым запись была проштампована; хранилище не подменяет его
// своими настенными часами.
type IdempotencyRepository interface {
	// Save записывает результат первого успешного выполнения.
	// ErrIdempotencyKeyConflict, если запись с таким ключом ещё жива на now.
	Save(record IdempotencyRecord, now time.Time) error
	// FindByKey возвращает запись или ErrIdempotencyKeyNotFound;
	// запись, просроченная на now, трактуется как отсутствующая.
	FindByKey(key string, now time.Time) (IdempotencyRecord, error)
	// DeleteExpired удаляет просроченные записи порциями limit (0 — без лимита).
	DeleteExpired(before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// CustomerValidator подтверждает существование клиента во внешнем customers API.
// Отсутствие клиента — ErrCustomerNotFound; транспортные сбои оборачивают
// ErrCustomerServiceUnavailable.
type CustomerValidator interface {
	Validate(ctx context.Context, customerID string) (CustomerSummary, error)
}

// Tx объединяет репозитории, участвующие в одной атомарной транзакции.
// Команды create/cancel пишут в order store, inventory ledger и idempotency
// ledger как одно all-or-nothing целое; частичное применение недопустимо.
type Tx interface {
	Orders() OrderRepository
	Products() ProductRepository
	Idempotency() IdempotencyRepository
	Outbox() OutboxRepository
	Timeline() TimelineRepository
}

// Store выполняет fn в рамках одной транзакции: ошибка fn откатывает все
// изменения, nil — коммитит их.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
