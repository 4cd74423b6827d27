package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

// outboxEntry хранит сообщение outbox вместе со статусом доставки.
type outboxEntry struct {
	msg       domain.OutboxMessage
	status    string
	seq       int64
	createdAt int64 // unix nanos, чтобы не тянуть time в клонирование
}

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
	outboxStatusFailed  = "failed"
)

// state — всё содержимое in-memory хранилища одним значением,
// чтобы транзакцию можно было откатить заменой указателя на снапшот.
type state struct {
	orders   map[string]domain.Order
	products map[string]domain.Product
	idem     map[string]domain.IdempotencyRecord
	outbox   map[string]*outboxEntry
	timeline map[string][]domain.TimelineEvent
	nextSeq  int64
}

func newState() *state {
	return &state{
		orders:   make(map[string]domain.Order),
		products: make(map[string]domain.Product),
		idem:     make(map[string]domain.IdempotencyRecord),
		outbox:   make(map[string]*outboxEntry),
		timeline: make(map[string][]domain.TimelineEvent),
	}
}

func (st *state) clone() *state {
	dst := &state{
		orders:   make(map[string]domain.Order, len(st.orders)),
		products: make(map[string]domain.Product, len(st.products)),
		idem:     make(map[string]domain.IdempotencyRecord, len(st.idem)),
		outbox:   make(map[string]*outboxEntry, len(st.outbox)),
		timeline: make(map[string][]domain.TimelineEvent, len(st.timeline)),
		nextSeq:  st.nextSeq,
	}
	for id, order := range st.orders {
		dst.orders[id] = cloneOrder(order)
	}
	for id, product := range st.products {
		dst.products[id] = product
	}
	for key, record := range st.idem {
		dst.idem[key] = cloneIdempotencyRecord(record)
	}
	for id, entry := range st.outbox {
		copied := *entry
		copied.msg.Payload = append([]byte(nil), entry.msg.Payload...)
		dst.outbox[id] = &copied
	}
	for id, events := range st.timeline {
		dst.timeline[id] = append([]domain.TimelineEvent(nil), events...)
	}
	return dst
}

func cloneOrder(src domain.Order) domain.Order {
	dst := src
	dst.Items = append([]domain.OrderItem(nil), src.Items...)
	return dst
}

func cloneIdempotencyRecord(src domain.IdempotencyRecord) domain.IdempotencyRecord {
	dst := src
	dst.ResponseBody = append([]byte(nil), src.ResponseBody...)
	return dst
}

// Store — in-memory реализация domain.Store для локальной разработки и тестов.
// Транзакции сериализуются одним мьютексом; откат восстанавливает снапшот
// состояния, так что частичные изменения никогда не видны извне.
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{st: newState()}
}

// WithinTx выполняет fn атомарно: ошибка fn откатывает все изменения.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(&txSet{st: s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// Idempotency возвращает потокобезопасный доступ к idempotency-записям
// вне транзакций (для cleanup worker).
func (s *Store) Idempotency() domain.IdempotencyRepository {
	return &lockedIdempotency{s: s}
}

// Outbox возвращает потокобезопасный доступ к outbox вне транзакций
// (для relay worker).
func (s *Store) Outbox() domain.OutboxRepository {
	return &lockedOutbox{s: s}
}

// txSet отдаёт репозитории, работающие с состоянием без блокировок:
// WithinTx уже держит мьютекс хранилища.
type txSet struct {
	st *state
}

func (t *txSet) Orders() domain.OrderRepository             { return &orderRepository{st: t.st} }
func (t *txSet) Products() domain.ProductRepository         { return &productRepository{st: t.st} }
func (t *txSet) Idempotency() domain.IdempotencyRepository  { return &idempotencyRepository{st: t.st} }
func (t *txSet) Outbox() domain.OutboxRepository            { return &outboxRepository{st: t.st} }
func (t *txSet) Timeline() domain.TimelineRepository        { return &timelineRepository{st: t.st} }

var _ domain.Store = (*Store)(nil)
var _ domain.Tx = (*txSet)(nil)
