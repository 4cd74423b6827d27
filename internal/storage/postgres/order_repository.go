package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

type orderRepository struct {
	ctx context.Context
	q   querier
	// forUpdate включает захват строки заказа при чтении внутри транзакции:
	// конкурентные confirm/cancel одного заказа сериализуются на строке.
	forUpdate bool
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository вне транзакций.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{q: store.DB()}
}

func (r *orderRepository) Create(order domain.Order) error {
	ctx, cancel := opContext(r.ctx)
	defer cancel()

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO orders (
			id, customer_id, status, amount_minor, created_at, status_changed_at
		) VALUES ($1,$2,$3,$4,$5,$6)
	`,
		order.ID, order.CustomerID, string(order.Status),
		order.AmountMinor, order.CreatedAt, order.StatusChangedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderExists
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		if _, err := r.q.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, sku, qty, price_minor, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
			item.ID, order.ID, item.ProductID, item.SKU, item.Qty, item.PriceMinor, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return nil
}

func (r *orderRepository) Get(id string) (domain.Order, error) {
	ctx, cancel := opContext(r.ctx)
	defer cancel()

	query := `
		SELECT id, customer_id, status, amount_minor, created_at, status_changed_at
		FROM orders
		WHERE id = $1
	`
	if r.forUpdate {
		query += " FOR UPDATE"
	}

	order, err := r.scanOrder(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return domain.Order{}, err
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items

	return order, nil
}

func (r *orderRepository) UpdateStatus(id string, status domain.OrderStatus, statusChangedAt time.Time) (domain.Order, error) {
	ctx, cancel := opContext(r.ctx)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    status_changed_at = $2
		WHERE id = $3
	`, string(status), statusChangedAt.UTC(), id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Order{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	return r.Get(id)
}

func (r *orderRepository) Search(filter domain.OrderFilter) ([]domain.Order, string, error) {
	ctx, cancel := opContext(r.ctx)
	defer cancel()

	conditions := make([]string, 0, 4)
	args := make([]any, 0, 6)

	addArg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CustomerID != "" {
		conditions = append(conditions, "customer_id = "+addArg(filter.CustomerID))
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = "+addArg(string(filter.Status)))
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "created_at >= "+addArg(filter.From))
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "created_at <= "+addArg(filter.To))
	}

	if filter.Cursor != "" {
		var cursorCreatedAt time.Time
		err := r.q.QueryRowContext(ctx, `SELECT created_at FROM orders WHERE id = $1`, filter.Cursor).
			Scan(&cursorCreatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return []domain.Order{}, "", nil
			}
			return nil, "", fmt.Errorf("resolve search cursor: %w", err)
		}
		createdArg := addArg(cursorCreatedAt)
		idArg := addArg(filter.Cursor)
		conditions = append(conditions,
			fmt.Sprintf("(created_at > %s OR (created_at = %s AND id > %s))", createdArg, createdArg, idArg))
	}

	query := `
		SELECT id, customer_id, status, amount_minor, created_at, status_changed_at
		FROM orders
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	limit := filter.Limit
	if limit > 0 {
		// Забираем на одну строку больше, чтобы понять, есть ли следующая страница.
		query += " LIMIT " + addArg(limit+1)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("search orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := r.scanOrderRow(rows)
		if err != nil {
			return nil, "", err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate order rows: %w", err)
	}

	nextCursor := ""
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
		nextCursor = orders[limit-1].ID
	}

	for idx := range orders {
		items, err := r.loadItems(ctx, orders[idx].ID)
		if err != nil {
			return nil, "", err
		}
		orders[idx].Items = items
	}

	return orders, nextCursor, nil
}

func (r *orderRepository) scanOrder(row *sql.Row) (domain.Order, error) {
	var (
		order  domain.Order
		status string
	)
	err := row.Scan(
		&order.ID, &order.CustomerID, &status,
		&order.AmountMinor, &order.CreatedAt, &order.StatusChangedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	order.Status = domain.OrderStatus(status)
	return order, nil
}

func (r *orderRepository) scanOrderRow(rows *sql.Rows) (domain.Order, error) {
	var (
		order  domain.Order
		status string
	)
	if err := rows.Scan(
		&order.ID, &order.CustomerID, &status,
		&order.AmountMinor, &order.CreatedAt, &order.StatusChangedAt,
	); err != nil {
		return domain.Order{}, fmt.Errorf("scan order row: %w", err)
	}
	order.Status = domain.OrderStatus(status)
	return order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, product_id, sku, qty, price_minor, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.SKU, &item.Qty, &item.PriceMinor, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
