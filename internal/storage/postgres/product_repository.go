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

type productRepository struct {
	ctx context.Context
	q   querier
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository вне транзакций.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{q: store.DB()}
}

func (r *productRepository) Create(product domain.Product) error {
	ctx, cancel := opContext(r.ctx)
	defer cancel()

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO products (
			id, sku, name, price_minor, stock, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		product.ID, product.SKU, product.Name,
		product.PriceMinor, product.Stock, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSKU
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

func (r *productRepository) Get(id string) (domain.Product, error) {
	ctx, cancel := opContext(r.ctx)
	defer cancel()

	return r.scanProduct(r.q.QueryRowContext(ctx, `
		SELECT id, sku, name, price_minor, stock, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id))
}

func (r *productRepository) GetBySKU(sku string) (domain.Product, error) {
	ctx, cancel := opContext(r.ctx)
	defer cancel()

	return r.scanProduct(r.q.QueryRowContext(ctx, `
		SELECT id, sku, name, price_minor, stock, created_at, updated_at
		FROM products
		WHERE sku = $1
	`, sku))
}

func (r *productRepository) Update(product domain.Product) (domain.Product, error) {
	ctx, cancel := opContext(r.ctx)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE products
		SET sku = $1,
		    name = $2,
		    price_minor = $3,
		    stock = $4,
		    updated_at = $5
		WHERE id = $6
	`, product.SKU, product.Name, product.PriceMinor, product.Stock, product.UpdatedAt, product.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Product{}, domain.ErrDuplicateSKU
		}
		return domain.Product{}, fmt.Errorf("update product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Product{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.Product{}, domain.ErrProductNotFound
	}

	return r.Get(product.ID)
}

func (r *productRepository) Search(filter domain.ProductFilter) ([]domain.Product, string, error) {
	ctx, cancel := opContext(r.ctx)
	defer cancel()

	conditions := make([]string, 0, 2)
	args := make([]any, 0, 4)

	addArg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Query != "" {
		pattern := "%" + strings.ToLower(filter.Query) + "%"
		arg := addArg(pattern)
		conditions = append(conditions,
			fmt.Sprintf("(LOWER(name) LIKE %s OR LOWER(sku) LIKE %s)", arg, arg))
	}
	if filter.Cursor != "" {
		conditions = append(conditions, "id > "+addArg(filter.Cursor))
	}

	query := `
		SELECT id, sku, name, price_minor, stock, created_at, updated_at
		FROM products
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id ASC"

	limit := filter.Limit
	if limit > 0 {
		query += " LIMIT " + addArg(limit+1)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(
			&product.ID, &product.SKU, &product.Name,
			&product.PriceMinor, &product.Stock, &product.CreatedAt, &product.UpdatedAt,
		); err != nil {
			return nil, "", fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate product rows: %w", err)
	}

	nextCursor := ""
	if limit > 0 && len(products) > limit {
		products = products[:limit]
		nextCursor = products[limit-1].ID
	}

	return products, nextCursor, nil
}

// Reserve уменьшает остаток условным UPDATE: декремент проходит только когда
// на складе достаточно товара, поэтому параллельные резервы не уводят stock в минус.
func (r *productRepository) Reserve(id string, qty int32) error {
	ctx, cancel := opContext(r.ctx)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $2,
		    updated_at = $3
		WHERE id = $1 AND stock >= $2
	`, id, qty, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	product, err := r.Get(id)
	if err != nil {
		return err
	}

	return &domain.InsufficientStockError{
		ProductID: product.ID,
		SKU:       product.SKU,
		Available: product.Stock,
		Requested: qty,
	}
}

func (r *productRepository) Release(id string, qty int32) error {
	ctx, cancel := opContext(r.ctx)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $2,
		    updated_at = $3
		WHERE id = $1
	`, id, qty, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

func (r *productRepository) scanProduct(row *sql.Row) (domain.Product, error) {
	var product domain.Product
	err := row.Scan(
		&product.ID, &product.SKU, &product.Name,
		&product.PriceMinor, &product.Stock, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return product, nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
