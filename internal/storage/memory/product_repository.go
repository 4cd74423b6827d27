package memory

import (
	"sort"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

// productRepository — in-memory каталог товаров и inventory ledger.
type productRepository struct {
	st *state
}

// Create сохраняет товар с проверкой уникальности SKU.
func (r *productRepository) Create(product domain.Product) error {
	for _, existing := range r.st.products {
		if existing.SKU == product.SKU {
			return domain.ErrDuplicateSKU
		}
	}
	r.st.products[product.ID] = product
	return nil
}

// Get возвращает товар или ErrProductNotFound.
func (r *productRepository) Get(id string) (domain.Product, error) {
	product, ok := r.st.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// GetBySKU возвращает товар по SKU или ErrProductNotFound.
func (r *productRepository) GetBySKU(sku string) (domain.Product, error) {
	for _, product := range r.st.products {
		if product.SKU == sku {
			return product, nil
		}
	}
	return domain.Product{}, domain.ErrProductNotFound
}

// Update перезаписывает товар; смена SKU проверяется на конфликт.
func (r *productRepository) Update(product domain.Product) (domain.Product, error) {
	current, ok := r.st.products[product.ID]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if product.SKU != current.SKU {
		for id, existing := range r.st.products {
			if id != product.ID && existing.SKU == product.SKU {
				return domain.Product{}, domain.ErrDuplicateSKU
			}
		}
	}
	product.CreatedAt = current.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	r.st.products[product.ID] = product
	return product, nil
}

// Search ищет товары по подстроке имени/SKU с cursor-пагинацией.
func (r *productRepository) Search(filter domain.ProductFilter) ([]domain.Product, string, error) {
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	matched := make([]domain.Product, 0, len(r.st.products))
	for _, product := range r.st.products {
		if query != "" &&
			!strings.Contains(strings.ToLower(product.Name), query) &&
			!strings.Contains(strings.ToLower(product.SKU), query) {
			continue
		}
		matched = append(matched, product)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	start := 0
	if filter.Cursor != "" {
		for idx, product := range matched {
			if product.ID == filter.Cursor {
				start = idx + 1
				break
			}
		}
	}
	if start >= len(matched) {
		return []domain.Product{}, "", nil
	}

	page := matched[start:]
	if filter.Limit > 0 && len(page) > filter.Limit {
		next := page[filter.Limit-1].ID
		return page[:filter.Limit], next, nil
	}
	return page, "", nil
}

// Reserve — условный декремент стока: либо хватает и списываем, либо
// InsufficientStockError с актуальными числами. Под мьютексом хранилища
// операция атомарна относительно конкурентных резервов.
func (r *productRepository) Reserve(id string, qty int32) error {
	product, ok := r.st.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	if !product.HasStock(qty) {
		return &domain.InsufficientStockError{
			ProductID: product.ID,
			SKU:       product.SKU,
			Available: product.Stock,
			Requested: qty,
		}
	}
	product.Stock -= qty
	product.UpdatedAt = time.Now().UTC()
	r.st.products[id] = product
	return nil
}

// Release возвращает qty на сток; верхней границей не валидируется.
func (r *productRepository) Release(id string, qty int32) error {
	product, ok := r.st.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	product.Stock += qty
	product.UpdatedAt = time.Now().UTC()
	r.st.products[id] = product
	return nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
