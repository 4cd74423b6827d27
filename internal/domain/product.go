package domain

import "time"

// Product — товар каталога с авторитетным счётчиком стока.
// Сток меняется только атомарными Reserve/Release, никогда прямой перезаписью.
type Product struct {
	ID         string
	SKU        string
	Name       string
	PriceMinor int64
	Stock      int32
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasStock сообщает, хватает ли стока на запрошенное количество.
func (p *Product) HasStock(qty int32) bool {
	return p.Stock >= qty
}

// Validate проверяет, корректно ли заполнены ключевые поля товара.
func (p *Product) Validate() []error {
	var errs []error

	if p.SKU == "" {
		errs = append(errs, ErrProductSKURequired)
	}
	if p.Name == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.PriceMinor < 0 {
		errs = append(errs, ErrProductPriceInvalid)
	}
	if p.Stock < 0 {
		errs = append(errs, ErrProductStockInvalid)
	}

	return errs
}
