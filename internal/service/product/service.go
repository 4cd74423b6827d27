package product

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

// CreateInput описывает команду добавления товара в каталог.
type CreateInput struct {
	SKU        string
	Name       string
	PriceMinor int64
	Stock      int32
}

// UpdateInput описывает изменяемые поля товара. Nil-поле означает "не менять".
type UpdateInput struct {
	Name       *string
	PriceMinor *int64
	Stock      *int32
}

// Service управляет каталогом товаров и их стоком.
type Service struct {
	store  domain.Store
	logger *log.Entry
	now    func() time.Time
}

// NewService создаёт сервис каталога.
func NewService(store domain.Store, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "product-service")
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create добавляет товар в каталог.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Product, error) {
	product := domain.Product{
		ID:         uuid.NewString(),
		SKU:        strings.TrimSpace(in.SKU),
		Name:       strings.TrimSpace(in.Name),
		PriceMinor: in.PriceMinor,
		Stock:      in.Stock,
	}

	if errs := product.Validate(); len(errs) > 0 {
		return domain.Product{}, errs[0]
	}

	now := s.now()
	product.CreatedAt = now
	product.UpdatedAt = now

	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		return tx.Products().Create(product)
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.WithFields(log.Fields{
		"product_id": product.ID,
		"sku":        product.SKU,
	}).Info("product created")

	return product, nil
}

// Get возвращает товар по идентификатору.
func (s *Service) Get(ctx context.Context, id string) (domain.Product, error) {
	var result domain.Product
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		product, err := tx.Products().Get(id)
		if err != nil {
			return err
		}
		result = product
		return nil
	})
	return result, err
}

// GetBySKU возвращает товар по SKU.
func (s *Service) GetBySKU(ctx context.Context, sku string) (domain.Product, error) {
	var result domain.Product
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		product, err := tx.Products().GetBySKU(sku)
		if err != nil {
			return err
		}
		result = product
		return nil
	})
	return result, err
}

// Update меняет имя, цену или сток товара. SKU неизменяем.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (domain.Product, error) {
	var result domain.Product
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		product, err := tx.Products().Get(id)
		if err != nil {
			return err
		}

		if in.Name != nil {
			product.Name = strings.TrimSpace(*in.Name)
		}
		if in.PriceMinor != nil {
			product.PriceMinor = *in.PriceMinor
		}
		if in.Stock != nil {
			product.Stock = *in.Stock
		}
		if errs := product.Validate(); len(errs) > 0 {
			return errs[0]
		}
		product.UpdatedAt = s.now()

		updated, err := tx.Products().Update(product)
		if err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.WithField("product_id", result.ID).Info("product updated")

	return result, nil
}

// Search возвращает страницу товаров по подстроке имени или SKU.
func (s *Service) Search(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, string, error) {
	var (
		products   []domain.Product
		nextCursor string
	)
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		found, cursor, err := tx.Products().Search(filter)
		if err != nil {
			return err
		}
		products = found
		nextCursor = cursor
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return products, nextCursor, nil
}
