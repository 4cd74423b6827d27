package customers

import (
	"context"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

// MockValidator — конфигурируемая заглушка CustomerValidator для тестов
// и локального запуска без внешнего customers API.
type MockValidator struct {
	Summary domain.CustomerSummary
	Err     error

	ValidateCalls int
}

// NewMockValidator возвращает mock с успешным сценарием по умолчанию:
// любой непустой customer_id считается существующим.
func NewMockValidator() *MockValidator {
	return &MockValidator{}
}

// Validate возвращает заранее настроенный ответ и считает вызовы.
func (m *MockValidator) Validate(_ context.Context, customerID string) (domain.CustomerSummary, error) {
	m.ValidateCalls++
	if m.Err != nil {
		return domain.CustomerSummary{}, m.Err
	}
	if customerID == "" {
		return domain.CustomerSummary{}, domain.ErrCustomerRequired
	}
	if m.Summary.ID != "" {
		return m.Summary, nil
	}
	return domain.CustomerSummary{ID: customerID}, nil
}

var _ domain.CustomerValidator = (*MockValidator)(nil)
