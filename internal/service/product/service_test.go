package product_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
	"github.com/vladislavdragonenkov/orderhub/internal/service/product"
	"github.com/vladislavdragonenkov/orderhub/internal/storage/memory"
)

func newService() *product.Service {
	return product.NewService(memory.NewStore(), nil)
}

func TestCreate_Success(t *testing.T) {
	svc := newService()

	created, err := svc.Create(context.Background(), product.CreateInput{
		SKU:        "SKU-001",
		Name:       "Widget",
		PriceMinor: 2500,
		Stock:      10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "SKU-001", created.SKU)
	require.False(t, created.CreatedAt.IsZero())

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)

	bySKU, err := svc.GetBySKU(context.Background(), "SKU-001")
	require.NoError(t, err)
	require.Equal(t, created.ID, bySKU.ID)
}

func TestCreate_Validation(t *testing.T) {
	svc := newService()

	tests := []struct {
		name    string
		input   product.CreateInput
		wantErr error
	}{
		{
			name:    "missing sku",
			input:   product.CreateInput{Name: "Widget", PriceMinor: 100, Stock: 1},
			wantErr: domain.ErrProductSKURequired,
		},
		{
			name:    "missing name",
			input:   product.CreateInput{SKU: "SKU-002", PriceMinor: 100, Stock: 1},
			wantErr: domain.ErrProductNameRequired,
		},
		{
			name:    "negative price",
			input:   product.CreateInput{SKU: "SKU-003", Name: "Widget", PriceMinor: -1, Stock: 1},
			wantErr: domain.ErrProductPriceInvalid,
		},
		{
			name:    "negative stock",
			input:   product.CreateInput{SKU: "SKU-004", Name: "Widget", PriceMinor: 100, Stock: -1},
			wantErr: domain.ErrProductStockInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.input)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreate_DuplicateSKU(t *testing.T) {
	svc := newService()

	_, err := svc.Create(context.Background(), product.CreateInput{
		SKU: "SKU-DUP", Name: "First", PriceMinor: 100, Stock: 1,
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), product.CreateInput{
		SKU: "SKU-DUP", Name: "Second", PriceMinor: 200, Stock: 2,
	})
	require.ErrorIs(t, err, domain.ErrDuplicateSKU)
}

func TestUpdate_PartialFields(t *testing.T) {
	svc := newService()

	created, err := svc.Create(context.Background(), product.CreateInput{
		SKU: "SKU-UPD", Name: "Widget", PriceMinor: 100, Stock: 5,
	})
	require.NoError(t, err)

	newPrice := int64(250)
	updated, err := svc.Update(context.Background(), created.ID, product.UpdateInput{
		PriceMinor: &newPrice,
	})
	require.NoError(t, err)
	require.Equal(t, int64(250), updated.PriceMinor)
	require.Equal(t, "Widget", updated.Name)
	require.Equal(t, int32(5), updated.Stock)
	require.Equal(t, "SKU-UPD", updated.SKU)
}

func TestUpdate_NotFound(t *testing.T) {
	svc := newService()

	name := "New name"
	_, err := svc.Update(context.Background(), "missing", product.UpdateInput{Name: &name})
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestSearch_ByQuery(t *testing.T) {
	svc := newService()

	for _, p := range []product.CreateInput{
		{SKU: "SKU-A1", Name: "Red Widget", PriceMinor: 100, Stock: 1},
		{SKU: "SKU-A2", Name: "Blue Widget", PriceMinor: 100, Stock: 1},
		{SKU: "SKU-B1", Name: "Gadget", PriceMinor: 100, Stock: 1},
	} {
		_, err := svc.Create(context.Background(), p)
		require.NoError(t, err)
	}

	widgets, _, err := svc.Search(context.Background(), domain.ProductFilter{Query: "widget"})
	require.NoError(t, err)
	require.Len(t, widgets, 2)

	bySKU, _, err := svc.Search(context.Background(), domain.ProductFilter{Query: "sku-b"})
	require.NoError(t, err)
	require.Len(t, bySKU, 1)
	require.Equal(t, "Gadget", bySKU[0].Name)
}
