package customers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

func TestClientValidate_Success(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/internal/customers/customer-1", r.URL.Path)
		require.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(domain.CustomerSummary{
			ID:    "customer-1",
			Name:  "Ivan Petrov",
			Email: "ivan@example.com",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-token", nil)

	summary, err := client.Validate(context.Background(), "customer-1")
	require.NoError(t, err)
	require.Equal(t, "customer-1", summary.ID)
	require.Equal(t, "Ivan Petrov", summary.Name)
}

func TestClientValidate_NotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-token", nil)

	_, err := client.Validate(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestClientValidate_ServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-token", nil)

	_, err := client.Validate(context.Background(), "customer-1")
	require.ErrorIs(t, err, domain.ErrCustomerServiceUnavailable)
}

func TestClientValidate_Unreachable(t *testing.T) {
	t.Parallel()

	// Закрытый сервер гарантирует транспортную ошибку.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, "secret-token", nil)

	_, err := client.Validate(context.Background(), "customer-1")
	require.ErrorIs(t, err, domain.ErrCustomerServiceUnavailable)
}

func TestClientValidate_EmptyCustomer(t *testing.T) {
	t.Parallel()

	client := NewClient("http://localhost:1", "token", nil)

	_, err := client.Validate(context.Background(), "  ")
	require.ErrorIs(t, err, domain.ErrCustomerRequired)
}
