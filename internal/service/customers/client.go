package customers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

const defaultRequestTimeout = 5 * time.Second

// Client проверяет существование клиента во внешнем customers API.
// Отсутствие клиента (404) — доменная ошибка ErrCustomerNotFound;
// любой транспортный или серверный сбой оборачивает ErrCustomerServiceUnavailable.
type Client struct {
	baseURL      string
	serviceToken string
	httpClient   *http.Client
	logger       *log.Entry
}

// NewClient создаёт HTTP-клиент customers API.
func NewClient(baseURL, serviceToken string, logger *log.Entry) *Client {
	if logger == nil {
		logger = log.New().WithField("component", "customers-client")
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		serviceToken: serviceToken,
		httpClient:   &http.Client{Timeout: defaultRequestTimeout},
		logger:       logger,
	}
}

// Validate запрашивает клиента по внутреннему API.
func (c *Client) Validate(ctx context.Context, customerID string) (domain.CustomerSummary, error) {
	if strings.TrimSpace(customerID) == "" {
		return domain.CustomerSummary{}, domain.ErrCustomerRequired
	}

	endpoint := c.baseURL + "/internal/customers/" + url.PathEscape(customerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.CustomerSummary{}, fmt.Errorf("build customers request: %w", err)
	}
	if c.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceToken)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("customer_id", customerID).Warn("customers api request failed")
		return domain.CustomerSummary{}, fmt.Errorf("%w: %v", domain.ErrCustomerServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var summary domain.CustomerSummary
		if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
			return domain.CustomerSummary{}, fmt.Errorf("%w: decode response: %v", domain.ErrCustomerServiceUnavailable, err)
		}
		return summary, nil
	case resp.StatusCode == http.StatusNotFound:
		return domain.CustomerSummary{}, domain.ErrCustomerNotFound
	default:
		c.logger.WithFields(log.Fields{
			"customer_id": customerID,
			"status":      resp.StatusCode,
		}).Warn("customers api returned unexpected status")
		return domain.CustomerSummary{}, fmt.Errorf("%w: unexpected status %d", domain.ErrCustomerServiceUnavailable, resp.StatusCode)
	}
}

var _ domain.CustomerValidator = (*Client)(nil)
