package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"ticketing/entity"
)

// InventoryClient reads ticket details from the event service's internal
// endpoint.
type InventoryClient struct {
	baseURL      string
	serviceToken string
	httpClient   *http.Client
}

func NewInventoryClient(baseURL, serviceToken string) *InventoryClient {
	return &InventoryClient{
		baseURL:      baseURL,
		serviceToken: serviceToken,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *InventoryClient) GetTicketDetails(ctx context.Context, code string) (entity.TicketDetails, error) {
	endpoint := fmt.Sprintf("%s/tickets/%s", c.baseURL, url.PathEscape(code))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return entity.TicketDetails{}, fmt.Errorf("could not build ticket details request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return entity.TicketDetails{}, fmt.Errorf("could not get ticket %s: %w", code, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return entity.TicketDetails{}, entity.ErrNotFound
	default:
		return entity.TicketDetails{}, fmt.Errorf("unexpected status code for GET /tickets/%s: %d", code, resp.StatusCode)
	}

	var details entity.TicketDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return entity.TicketDetails{}, fmt.Errorf("could not decode ticket details: %w", err)
	}

	return details, nil
}
