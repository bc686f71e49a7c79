// Package eventsclient is the orders service's HTTP client for the events
// service, used to enrich order listings with event details.
package eventsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/eventhive/eventhive/internal/orders/domain"
	"github.com/eventhive/eventhive/pkg/apikey"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL, key string) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   5 * time.Second,
			Transport: &apikey.Transport{Key: key},
		},
	}
}

func (c *Client) GetEvent(ctx context.Context, id string) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/api/event/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch event: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read event response: %w", err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, domain.ErrEventNotFound
	default:
		return nil, fmt.Errorf("events service returned %d", resp.StatusCode)
	}
}
