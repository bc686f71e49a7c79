package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eventhive/eventhive/internal/gateway/application"
	"github.com/eventhive/eventhive/pkg/apikey"
)

type OrdersClient struct {
	baseURL string
	http    *http.Client
}

func NewOrdersClient(baseURL, key string) *OrdersClient {
	return &OrdersClient{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   clientTimeout,
			Transport: &apikey.Transport{Key: key},
		},
	}
}

func (c *OrdersClient) Proxy(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	return doProxy(ctx, c.http, c.baseURL, method, path, body)
}

func (c *OrdersClient) CreateOrder(ctx context.Context, order application.OrderInfo) (application.OrderInfo, error) {
	reqBody, err := json.Marshal(map[string]any{
		"order_id":      order.OrderID,
		"event_id":      order.EventID,
		"ticket_type":   order.TicketType,
		"quantity":      order.Quantity,
		"username":      order.Username,
		"checkout_date": order.CheckoutDate.Format(time.RFC3339Nano),
	})
	if err != nil {
		return application.OrderInfo{}, fmt.Errorf("encode order: %w", err)
	}

	status, body, err := c.Proxy(ctx, http.MethodPost, "/api/order", bytes.NewReader(reqBody))
	if err != nil {
		return application.OrderInfo{}, err
	}
	// 200 means the order already existed; the retry is satisfied either way.
	if status != http.StatusCreated && status != http.StatusOK {
		return application.OrderInfo{}, decodeError(status, body)
	}

	var created application.OrderInfo
	if err := json.Unmarshal(body, &created); err != nil {
		return application.OrderInfo{}, fmt.Errorf("decode order: %w", err)
	}
	return created, nil
}
