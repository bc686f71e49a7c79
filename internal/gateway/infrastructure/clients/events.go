// Package clients implements the gateway's HTTP clients for the events and
// orders services. All calls carry the service bearer key and a bounded
// timeout; a timeout is an error, never a success.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/eventhive/eventhive/internal/gateway/application"
	"github.com/eventhive/eventhive/pkg/apikey"
)

const clientTimeout = 5 * time.Second

type EventsClient struct {
	baseURL string
	http    *http.Client
}

func NewEventsClient(baseURL, key string) *EventsClient {
	return &EventsClient{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   clientTimeout,
			Transport: &apikey.Transport{Key: key},
		},
	}
}

func (c *EventsClient) Proxy(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	return doProxy(ctx, c.http, c.baseURL, method, path, body)
}

func (c *EventsClient) GetEventInfo(ctx context.Context, id string) (application.EventInfo, error) {
	status, body, err := c.Proxy(ctx, http.MethodGet, "/api/event/"+url.PathEscape(id), nil)
	if err != nil {
		return application.EventInfo{}, err
	}
	if status != http.StatusOK {
		return application.EventInfo{}, decodeError(status, body)
	}

	var payload struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		StartDate time.Time `json:"start_date"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return application.EventInfo{}, fmt.Errorf("decode event: %w", err)
	}
	return application.EventInfo{EventID: payload.ID, Name: payload.Name, StartDate: payload.StartDate}, nil
}

func (c *EventsClient) Lock(ctx context.Context, eventID, ticketType string, quantity int, username string) (application.LockInfo, error) {
	reqBody, _ := json.Marshal(map[string]any{
		"event_id":    eventID,
		"ticket_type": ticketType,
		"quantity":    quantity,
		"username":    username,
	})
	status, body, err := c.Proxy(ctx, http.MethodPost, "/api/event/lock", bytes.NewReader(reqBody))
	if err != nil {
		return application.LockInfo{}, err
	}
	if status != http.StatusCreated {
		return application.LockInfo{}, decodeError(status, body)
	}

	var lock application.LockInfo
	if err := json.Unmarshal(body, &lock); err != nil {
		return application.LockInfo{}, fmt.Errorf("decode lock: %w", err)
	}
	return lock, nil
}

func (c *EventsClient) Unlock(ctx context.Context, lockID string) error {
	reqBody, _ := json.Marshal(map[string]string{"lock_id": lockID})
	status, body, err := c.Proxy(ctx, http.MethodPost, "/api/event/unlock", bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return decodeError(status, body)
	}
	return nil
}

func (c *EventsClient) Commit(ctx context.Context, lockID string) (application.LockInfo, error) {
	reqBody, _ := json.Marshal(map[string]string{"lock_id": lockID})
	status, body, err := c.Proxy(ctx, http.MethodPost, "/api/event/commit", bytes.NewReader(reqBody))
	if err != nil {
		return application.LockInfo{}, err
	}
	if status != http.StatusOK {
		return application.LockInfo{}, decodeError(status, body)
	}

	var lock application.LockInfo
	if err := json.Unmarshal(body, &lock); err != nil {
		return application.LockInfo{}, fmt.Errorf("decode lock: %w", err)
	}
	return lock, nil
}

func doProxy(ctx context.Context, client *http.Client, baseURL, method, path string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// decodeError maps a downstream error body to a sentinel the application
// layer understands. Unknown codes collapse to a generic error; the caller
// surfaces those as an opaque 500.
func decodeError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	_ = json.Unmarshal(body, &payload)

	switch payload.Code {
	case "insufficient_inventory":
		return application.ErrInsufficientInventory
	case "lock_not_found":
		return application.ErrLockNotFound
	case "event_not_found", "ticket_type_not_found":
		return application.ErrEventNotFound
	case "invalid_request_body", "invalid_quantity":
		return fmt.Errorf("%w: %s", application.ErrInvalidRequest, payload.Error)
	default:
		return fmt.Errorf("downstream returned %d: %s", status, payload.Error)
	}
}
