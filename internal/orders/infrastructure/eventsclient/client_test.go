package eventsclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eventhive/eventhive/internal/orders/domain"
)

func TestGetEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer svc-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/api/event/ev1":
			_, _ = w.Write([]byte(`{"id":"ev1","name":"Go Conf"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	client := New(srv.URL, "svc-key")

	t.Run("returns the raw event document", func(t *testing.T) {
		body, err := client.GetEvent(context.Background(), "ev1")
		if err != nil {
			t.Fatalf("GetEvent: %v", err)
		}
		if string(body) != `{"id":"ev1","name":"Go Conf"}` {
			t.Fatalf("body = %s", body)
		}
	})

	t.Run("a 404 maps to the orders sentinel", func(t *testing.T) {
		if _, err := client.GetEvent(context.Background(), "nope"); !errors.Is(err, domain.ErrEventNotFound) {
			t.Fatalf("GetEvent = %v, want ErrEventNotFound", err)
		}
	})
}
