// Package http exposes the gateway's public API: event browsing, the
// reservation flow, and the per-user views. Admin routes for event
// management require a manager session.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/eventhive/eventhive/internal/gateway/application"
	"github.com/eventhive/eventhive/internal/gateway/session"
)

type Handler struct {
	log       *slog.Logger
	verifier  session.Verifier
	events    application.EventsGateway
	orders    application.OrdersGateway
	checkout  *application.CheckoutService
	nextEvent *application.NextEventService
	validate  *validator.Validate
	tracer    trace.Tracer
}

func NewHandler(
	log *slog.Logger,
	verifier session.Verifier,
	events application.EventsGateway,
	orders application.OrdersGateway,
	checkout *application.CheckoutService,
	nextEvent *application.NextEventService,
) *Handler {
	return &Handler{
		log:       log,
		verifier:  verifier,
		events:    events,
		orders:    orders,
		checkout:  checkout,
		nextEvent: nextEvent,
		validate:  validator.New(),
		tracer:    otel.Tracer("gateway-http"),
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.authenticate)

	r.Route("/api/event", func(r chi.Router) {
		r.Get("/", h.proxyEvents)
		r.Get("/{id}", h.proxyEvents)

		r.Group(func(r chi.Router) {
			r.Use(h.requireManager)
			r.Post("/", h.proxyEvents)
			r.Put("/{id}/date", h.proxyEvents)
			r.Put("/{id}/ticket", h.proxyEvents)
		})

		r.Post("/lock", h.lock)
		r.Post("/unlock", h.unlock)
	})

	r.Route("/api/order", func(r chi.Router) {
		r.Use(h.requireManager)
		r.Get("/user/{username}", h.proxyOrders)
		r.Get("/user/{username}/events", h.proxyOrders)
		r.Get("/event/{eventId}/users", h.proxyOrders)
	})

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/checkout", h.checkoutHandler)
		r.Get("/orders", h.userOrders)
		r.Get("/next-event", h.userNextEvent)
	})

	return r
}

type ctxKey int

const sessionKey ctxKey = 0

func sessionFrom(ctx context.Context) session.Session {
	s, _ := ctx.Value(sessionKey).(session.Session)
	return s
}

// authenticate resolves the caller's token from the "token" cookie or an
// Authorization bearer header and stores the session on the context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if c, err := r.Cookie("token"); err == nil {
			token = c.Value
		}
		if token == "" {
			if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				token = bearer
			}
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing credentials")
			return
		}

		s, err := h.verifier.Verify(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sessionFrom(r.Context()).CanManageEvents() {
			writeError(w, http.StatusForbidden, "forbidden", "insufficient permission")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// proxyEvents relays the request to the events service and returns the
// downstream response verbatim.
func (h *Handler) proxyEvents(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, h.events.Proxy)
}

func (h *Handler) proxyOrders(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, h.orders.Proxy)
}

func (h *Handler) proxy(w http.ResponseWriter, r *http.Request, call func(context.Context, string, string, io.Reader) (int, []byte, error)) {
	path := r.URL.Path
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	var body io.Reader
	if r.Body != nil {
		body = r.Body
	}
	status, respBody, err := call(r.Context(), r.Method, path, body)
	if err != nil {
		h.log.Error("proxy failed", "method", r.Method, "path", path, "err", err)
		writeError(w, http.StatusBadGateway, "upstream_unavailable", "upstream unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(respBody)
}

type lockRequest struct {
	EventID    string `json:"event_id" validate:"required"`
	TicketType string `json:"ticket_type" validate:"required"`
	Quantity   int    `json:"quantity" validate:"gt=0"`
}

// lock places a hold in the session user's name. The username always comes
// from the session, never the request body.
func (h *Handler) lock(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Lock")
	defer span.End()

	var req lockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	s := sessionFrom(ctx)
	lock, err := h.checkout.Reserve(ctx, s.Username, req.EventID, req.TicketType, req.Quantity)
	if err != nil {
		h.writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lock)
}

type lockIDRequest struct {
	LockID string `json:"lock_id" validate:"required"`
}

func (h *Handler) unlock(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Unlock")
	defer span.End()

	var req lockIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	if err := h.checkout.Release(ctx, req.LockID); err != nil {
		h.writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

func (h *Handler) checkoutHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Checkout")
	defer span.End()

	var req lockIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	order, err := h.checkout.Checkout(ctx, req.LockID)
	if err != nil {
		h.writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) userOrders(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	path := "/api/order/user/" + url.PathEscape(s.Username)

	status, body, err := h.orders.Proxy(r.Context(), http.MethodGet, path, nil)
	if err != nil {
		h.log.Error("list orders failed", "username", s.Username, "err", err)
		writeError(w, http.StatusBadGateway, "upstream_unavailable", "upstream unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (h *Handler) userNextEvent(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	next, ok, err := h.nextEvent.Get(r.Context(), s.Username)
	if err != nil {
		h.log.Error("next event lookup failed", "username", s.Username, "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no_upcoming_event", "no upcoming event")
		return
	}
	writeJSON(w, http.StatusOK, next)
}

func (h *Handler) writeGatewayError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
	case errors.Is(err, application.ErrInsufficientInventory):
		writeError(w, http.StatusBadRequest, "insufficient_inventory", err.Error())
	case errors.Is(err, application.ErrCheckoutExpired):
		writeError(w, http.StatusGone, "checkout_expired", err.Error())
	case errors.Is(err, application.ErrLockNotFound):
		writeError(w, http.StatusNotFound, "lock_not_found", err.Error())
	case errors.Is(err, application.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "event_not_found", err.Error())
	default:
		h.log.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
