package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/eventhive/eventhive/internal/orders/application"
	"github.com/eventhive/eventhive/internal/orders/domain"
)

type Handler struct {
	log      *slog.Logger
	service  *application.Service
	validate *validator.Validate
	tracer   trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
		tracer:   otel.Tracer("orders-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/order", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Get("/user/{username}", h.listUserOrders)
		r.Get("/user/{username}/events", h.listUserEvents)
		r.Get("/event/{eventId}/users", h.listEventUsers)
	})
	return r
}

type createOrderRequest struct {
	OrderID      string    `json:"order_id" validate:"required,uuid"`
	EventID      string    `json:"event_id" validate:"required"`
	TicketType   string    `json:"ticket_type" validate:"required"`
	Quantity     int       `json:"quantity" validate:"required,gt=0"`
	Username     string    `json:"username" validate:"required"`
	CheckoutDate time.Time `json:"checkout_date" validate:"required"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	order, err := h.service.Create(ctx, application.CreateOrderInput{
		OrderID:      req.OrderID,
		EventID:      req.EventID,
		TicketType:   req.TicketType,
		Quantity:     req.Quantity,
		Username:     req.Username,
		CheckoutDate: req.CheckoutDate,
	})
	if err != nil {
		if errors.Is(err, domain.ErrOrderConflict) {
			writeError(w, http.StatusConflict, "order_conflict", err.Error())
			return
		}
		h.log.Error("create order failed", "order_id", req.OrderID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, orderPayload(order))
}

func (h *Handler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	enriched, err := h.service.ListByUser(r.Context(), username)
	if err != nil {
		h.log.Error("list user orders failed", "username", username, "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	payload := make([]map[string]any, 0, len(enriched))
	for _, e := range enriched {
		p := orderPayload(e.Order)
		p["event"] = e.Event
		payload = append(payload, p)
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) listUserEvents(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.EventIDsByUser(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.log.Error("list user events failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func (h *Handler) listEventUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.UsernamesByEvent(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		h.log.Error("list event users failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func orderPayload(o domain.Order) map[string]any {
	return map[string]any{
		"order_id":      o.ID,
		"event_id":      o.EventID,
		"ticket_type":   o.TicketType,
		"quantity":      o.Quantity,
		"username":      o.Username,
		"checkout_date": o.CheckoutDate,
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
