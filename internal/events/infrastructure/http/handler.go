package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/eventhive/eventhive/internal/events/application"
	"github.com/eventhive/eventhive/internal/events/domain"
)

type Handler struct {
	log          *slog.Logger
	events       *application.EventService
	reservations *application.ReservationService
	validate     *validator.Validate
	tracer       trace.Tracer
}

func NewHandler(log *slog.Logger, events *application.EventService, reservations *application.ReservationService) *Handler {
	return &Handler{
		log:          log,
		events:       events,
		reservations: reservations,
		validate:     validator.New(),
		tracer:       otel.Tracer("events-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/event", func(r chi.Router) {
		r.Post("/", h.createEvent)
		r.Get("/", h.listEvents)
		r.Get("/{id}", h.getEvent)
		r.Put("/{id}/date", h.updateDates)
		r.Put("/{id}/ticket", h.adjustTicket)
		r.Post("/lock", h.lock)
		r.Post("/unlock", h.unlock)
		r.Post("/commit", h.commit)
	})
	return r
}

type ticketTypePayload struct {
	Name       string `json:"name" validate:"required"`
	PriceCents int64  `json:"price_cents" validate:"gte=0"`
	Quantity   int    `json:"quantity" validate:"gte=0"`
}

type createEventRequest struct {
	Name        string              `json:"name" validate:"required"`
	Category    string              `json:"category"`
	Description string              `json:"description"`
	Location    string              `json:"location"`
	StartDate   time.Time           `json:"start_date" validate:"required"`
	EndDate     time.Time           `json:"end_date" validate:"required,gtefield=StartDate"`
	TicketTypes []ticketTypePayload `json:"tickets" validate:"required,min=1,dive"`
}

func (h *Handler) createEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, err.Error())
		return
	}

	in := application.CreateEventInput{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Location:    req.Location,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	for _, tt := range req.TicketTypes {
		in.TicketTypes = append(in.TicketTypes, domain.TicketType{
			Name:       tt.Name,
			PriceCents: tt.PriceCents,
			Total:      tt.Quantity,
		})
	}

	ev, err := h.events.Create(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, eventPayload(ev))
}

func (h *Handler) getEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := h.events.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eventPayload(ev))
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	events, err := h.events.List(r.Context(), page)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	payload := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		payload = append(payload, eventPayload(ev))
	}
	writeJSON(w, http.StatusOK, payload)
}

type updateDatesRequest struct {
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

func (h *Handler) updateDates(w http.ResponseWriter, r *http.Request) {
	var req updateDatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "invalid request body")
		return
	}
	ev, err := h.events.UpdateDates(r.Context(), chi.URLParam(r, "id"), req.StartDate, req.EndDate)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eventPayload(ev))
}

type adjustTicketRequest struct {
	TicketType string `json:"ticket_type" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required"`
}

func (h *Handler) adjustTicket(w http.ResponseWriter, r *http.Request) {
	var req adjustTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, err.Error())
		return
	}

	tt, err := h.events.AdjustQuantity(r.Context(), chi.URLParam(r, "id"), req.TicketType, req.Quantity)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ticket_type": tt.Name,
		"price_cents": tt.PriceCents,
		"total":       tt.Total,
		"available":   tt.Available,
	})
}

type lockRequest struct {
	EventID    string `json:"event_id" validate:"required"`
	TicketType string `json:"ticket_type" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
	Username   string `json:"username" validate:"required"`
}

func (h *Handler) lock(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "LockTicket")
	defer span.End()

	var req lockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
		return
	}

	lock, err := h.reservations.Lock(ctx, req.EventID, req.TicketType, req.Quantity, req.Username)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lockPayload(lock))
}

// unlockRequest mirrors the historical wire format: callers send back the
// event, type, and quantity alongside the lock ID. Only the lock ID is
// trusted; the stored lock decides what quantity is restored.
type unlockRequest struct {
	LockID     string `json:"lock_id" validate:"required"`
	EventID    string `json:"event_id"`
	TicketType string `json:"ticket_type"`
	Quantity   int    `json:"quantity"`
}

func (h *Handler) unlock(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UnlockTicket")
	defer span.End()

	var req unlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, err.Error())
		return
	}

	if err := h.reservations.Unlock(ctx, req.LockID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "ticket unlocked or already expired"})
}

type commitRequest struct {
	LockID string `json:"lock_id" validate:"required"`
}

func (h *Handler) commit(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CommitTicket")
	defer span.End()

	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidBody, err.Error())
		return
	}

	lock, err := h.reservations.Commit(ctx, req.LockID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lockPayload(lock))
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrInsufficientInventory):
		writeError(w, http.StatusBadRequest, codeInsufficientInventory, err.Error())
	case errors.Is(err, domain.ErrLockNotFound):
		writeError(w, http.StatusNotFound, codeLockNotFound, err.Error())
	case errors.Is(err, domain.ErrEventNotFound):
		writeError(w, http.StatusNotFound, codeEventNotFound, err.Error())
	case errors.Is(err, domain.ErrTicketTypeNotFound):
		writeError(w, http.StatusNotFound, codeTicketTypeNotFound, err.Error())
	default:
		h.log.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func eventPayload(ev domain.Event) map[string]any {
	tickets := make([]map[string]any, 0, len(ev.TicketTypes))
	for _, tt := range ev.TicketTypes {
		tickets = append(tickets, map[string]any{
			"name":        tt.Name,
			"price_cents": tt.PriceCents,
			"total":       tt.Total,
			"available":   tt.Available,
		})
	}
	return map[string]any{
		"id":          ev.ID,
		"name":        ev.Name,
		"category":    ev.Category,
		"description": ev.Description,
		"location":    ev.Location,
		"start_date":  ev.StartDate,
		"end_date":    ev.EndDate,
		"tickets":     tickets,
	}
}

func lockPayload(lock domain.Lock) map[string]any {
	return map[string]any{
		"lock_id":     lock.ID,
		"event_id":    lock.EventID,
		"ticket_type": lock.TicketType,
		"quantity":    lock.Quantity,
		"username":    lock.Holder,
		"expires_at":  lock.ExpiresAt,
	}
}
