package application

import (
	"context"
	"strings"
	"time"

	"github.com/eventhive/eventhive/internal/events/domain"
	"github.com/eventhive/eventhive/pkg/clock"
)

const defaultPageSize = 10

// EventService covers event metadata CRUD and the admin-facing quantity
// adjustment. The reservation protocol lives in ReservationService.
type EventService struct {
	repo  EventRepository
	clock clock.Clock
}

func NewEventService(repo EventRepository, clk clock.Clock) *EventService {
	return &EventService{repo: repo, clock: clk}
}

type CreateEventInput struct {
	Name        string
	Category    string
	Description string
	Location    string
	StartDate   time.Time
	EndDate     time.Time
	TicketTypes []domain.TicketType
}

func (s *EventService) Create(ctx context.Context, in CreateEventInput) (domain.Event, error) {
	ev := domain.Event{
		Name:        strings.TrimSpace(in.Name),
		Category:    in.Category,
		Description: in.Description,
		Location:    in.Location,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		CreatedAt:   s.clock.Now(),
	}
	for _, tt := range in.TicketTypes {
		if tt.Total < 0 {
			return domain.Event{}, domain.ErrInvalidQuantity
		}
		// New ticket types start fully available.
		ev.TicketTypes = append(ev.TicketTypes, domain.TicketType{
			Name:       tt.Name,
			PriceCents: tt.PriceCents,
			Total:      tt.Total,
			Available:  tt.Total,
		})
	}
	return s.repo.Create(ctx, ev)
}

func (s *EventService) Get(ctx context.Context, id string) (domain.Event, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *EventService) List(ctx context.Context, page int) ([]domain.Event, error) {
	if page < 1 {
		page = 1
	}
	return s.repo.List(ctx, page, defaultPageSize)
}

// UpdateDates updates whichever of start/end is non-nil. Both nil is a
// no-op: the stored event is returned unchanged.
func (s *EventService) UpdateDates(ctx context.Context, id string, start, end *time.Time) (domain.Event, error) {
	if start == nil && end == nil {
		return s.repo.GetByID(ctx, id)
	}
	return s.repo.UpdateDates(ctx, id, start, end)
}

// AdjustQuantity shifts a ticket type's stock by delta (admin operation):
// total and available move together, and the adjustment fails when either
// would go negative.
func (s *EventService) AdjustQuantity(ctx context.Context, eventID, ticketType string, delta int) (domain.TicketType, error) {
	if delta == 0 {
		return domain.TicketType{}, domain.ErrInvalidQuantity
	}
	return s.repo.AdjustQuantity(ctx, eventID, ticketType, delta)
}
