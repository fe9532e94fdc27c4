package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-slot-booking/internal/repository"
	"github.com/iliyamo/event-slot-booking/internal/service"
)

// PublicHandler serves the unauthenticated read endpoints: the event
// list and the per-slot availability view.
type PublicHandler struct {
	events   repository.EventRepository
	bookings service.BookingService
}

// NewPublicHandler constructs a PublicHandler.
func NewPublicHandler(events repository.EventRepository, bookings service.BookingService) *PublicHandler {
	if events == nil || bookings == nil {
		panic("nil dependency passed to NewPublicHandler")
	}
	return &PublicHandler{events: events, bookings: bookings}
}

// ListEvents returns every event with its public status.
func (h *PublicHandler) ListEvents(c echo.Context) error {
	events, err := h.events.ListAll(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	out := make([]echo.Map, 0, len(events))
	for _, ev := range events {
		out = append(out, echo.Map{
			"id":       ev.ID,
			"title":    ev.Title,
			"location": ev.Location,
			"status":   ev.Status,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"events": out})
}

// Availability returns the remaining capacity of every slot of an
// event. The route sits behind the Redis response cache, so hot events
// do not hammer the database.
func (h *PublicHandler) Availability(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	av, err := h.bookings.EventAvailability(c.Request().Context(), eventID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, av)
}
