package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-slot-booking/internal/model"
	"github.com/iliyamo/event-slot-booking/internal/service"
)

// BookingHandler serves the visitor-facing booking endpoints: reserve,
// look up by magic link and cancel by magic link.
type BookingHandler struct {
	svc service.BookingService
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(svc service.BookingService) *BookingHandler {
	if svc == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{svc: svc}
}

// reserveRequest is the POST /v1/events/:id/reservations body. The slot
// may be given either as the composite "date|time" key or as separate
// date and time fields.
type reserveRequest struct {
	SlotKey   string `json:"slot_key"`
	SlotDate  string `json:"slot_date"`
	SlotTime  string `json:"slot_time"`
	SeatCount uint32 `json:"seat_count"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Reserve books seats on one slot of an event and returns the booking
// with its management token.
func (h *BookingHandler) Reserve(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req reserveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "malformed request body"})
	}
	date, tm := req.SlotDate, req.SlotTime
	if req.SlotKey != "" {
		if date, tm, err = model.ParseSlotKey(req.SlotKey); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "field": "slot_key", "message": "must be \"YYYY-MM-DD|HH:MM\""})
		}
	}

	b, err := h.svc.Reserve(c.Request().Context(), service.ReserveInput{
		EventID:   eventID,
		SlotDate:  date,
		SlotTime:  tm,
		SeatCount: req.SeatCount,
		Holder:    model.Holder{Name: req.Name, Email: req.Email, Phone: req.Phone},
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, reserveResponse{
		bookingView: viewOf(b),
		ManagePath:  "/v1/bookings/" + b.Token,
	})
}

// reserveResponse is the booking plus the relative magic-link path the
// caller embeds in the confirmation page.
type reserveResponse struct {
	bookingView
	ManagePath string `json:"manage_path"`
}

// Get resolves a booking through its magic link token.
func (h *BookingHandler) Get(c echo.Context) error {
	b, err := h.svc.GetByToken(c.Request().Context(), c.Param("token"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(b))
}

// Cancel cancels a booking through its magic link token and frees its
// seats.
func (h *BookingHandler) Cancel(c echo.Context) error {
	b, err := h.svc.Cancel(c.Request().Context(), c.Param("token"), service.ActorVisitor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(b))
}
