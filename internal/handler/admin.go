package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-slot-booking/internal/service"
)

// AdminHandler serves the operator endpoints: login, manual
// cancellation, booking listings and on-demand job runs.
type AdminHandler struct {
	auth      service.AuthService
	bookings  service.BookingService
	reminders service.ReminderService
	statuses  service.StatusService
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(auth service.AuthService, bookings service.BookingService, reminders service.ReminderService, statuses service.StatusService) *AdminHandler {
	if auth == nil || bookings == nil || reminders == nil || statuses == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{auth: auth, bookings: bookings, reminders: reminders, statuses: statuses}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges admin credentials for a bearer token.
func (h *AdminHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "malformed request body"})
	}
	token, exp, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"access_token": token, "expires_at": exp})
}

// CancelBooking cancels any booking on behalf of an admin. Unlike the
// magic-link route this works regardless of token expiry checks on the
// visitor side, but still refuses once the event day is over.
func (h *AdminHandler) CancelBooking(c echo.Context) error {
	b, err := h.bookings.Cancel(c.Request().Context(), c.Param("token"), adminActor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(b))
}

// ListEventBookings returns every booking of an event.
func (h *AdminHandler) ListEventBookings(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	list, err := h.bookings.ListEventBookings(c.Request().Context(), eventID)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]bookingView, 0, len(list))
	for _, b := range list {
		out = append(out, viewOf(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// DispatchReminders runs one reminder dispatch immediately. The same
// code path runs on a schedule in the jobs binary; this route exists
// for operations and testing.
func (h *AdminHandler) DispatchReminders(c echo.Context) error {
	sum, err := h.reminders.Dispatch(c.Request().Context(), time.Now().UTC())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

// RefreshStatuses recomputes every event status immediately.
func (h *AdminHandler) RefreshStatuses(c echo.Context) error {
	sum, err := h.statuses.Refresh(c.Request().Context(), time.Now().UTC())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}
