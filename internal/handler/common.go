// Package handler defines the HTTP handlers of the booking service.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-slot-booking/internal/model"
	"github.com/iliyamo/event-slot-booking/internal/repository"
	"github.com/iliyamo/event-slot-booking/internal/service"
)

// respondError maps core errors onto HTTP responses. Unrecognized
// errors become an opaque 500; their details belong in the log, not on
// the wire.
func respondError(c echo.Context, err error) error {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "validation",
			"field":   ve.Field,
			"message": ve.Reason,
		})
	}
	var ice *service.InsufficientCapacityError
	if errors.As(err, &ice) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "insufficient_capacity",
			"remaining": ice.Remaining,
			"message":   ice.Error(),
		})
	}
	switch {
	case errors.Is(err, repository.ErrEventNotFound),
		errors.Is(err, repository.ErrSlotNotFound),
		errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": err.Error()})
	case errors.Is(err, repository.ErrAlreadyCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already_cancelled", "message": err.Error()})
	case errors.Is(err, service.ErrContention):
		return c.JSON(http.StatusConflict, echo.Map{"error": "contention", "message": err.Error()})
	case errors.Is(err, service.ErrEventPassed):
		return c.JSON(http.StatusGone, echo.Map{"error": "event_passed", "message": err.Error()})
	case errors.Is(err, service.ErrTokenExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "token_expired", "message": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_credentials"})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
}

// pathID parses a numeric :id path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, &service.ValidationError{Field: name, Reason: "must be a positive integer"}
	}
	return id, nil
}

// adminActor renders the authenticated admin as a cancelled_by value,
// e.g. "admin:3". JWTAuth stores the subject claim as a float64 because
// it travels through JSON.
func adminActor(c echo.Context) string {
	switch v := c.Get("admin_id").(type) {
	case float64:
		return fmt.Sprintf("admin:%d", uint64(v))
	case uint64:
		return fmt.Sprintf("admin:%d", v)
	case string:
		return "admin:" + v
	}
	return "admin"
}

// bookingView is the wire shape of a booking.
type bookingView struct {
	Token          string                                     `json:"token"`
	EventID        uint64                                     `json:"event_id"`
	SlotDate       string                                     `json:"slot_date"`
	SlotTime       string                                     `json:"slot_time"`
	SeatCount      uint32                                     `json:"seat_count"`
	Holder         model.Holder                               `json:"holder"`
	Status         model.BookingStatus                        `json:"status"`
	TokenExpiresAt time.Time                                  `json:"token_expires_at"`
	CancelledAt    *time.Time                                 `json:"cancelled_at,omitempty"`
	CancelledBy    *string                                    `json:"cancelled_by,omitempty"`
	Reminders      map[model.ReminderType]model.ReminderState `json:"reminders"`
	CreatedAt      time.Time                                  `json:"created_at"`
}

func viewOf(b *model.Booking) bookingView {
	reminders := b.Reminders
	if reminders == nil {
		reminders = map[model.ReminderType]model.ReminderState{}
	}
	return bookingView{
		Token:          b.Token,
		EventID:        b.EventID,
		SlotDate:       b.SlotDate,
		SlotTime:       b.SlotTime,
		SeatCount:      b.SeatCount,
		Holder:         b.Holder,
		Status:         b.Status,
		TokenExpiresAt: b.TokenExpiresAt,
		CancelledAt:    b.CancelledAt,
		CancelledBy:    b.CancelledBy,
		Reminders:      reminders,
		CreatedAt:      b.CreatedAt,
	}
}
