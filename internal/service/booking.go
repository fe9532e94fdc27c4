package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-slot-booking/internal/model"
	"github.com/iliyamo/event-slot-booking/internal/queue"
	"github.com/iliyamo/event-slot-booking/internal/repository"
)

// ActorVisitor is recorded as cancelled_by when the holder cancels
// through the magic link.
const ActorVisitor = "visitor"

const (
	// maxSeatsPerBooking caps one reservation. Larger groups book twice.
	maxSeatsPerBooking = 50

	// reserveAttempts bounds the optimistic retry loop. Conflicts are
	// rare and resolve within a retry or two; anything still conflicting
	// after three attempts is genuine contention worth surfacing.
	reserveAttempts = 3
	reserveBackoff  = 25 * time.Millisecond
)

// Bookings implements BookingService. All time arithmetic runs in UTC;
// slot dates and times are stored without zone and interpreted in UTC
// throughout the system.
type Bookings struct {
	events   repository.EventRepository
	bookings repository.BookingRepository
	pub      Publisher
	log      *logrus.Logger

	// Injected for tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// NewBookings wires a booking service over the given repositories and
// publisher.
func NewBookings(events repository.EventRepository, bookings repository.BookingRepository, pub Publisher, log *logrus.Logger) *Bookings {
	return &Bookings{
		events:   events,
		bookings: bookings,
		pub:      pub,
		log:      log,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Reserve books seats on a slot. The capacity check and the counter
// increment happen atomically in the repository; this method wraps that
// unit in a bounded retry loop so that a visitor who merely raced
// another visitor, and whose slot still has room, never sees an error.
// A genuine shortage is reported as InsufficientCapacityError with the
// seats still available and is never retried.
func (s *Bookings) Reserve(ctx context.Context, in ReserveInput) (*model.Booking, error) {
	if err := validateReserve(in); err != nil {
		return nil, err
	}

	ev, err := s.events.GetByID(ctx, in.EventID)
	if err != nil {
		return nil, err
	}

	expiresAt, err := model.EndOfEventDay(in.SlotDate, time.UTC)
	if err != nil {
		return nil, &ValidationError{Field: "slot_date", Reason: err.Error()}
	}

	for attempt := 1; ; attempt++ {
		slot, err := s.events.GetSlot(ctx, in.EventID, in.SlotDate, in.SlotTime)
		if err != nil {
			return nil, err
		}
		// Judged after the slot lookup: a date with no slot at all is
		// not-found, not passed.
		if s.now().UTC().After(expiresAt) {
			return nil, ErrEventPassed
		}
		if slot.Remaining() < in.SeatCount {
			return nil, &InsufficientCapacityError{Remaining: slot.Remaining()}
		}

		token, err := IssueToken(uuid.NewString() + in.Holder.Email)
		if err != nil {
			return nil, err
		}
		b := &model.Booking{
			Token:          token,
			EventID:        in.EventID,
			SlotDate:       in.SlotDate,
			SlotTime:       in.SlotTime,
			SeatCount:      in.SeatCount,
			Holder:         in.Holder,
			Status:         model.BookingStatusConfirmed,
			TokenExpiresAt: expiresAt,
			Reminders:      make(map[model.ReminderType]model.ReminderState),
		}

		err = s.bookings.CreateWithReservation(ctx, b, slot.Version)
		if err == nil {
			s.afterReserve(ctx, ev, b)
			return b, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, err
		}
		if attempt >= reserveAttempts {
			s.log.WithFields(logrus.Fields{
				"event_id": in.EventID,
				"slot":     model.MakeSlotKey(in.SlotDate, in.SlotTime),
				"attempts": attempt,
			}).Warn("reservation gave up after repeated version conflicts")
			return nil, ErrContention
		}
		s.sleep(time.Duration(attempt) * reserveBackoff)
	}
}

// afterReserve runs the best-effort follow-ups of a committed
// reservation: the opportunistic sold-out flip and the confirmation
// message. Neither can fail the reservation itself.
func (s *Bookings) afterReserve(ctx context.Context, ev *model.Event, b *model.Booking) {
	full, err := s.events.AllSlotsFull(ctx, ev.ID)
	if err != nil {
		s.log.WithError(err).WithField("event_id", ev.ID).Warn("sold-out check failed")
	} else if full {
		if _, err := s.events.UpdateStatus(ctx, ev.ID, model.EventStatusSoldOut); err != nil {
			s.log.WithError(err).WithField("event_id", ev.ID).Warn("sold-out flip failed")
		}
	}

	msg := queue.BookingConfirmedMessage{
		Token:       b.Token,
		EventID:     ev.ID,
		EventTitle:  ev.Title,
		Location:    ev.Location,
		SlotDate:    b.SlotDate,
		SlotTime:    b.SlotTime,
		SeatCount:   b.SeatCount,
		HolderName:  b.Holder.Name,
		HolderEmail: b.Holder.Email,
		ConfirmedAt: s.now().UTC().Format(time.RFC3339),
	}
	_ = s.pub.PublishBookingConfirmed(ctx, msg)
}

// GetByToken resolves a magic link. Expired links report
// ErrTokenExpired instead of the booking so handlers can answer 410.
func (s *Bookings) GetByToken(ctx context.Context, token string) (*model.Booking, error) {
	b, err := s.bookings.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if s.now().UTC().After(b.TokenExpiresAt) {
		return nil, ErrTokenExpired
	}
	return b, nil
}

// Cancel releases a booking's seats back to its slot. The status
// transition and the ledger decrement commit together in the
// repository; here the service guards the time window, logs any ledger
// clamp and runs the best-effort follow-ups.
func (s *Bookings) Cancel(ctx context.Context, token, actor string) (*model.Booking, error) {
	b, err := s.bookings.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if now.After(b.TokenExpiresAt) {
		return nil, ErrEventPassed
	}

	b, clamped, err := s.bookings.Cancel(ctx, token, now, actor)
	if err != nil {
		return nil, err
	}
	if clamped {
		s.log.WithFields(logrus.Fields{
			"token":    token,
			"event_id": b.EventID,
			"slot":     b.SlotKey(),
			"seats":    b.SeatCount,
		}).Warn("ledger decrement clamped at zero, counter was inconsistent")
	}

	s.afterCancel(ctx, b, actor, now)
	return b, nil
}

// afterCancel reopens a sold-out event and publishes the cancellation.
func (s *Bookings) afterCancel(ctx context.Context, b *model.Booking, actor string, at time.Time) {
	ev, err := s.events.GetByID(ctx, b.EventID)
	if err != nil {
		s.log.WithError(err).WithField("event_id", b.EventID).Warn("event lookup after cancel failed")
		return
	}
	if ev.Status == model.EventStatusSoldOut {
		if _, err := s.events.UpdateStatus(ctx, ev.ID, model.EventStatusAvailable); err != nil {
			s.log.WithError(err).WithField("event_id", ev.ID).Warn("sold-out clear failed")
		}
	}

	msg := queue.BookingCancelledMessage{
		Token:       b.Token,
		EventID:     ev.ID,
		EventTitle:  ev.Title,
		SlotDate:    b.SlotDate,
		SlotTime:    b.SlotTime,
		SeatCount:   b.SeatCount,
		HolderName:  b.Holder.Name,
		HolderEmail: b.Holder.Email,
		CancelledBy: actor,
		CancelledAt: at.Format(time.RFC3339),
	}
	_ = s.pub.PublishBookingCancelled(ctx, msg)
}

// ListEventBookings returns every booking of an event for the admin
// listing.
func (s *Bookings) ListEventBookings(ctx context.Context, eventID uint64) ([]*model.Booking, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.bookings.ListByEvent(ctx, eventID)
}

// EventAvailability builds the public per-slot remaining-capacity view.
func (s *Bookings) EventAvailability(ctx context.Context, eventID uint64) (*Availability, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	slots, err := s.events.ListSlots(ctx, eventID)
	if err != nil {
		return nil, err
	}
	av := &Availability{
		EventID:  ev.ID,
		Title:    ev.Title,
		Location: ev.Location,
		Status:   ev.Status,
		Slots:    make([]SlotAvailability, 0, len(slots)),
	}
	for _, s := range slots {
		av.Slots = append(av.Slots, SlotAvailability{
			SlotDate:  s.SlotDate,
			SlotTime:  s.SlotTime,
			DayLabel:  s.DayLabel,
			Capacity:  s.Capacity,
			Booked:    s.BookedSeats,
			Remaining: s.Remaining(),
		})
	}
	return av, nil
}

func validateReserve(in ReserveInput) error {
	if in.EventID == 0 {
		return &ValidationError{Field: "event_id", Reason: "required"}
	}
	if _, err := time.Parse(model.SlotDateLayout, in.SlotDate); err != nil {
		return &ValidationError{Field: "slot_date", Reason: "must be YYYY-MM-DD"}
	}
	if _, err := time.Parse(model.SlotTimeLayout, in.SlotTime); err != nil {
		return &ValidationError{Field: "slot_time", Reason: "must be HH:MM"}
	}
	if in.SeatCount < 1 || in.SeatCount > maxSeatsPerBooking {
		return &ValidationError{Field: "seat_count", Reason: "must be between 1 and 50"}
	}
	if strings.TrimSpace(in.Holder.Name) == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	email := strings.TrimSpace(in.Holder.Email)
	if email == "" {
		return &ValidationError{Field: "email", Reason: "required"}
	}
	if !strings.Contains(email, "@") {
		return &ValidationError{Field: "email", Reason: "must be an email address"}
	}
	return nil
}
