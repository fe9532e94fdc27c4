package repository

import (
	"context"
	"time"

	"github.com/iliyamo/event-slot-booking/internal/model"
)

// EventRepository provides read access to events and their slots plus
// the two narrow writes the core is allowed to perform on an event: the
// status field. Slot counters are mutated exclusively through
// BookingRepository so that every ledger change is tied to a booking.
type EventRepository interface {
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	ListAll(ctx context.Context) ([]*model.Event, error)
	GetSlot(ctx context.Context, eventID uint64, slotDate, slotTime string) (*model.TimeSlot, error)
	ListSlots(ctx context.Context, eventID uint64) ([]*model.TimeSlot, error)

	// UpdateStatus writes the status only when it differs from the stored
	// value and reports whether a write happened.
	UpdateStatus(ctx context.Context, eventID uint64, status model.EventStatus) (bool, error)

	// AllSlotsFull reports whether the event has at least one slot and
	// every slot is at capacity. Used for the opportunistic sold-out flip.
	AllSlotsFull(ctx context.Context, eventID uint64) (bool, error)
}

// BookingRepository persists bookings keyed by their token and owns the
// two atomic units that touch the capacity ledger: the reservation
// check-and-increment and the cancellation decrement.
type BookingRepository interface {
	// CreateWithReservation atomically increments the slot counter and
	// inserts the booking, or does neither. expectedVersion is the slot
	// version observed by the caller; ErrVersionConflict is returned when
	// a concurrent writer moved the counter first.
	CreateWithReservation(ctx context.Context, b *model.Booking, expectedVersion uint32) error

	GetByToken(ctx context.Context, token string) (*model.Booking, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]*model.Booking, error)

	// Cancel transitions a confirmed booking to cancelled and releases
	// its seats. The returned flag reports whether the decrement had to
	// be clamped at zero, which indicates a ledger inconsistency worth
	// logging. ErrAlreadyCancelled guards against double release.
	Cancel(ctx context.Context, token string, at time.Time, actor string) (*model.Booking, bool, error)

	// ListConfirmedUpcoming returns confirmed bookings whose slot start
	// lies strictly after the given instant, with their reminder state
	// populated. Used by the reminder scheduler.
	ListConfirmedUpcoming(ctx context.Context, after time.Time) ([]*model.Booking, error)

	// MarkReminderSent records that a reminder was sent. Calling it again
	// for the same pair is a no-op that preserves the first sent_at.
	MarkReminderSent(ctx context.Context, token string, t model.ReminderType, sentAt time.Time) error
}

// AdminRepository persists the operator accounts behind the admin
// login. Create exists for the startup seed; there is no admin CRUD
// surface beyond it.
type AdminRepository interface {
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
	Create(ctx context.Context, a *model.Admin) error
}
