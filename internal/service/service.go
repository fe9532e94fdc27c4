package service

import (
	"context"
	"time"

	"github.com/iliyamo/event-slot-booking/internal/model"
	"github.com/iliyamo/event-slot-booking/internal/queue"
)

// ReserveInput carries everything needed to reserve seats on a slot.
type ReserveInput struct {
	EventID   uint64
	SlotDate  string
	SlotTime  string
	SeatCount uint32
	Holder    model.Holder
}

// SlotAvailability is the public view of one slot's remaining capacity.
type SlotAvailability struct {
	SlotDate  string `json:"slot_date"`
	SlotTime  string `json:"slot_time"`
	DayLabel  string `json:"day_label,omitempty"`
	Capacity  uint32 `json:"capacity"`
	Booked    uint32 `json:"booked"`
	Remaining uint32 `json:"remaining"`
}

// Availability is the public view of an event and all of its slots.
type Availability struct {
	EventID  uint64             `json:"event_id"`
	Title    string             `json:"title"`
	Location string             `json:"location"`
	Status   model.EventStatus  `json:"status"`
	Slots    []SlotAvailability `json:"slots"`
}

// DispatchSummary reports the outcome of one reminder dispatch run.
type DispatchSummary struct {
	Due    int `json:"due"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// RefreshSummary reports the outcome of one status refresh run.
// Available counts events with upcoming slots (sold-out ones included),
// Ended those whose slots all lie in the past, whether or not this run
// had to write them. Events without slots fall in neither bucket.
type RefreshSummary struct {
	Events    int `json:"events"`
	Updated   int `json:"updated"`
	Available int `json:"available"`
	Ended     int `json:"ended"`
}

// BookingService is the booking core seen by handlers: reservation,
// token lookup, cancellation and the public availability view.
type BookingService interface {
	Reserve(ctx context.Context, in ReserveInput) (*model.Booking, error)
	GetByToken(ctx context.Context, token string) (*model.Booking, error)

	// Cancel releases the booking's seats and records who cancelled.
	// actor is "visitor" for magic-link cancellations or the admin
	// identity for manual ones.
	Cancel(ctx context.Context, token, actor string) (*model.Booking, error)

	ListEventBookings(ctx context.Context, eventID uint64) ([]*model.Booking, error)
	EventAvailability(ctx context.Context, eventID uint64) (*Availability, error)
}

// ReminderService computes which reminders are due and pushes them to
// the broker.
type ReminderService interface {
	DueReminders(ctx context.Context, now time.Time) ([]model.DueReminder, error)
	MarkSent(ctx context.Context, token string, t model.ReminderType, at time.Time) error
	Dispatch(ctx context.Context, now time.Time) (DispatchSummary, error)
}

// StatusService recomputes event statuses from their slot dates.
type StatusService interface {
	Refresh(ctx context.Context, now time.Time) (RefreshSummary, error)
}

// AuthService authenticates admin accounts and mints access tokens.
type AuthService interface {
	Login(ctx context.Context, email, password string) (token string, exp time.Time, err error)
}

// Publisher is the broker surface the services publish through. The
// concrete implementation lives in the queue package; tests swap in a
// recorder.
type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, msg queue.BookingConfirmedMessage) error
	PublishBookingCancelled(ctx context.Context, msg queue.BookingCancelledMessage) error
	PublishReminderDue(ctx context.Context, msg queue.ReminderDueMessage) error
}
