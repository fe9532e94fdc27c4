package model

import "time"

// BookingStatus tracks the lifecycle of a booking.  Cancellation is a
// status transition, never a row deletion, so history and the token's
// identity are preserved.
type BookingStatus string

const (
    BookingStatusConfirmed BookingStatus = "confirmed"
    BookingStatusCancelled BookingStatus = "cancelled"
)

// Holder carries the contact details captured with a reservation.  There
// are no user accounts: the holder is identified only by what they typed
// into the booking form.
type Holder struct {
    Name  string `json:"name"`
    Email string `json:"email"`
    Phone string `json:"phone,omitempty"`
}

// Booking is a confirmed (or later cancelled) reservation of seats on a
// single slot of an event.  The token doubles as the primary key and as
// the secret embedded in the management magic link, so there is no
// sequential identifier to enumerate.
//
// Fields:
//  Token          – 64 lowercase hex chars; primary key and magic-link secret.
//  EventID        – event being booked.
//  SlotDate       – slot date part of the slot key.
//  SlotTime       – slot time part of the slot key.
//  SeatCount      – number of seats reserved (1–50).
//  Holder         – visitor contact details.
//  Status         – confirmed or cancelled.
//  TokenExpiresAt – end of the event day; the magic link dies afterwards.
//  CancelledAt    – when the booking was cancelled (nil while confirmed).
//  CancelledBy    – "visitor" or the admin identity that cancelled.
//  Reminders      – per-type send state, absent entry meaning "not sent".
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Booking struct {
    Token          string                         // bookings.token
    EventID        uint64                         // bookings.event_id
    SlotDate       string                         // bookings.slot_date
    SlotTime       string                         // bookings.slot_time
    SeatCount      uint32                         // bookings.seat_count
    Holder         Holder                         // bookings.holder_*
    Status         BookingStatus                  // bookings.status
    TokenExpiresAt time.Time                      // bookings.token_expires_at
    CancelledAt    *time.Time                     // bookings.cancelled_at (nullable)
    CancelledBy    *string                        // bookings.cancelled_by (nullable)
    Reminders      map[ReminderType]ReminderState // booking_reminders rows
    CreatedAt      time.Time                      // bookings.created_at
    UpdatedAt      time.Time                      // bookings.updated_at
}

// SlotKey returns the "date|time" key of the slot this booking occupies.
func (b *Booking) SlotKey() string {
    return MakeSlotKey(b.SlotDate, b.SlotTime)
}

// StartsAt resolves the booked slot's start instant in loc.
func (b *Booking) StartsAt(loc *time.Location) (time.Time, error) {
    return ParseSlotStart(b.SlotDate, b.SlotTime, loc)
}

// ReminderSent reports whether the given reminder type has already been
// sent for this booking.
func (b *Booking) ReminderSent(t ReminderType) bool {
    st, ok := b.Reminders[t]
    return ok && st.Sent
}
