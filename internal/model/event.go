package model

import "time"

// EventStatus enumerates the public availability states of an event.
// Reservation and cancellation may flip between AVAILABLE and SOLD_OUT;
// the batch status refresh flips between AVAILABLE and ENDED once every
// slot date lies in the past.
type EventStatus string

const (
    EventStatusAvailable EventStatus = "available" // at least one slot can still be booked
    EventStatusSoldOut   EventStatus = "sold_out"  // every slot is at capacity
    EventStatusEnded     EventStatus = "ended"     // all slot dates are in the past
)

// Event represents a bookable happening consisting of one or more time
// slots.  The per-slot booked counters live on the slots themselves
// (see TimeSlot); an event is never deleted while bookings reference it.
//
// Fields:
//  ID        – primary key identifier.
//  Title     – display name of the event.
//  Location  – free-form venue description.
//  Status    – public availability state (see EventStatus).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Event struct {
    ID        uint64      // events.id
    Title     string      // events.title
    Location  string      // events.location
    Status    EventStatus // events.status
    CreatedAt time.Time   // events.created_at
    UpdatedAt time.Time   // events.updated_at
}
