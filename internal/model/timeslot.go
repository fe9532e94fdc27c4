package model

import (
    "fmt"
    "strings"
    "time"
)

// Layouts used when parsing slot dates and times.  Slots store the date
// and the time-of-day separately so that date-only comparisons (status
// refresh) and exact start times (reminders) are both cheap.
const (
    SlotDateLayout = "2006-01-02"
    SlotTimeLayout = "15:04"
)

// TimeSlot is a single bookable window of an event.  The BookedSeats
// counter is the capacity ledger entry for this slot: it is only ever
// increased by a reservation and decreased by a cancellation.  Version
// supports optimistic locking of the counter.
//
// Fields:
//  ID          – primary key identifier.
//  EventID     – owning event.
//  SlotDate    – calendar date in SlotDateLayout.
//  SlotTime    – time of day in SlotTimeLayout.
//  DayLabel    – operator-facing label such as "Day 1".
//  Capacity    – maximum seats for this slot.
//  BookedSeats – seats currently booked (0 ≤ BookedSeats ≤ Capacity).
//  Version     – optimistic locking counter.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type TimeSlot struct {
    ID          uint64    // event_slots.id
    EventID     uint64    // event_slots.event_id
    SlotDate    string    // event_slots.slot_date
    SlotTime    string    // event_slots.slot_time
    DayLabel    string    // event_slots.day_label
    Capacity    uint32    // event_slots.capacity
    BookedSeats uint32    // event_slots.booked_seats
    Version     uint32    // event_slots.version
    CreatedAt   time.Time // event_slots.created_at
    UpdatedAt   time.Time // event_slots.updated_at
}

// SlotKey returns the composite "date|time" identifier of the slot,
// unique within its event.  The same format is used in request bodies
// and in the bookings table.
func (s *TimeSlot) SlotKey() string {
    return MakeSlotKey(s.SlotDate, s.SlotTime)
}

// Remaining returns how many seats are still free on this slot.
func (s *TimeSlot) Remaining() uint32 {
    if s.BookedSeats >= s.Capacity {
        return 0
    }
    return s.Capacity - s.BookedSeats
}

// StartsAt combines the slot date and time into a concrete start
// instant in the given location.
func (s *TimeSlot) StartsAt(loc *time.Location) (time.Time, error) {
    return ParseSlotStart(s.SlotDate, s.SlotTime, loc)
}

// MakeSlotKey builds the "date|time" slot key from its parts.
func MakeSlotKey(date, tm string) string {
    return date + "|" + tm
}

// ParseSlotKey splits a "date|time" key into its date and time parts and
// validates both layouts.  It returns an error when the key is malformed
// so that handlers can reject bad input before touching the database.
func ParseSlotKey(key string) (date, tm string, err error) {
    parts := strings.SplitN(key, "|", 2)
    if len(parts) != 2 {
        return "", "", fmt.Errorf("malformed slot key %q", key)
    }
    if _, err := time.Parse(SlotDateLayout, parts[0]); err != nil {
        return "", "", fmt.Errorf("malformed slot date in key %q: %w", key, err)
    }
    if _, err := time.Parse(SlotTimeLayout, parts[1]); err != nil {
        return "", "", fmt.Errorf("malformed slot time in key %q: %w", key, err)
    }
    return parts[0], parts[1], nil
}

// ParseSlotStart resolves a slot date and time-of-day into the moment the
// slot begins, interpreted in loc.
func ParseSlotStart(date, tm string, loc *time.Location) (time.Time, error) {
    return time.ParseInLocation(SlotDateLayout+" "+SlotTimeLayout, date+" "+tm, loc)
}

// EndOfEventDay returns 23:59:59 of the slot date in loc.  Booking
// tokens stay valid until this instant; cancellation is refused after it.
func EndOfEventDay(date string, loc *time.Location) (time.Time, error) {
    d, err := time.ParseInLocation(SlotDateLayout, date, loc)
    if err != nil {
        return time.Time{}, err
    }
    return d.Add(23*time.Hour + 59*time.Minute + 59*time.Second), nil
}
