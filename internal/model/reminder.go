package model

import "time"

// ReminderType identifies one of the reminder emails sent ahead of an
// event.  The hour offsets are configuration, not code; the constants
// here only name the types.
type ReminderType string

const (
    ReminderThreeDaysBefore ReminderType = "three_days_before"
    ReminderOneDayBefore    ReminderType = "one_day_before"
    ReminderOneHourBefore   ReminderType = "one_hour_before"
)

// ReminderState records whether a reminder of a given type has been sent
// for a booking, and when.  Sending is terminal: once Sent is true the
// pair never transitions back.
type ReminderState struct {
    Sent   bool       `json:"sent"`
    SentAt *time.Time `json:"sent_at,omitempty"`
}

// ReminderOffset binds a reminder type to how many hours before the
// event start it becomes due.
type ReminderOffset struct {
    Type  ReminderType
    Hours int
}

// DueReminder is a (booking, type) pair whose scheduled send time has
// passed and which has not been marked sent yet.  ScheduledAt is kept so
// batches can be ordered most-overdue first.
type DueReminder struct {
    Booking     *Booking
    Type        ReminderType
    ScheduledAt time.Time
}
