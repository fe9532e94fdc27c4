// Package queue defines message payloads exchanged over the message broker
// plus the publisher and consumer that move them.
package queue

// Queue names used on the broker. Queues are declared durable by both
// ends so whichever side starts first creates them.
const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingCancelled = "booking.cancelled"
	QueueReminderDue      = "reminder.due"
)

// BookingConfirmedMessage is published when a reservation is confirmed.
// It carries enough information for downstream consumers to notify the
// holder without querying the primary database. The token is included
// because the confirmation email embeds the management magic link.
type BookingConfirmedMessage struct {
	Token       string `json:"token"`
	EventID     uint64 `json:"event_id"`
	EventTitle  string `json:"event_title"`
	Location    string `json:"location"`
	SlotDate    string `json:"slot_date"`
	SlotTime    string `json:"slot_time"`
	SeatCount   uint32 `json:"seat_count"`
	HolderName  string `json:"holder_name"`
	HolderEmail string `json:"holder_email"`
	ConfirmedAt string `json:"confirmed_at"`
}

// BookingCancelledMessage is published when a booking is cancelled,
// whether by the visitor through the magic link or by an admin.
type BookingCancelledMessage struct {
	Token       string `json:"token"`
	EventID     uint64 `json:"event_id"`
	EventTitle  string `json:"event_title"`
	SlotDate    string `json:"slot_date"`
	SlotTime    string `json:"slot_time"`
	SeatCount   uint32 `json:"seat_count"`
	HolderName  string `json:"holder_name"`
	HolderEmail string `json:"holder_email"`
	CancelledBy string `json:"cancelled_by"`
	CancelledAt string `json:"cancelled_at"`
}

// ReminderDueMessage is published for each (booking, reminder type) pair
// whose scheduled send time has passed.
type ReminderDueMessage struct {
	Token        string `json:"token"`
	ReminderType string `json:"reminder_type"`
	EventID      uint64 `json:"event_id"`
	EventTitle   string `json:"event_title"`
	Location     string `json:"location"`
	SlotDate     string `json:"slot_date"`
	SlotTime     string `json:"slot_time"`
	SeatCount    uint32 `json:"seat_count"`
	HolderName   string `json:"holder_name"`
	HolderEmail  string `json:"holder_email"`
	ScheduledAt  string `json:"scheduled_at"`
}
