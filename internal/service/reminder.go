package service

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-slot-booking/internal/model"
	"github.com/iliyamo/event-slot-booking/internal/queue"
	"github.com/iliyamo/event-slot-booking/internal/repository"
)

// DefaultReminderOffsets are the reminder points used when no offsets
// are configured: three days, one day and one hour before the slot
// starts.
var DefaultReminderOffsets = []model.ReminderOffset{
	{Type: model.ReminderThreeDaysBefore, Hours: 72},
	{Type: model.ReminderOneDayBefore, Hours: 24},
	{Type: model.ReminderOneHourBefore, Hours: 1},
}

// Reminders implements ReminderService. Due-ness is derived, not
// stored: a (booking, type) pair is due when its scheduled instant has
// passed and no booking_reminders row exists for it. A run that was
// skipped or crashed therefore loses nothing; the next run picks the
// same pairs up again.
type Reminders struct {
	bookings repository.BookingRepository
	events   repository.EventRepository
	pub      Publisher
	offsets  []model.ReminderOffset
	log      *logrus.Logger
}

// NewReminders wires a reminder service. Passing nil offsets selects
// DefaultReminderOffsets.
func NewReminders(bookings repository.BookingRepository, events repository.EventRepository, pub Publisher, offsets []model.ReminderOffset, log *logrus.Logger) *Reminders {
	if len(offsets) == 0 {
		offsets = DefaultReminderOffsets
	}
	return &Reminders{bookings: bookings, events: events, pub: pub, offsets: offsets, log: log}
}

// DueReminders returns every unsent (booking, type) pair whose
// scheduled send time is at or before now, ordered most overdue first.
// Only confirmed bookings with a future slot start are considered, so a
// reminder is never sent for a cancelled booking or after the event
// started.
func (s *Reminders) DueReminders(ctx context.Context, now time.Time) ([]model.DueReminder, error) {
	now = now.UTC()
	upcoming, err := s.bookings.ListConfirmedUpcoming(ctx, now)
	if err != nil {
		return nil, err
	}
	due := make([]model.DueReminder, 0)
	for _, b := range upcoming {
		start, err := b.StartsAt(time.UTC)
		if err != nil {
			s.log.WithError(err).WithField("token", b.Token).Warn("booking has unparsable slot, skipping")
			continue
		}
		for _, off := range s.offsets {
			if b.ReminderSent(off.Type) {
				continue
			}
			scheduled := start.Add(-time.Duration(off.Hours) * time.Hour)
			if scheduled.After(now) {
				continue
			}
			due = append(due, model.DueReminder{Booking: b, Type: off.Type, ScheduledAt: scheduled})
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(due[j].ScheduledAt) })
	return due, nil
}

// MarkSent records a sent reminder. Safe to repeat.
func (s *Reminders) MarkSent(ctx context.Context, token string, t model.ReminderType, at time.Time) error {
	return s.bookings.MarkReminderSent(ctx, token, t, at)
}

// Dispatch publishes every due reminder and marks it sent. A pair is
// only marked after its message was accepted by the broker, so a failed
// publish leaves it due for the next run. Event titles are fetched once
// per event across the batch.
func (s *Reminders) Dispatch(ctx context.Context, now time.Time) (DispatchSummary, error) {
	now = now.UTC()
	due, err := s.DueReminders(ctx, now)
	if err != nil {
		return DispatchSummary{}, err
	}
	sum := DispatchSummary{Due: len(due)}
	events := make(map[uint64]*model.Event)
	for _, d := range due {
		ev, ok := events[d.Booking.EventID]
		if !ok {
			ev, err = s.events.GetByID(ctx, d.Booking.EventID)
			if err != nil {
				s.log.WithError(err).WithField("event_id", d.Booking.EventID).Warn("event lookup for reminder failed")
				sum.Failed++
				continue
			}
			events[ev.ID] = ev
		}

		msg := queue.ReminderDueMessage{
			Token:        d.Booking.Token,
			ReminderType: string(d.Type),
			EventID:      ev.ID,
			EventTitle:   ev.Title,
			Location:     ev.Location,
			SlotDate:     d.Booking.SlotDate,
			SlotTime:     d.Booking.SlotTime,
			SeatCount:    d.Booking.SeatCount,
			HolderName:   d.Booking.Holder.Name,
			HolderEmail:  d.Booking.Holder.Email,
			ScheduledAt:  d.ScheduledAt.Format(time.RFC3339),
		}
		if err := s.pub.PublishReminderDue(ctx, msg); err != nil {
			sum.Failed++
			continue
		}
		if err := s.MarkSent(ctx, d.Booking.Token, d.Type, now); err != nil {
			// The message is out but the mark failed; the next run will
			// publish a duplicate. Duplicate reminders are acceptable,
			// missed ones are not.
			s.log.WithError(err).WithFields(logrus.Fields{
				"token": d.Booking.Token,
				"type":  d.Type,
			}).Warn("reminder sent but mark failed")
		}
		sum.Sent++
	}
	return sum, nil
}
