package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-slot-booking/internal/model"
)

func newReminderFixture() (*memStore, *pubRecorder, *Reminders) {
	store := newMemStore()
	store.addEvent(&model.Event{ID: 1, Title: "Autumn Tasting", Location: "Main Hall", Status: model.EventStatusAvailable})
	pub := &pubRecorder{}
	svc := NewReminders(store, store, pub, nil, quietLogger())
	return store, pub, svc
}

// confirmedBookingAt seeds a confirmed booking whose slot starts at the
// given instant.
func confirmedBookingAt(store *memStore, token string, start time.Time) *model.Booking {
	b := &model.Booking{
		Token:          token,
		EventID:        1,
		SlotDate:       start.UTC().Format(model.SlotDateLayout),
		SlotTime:       start.UTC().Format(model.SlotTimeLayout),
		SeatCount:      2,
		Holder:         model.Holder{Name: "Dana Cole", Email: "dana@example.com"},
		Status:         model.BookingStatusConfirmed,
		TokenExpiresAt: start.UTC().AddDate(0, 0, 1),
	}
	store.addBooking(b)
	return b
}

func TestDueRemindersBoundaries(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("exactly at the offset is due", func(t *testing.T) {
		store, _, svc := newReminderFixture()
		confirmedBookingAt(store, "tok-boundary", now.Add(72*time.Hour))

		due, err := svc.DueReminders(context.Background(), now)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, model.ReminderThreeDaysBefore, due[0].Type)
		assert.True(t, due[0].ScheduledAt.Equal(now))
	})

	t.Run("just beyond the offset is not due", func(t *testing.T) {
		store, _, svc := newReminderFixture()
		confirmedBookingAt(store, "tok-later", now.Add(72*time.Hour+time.Minute))

		due, err := svc.DueReminders(context.Background(), now)
		require.NoError(t, err)
		assert.Empty(t, due)
	})

	t.Run("close start owes several reminder types", func(t *testing.T) {
		store, _, svc := newReminderFixture()
		confirmedBookingAt(store, "tok-soon", now.Add(30*time.Minute))

		due, err := svc.DueReminders(context.Background(), now)
		require.NoError(t, err)
		require.Len(t, due, 3)
		// Most overdue first: 72h, then 24h, then 1h.
		assert.Equal(t, model.ReminderThreeDaysBefore, due[0].Type)
		assert.Equal(t, model.ReminderOneDayBefore, due[1].Type)
		assert.Equal(t, model.ReminderOneHourBefore, due[2].Type)
		for i := 1; i < len(due); i++ {
			assert.False(t, due[i].ScheduledAt.Before(due[i-1].ScheduledAt))
		}
	})
}

func TestDueRemindersSkipsCancelledAndStarted(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	store, _, svc := newReminderFixture()

	cancelled := confirmedBookingAt(store, "tok-cancelled", now.Add(2*time.Hour))
	_, _, err := store.Cancel(context.Background(), cancelled.Token, now, ActorVisitor)
	require.NoError(t, err)

	confirmedBookingAt(store, "tok-started", now.Add(-time.Hour))

	due, err := svc.DueReminders(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestDueRemindersExcludesSent(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	store, _, svc := newReminderFixture()
	b := confirmedBookingAt(store, "tok-sent", now.Add(12*time.Hour))

	require.NoError(t, svc.MarkSent(context.Background(), b.Token, model.ReminderThreeDaysBefore, now))

	due, err := svc.DueReminders(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, model.ReminderOneDayBefore, due[0].Type)
}

func TestMarkSentIsTerminal(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	store, _, svc := newReminderFixture()
	b := confirmedBookingAt(store, "tok-mark", now.Add(12*time.Hour))

	require.NoError(t, svc.MarkSent(context.Background(), b.Token, model.ReminderOneDayBefore, now))
	// Repeating the mark keeps the first sent_at.
	require.NoError(t, svc.MarkSent(context.Background(), b.Token, model.ReminderOneDayBefore, now.Add(time.Hour)))

	got, err := store.GetByToken(context.Background(), b.Token)
	require.NoError(t, err)
	st, ok := got.Reminders[model.ReminderOneDayBefore]
	require.True(t, ok)
	require.True(t, st.Sent)
	require.NotNil(t, st.SentAt)
	assert.True(t, st.SentAt.Equal(now))
}

func TestDispatchPublishesAndMarks(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	store, pub, svc := newReminderFixture()
	confirmedBookingAt(store, "tok-dispatch", now.Add(12*time.Hour))

	sum, err := svc.Dispatch(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, DispatchSummary{Due: 2, Sent: 2, Failed: 0}, sum)
	require.Len(t, pub.reminders, 2)
	assert.Equal(t, "Autumn Tasting", pub.reminders[0].EventTitle)

	// Everything already sent: the next run finds nothing.
	sum, err = svc.Dispatch(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, DispatchSummary{}, sum)
}

func TestDispatchLeavesFailedPairsDue(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	store, pub, svc := newReminderFixture()
	confirmedBookingAt(store, "tok-fail", now.Add(12*time.Hour))

	pub.failReminders = true
	sum, err := svc.Dispatch(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, DispatchSummary{Due: 2, Sent: 0, Failed: 2}, sum)

	// The broker recovers and the same pairs go out.
	pub.failReminders = false
	sum, err = svc.Dispatch(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, DispatchSummary{Due: 2, Sent: 2, Failed: 0}, sum)
}
