package service

import (
	"context"
	"errors"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-slot-booking/internal/model"
	"github.com/iliyamo/event-slot-booking/internal/repository"
)

var tokenPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// futureDate returns a slot date the given number of days ahead.
func futureDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format(model.SlotDateLayout)
}

func newBookingFixture() (*memStore, *pubRecorder, *Bookings) {
	store := newMemStore()
	pub := &pubRecorder{}
	svc := NewBookings(store, store, pub, quietLogger())
	svc.sleep = func(time.Duration) {}
	return store, pub, svc
}

func seedEvent(store *memStore, capacity uint32) (eventID uint64, date, tm string) {
	date, tm = futureDate(7), "18:00"
	store.addEvent(&model.Event{ID: 1, Title: "Autumn Tasting", Location: "Main Hall", Status: model.EventStatusAvailable})
	store.addSlot(&model.TimeSlot{ID: 1, EventID: 1, SlotDate: date, SlotTime: tm, DayLabel: "Day 1", Capacity: capacity})
	return 1, date, tm
}

func reserveInput(eventID uint64, date, tm string, seats uint32) ReserveInput {
	return ReserveInput{
		EventID:   eventID,
		SlotDate:  date,
		SlotTime:  tm,
		SeatCount: seats,
		Holder:    model.Holder{Name: "Dana Cole", Email: "dana@example.com"},
	}
}

func TestReserveSuccess(t *testing.T) {
	store, pub, svc := newBookingFixture()
	eventID, date, tm := seedEvent(store, 10)

	b, err := svc.Reserve(context.Background(), reserveInput(eventID, date, tm, 3))
	require.NoError(t, err)
	require.Regexp(t, tokenPattern, b.Token)
	assert.Equal(t, model.BookingStatusConfirmed, b.Status)
	assert.Equal(t, uint32(3), b.SeatCount)

	slot, err := store.GetSlot(context.Background(), eventID, date, tm)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), slot.BookedSeats)
	assert.Equal(t, uint32(7), slot.Remaining())

	// Token stays usable until the end of the event day.
	wantExpiry, err := model.EndOfEventDay(date, time.UTC)
	require.NoError(t, err)
	assert.True(t, b.TokenExpiresAt.Equal(wantExpiry))

	require.Len(t, pub.confirmed, 1)
	assert.Equal(t, b.Token, pub.confirmed[0].Token)
	assert.Equal(t, "Autumn Tasting", pub.confirmed[0].EventTitle)

	// Plenty of room left, so the event stays available.
	ev, err := store.GetByID(context.Background(), eventID)
	require.NoError(t, err)
	assert.Equal(t, model.EventStatusAvailable, ev.Status)
}

func TestReserveValidation(t *testing.T) {
	store, _, svc := newBookingFixture()
	eventID, date, tm := seedEvent(store, 10)

	cases := []struct {
		name  string
		in    ReserveInput
		field string
	}{
		{"zero seats", reserveInput(eventID, date, tm, 0), "seat_count"},
		{"too many seats", reserveInput(eventID, date, tm, 51), "seat_count"},
		{"bad date", reserveInput(eventID, "07-11-2026", tm, 2), "slot_date"},
		{"bad time", reserveInput(eventID, date, "6pm", 2), "slot_time"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Reserve(context.Background(), tc.in)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}

	t.Run("missing name", func(t *testing.T) {
		in := reserveInput(eventID, date, tm, 2)
		in.Holder.Name = "  "
		_, err := svc.Reserve(context.Background(), in)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "name", ve.Field)
	})
	t.Run("bad email", func(t *testing.T) {
		in := reserveInput(eventID, date, tm, 2)
		in.Holder.Email = "not-an-address"
		_, err := svc.Reserve(context.Background(), in)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "email", ve.Field)
	})
}

func TestReserveUnknownEventAndSlot(t *testing.T) {
	store, _, svc := newBookingFixture()
	eventID, date, tm := seedEvent(store, 10)

	_, err := svc.Reserve(context.Background(), reserveInput(99, date, tm, 1))
	assert.ErrorIs(t, err, repository.ErrEventNotFound)

	_, err = svc.Reserve(context.Background(), reserveInput(eventID, date, "09:30", 1))
	assert.ErrorIs(t, err, repository.ErrSlotNotFound)
	_, err = svc.Reserve(context.Background(), reserveInput(eventID, futureDate(8), tm, 1))
	assert.ErrorIs(t, err, repository.ErrSlotNotFound)
}

func TestReserveInsufficientCapacity(t *testing.T) {
	store, pub, svc := newBookingFixture()
	eventID, date, tm := seedEvent(store, 5)

	_, err := svc.Reserve(context.Background(), reserveInput(eventID, date, tm, 4))
	require.NoError(t, err)

	_, err = svc.Reserve(context.Background(), reserveInput(eventID, date, tm, 3))
	var ice *InsufficientCapacityError
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, uint32(1), ice.Remaining)
	assert.Contains(t, ice.Error(), "1 spot(s) available")

	// The failed attempt must not have moved the counter or published.
	slot, err := store.GetSlot(context.Background(), eventID, date, tm)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), slot.BookedSeats)
	assert.Len(t, pub.confirmed, 1)
}

func TestReserveEventPassed(t *testing.T) {
	store, _, svc := newBookingFixture()
	store.addEvent(&model.Event{ID: 1, Title: "Old Event", Status: model.EventStatusAvailable})
	past := time.Now().UTC().AddDate(0, 0, -2).Format(model.SlotDateLayout)
	store.addSlot(&model.TimeSlot{ID: 1, EventID: 1, SlotDate: past, SlotTime: "10:00", Capacity: 10})

	_, err := svc.Reserve(context.Background(), reserveInput(1, past, "10:00", 1))
	assert.ErrorIs(t, err, ErrEventPassed)

	// A past date the event never had a slot on is not-found, not passed.
	_, err = svc.Reserve(context.Background(), reserveInput(1, past, "19:00", 1))
	assert.ErrorIs(t, err, repository.ErrSlotNotFound)
}

// conflictingRepo forces version conflicts on the first N reservation
// attempts, then delegates to the store.
type conflictingRepo struct {
	*memStore
	fails int
	calls int
}

func (r *conflictingRepo) CreateWithReservation(ctx context.Context, b *model.Booking, v uint32) error {
	r.calls++
	if r.calls <= r.fails {
		return repository.ErrVersionConflict
	}
	return r.memStore.CreateWithReservation(ctx, b, v)
}

func TestReserveRetriesTransparentlyOnConflict(t *testing.T) {
	store := newMemStore()
	eventID, date, tm := seedEvent(store, 10)
	repo := &conflictingRepo{memStore: store, fails: 2}
	svc := NewBookings(store, repo, &pubRecorder{}, quietLogger())
	svc.sleep = func(time.Duration) {}

	b, err := svc.Reserve(context.Background(), reserveInput(eventID, date, tm, 2))
	require.NoError(t, err)
	assert.Equal(t, 3, repo.calls)
	assert.Regexp(t, tokenPattern, b.Token)
}

func TestReserveGivesUpAfterRepeatedConflicts(t *testing.T) {
	store := newMemStore()
	eventID, date, tm := seedEvent(store, 10)
	repo := &conflictingRepo{memStore: store, fails: 100}
	svc := NewBookings(store, repo, &pubRecorder{}, quietLogger())
	svc.sleep = func(time.Duration) {}

	_, err := svc.Reserve(context.Background(), reserveInput(eventID, date, tm, 1))
	assert.ErrorIs(t, err, ErrContention)
	assert.Equal(t, reserveAttempts, repo.calls)

	slot, err := store.GetSlot(context.Background(), eventID, date, tm)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), slot.BookedSeats)
}

func TestReserveConcurrentNeverOverbooks(t *testing.T) {
	store, _, svc := newBookingFixture()
	eventID, date, tm := seedEvent(store, 10)

	const workers = 30
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		tokens    = make(map[string]bool)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := svc.Reserve(context.Background(), reserveInput(eventID, date, tm, 1))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				tokens[b.Token] = true
				return
			}
			var ice *InsufficientCapacityError
			if !errors.As(err, &ice) && !errors.Is(err, ErrContention) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	slot, err := store.GetSlot(context.Background(), eventID, date, tm)
	require.NoError(t, err)
	assert.Equal(t, uint32(successes), slot.BookedSeats, "every success moved the counter exactly once")
	assert.LessOrEqual(t, slot.BookedSeats, slot.Capacity, "counter never exceeds capacity")
	assert.Len(t, tokens, successes, "tokens are unique")
}

func TestReserveRaceReportsRemaining(t *testing.T) {
	store, _, svc := newBookingFixture()
	eventID, date, tm := seedEvent(store, 2)

	// First visitor takes one seat, leaving one.
	_, err := svc.Reserve(context.Background(), reserveInput(eventID, date, tm, 1))
	require.NoError(t, err)

	// Second visitor wanted two and is told exactly one is left.
	_, err = svc.Reserve(context.Background(), reserveInput(eventID, date, tm, 2))
	var ice *InsufficientCapacityError
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, "insufficient capacity: 1 spot(s) available", ice.Error())

	// They settle for the last seat; the next visitor sees zero.
	_, err = svc.Reserve(context.Background(), reserveInput(eventID, date, tm, 1))
	require.NoError(t, err)

	_, err = svc.Reserve(context.Background(), reserveInput(eventID, date, tm, 1))
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, "insufficient capacity: 0 spot(s) available", ice.Error())
}

func TestReserveFlipsEventSoldOut(t *testing.T) {
	store, _, svc := newBookingFixture()
	eventID, date, tm := seedEvent(store, 2)

	_, err := svc.Reserve(context.Background(), reserveInput(eventID, date, tm, 2))
	require.NoError(t, err)

	ev, err := store.GetByID(context.Background(), eventID)
	require.NoError(t, err)
	assert.Equal(t, model.EventStatusSoldOut, ev.Status)
}

func TestGetByTokenExpiry(t *testing.T) {
	store, _, svc := newBookingFixture()
	eventID, date, tm := seedEvent(store, 10)

	b, err := svc.Reserve(context.Background(), reserveInput(eventID, date, tm, 1))
	require.NoError(t, err)

	got, err := svc.GetByToken(context.Background(), b.Token)
	require.NoError(t, err)
	assert.Equal(t, b.Token, got.Token)

	_, err = svc.GetByToken(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)

	// After the event day the magic link is gone.
	svc.now = func() time.Time { return b.TokenExpiresAt.Add(time.Minute) }
	_, err = svc.GetByToken(context.Background(), b.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
