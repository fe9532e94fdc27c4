package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-slot-booking/internal/model"
)

func slotOn(date string) *model.TimeSlot {
	return &model.TimeSlot{SlotDate: date, SlotTime: "18:00", Capacity: 10}
}

func TestDecideStatus(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		current model.EventStatus
		slots   []*model.TimeSlot
		want    model.EventStatus
	}{
		{"no slots keeps current", model.EventStatusAvailable, nil, model.EventStatusAvailable},
		{"no slots keeps ended", model.EventStatusEnded, nil, model.EventStatusEnded},
		{"future slot is available", model.EventStatusEnded, []*model.TimeSlot{slotOn("2026-09-10")}, model.EventStatusAvailable},
		{"today still counts", model.EventStatusAvailable, []*model.TimeSlot{slotOn("2026-09-01")}, model.EventStatusAvailable},
		{"all past is ended", model.EventStatusAvailable, []*model.TimeSlot{slotOn("2026-08-30"), slotOn("2026-08-31")}, model.EventStatusEnded},
		{"mixed dates stay available", model.EventStatusAvailable, []*model.TimeSlot{slotOn("2026-08-30"), slotOn("2026-09-02")}, model.EventStatusAvailable},
		{"sold out upcoming stays sold out", model.EventStatusSoldOut, []*model.TimeSlot{slotOn("2026-09-02")}, model.EventStatusSoldOut},
		{"sold out past becomes ended", model.EventStatusSoldOut, []*model.TimeSlot{slotOn("2026-08-30")}, model.EventStatusEnded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, decideStatus(tc.current, tc.slots, now))
		})
	}
}

func TestRefreshWritesOnlyChanges(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	store := newMemStore()
	svc := NewStatuses(store, quietLogger())

	// Over: all slots in the past.
	store.addEvent(&model.Event{ID: 1, Title: "Past Fair", Status: model.EventStatusAvailable})
	store.addSlot(&model.TimeSlot{ID: 1, EventID: 1, SlotDate: "2026-08-20", SlotTime: "10:00", Capacity: 5})

	// Upcoming and already marked available.
	store.addEvent(&model.Event{ID: 2, Title: "Autumn Tasting", Status: model.EventStatusAvailable})
	store.addSlot(&model.TimeSlot{ID: 2, EventID: 2, SlotDate: "2026-09-10", SlotTime: "18:00", Capacity: 5})

	// No slots yet: untouched.
	store.addEvent(&model.Event{ID: 3, Title: "Draft Event", Status: model.EventStatusAvailable})

	sum, err := svc.Refresh(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, RefreshSummary{Events: 3, Updated: 1, Available: 1, Ended: 1}, sum)

	ev1, err := store.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.EventStatusEnded, ev1.Status)

	ev2, err := store.GetByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, model.EventStatusAvailable, ev2.Status)

	ev3, err := store.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, model.EventStatusAvailable, ev3.Status)

	// A second run finds nothing to write.
	sum, err = svc.Refresh(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, RefreshSummary{Events: 3, Updated: 0, Available: 1, Ended: 1}, sum)
}
