package service

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/iliyamo/event-slot-booking/internal/model"
	"github.com/iliyamo/event-slot-booking/internal/queue"
	"github.com/iliyamo/event-slot-booking/internal/repository"
)

// memStore is an in-memory stand-in for the MySQL repositories. It
// reproduces the semantics the services rely on: the version-checked
// check-and-increment, the idempotent cancellation with a clamped
// decrement and the terminal reminder marks.
type memStore struct {
	mu        sync.Mutex
	events    map[uint64]*model.Event
	slots     map[string]*model.TimeSlot // eventID|date|time
	bookings  map[string]*model.Booking
	reminders map[string]map[model.ReminderType]time.Time
	admins    map[string]*model.Admin
}

func newMemStore() *memStore {
	return &memStore{
		events:    make(map[uint64]*model.Event),
		slots:     make(map[string]*model.TimeSlot),
		bookings:  make(map[string]*model.Booking),
		reminders: make(map[string]map[model.ReminderType]time.Time),
		admins:    make(map[string]*model.Admin),
	}
}

func (m *memStore) key(eventID uint64, date, tm string) string {
	return strconv.FormatUint(eventID, 10) + "|" + date + "|" + tm
}

func (m *memStore) addEvent(ev *model.Event) {
	m.events[ev.ID] = ev
}

func (m *memStore) addSlot(s *model.TimeSlot) {
	m.slots[m.key(s.EventID, s.SlotDate, s.SlotTime)] = s
}

func (m *memStore) addBooking(b *model.Booking) {
	m.bookings[b.Token] = cloneBooking(b)
}

func cloneBooking(b *model.Booking) *model.Booking {
	cp := *b
	cp.Reminders = make(map[model.ReminderType]model.ReminderState, len(b.Reminders))
	for k, v := range b.Reminders {
		cp.Reminders[k] = v
	}
	return &cp
}

// EventRepository

func (m *memStore) GetByID(_ context.Context, id uint64) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	cp := *ev
	return &cp, nil
}

func (m *memStore) ListAll(_ context.Context) ([]*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Event, 0, len(m.events))
	for _, ev := range m.events {
		cp := *ev
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetSlot(_ context.Context, eventID uint64, slotDate, slotTime string) (*model.TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[m.key(eventID, slotDate, slotTime)]
	if !ok {
		return nil, repository.ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) ListSlots(_ context.Context, eventID uint64) ([]*model.TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.TimeSlot, 0)
	for _, s := range m.slots {
		if s.EventID == eventID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SlotDate != out[j].SlotDate {
			return out[i].SlotDate < out[j].SlotDate
		}
		return out[i].SlotTime < out[j].SlotTime
	})
	return out, nil
}

func (m *memStore) UpdateStatus(_ context.Context, eventID uint64, status model.EventStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[eventID]
	if !ok {
		return false, repository.ErrEventNotFound
	}
	if ev.Status == status {
		return false, nil
	}
	ev.Status = status
	return true, nil
}

func (m *memStore) AllSlotsFull(_ context.Context, eventID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, s := range m.slots {
		if s.EventID != eventID {
			continue
		}
		total++
		if s.BookedSeats < s.Capacity {
			return false, nil
		}
	}
	return total > 0, nil
}

// BookingRepository

func (m *memStore) CreateWithReservation(_ context.Context, b *model.Booking, expectedVersion uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[m.key(b.EventID, b.SlotDate, b.SlotTime)]
	if !ok {
		return repository.ErrSlotNotFound
	}
	if s.Version != expectedVersion || s.BookedSeats+b.SeatCount > s.Capacity {
		return repository.ErrVersionConflict
	}
	s.BookedSeats += b.SeatCount
	s.Version++
	m.bookings[b.Token] = cloneBooking(b)
	return nil
}

func (m *memStore) GetByToken(_ context.Context, token string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[token]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	return m.withReminders(b), nil
}

func (m *memStore) withReminders(b *model.Booking) *model.Booking {
	cp := cloneBooking(b)
	for t, at := range m.reminders[b.Token] {
		sent := at
		cp.Reminders[t] = model.ReminderState{Sent: true, SentAt: &sent}
	}
	return cp
}

func (m *memStore) ListByEvent(_ context.Context, eventID uint64) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Booking, 0)
	for _, b := range m.bookings {
		if b.EventID == eventID {
			out = append(out, m.withReminders(b))
		}
	}
	return out, nil
}

func (m *memStore) Cancel(_ context.Context, token string, at time.Time, actor string) (*model.Booking, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[token]
	if !ok {
		return nil, false, repository.ErrBookingNotFound
	}
	if b.Status == model.BookingStatusCancelled {
		return nil, false, repository.ErrAlreadyCancelled
	}
	b.Status = model.BookingStatusCancelled
	b.CancelledAt = &at
	b.CancelledBy = &actor

	clamped := false
	if s, ok := m.slots[m.key(b.EventID, b.SlotDate, b.SlotTime)]; ok {
		if s.BookedSeats >= b.SeatCount {
			s.BookedSeats -= b.SeatCount
		} else {
			s.BookedSeats = 0
			clamped = true
		}
		s.Version++
	}
	return m.withReminders(b), clamped, nil
}

func (m *memStore) ListConfirmedUpcoming(_ context.Context, after time.Time) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Booking, 0)
	for _, b := range m.bookings {
		if b.Status != model.BookingStatusConfirmed {
			continue
		}
		start, err := b.StartsAt(time.UTC)
		if err != nil || !start.After(after) {
			continue
		}
		out = append(out, m.withReminders(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SlotDate != out[j].SlotDate {
			return out[i].SlotDate < out[j].SlotDate
		}
		return out[i].SlotTime < out[j].SlotTime
	})
	return out, nil
}

func (m *memStore) MarkReminderSent(_ context.Context, token string, t model.ReminderType, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	marks, ok := m.reminders[token]
	if !ok {
		marks = make(map[model.ReminderType]time.Time)
		m.reminders[token] = marks
	}
	if _, exists := marks[t]; !exists {
		marks[t] = sentAt
	}
	return nil
}

// AdminRepository

func (m *memStore) GetByEmail(_ context.Context, email string) (*model.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[email]
	if !ok {
		return nil, repository.ErrAdminNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) Create(_ context.Context, a *model.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uint64(len(m.admins) + 1)
	m.admins[a.Email] = a
	return nil
}

// pubRecorder records published messages and can be told to fail.
type pubRecorder struct {
	mu            sync.Mutex
	confirmed     []queue.BookingConfirmedMessage
	cancelled     []queue.BookingCancelledMessage
	reminders     []queue.ReminderDueMessage
	failReminders bool
}

func (p *pubRecorder) PublishBookingConfirmed(_ context.Context, msg queue.BookingConfirmedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, msg)
	return nil
}

func (p *pubRecorder) PublishBookingCancelled(_ context.Context, msg queue.BookingCancelledMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, msg)
	return nil
}

func (p *pubRecorder) PublishReminderDue(_ context.Context, msg queue.ReminderDueMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failReminders {
		return context.DeadlineExceeded
	}
	p.reminders = append(p.reminders, msg)
	return nil
}
