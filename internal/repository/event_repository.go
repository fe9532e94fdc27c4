package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/event-slot-booking/internal/model"
)

// EventRepo implements EventRepository on top of MySQL. Slot dates are
// stored as DATE columns and scanned through time.Time (the connection
// uses parseTime=true with loc=UTC); slot times are stored as CHAR(5)
// "HH:MM" strings so they round-trip without timezone surprises.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle for callers that need to compose
// transactions spanning multiple repositories.
func (r *EventRepo) DB() *sql.DB { return r.db }

// GetByID returns a single event or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT id, title, location, status, created_at, updated_at
	           FROM events WHERE id = ?`
	var ev model.Event
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&ev.ID, &ev.Title, &ev.Location, &ev.Status, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// ListAll returns every event ordered by id. The status refresh batch
// walks this list; event counts are small enough that no paging is
// needed here.
func (r *EventRepo) ListAll(ctx context.Context) ([]*model.Event, error) {
	const q = `SELECT id, title, location, status, created_at, updated_at
	           FROM events ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*model.Event, 0)
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Location, &ev.Status, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// GetSlot returns the slot of an event identified by its date and time
// parts, or ErrSlotNotFound. The caller reads Capacity, BookedSeats and
// Version from the result to drive the optimistic reservation loop.
func (r *EventRepo) GetSlot(ctx context.Context, eventID uint64, slotDate, slotTime string) (*model.TimeSlot, error) {
	const q = `SELECT id, event_id, slot_date, slot_time, day_label, capacity, booked_seats, version, created_at, updated_at
	           FROM event_slots
	           WHERE event_id = ? AND slot_date = ? AND slot_time = ?`
	s, err := scanSlot(r.db.QueryRowContext(ctx, q, eventID, slotDate, slotTime))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	return s, err
}

// ListSlots returns all slots of an event ordered by date then time.
func (r *EventRepo) ListSlots(ctx context.Context, eventID uint64) ([]*model.TimeSlot, error) {
	const q = `SELECT id, event_id, slot_date, slot_time, day_label, capacity, booked_seats, version, created_at, updated_at
	           FROM event_slots
	           WHERE event_id = ?
	           ORDER BY slot_date, slot_time`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	slots := make([]*model.TimeSlot, 0)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// UpdateStatus writes the new status only when it differs from the
// stored value, so repeated refreshes do not churn updated_at. The
// returned flag reports whether a row was actually written.
func (r *EventRepo) UpdateStatus(ctx context.Context, eventID uint64, status model.EventStatus) (bool, error) {
	const q = `UPDATE events SET status = ?, updated_at = NOW() WHERE id = ? AND status <> ?`
	res, err := r.db.ExecContext(ctx, q, status, eventID, status)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AllSlotsFull reports whether the event has slots and none of them has
// remaining capacity.
func (r *EventRepo) AllSlotsFull(ctx context.Context, eventID uint64) (bool, error) {
	const q = `SELECT COUNT(*), COALESCE(SUM(booked_seats < capacity), 0)
	           FROM event_slots WHERE event_id = ?`
	var total, open int
	if err := r.db.QueryRowContext(ctx, q, eventID).Scan(&total, &open); err != nil {
		return false, err
	}
	return total > 0 && open == 0, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanSlot reads one event_slots row, converting the DATE column back to
// the canonical string layout used throughout the core.
func scanSlot(row rowScanner) (*model.TimeSlot, error) {
	var (
		s    model.TimeSlot
		date time.Time
	)
	err := row.Scan(&s.ID, &s.EventID, &date, &s.SlotTime, &s.DayLabel,
		&s.Capacity, &s.BookedSeats, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.SlotDate = date.Format(model.SlotDateLayout)
	return &s, nil
}
