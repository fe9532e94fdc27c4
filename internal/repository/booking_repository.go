package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/event-slot-booking/internal/model"
)

// BookingRepo implements BookingRepository on MySQL. It owns the two
// transactions that move the capacity ledger: the optimistic
// check-and-increment performed with a reservation insert, and the
// row-locked decrement performed with a cancellation.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CreateWithReservation increments the slot counter and inserts the
// booking in one transaction. The counter update carries both guards in
// its WHERE clause: the version check detects concurrent writers and the
// capacity check keeps booked_seats from ever exceeding capacity, even
// if the caller's snapshot was stale. A zero row count surfaces as
// ErrVersionConflict; the caller re-reads the slot and decides whether
// to retry or to report insufficient capacity.
func (r *BookingRepo) CreateWithReservation(ctx context.Context, b *model.Booking, expectedVersion uint32) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const reserve = `UPDATE event_slots
	                 SET booked_seats = booked_seats + ?, version = version + 1, updated_at = NOW()
	                 WHERE event_id = ? AND slot_date = ? AND slot_time = ?
	                   AND version = ? AND booked_seats + ? <= capacity`
	res, err := tx.ExecContext(ctx, reserve,
		b.SeatCount, b.EventID, b.SlotDate, b.SlotTime, expectedVersion, b.SeatCount)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}

	const insert = `INSERT INTO bookings
	                (token, event_id, slot_date, slot_time, seat_count,
	                 holder_name, holder_email, holder_phone,
	                 status, token_expires_at, created_at, updated_at)
	                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`
	_, err = tx.ExecContext(ctx, insert,
		b.Token, b.EventID, b.SlotDate, b.SlotTime, b.SeatCount,
		b.Holder.Name, b.Holder.Email, b.Holder.Phone,
		b.Status, b.TokenExpiresAt)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByToken loads a booking and its reminder state, or returns
// ErrBookingNotFound.
func (r *BookingRepo) GetByToken(ctx context.Context, token string) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, selectBooking+` WHERE token = ?`, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadReminders(ctx, map[string]*model.Booking{b.Token: b}); err != nil {
		return nil, err
	}
	return b, nil
}

// ListByEvent returns every booking of an event, newest first, with
// reminder state attached. Backs the admin booking listing.
func (r *BookingRepo) ListByEvent(ctx context.Context, eventID uint64) ([]*model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, selectBooking+` WHERE event_id = ? ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(ctx, rows)
}

// Cancel flips a confirmed booking to cancelled and gives its seats back
// to the slot, all inside one transaction. The booking row is locked
// first so that two concurrent cancellations of the same token serialize
// and the loser sees ErrAlreadyCancelled instead of decrementing twice.
// When the counter would go negative it is clamped at zero and the
// returned flag is set, so the caller can log the inconsistency.
func (r *BookingRepo) Cancel(ctx context.Context, token string, at time.Time, actor string) (*model.Booking, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := scanBooking(tx.QueryRowContext(ctx, selectBooking+` WHERE token = ? FOR UPDATE`, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, ErrBookingNotFound
	}
	if err != nil {
		return nil, false, err
	}
	if b.Status == model.BookingStatusCancelled {
		return nil, false, ErrAlreadyCancelled
	}

	const mark = `UPDATE bookings
	              SET status = ?, cancelled_at = ?, cancelled_by = ?, updated_at = NOW()
	              WHERE token = ?`
	if _, err := tx.ExecContext(ctx, mark, model.BookingStatusCancelled, at, actor, token); err != nil {
		return nil, false, err
	}

	const release = `UPDATE event_slots
	                 SET booked_seats = booked_seats - ?, version = version + 1, updated_at = NOW()
	                 WHERE event_id = ? AND slot_date = ? AND slot_time = ? AND booked_seats >= ?`
	res, err := tx.ExecContext(ctx, release, b.SeatCount, b.EventID, b.SlotDate, b.SlotTime, b.SeatCount)
	if err != nil {
		return nil, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	clamped := false
	if n == 0 {
		// Counter is lower than the seats being released. Zero it out
		// rather than refuse the cancellation.
		const clamp = `UPDATE event_slots
		               SET booked_seats = 0, version = version + 1, updated_at = NOW()
		               WHERE event_id = ? AND slot_date = ? AND slot_time = ?`
		if _, err := tx.ExecContext(ctx, clamp, b.EventID, b.SlotDate, b.SlotTime); err != nil {
			return nil, false, err
		}
		clamped = true
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	committed = true

	b.Status = model.BookingStatusCancelled
	b.CancelledAt = &at
	b.CancelledBy = &actor
	return b, clamped, nil
}

// ListConfirmedUpcoming returns confirmed bookings whose slot starts
// strictly after the given instant. Reminder state is bulk-loaded so the
// scheduler can filter already-sent pairs without per-row queries.
func (r *BookingRepo) ListConfirmedUpcoming(ctx context.Context, after time.Time) ([]*model.Booking, error) {
	const q = selectBooking + `
	          WHERE status = ?
	            AND TIMESTAMP(slot_date, CONCAT(slot_time, ':00')) > ?
	          ORDER BY slot_date, slot_time`
	rows, err := r.db.QueryContext(ctx, q, model.BookingStatusConfirmed, after)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(ctx, rows)
}

// MarkReminderSent records a sent reminder. The primary key on
// (booking_token, reminder_type) plus the no-op duplicate clause make a
// repeat call harmless and preserve the original sent_at.
func (r *BookingRepo) MarkReminderSent(ctx context.Context, token string, t model.ReminderType, sentAt time.Time) error {
	const q = `INSERT INTO booking_reminders (booking_token, reminder_type, sent_at)
	           VALUES (?, ?, ?)
	           ON DUPLICATE KEY UPDATE booking_token = booking_token`
	_, err := r.db.ExecContext(ctx, q, token, t, sentAt)
	return err
}

const selectBooking = `SELECT token, event_id, slot_date, slot_time, seat_count,
	holder_name, holder_email, holder_phone,
	status, token_expires_at, cancelled_at, cancelled_by, created_at, updated_at
	FROM bookings`

// scanBooking reads one bookings row. Reminder state is loaded
// separately because it lives in its own table.
func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		b           model.Booking
		date        time.Time
		cancelledAt sql.NullTime
		cancelledBy sql.NullString
	)
	err := row.Scan(&b.Token, &b.EventID, &date, &b.SlotTime, &b.SeatCount,
		&b.Holder.Name, &b.Holder.Email, &b.Holder.Phone,
		&b.Status, &b.TokenExpiresAt, &cancelledAt, &cancelledBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.SlotDate = date.Format(model.SlotDateLayout)
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}
	if cancelledBy.Valid {
		s := cancelledBy.String
		b.CancelledBy = &s
	}
	b.Reminders = make(map[model.ReminderType]model.ReminderState)
	return &b, nil
}

// collect drains a bookings result set and attaches reminder state.
func (r *BookingRepo) collect(ctx context.Context, rows *sql.Rows) ([]*model.Booking, error) {
	bookings := make([]*model.Booking, 0)
	byToken := make(map[string]*model.Booking)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
		byToken[b.Token] = b
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadReminders(ctx, byToken); err != nil {
		return nil, err
	}
	return bookings, nil
}

// loadReminders fills the Reminders map of every booking in the set with
// the rows found in booking_reminders.
func (r *BookingRepo) loadReminders(ctx context.Context, byToken map[string]*model.Booking) error {
	if len(byToken) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(byToken))
	args := make([]interface{}, 0, len(byToken))
	for token := range byToken {
		placeholders = append(placeholders, "?")
		args = append(args, token)
	}
	q := `SELECT booking_token, reminder_type, sent_at
	      FROM booking_reminders
	      WHERE booking_token IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			token  string
			rtype  model.ReminderType
			sentAt time.Time
		)
		if err := rows.Scan(&token, &rtype, &sentAt); err != nil {
			return err
		}
		if b, ok := byToken[token]; ok {
			t := sentAt
			b.Reminders[rtype] = model.ReminderState{Sent: true, SentAt: &t}
		}
	}
	return rows.Err()
}
