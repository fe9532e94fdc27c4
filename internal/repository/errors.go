// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting error strings. For example,
// ErrVersionConflict signals that an optimistic update lost the race
// against a concurrent writer and should be retried, while
// ErrAlreadyCancelled guards the capacity ledger against a double
// decrement.
package repository

import "errors"

// ErrEventNotFound is returned when the referenced event does not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrSlotNotFound is returned when an event exists but has no slot with
// the requested date and time.
var ErrSlotNotFound = errors.New("slot not found")

// ErrBookingNotFound is returned when no booking exists for a token.
var ErrBookingNotFound = errors.New("booking not found")

// ErrAdminNotFound is returned when no admin account matches an email.
var ErrAdminNotFound = errors.New("admin not found")

// ErrAlreadyCancelled is returned when a cancellation targets a booking
// that is already in the cancelled state. Callers rely on this to keep
// the ledger decrement idempotent.
var ErrAlreadyCancelled = errors.New("booking already cancelled")

// ErrVersionConflict is returned when an optimistic check-and-increment
// on a slot counter finds that the row version changed between read and
// write. The whole reservation unit should be retried.
var ErrVersionConflict = errors.New("slot version conflict")
