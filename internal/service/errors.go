// Package service implements the booking core: reservation with
// optimistic capacity accounting, token issuance, cancellation,
// reminder scheduling and event status refresh. Services speak to
// storage through the repository interfaces and to the broker through
// the Publisher interface, which keeps them testable without MySQL or
// RabbitMQ.
package service

import (
	"errors"
	"fmt"
)

// ErrContention is returned when a reservation kept losing the
// optimistic race after all retry attempts. The client may simply try
// again.
var ErrContention = errors.New("slot is contended, retry the reservation")

// ErrEventPassed is returned when an action targets a booking whose
// event day is already over.
var ErrEventPassed = errors.New("event has already passed")

// ErrTokenExpired is returned when a booking is looked up through a
// magic link after the end of its event day.
var ErrTokenExpired = errors.New("booking token expired")

// ErrInvalidCredentials is returned by Login for a wrong email or
// password. The two cases are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError reports a rejected request field. Handlers map it to
// a 400 response carrying the field name.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InsufficientCapacityError reports that the slot cannot hold the
// requested seats. Remaining is the seat count still available at the
// time of the check, so the client can offer it to the visitor.
type InsufficientCapacityError struct {
	Remaining uint32
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity: %d spot(s) available", e.Remaining)
}
