package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-slot-booking/internal/model"
	"github.com/iliyamo/event-slot-booking/internal/repository"
)

// Statuses implements StatusService. The refresh walks every event and
// recomputes its status from the slot dates alone. Comparison is by
// calendar date, not instant: an event still counts as available for
// the whole of its last slot's day.
type Statuses struct {
	events repository.EventRepository
	log    *logrus.Logger
}

// NewStatuses wires a status refresh service.
func NewStatuses(events repository.EventRepository, log *logrus.Logger) *Statuses {
	return &Statuses{events: events, log: log}
}

// Refresh recomputes and persists the status of every event. Events
// without slots are left untouched, and the repository only writes rows
// whose status actually changes.
func (s *Statuses) Refresh(ctx context.Context, now time.Time) (RefreshSummary, error) {
	events, err := s.events.ListAll(ctx)
	if err != nil {
		return RefreshSummary{}, err
	}
	sum := RefreshSummary{Events: len(events)}
	for _, ev := range events {
		slots, err := s.events.ListSlots(ctx, ev.ID)
		if err != nil {
			return sum, err
		}
		next := decideStatus(ev.Status, slots, now)
		if len(slots) > 0 {
			switch next {
			case model.EventStatusEnded:
				sum.Ended++
			default:
				sum.Available++
			}
		}
		if next == ev.Status {
			continue
		}
		changed, err := s.events.UpdateStatus(ctx, ev.ID, next)
		if err != nil {
			return sum, err
		}
		if changed {
			sum.Updated++
			s.log.WithFields(logrus.Fields{
				"event_id": ev.ID,
				"from":     ev.Status,
				"to":       next,
			}).Info("event status refreshed")
		}
	}
	return sum, nil
}

// decideStatus derives an event's status from its slots. Events with no
// slots keep their current status. A sold-out event with upcoming slots
// stays sold out; only reservation and cancellation move that flag.
func decideStatus(current model.EventStatus, slots []*model.TimeSlot, now time.Time) model.EventStatus {
	if len(slots) == 0 {
		return current
	}
	today := now.UTC().Format(model.SlotDateLayout)
	for _, s := range slots {
		if s.SlotDate >= today {
			if current == model.EventStatusSoldOut {
				return model.EventStatusSoldOut
			}
			return model.EventStatusAvailable
		}
	}
	return model.EventStatusEnded
}
