package webinars

import (
	"fmt"

	"github.com/pipecast/backend/internal/models"
)

// transitions maps each status to the set of statuses it may move to.
// ended and cancelled are terminal. scheduled -> waiting_room is time-based
// and fired by the worker; the rest are presenter-driven.
var transitions = map[models.WebinarStatus][]models.WebinarStatus{
	models.StatusScheduled:   {models.StatusWaitingRoom, models.StatusCancelled},
	models.StatusWaitingRoom: {models.StatusLive, models.StatusCancelled},
	models.StatusLive:        {models.StatusEnded},
	models.StatusEnded:       {},
	models.StatusCancelled:   {},
}

// ValidStatus reports whether s is a known webinar status.
func ValidStatus(s models.WebinarStatus) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition returns nil when from -> to is a legal lifecycle move, and a
// descriptive error otherwise. The caller must not mutate the record on error.
func CanTransition(from, to models.WebinarStatus) error {
	if !ValidStatus(to) {
		return fmt.Errorf("unknown status %q", to)
	}
	if from == to {
		return fmt.Errorf("webinar is already %s", from)
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	if len(transitions[from]) == 0 {
		return fmt.Errorf("webinar is %s, a terminal state", from)
	}
	return fmt.Errorf("cannot move webinar from %s to %s", from, to)
}
