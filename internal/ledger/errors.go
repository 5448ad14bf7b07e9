package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrPastDate is returned when the requested date is before today
	ErrPastDate = errors.New("appointment date is in the past")

	// ErrTooFarAhead is returned when the date is beyond the booking horizon
	ErrTooFarAhead = errors.New("appointment date is too far ahead")

	// ErrWeekend is returned when the clinic is closed on that weekday
	ErrWeekend = errors.New("clinic is closed on that day")

	// ErrOutsideHours is returned when the time falls outside opening hours
	ErrOutsideHours = errors.New("appointment time is outside business hours")

	// ErrServiceUnknown is returned when the service is not in the catalog
	ErrServiceUnknown = errors.New("service is not offered")

	// ErrSlotTaken is returned when another live appointment holds the slot
	ErrSlotTaken = errors.New("time slot is already booked")

	// ErrNotFound is returned when a patient or appointment lookup fails
	ErrNotFound = errors.New("not found")

	// ErrPatientNotFound is returned when a patient id is unknown
	ErrPatientNotFound = fmt.Errorf("patient %w", ErrNotFound)

	// ErrAlreadyCancelled is returned when rescheduling a cancelled appointment
	ErrAlreadyCancelled = errors.New("appointment is cancelled")

	// ErrAmbiguousSelection is returned when a name matches several live appointments
	ErrAmbiguousSelection = errors.New("multiple live appointments match")

	// ErrInvalidFormat is returned for malformed date or time strings
	ErrInvalidFormat = errors.New("invalid date/time format")
)

// Outcome maps an operation error onto a short metrics label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrPastDate):
		return "past_date"
	case errors.Is(err, ErrTooFarAhead):
		return "too_far_ahead"
	case errors.Is(err, ErrWeekend):
		return "weekend"
	case errors.Is(err, ErrOutsideHours):
		return "outside_hours"
	case errors.Is(err, ErrServiceUnknown):
		return "service_unknown"
	case errors.Is(err, ErrSlotTaken):
		return "slot_taken"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyCancelled):
		return "already_cancelled"
	case errors.Is(err, ErrAmbiguousSelection):
		return "ambiguous_selection"
	case errors.Is(err, ErrInvalidFormat):
		return "invalid_format"
	default:
		return "error"
	}
}
