package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/smilebright-frontdesk/internal/clinic"
)

// dateLayouts are tried in order. Patients sometimes type DD/MM/YYYY.
var dateLayouts = []string{DateLayout, "02/01/2006"}

func parseDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if d, err := time.ParseInLocation(layout, value, loc); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidFormat, value)
}

// parseClock normalizes "9:00" to "09:00".
func parseClock(value string) (string, error) {
	value = strings.TrimSpace(value)
	t, err := time.Parse(TimeLayout, value)
	if err != nil {
		return "", fmt.Errorf("%w: time %q", ErrInvalidFormat, value)
	}
	return t.Format(TimeLayout), nil
}

// ValidateAppointmentTime checks a proposed date and optional time against the
// booking rules: not in the past, within the advance horizon, on an open day,
// and inside opening hours. It has no side effects.
func (l *Ledger) ValidateAppointmentTime(date, timeStr string) error {
	_, _, err := l.validate(date, timeStr, false)
	return err
}

func (l *Ledger) validate(date, timeStr string, requireTime bool) (time.Time, string, error) {
	loc := l.clinic.Location()
	day, err := parseDate(date, loc)
	if err != nil {
		return time.Time{}, "", err
	}

	clock := ""
	if strings.TrimSpace(timeStr) != "" {
		if clock, err = parseClock(timeStr); err != nil {
			return time.Time{}, "", err
		}
	} else if requireTime {
		return time.Time{}, "", fmt.Errorf("%w: time is required", ErrInvalidFormat)
	}

	today := l.today()
	if day.Before(today) {
		return time.Time{}, "", ErrPastDate
	}
	if day.After(today.AddDate(0, 0, l.maxAdvanceDays())) {
		return time.Time{}, "", ErrTooFarAhead
	}

	openMin, closeMin, open := l.clinic.OpenWindow(day.Weekday())
	if !open {
		return time.Time{}, "", ErrWeekend
	}
	if clock != "" {
		minutes, _ := clinic.ParseClock(clock)
		if minutes < openMin || minutes >= closeMin {
			return time.Time{}, "", ErrOutsideHours
		}
	}
	return day, clock, nil
}

func (l *Ledger) today() time.Time {
	now := l.now().In(l.clinic.Location())
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func (l *Ledger) maxAdvanceDays() int {
	if l.clinic.MaxAdvanceDays > 0 {
		return l.clinic.MaxAdvanceDays
	}
	return 90
}

// Explain renders a ledger error as text suitable for a patient.
func (l *Ledger) Explain(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidFormat):
		return "Invalid date/time format. Please use YYYY-MM-DD for dates and HH:MM (24-hour) for times."
	case errors.Is(err, ErrPastDate):
		return "Cannot book appointments in the past."
	case errors.Is(err, ErrTooFarAhead):
		return fmt.Sprintf("Appointments can only be booked up to %d days in advance.", l.maxAdvanceDays())
	case errors.Is(err, ErrWeekend):
		return fmt.Sprintf("Appointments are only available %s.", l.clinic.HoursText())
	case errors.Is(err, ErrOutsideHours):
		return fmt.Sprintf("Appointments are only available during business hours (%s).", l.clinic.HoursText())
	case errors.Is(err, ErrServiceUnknown):
		return fmt.Sprintf("That service is not offered. Available services: %s.", strings.Join(l.clinic.ServiceNames(), ", "))
	case errors.Is(err, ErrSlotTaken):
		return "That time slot is already booked. Please choose another time."
	case errors.Is(err, ErrAlreadyCancelled):
		return "Cannot reschedule a cancelled appointment."
	case errors.Is(err, ErrAmbiguousSelection):
		return "Multiple appointments found. Please specify which appointment ID to use."
	case errors.Is(err, ErrPatientNotFound):
		return "Patient not found. Please register first."
	case errors.Is(err, ErrNotFound):
		return "Appointment not found."
	default:
		return "Something went wrong. Please try again."
	}
}
