package ledger

import (
	"fmt"
	"time"
)

// DateLayout is the canonical appointment date format.
const DateLayout = "2006-01-02"

// TimeLayout is the canonical appointment time format (24-hour).
const TimeLayout = "15:04"

// Status tracks the appointment lifecycle.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
)

// Patient is a registered patient. Patients are never deleted.
type Patient struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email,omitempty"`
	DateOfBirth string    `json:"dob,omitempty"`
	IsNew       bool      `json:"is_new"`
	CreatedAt   time.Time `json:"created_at"`
	// AppointmentIDs is in booking order.
	AppointmentIDs []int `json:"appointment_ids"`
}

// Appointment is one booking. Cancelled appointments stay in the ledger.
type Appointment struct {
	ID          int    `json:"id"`
	PatientID   int    `json:"patient_id"`
	PatientName string `json:"patient_name"`
	Service     string `json:"service"`
	// Date is midnight of the appointment day in the clinic timezone.
	Date time.Time `json:"date"`
	Time string    `json:"time"`
	// Duration and PriceCents are copied from the catalog at booking time.
	Duration   time.Duration `json:"duration"`
	PriceCents int           `json:"price_cents"`
	Status     Status        `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// DateString formats the appointment day as YYYY-MM-DD.
func (a Appointment) DateString() string {
	return a.Date.Format(DateLayout)
}

// Key is the composite "date-time-patient" handle patients can quote back.
func (a Appointment) Key() string {
	return fmt.Sprintf("%s-%s-%s", a.DateString(), a.Time, a.PatientName)
}

// Live reports whether the appointment still holds its slot.
func (a Appointment) Live() bool {
	return a.Status != StatusCancelled
}

// StartsAt combines date and time in the appointment's location.
func (a Appointment) StartsAt() time.Time {
	t, err := time.Parse(TimeLayout, a.Time)
	if err != nil {
		return a.Date
	}
	return time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), t.Hour(), t.Minute(), 0, 0, a.Date.Location())
}

type slotKey struct {
	date string
	time string
}
