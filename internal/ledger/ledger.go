// Package ledger is the authoritative in-memory store of patients and
// appointments for a single clinic session.
//
// Appointments live in an arena keyed by generated integer IDs so cancelled
// bookings are never lost. A separate slot index holds only live
// appointments, keyed by (date, time): cancelling frees the slot for reuse.
//
// A Ledger is owned by one session and is not safe for concurrent use.
package ledger

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/smilebright-frontdesk/internal/clinic"
	"github.com/wolfman30/smilebright-frontdesk/internal/observability/metrics"
	"github.com/wolfman30/smilebright-frontdesk/pkg/logging"
)

// Ledger owns the patient and appointment records.
type Ledger struct {
	clinic  *clinic.Config
	now     func() time.Time
	logger  *logging.Logger
	metrics *metrics.LedgerMetrics

	patients     map[int]*Patient
	byPhone      map[string][]int
	appointments map[int]*Appointment
	slots        map[slotKey]int

	lastPatientID     int
	lastAppointmentID int
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used for "today".
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *logging.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics records every operation outcome.
func WithMetrics(m *metrics.LedgerMetrics) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

// New creates an empty ledger for the given clinic.
func New(cfg *clinic.Config, opts ...Option) *Ledger {
	if cfg == nil {
		cfg = clinic.DefaultConfig()
	}
	l := &Ledger{
		clinic:       cfg,
		now:          time.Now,
		logger:       logging.Discard(),
		patients:     make(map[int]*Patient),
		byPhone:      make(map[string][]int),
		appointments: make(map[int]*Appointment),
		slots:        make(map[slotKey]int),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Clinic returns the practice profile the ledger validates against.
func (l *Ledger) Clinic() *clinic.Config {
	return l.clinic
}

func (l *Ledger) observe(operation string, err error) {
	l.metrics.ObserveOperation(operation, Outcome(err))
	l.metrics.SetLiveAppointments(len(l.slots))
}

// normalizePhone keeps digits only so "(555) 123-4567" matches "5551234567".
func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// RegisterPatient stores a new patient and returns its id. Phone numbers are
// not unique: registering the same phone twice creates two patients.
func (l *Ledger) RegisterPatient(name, phone, email, dob string) int {
	l.lastPatientID++
	p := &Patient{
		ID:             l.lastPatientID,
		Name:           strings.TrimSpace(name),
		Phone:          strings.TrimSpace(phone),
		Email:          strings.TrimSpace(email),
		DateOfBirth:    strings.TrimSpace(dob),
		IsNew:          true,
		CreatedAt:      l.now().UTC(),
		AppointmentIDs: []int{},
	}
	l.patients[p.ID] = p
	if key := normalizePhone(phone); key != "" {
		l.byPhone[key] = append(l.byPhone[key], p.ID)
	}
	l.logger.Debug("patient registered", "patient_id", p.ID)
	l.observe("register_patient", nil)
	return p.ID
}

// FindPatient returns the first patient registered with the phone number.
func (l *Ledger) FindPatient(phone string) (Patient, bool) {
	ids := l.byPhone[normalizePhone(phone)]
	if len(ids) == 0 {
		return Patient{}, false
	}
	return l.patients[ids[0]].clone(), true
}

// FindPatientsByPhone lists every patient registered with the phone number,
// in registration order. Family members often share one.
func (l *Ledger) FindPatientsByPhone(phone string) []Patient {
	ids := l.byPhone[normalizePhone(phone)]
	out := make([]Patient, 0, len(ids))
	for _, id := range ids {
		out = append(out, l.patients[id].clone())
	}
	return out
}

// MatchPatient finds the patient registered with the phone whose name
// matches. An empty name falls back to the first patient on the phone.
func (l *Ledger) MatchPatient(phone, name string) (Patient, bool) {
	key := normalizeName(name)
	if key == "" {
		return l.FindPatient(phone)
	}
	for _, id := range l.byPhone[normalizePhone(phone)] {
		if p := l.patients[id]; normalizeName(p.Name) == key {
			return p.clone(), true
		}
	}
	return Patient{}, false
}

// FindPatientsByName matches names case-insensitively, in registration order.
func (l *Ledger) FindPatientsByName(name string) []Patient {
	key := normalizeName(name)
	if key == "" {
		return nil
	}
	var out []Patient
	for _, id := range l.patientIDs() {
		if p := l.patients[id]; normalizeName(p.Name) == key {
			out = append(out, p.clone())
		}
	}
	return out
}

// Patient looks up a patient by id.
func (l *Ledger) Patient(id int) (Patient, error) {
	p, ok := l.patients[id]
	if !ok {
		return Patient{}, fmt.Errorf("%w: id %d", ErrPatientNotFound, id)
	}
	return p.clone(), nil
}

func (l *Ledger) patientIDs() []int {
	ids := make([]int, 0, len(l.patients))
	for id := range l.patients {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// BookAppointment validates and records a new appointment for a patient.
// On success the patient is no longer considered new.
func (l *Ledger) BookAppointment(patientID int, date, timeStr, service string) (Appointment, error) {
	appt, err := l.book(patientID, date, timeStr, service)
	l.observe("book", err)
	return appt, err
}

// CheckBooking reports whether a booking for the date, time and service
// would be accepted, without recording anything. Callers that register a
// patient as part of booking run it first so a rejected booking leaves no
// record behind.
func (l *Ledger) CheckBooking(date, timeStr, service string) error {
	day, clock, _, err := l.bookable(date, timeStr, service)
	if err != nil {
		return err
	}
	return l.slotFree(day, clock)
}

func (l *Ledger) bookable(date, timeStr, service string) (time.Time, string, clinic.Service, error) {
	day, clock, err := l.validate(date, timeStr, true)
	if err != nil {
		return time.Time{}, "", clinic.Service{}, err
	}
	svc, ok := l.clinic.Service(service)
	if !ok {
		return time.Time{}, "", clinic.Service{}, fmt.Errorf("%w: %q", ErrServiceUnknown, service)
	}
	return day, clock, svc, nil
}

func (l *Ledger) slotFree(day time.Time, clock string) error {
	if _, taken := l.slots[slotKey{date: day.Format(DateLayout), time: clock}]; taken {
		return ErrSlotTaken
	}
	return nil
}

func (l *Ledger) book(patientID int, date, timeStr, service string) (Appointment, error) {
	day, clock, svc, err := l.bookable(date, timeStr, service)
	if err != nil {
		return Appointment{}, err
	}
	patient, ok := l.patients[patientID]
	if !ok {
		return Appointment{}, fmt.Errorf("%w: id %d", ErrPatientNotFound, patientID)
	}
	if err := l.slotFree(day, clock); err != nil {
		return Appointment{}, err
	}
	slot := slotKey{date: day.Format(DateLayout), time: clock}

	now := l.now().UTC()
	l.lastAppointmentID++
	appt := &Appointment{
		ID:          l.lastAppointmentID,
		PatientID:   patient.ID,
		PatientName: patient.Name,
		Service:     svc.Name,
		Date:        day,
		Time:        clock,
		Duration:    svc.Duration,
		PriceCents:  svc.PriceCents,
		Status:      StatusScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	l.appointments[appt.ID] = appt
	l.slots[slot] = appt.ID
	patient.AppointmentIDs = append(patient.AppointmentIDs, appt.ID)
	patient.IsNew = false

	l.logger.Debug("appointment booked",
		"appointment_id", appt.ID,
		"patient_id", patient.ID,
		"service", appt.Service,
		"date", appt.DateString(),
		"time", appt.Time,
	)
	return *appt, nil
}

// resolve finds an appointment by numeric id or composite key. When a key
// names several records (a slot cancelled and rebooked), the live one wins,
// then the most recent.
func (l *Ledger) resolve(ref string) (*Appointment, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrNotFound
	}
	if id, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil {
		if appt, ok := l.appointments[id]; ok {
			return appt, nil
		}
		return nil, ErrNotFound
	}
	var match *Appointment
	for _, appt := range l.appointments {
		if !strings.EqualFold(appt.Key(), ref) {
			continue
		}
		switch {
		case match == nil:
			match = appt
		case appt.Live() && !match.Live():
			match = appt
		case appt.Live() == match.Live() && appt.ID > match.ID:
			match = appt
		}
	}
	if match == nil {
		return nil, ErrNotFound
	}
	return match, nil
}

// Appointment looks up an appointment by id or composite key.
func (l *Ledger) Appointment(ref string) (Appointment, error) {
	appt, err := l.resolve(ref)
	if err != nil {
		return Appointment{}, err
	}
	return *appt, nil
}

// CancelAppointment marks an appointment cancelled and frees its slot.
// The record itself is kept for history. Cancelling twice is not an error.
func (l *Ledger) CancelAppointment(ref string) (Appointment, error) {
	appt, err := l.cancel(ref)
	l.observe("cancel", err)
	return appt, err
}

func (l *Ledger) cancel(ref string) (Appointment, error) {
	appt, err := l.resolve(ref)
	if err != nil {
		return Appointment{}, err
	}
	if appt.Live() {
		slot := slotKey{date: appt.DateString(), time: appt.Time}
		if l.slots[slot] == appt.ID {
			delete(l.slots, slot)
		}
		appt.Status = StatusCancelled
		appt.UpdatedAt = l.now().UTC()
		l.logger.Debug("appointment cancelled", "appointment_id", appt.ID)
	}
	return *appt, nil
}

// RescheduleAppointment moves a live appointment to a new date and time.
// Moving onto its own current slot succeeds without change.
func (l *Ledger) RescheduleAppointment(ref, newDate, newTime string) (Appointment, error) {
	appt, err := l.reschedule(ref, newDate, newTime)
	l.observe("reschedule", err)
	return appt, err
}

func (l *Ledger) reschedule(ref, newDate, newTime string) (Appointment, error) {
	appt, err := l.resolve(ref)
	if err != nil {
		return Appointment{}, err
	}
	return l.move(appt, newDate, newTime)
}

func (l *Ledger) move(appt *Appointment, newDate, newTime string) (Appointment, error) {
	if !appt.Live() {
		return Appointment{}, ErrAlreadyCancelled
	}
	day, clock, err := l.validate(newDate, newTime, true)
	if err != nil {
		return Appointment{}, err
	}
	target := slotKey{date: day.Format(DateLayout), time: clock}
	if holder, taken := l.slots[target]; taken && holder != appt.ID {
		return Appointment{}, ErrSlotTaken
	}

	current := slotKey{date: appt.DateString(), time: appt.Time}
	if l.slots[current] == appt.ID {
		delete(l.slots, current)
	}
	appt.Date = day
	appt.Time = clock
	appt.UpdatedAt = l.now().UTC()
	l.slots[target] = appt.ID

	l.logger.Debug("appointment rescheduled",
		"appointment_id", appt.ID,
		"date", appt.DateString(),
		"time", appt.Time,
	)
	return *appt, nil
}

// RescheduleByPatientName reschedules the single live appointment held by
// patients with that name. It refuses to guess when there are several.
func (l *Ledger) RescheduleByPatientName(name, newDate, newTime string) (Appointment, error) {
	appt, err := l.rescheduleByName(name, newDate, newTime)
	l.observe("reschedule", err)
	return appt, err
}

func (l *Ledger) rescheduleByName(name, newDate, newTime string) (Appointment, error) {
	var live []*Appointment
	for _, p := range l.FindPatientsByName(name) {
		for _, id := range p.AppointmentIDs {
			if appt := l.appointments[id]; appt.Live() {
				live = append(live, appt)
			}
		}
	}
	switch len(live) {
	case 0:
		return Appointment{}, ErrNotFound
	case 1:
		return l.move(live[0], newDate, newTime)
	default:
		return Appointment{}, ErrAmbiguousSelection
	}
}

// GetPatientAppointments returns a patient's appointments in chronological
// order. Cancelled entries are only included when includeCancelled is set.
func (l *Ledger) GetPatientAppointments(patientID int, includeCancelled bool) []Appointment {
	p, ok := l.patients[patientID]
	if !ok {
		return []Appointment{}
	}
	return l.collect(p.AppointmentIDs, includeCancelled)
}

// AppointmentHistory returns every appointment, of any status, held by
// patients with that name.
func (l *Ledger) AppointmentHistory(name string) []Appointment {
	var ids []int
	for _, p := range l.FindPatientsByName(name) {
		ids = append(ids, p.AppointmentIDs...)
	}
	return l.collect(ids, true)
}

func (l *Ledger) collect(ids []int, includeCancelled bool) []Appointment {
	out := make([]Appointment, 0, len(ids))
	for _, id := range ids {
		appt, ok := l.appointments[id]
		if !ok || (!includeCancelled && !appt.Live()) {
			continue
		}
		out = append(out, *appt)
	}
	SortChronological(out)
	return out
}

// SortChronological orders appointments by start time, then id.
func SortChronological(appts []Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		a, b := appts[i].StartsAt(), appts[j].StartsAt()
		if !a.Equal(b) {
			return a.Before(b)
		}
		return appts[i].ID < appts[j].ID
	})
}

// CheckSlots lists the open start times on a date. Booked slots are left
// out, and so are start times already behind us when the date is today.
// Slots are start times only; appointment lengths are not checked for overlap.
func (l *Ledger) CheckSlots(date string) ([]string, error) {
	day, _, err := l.validate(date, "", false)
	l.observe("check_slots", err)
	if err != nil {
		return nil, err
	}
	dateKey := day.Format(DateLayout)
	cutoff := -1
	if day.Equal(l.today()) {
		now := l.now().In(l.clinic.Location())
		cutoff = now.Hour()*60 + now.Minute()
	}
	var open []string
	for _, slot := range l.clinic.SlotsFor(day) {
		if minutes, _ := clinic.ParseClock(slot); minutes < cutoff {
			continue
		}
		if _, taken := l.slots[slotKey{date: dateKey, time: slot}]; !taken {
			open = append(open, slot)
		}
	}
	return open, nil
}

// FAQ answers a practice question from the clinic profile.
func (l *Ledger) FAQ(topic string) (string, bool) {
	return l.clinic.FAQ(topic)
}

// LiveAppointments counts appointments currently holding a slot.
func (l *Ledger) LiveAppointments() int {
	return len(l.slots)
}

func (p *Patient) clone() Patient {
	out := *p
	out.AppointmentIDs = append([]int(nil), p.AppointmentIDs...)
	return out
}
