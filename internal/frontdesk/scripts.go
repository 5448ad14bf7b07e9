package frontdesk

import (
	"fmt"
	"strconv"

	"github.com/wolfman30/smilebright-frontdesk/internal/clinic"
	"github.com/wolfman30/smilebright-frontdesk/internal/ledger"
)

const longDate = "Monday, January 2, 2006"

// identify asks for a phone number and returns the matching patient. When
// several patients share the phone, the name picks one.
func (c *Console) identify() (ledger.Patient, bool, error) {
	phone, err := c.ask("\nPlease enter your phone number: ")
	if err != nil {
		return ledger.Patient{}, false, err
	}
	matches := c.ledger.FindPatientsByPhone(phone)
	if len(matches) <= 1 {
		p, ok := c.ledger.FindPatient(phone)
		return p, ok, nil
	}
	name, err := c.askRequired("Patient's Full Name: ")
	if err != nil {
		return ledger.Patient{}, false, err
	}
	p, ok := c.ledger.MatchPatient(phone, name)
	return p, ok, nil
}

func (c *Console) bookScript() error {
	phone, err := c.ask("\nPlease enter your phone number: ")
	if err != nil {
		return err
	}
	patient, err := c.bookingPatient(phone)
	if err != nil {
		return err
	}

	svc, err := c.chooseService()
	if err != nil {
		return err
	}

	c.printf("\nAppointment Scheduling\n")
	c.printf("Available hours: %s\n", c.clinic.HoursText())
	for {
		date, timeStr, err := c.askSlot("Preferred")
		if err != nil {
			return err
		}
		appt, err := c.ledger.BookAppointment(patient.ID, date, timeStr, svc.Name)
		if err == nil {
			c.printf("\nAppointment successfully booked!\n")
			c.printAppointment(appt)
			return nil
		}
		c.printf("Booking failed: %s\n", c.ledger.Explain(err))
		again, err := c.confirm("\nWould you like to try another date/time? (yes/no): ")
		if err != nil || !again {
			return err
		}
	}
}

// bookingPatient decides who the booking is for. A known phone may belong
// to several family members, so it is confirmed by name before reuse.
func (c *Console) bookingPatient(phone string) (ledger.Patient, error) {
	matches := c.ledger.FindPatientsByPhone(phone)
	if len(matches) == 1 {
		same, err := c.confirm(fmt.Sprintf("\nIs this appointment for %s? (yes/no): ", matches[0].Name))
		if err != nil {
			return ledger.Patient{}, err
		}
		if same {
			c.printf("\nWelcome back, %s!\n", matches[0].Name)
			return matches[0], nil
		}
	}

	var name string
	if len(matches) > 0 {
		var err error
		if name, err = c.askRequired("Patient's Full Name: "); err != nil {
			return ledger.Patient{}, err
		}
		if p, ok := c.ledger.MatchPatient(phone, name); ok {
			c.printf("\nWelcome back, %s!\n", p.Name)
			return p, nil
		}
	}

	c.printf("\nLooks like you're a new patient. Let's get you registered.\n")
	patient, err := c.register(phone, name)
	if err != nil {
		return ledger.Patient{}, err
	}
	c.printf("\nRegistration successful!\n")
	return patient, nil
}

// register records a new patient on the phone. The name is asked for when
// not already known.
func (c *Console) register(phone, name string) (ledger.Patient, error) {
	if name == "" {
		var err error
		if name, err = c.askRequired("Full Name: "); err != nil {
			return ledger.Patient{}, err
		}
	}
	email, err := c.ask("Email Address: ")
	if err != nil {
		return ledger.Patient{}, err
	}
	dob, err := c.ask("Date of Birth (YYYY-MM-DD): ")
	if err != nil {
		return ledger.Patient{}, err
	}
	id := c.ledger.RegisterPatient(name, phone, email, dob)
	return c.ledger.Patient(id)
}

func (c *Console) askRequired(prompt string) (string, error) {
	for {
		value, err := c.ask(prompt)
		if err != nil || value != "" {
			return value, err
		}
	}
}

func (c *Console) chooseService() (clinic.Service, error) {
	services := c.clinic.Services
	c.printf("\nAvailable Services:\n")
	for i, svc := range services {
		c.printf("%d. %s (%d mins, %s)\n", i+1, svc.Name, svc.Minutes(), svc.PriceText())
	}
	for {
		answer, err := c.ask("\nSelect service number: ")
		if err != nil {
			return clinic.Service{}, err
		}
		n, convErr := strconv.Atoi(answer)
		switch {
		case convErr != nil:
			c.printf("Please enter a valid number.\n")
		case n < 1 || n > len(services):
			c.printf("Invalid selection. Please try again.\n")
		default:
			return services[n-1], nil
		}
	}
}

func (c *Console) askSlot(label string) (string, string, error) {
	date, err := c.ask(label + " date (YYYY-MM-DD): ")
	if err != nil {
		return "", "", err
	}
	timeStr, err := c.ask(label + " time (HH:MM, 24-hour format): ")
	if err != nil {
		return "", "", err
	}
	return date, timeStr, nil
}

func (c *Console) printAppointment(appt ledger.Appointment) {
	c.printf("Service: %s\n", appt.Service)
	c.printf("Duration: %d minutes\n", int(appt.Duration.Minutes()))
	c.printf("Cost: %s\n", clinic.Service{PriceCents: appt.PriceCents}.PriceText())
	c.printf("Date: %s\n", appt.Date.Format(longDate))
	c.printf("Time: %s\n", appt.Time)
	c.printf("Appointment ID: %d\n", appt.ID)
}

// liveAppointments lists a patient's live bookings or explains why there
// is nothing to act on.
func (c *Console) liveAppointments(action string) (ledger.Patient, []ledger.Appointment, error) {
	patient, ok, err := c.identify()
	if err != nil {
		return ledger.Patient{}, nil, err
	}
	if !ok {
		c.printf("No patient found with that phone number. Please register as a new patient first.\n")
		return ledger.Patient{}, nil, nil
	}
	live := c.ledger.GetPatientAppointments(patient.ID, false)
	if len(live) == 0 {
		c.printf("You don't have any active appointments to %s.\n", action)
	}
	return patient, live, nil
}

func (c *Console) listAppointments(appts []ledger.Appointment) {
	c.printf("\nYour appointments:\n")
	for _, appt := range appts {
		c.printf("ID: %d | %s on %s at %s\n", appt.ID, appt.Service, appt.DateString(), appt.Time)
	}
}

func (c *Console) pickAppointment(prompt string, appts []ledger.Appointment) (ledger.Appointment, error) {
	for {
		answer, err := c.ask(prompt)
		if err != nil {
			return ledger.Appointment{}, err
		}
		id, convErr := strconv.Atoi(answer)
		if convErr != nil {
			c.printf("Please enter a valid number.\n")
			continue
		}
		for _, appt := range appts {
			if appt.ID == id {
				return appt, nil
			}
		}
		c.printf("Invalid appointment ID. Please try again.\n")
	}
}

func (c *Console) cancelScript() error {
	_, live, err := c.liveAppointments("cancel")
	if err != nil || len(live) == 0 {
		return err
	}
	return c.cancelFrom(live)
}

func (c *Console) cancelFrom(live []ledger.Appointment) error {
	c.listAppointments(live)
	appt, err := c.pickAppointment("\nEnter appointment ID to cancel: ", live)
	if err != nil {
		return err
	}
	if faq, ok := c.clinic.FAQ("cancellation"); ok {
		c.printf("\n%s\n", faq)
	}
	sure, err := c.confirm("\nAre you sure you want to cancel this appointment? (yes/no): ")
	if err != nil {
		return err
	}
	if !sure {
		c.printf("\nYour appointment has been kept.\n")
		return nil
	}
	if _, err := c.ledger.CancelAppointment(strconv.Itoa(appt.ID)); err != nil {
		c.printf("Cancellation failed: %s\n", c.ledger.Explain(err))
		return nil
	}
	c.printf("\nAppointment successfully cancelled!\n")
	return nil
}

func (c *Console) rescheduleScript() error {
	_, live, err := c.liveAppointments("reschedule")
	if err != nil || len(live) == 0 {
		return err
	}
	return c.rescheduleFrom(live)
}

func (c *Console) rescheduleFrom(live []ledger.Appointment) error {
	c.listAppointments(live)
	appt, err := c.pickAppointment("\nEnter appointment ID to reschedule: ", live)
	if err != nil {
		return err
	}

	c.printf("\nNew Appointment Time\n")
	c.printf("Available hours: %s\n", c.clinic.HoursText())
	for {
		date, timeStr, err := c.askSlot("New")
		if err != nil {
			return err
		}
		moved, err := c.ledger.RescheduleAppointment(strconv.Itoa(appt.ID), date, timeStr)
		if err == nil {
			c.printf("\nAppointment successfully rescheduled!\n")
			c.printf("New date: %s\n", moved.Date.Format(longDate))
			c.printf("New time: %s\n", moved.Time)
			return nil
		}
		c.printf("Rescheduling failed: %s\n", c.ledger.Explain(err))
		again, err := c.confirm("\nWould you like to try another date/time? (yes/no): ")
		if err != nil || !again {
			return err
		}
	}
}

func (c *Console) historyScript() error {
	patient, ok, err := c.identify()
	if err != nil {
		return err
	}
	if !ok {
		c.printf("No patient found with that phone number. Please register as a new patient first.\n")
		return nil
	}
	all := c.ledger.GetPatientAppointments(patient.ID, true)
	if len(all) == 0 {
		c.printf("No appointment history found.\n")
		return nil
	}

	var live, cancelled []ledger.Appointment
	for _, appt := range all {
		if appt.Live() {
			live = append(live, appt)
		} else {
			cancelled = append(cancelled, appt)
		}
	}

	c.printf("\nAppointment History for %s\n", patient.Name)
	c.printf("Phone: %s\n", patient.Phone)
	if patient.Email != "" {
		c.printf("Email: %s\n", patient.Email)
	}
	c.printf("==================================================\n")
	if len(live) > 0 {
		c.printf("\nUpcoming Appointments:\n")
		for _, appt := range live {
			c.printf("\n")
			c.printAppointment(appt)
		}
	}
	if len(cancelled) > 0 {
		c.printf("\nCancelled Appointments:\n")
		for _, appt := range cancelled {
			c.printf("\nAppointment ID: %d\n", appt.ID)
			c.printf("Service: %s\n", appt.Service)
			c.printf("Date: %s\n", appt.Date.Format(longDate))
			c.printf("Time: %s\n", appt.Time)
			c.printf("Status: Cancelled\n")
		}
	}
	if len(live) == 0 {
		return nil
	}

	c.printf("\nOptions:\n")
	c.printf("1. Reschedule an appointment\n")
	c.printf("2. Cancel an appointment\n")
	c.printf("3. Return to main menu\n")
	choice, err := c.ask("\nSelect an option (1-3): ")
	if err != nil {
		return err
	}
	switch choice {
	case "1":
		return c.rescheduleFrom(live)
	case "2":
		return c.cancelFrom(live)
	default:
		return nil
	}
}
