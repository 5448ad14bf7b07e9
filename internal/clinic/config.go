// Package clinic describes the practice the front desk works for: contact
// details, opening hours, the service catalog and canned FAQ answers.
package clinic

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DayHours represents the opening hours for a single day.
// Nil means the clinic is closed that day.
type DayHours struct {
	Open  string `json:"open"`  // "09:00" in 24-hour format
	Close string `json:"close"` // "18:00" in 24-hour format
}

// BusinessHours maps day names to their hours.
type BusinessHours struct {
	Monday    *DayHours `json:"monday,omitempty"`
	Tuesday   *DayHours `json:"tuesday,omitempty"`
	Wednesday *DayHours `json:"wednesday,omitempty"`
	Thursday  *DayHours `json:"thursday,omitempty"`
	Friday    *DayHours `json:"friday,omitempty"`
	Saturday  *DayHours `json:"saturday,omitempty"`
	Sunday    *DayHours `json:"sunday,omitempty"`
}

// Service is one entry of the treatment catalog.
type Service struct {
	Name       string        `json:"name"`
	Duration   time.Duration `json:"duration"`
	PriceCents int           `json:"price_cents"`
}

// PriceText renders the price in whole dollars, e.g. "$100".
func (s Service) PriceText() string {
	if s.PriceCents%100 == 0 {
		return fmt.Sprintf("$%d", s.PriceCents/100)
	}
	return fmt.Sprintf("$%d.%02d", s.PriceCents/100, s.PriceCents%100)
}

// Minutes returns the appointment length in whole minutes.
func (s Service) Minutes() int {
	return int(s.Duration / time.Minute)
}

// Config holds the practice profile.
type Config struct {
	Name           string        `json:"name"`
	Phone          string        `json:"phone"`
	EmergencyPhone string        `json:"emergency_phone,omitempty"`
	Address        string        `json:"address"`
	Timezone       string        `json:"timezone"` // e.g., "America/New_York"
	BusinessHours  BusinessHours `json:"business_hours"`
	Services       []Service     `json:"services"`
	// FAQs are keyed by normalized topic ("parking", "insurance", ...).
	FAQs map[string]string `json:"faqs,omitempty"`
	// MaxAdvanceDays bounds how far ahead a booking may be made.
	MaxAdvanceDays int `json:"max_advance_days"`
	// SlotInterval is the spacing of bookable start times.
	SlotInterval time.Duration `json:"slot_interval"`
}

// DefaultConfig returns the Smile Bright Dental profile.
func DefaultConfig() *Config {
	weekday := func() *DayHours { return &DayHours{Open: "09:00", Close: "18:00"} }
	return &Config{
		Name:           "Smile Bright Dental",
		Phone:          "(555) 123-4567",
		EmergencyPhone: "(555) 999-9999",
		Address:        "123 Dental Street, Suite 100",
		Timezone:       "America/New_York",
		BusinessHours: BusinessHours{
			Monday:    weekday(),
			Tuesday:   weekday(),
			Wednesday: weekday(),
			Thursday:  weekday(),
			Friday:    weekday(),
			Saturday:  nil, // Closed
			Sunday:    nil, // Closed
		},
		Services: []Service{
			{Name: "Cleaning", Duration: 60 * time.Minute, PriceCents: 10000},
			{Name: "Check-up", Duration: 30 * time.Minute, PriceCents: 7500},
			{Name: "Fillings", Duration: 60 * time.Minute, PriceCents: 15000},
			{Name: "Root Canal", Duration: 90 * time.Minute, PriceCents: 80000},
			{Name: "Crown", Duration: 90 * time.Minute, PriceCents: 100000},
			{Name: "Extraction", Duration: 45 * time.Minute, PriceCents: 20000},
		},
		FAQs: map[string]string{
			"parking":      "Yes, we have free parking available in front of the clinic.",
			"insurance":    "We accept most major insurance providers. Please contact us with your specific provider.",
			"emergency":    "Yes, we provide emergency dental services. Call our emergency line at (555) 999-9999.",
			"payment":      "We accept cash, credit cards, and offer various payment plans.",
			"cancellation": "Please provide at least 24 hours notice for cancellations to avoid any fees.",
		},
		MaxAdvanceDays: 90,
		SlotInterval:   30 * time.Minute,
	}
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CheckTimezone reports whether the configured timezone loads. Location
// falls back to UTC silently, so callers check once at startup.
func (c *Config) CheckTimezone() error {
	if c == nil || c.Timezone == "" {
		return nil
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("clinic: timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location resolves the clinic timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c == nil || c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Service looks up a catalog entry by name, ignoring case and surrounding space.
func (c *Config) Service(name string) (Service, bool) {
	if c == nil {
		return Service{}, false
	}
	key := normalizeKey(name)
	if key == "" {
		return Service{}, false
	}
	for _, svc := range c.Services {
		if normalizeKey(svc.Name) == key {
			return svc, true
		}
	}
	// "Checkup" / "check up" → "Check-up"
	compact := strings.NewReplacer("-", "", " ", "").Replace(key)
	for _, svc := range c.Services {
		if strings.NewReplacer("-", "", " ", "").Replace(normalizeKey(svc.Name)) == compact {
			return svc, true
		}
	}
	return Service{}, false
}

// ServiceNames lists the catalog in display order.
func (c *Config) ServiceNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Services))
	for _, svc := range c.Services {
		names = append(names, svc.Name)
	}
	return names
}

// faqStems maps word prefixes onto FAQ topics so loose phrasing still lands.
// Earlier entries win when a question matches several.
var faqStems = []struct {
	stem  string
	topic string
}{
	{"park", "parking"},
	{"insur", "insurance"},
	{"emergenc", "emergency"},
	{"urgent", "emergency"},
	{"pay", "payment"},
	{"card", "payment"},
	{"cash", "payment"},
	{"cancel", "cancellation"},
	{"hour", "hours"},
	{"open", "hours"},
	{"service", "services"},
	{"offer", "services"},
	{"price", "services"},
	{"cost", "services"},
	{"where", "location"},
	{"address", "location"},
	{"locat", "location"},
}

// FAQ answers a question topic. Exact topic keys win, then keyword stems.
// Hours, services and location are derived from the profile itself.
func (c *Config) FAQ(topic string) (string, bool) {
	if c == nil {
		return "", false
	}
	key := normalizeKey(topic)
	if key == "" {
		return "", false
	}
	if answer, ok := c.faqAnswer(key); ok {
		return answer, true
	}
	words := strings.FieldsFunc(key, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	for _, s := range faqStems {
		for _, word := range words {
			if strings.HasPrefix(word, s.stem) {
				if answer, ok := c.faqAnswer(s.topic); ok {
					return answer, true
				}
			}
		}
	}
	return "", false
}

func (c *Config) faqAnswer(topic string) (string, bool) {
	if answer, ok := c.FAQs[topic]; ok && strings.TrimSpace(answer) != "" {
		return answer, true
	}
	switch topic {
	case "hours":
		return fmt.Sprintf("We are open %s.", c.HoursText()), true
	case "services":
		parts := make([]string, 0, len(c.Services))
		for _, svc := range c.Services {
			parts = append(parts, fmt.Sprintf("%s (%d mins, %s)", svc.Name, svc.Minutes(), svc.PriceText()))
		}
		return "We offer " + strings.Join(parts, ", ") + ".", true
	case "location":
		return fmt.Sprintf("We are located at %s. Call us at %s.", c.Address, c.Phone), true
	}
	return "", false
}

// FAQTopics lists the configured FAQ keys in sorted order.
func (c *Config) FAQTopics() []string {
	if c == nil {
		return nil
	}
	topics := make([]string, 0, len(c.FAQs)+3)
	for k := range c.FAQs {
		topics = append(topics, k)
	}
	for _, derived := range []string{"hours", "services", "location"} {
		if _, ok := c.FAQs[derived]; !ok {
			topics = append(topics, derived)
		}
	}
	sort.Strings(topics)
	return topics
}

// GetHoursForDay returns the hours for a given weekday (0=Sunday, 6=Saturday).
func (b *BusinessHours) GetHoursForDay(weekday time.Weekday) *DayHours {
	switch weekday {
	case time.Sunday:
		return b.Sunday
	case time.Monday:
		return b.Monday
	case time.Tuesday:
		return b.Tuesday
	case time.Wednesday:
		return b.Wednesday
	case time.Thursday:
		return b.Thursday
	case time.Friday:
		return b.Friday
	case time.Saturday:
		return b.Saturday
	default:
		return nil
	}
}

// ParseClock converts "HH:MM" into minutes after midnight.
func ParseClock(value string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// OpenWindow returns the [open, close) minutes for a weekday; ok is false
// when the clinic is closed or the configured hours are malformed.
func (c *Config) OpenWindow(weekday time.Weekday) (openMin, closeMin int, ok bool) {
	if c == nil {
		return 0, 0, false
	}
	hours := c.BusinessHours.GetHoursForDay(weekday)
	if hours == nil {
		return 0, 0, false
	}
	openMin, err := ParseClock(hours.Open)
	if err != nil {
		return 0, 0, false
	}
	closeMin, err = ParseClock(hours.Close)
	if err != nil || closeMin <= openMin {
		return 0, 0, false
	}
	return openMin, closeMin, true
}

// IsOpenAt checks if the clinic is open at the given time.
func (c *Config) IsOpenAt(t time.Time) bool {
	local := t.In(c.Location())
	openMin, closeMin, ok := c.OpenWindow(local.Weekday())
	if !ok {
		return false
	}
	minutes := local.Hour()*60 + local.Minute()
	return minutes >= openMin && minutes < closeMin
}

// SlotsFor lists the bookable start times ("HH:MM") on the given date.
func (c *Config) SlotsFor(date time.Time) []string {
	openMin, closeMin, ok := c.OpenWindow(date.Weekday())
	if !ok {
		return nil
	}
	step := int(c.SlotInterval / time.Minute)
	if step <= 0 {
		step = 30
	}
	slots := make([]string, 0, (closeMin-openMin)/step+1)
	for m := openMin; m < closeMin; m += step {
		slots = append(slots, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return slots
}

// HoursText summarises the week, e.g. "Monday-Friday: 9:00 AM - 6:00 PM".
func (c *Config) HoursText() string {
	days := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}
	type run struct {
		first, last time.Weekday
		hours       DayHours
	}
	var runs []run
	for _, d := range days {
		h := c.BusinessHours.GetHoursForDay(d)
		if h == nil {
			continue
		}
		if n := len(runs); n > 0 && runs[n-1].hours == *h && nextDay(runs[n-1].last) == d {
			runs[n-1].last = d
			continue
		}
		runs = append(runs, run{first: d, last: d, hours: *h})
	}
	if len(runs) == 0 {
		return "by appointment only"
	}
	parts := make([]string, 0, len(runs))
	for _, r := range runs {
		span := r.first.String()
		if r.last != r.first {
			span = r.first.String() + "-" + r.last.String()
		}
		parts = append(parts, fmt.Sprintf("%s: %s - %s", span, clock12(r.hours.Open), clock12(r.hours.Close)))
	}
	return strings.Join(parts, ", ")
}

func nextDay(d time.Weekday) time.Weekday {
	return (d + 1) % 7
}

func clock12(value string) string {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return value
	}
	return t.Format("3:04 PM")
}

// PracticeContext renders the profile for the assistant's system prompt.
func (c *Config) PracticeContext(now time.Time) string {
	local := now.In(c.Location())
	var b strings.Builder
	fmt.Fprintf(&b, "Practice Information:\n")
	fmt.Fprintf(&b, "- Name: %s\n", c.Name)
	fmt.Fprintf(&b, "- Hours: %s\n", c.HoursText())
	fmt.Fprintf(&b, "- Location: %s\n", c.Address)
	fmt.Fprintf(&b, "- Phone: %s\n", c.Phone)
	if c.EmergencyPhone != "" {
		fmt.Fprintf(&b, "- Emergency line: %s\n", c.EmergencyPhone)
	}
	fmt.Fprintf(&b, "- Today: %s (%s)\n", local.Format("Monday, 2006-01-02"), c.Timezone)
	fmt.Fprintf(&b, "- Bookings accepted up to %d days ahead\n", c.MaxAdvanceDays)
	fmt.Fprintf(&b, "\nAvailable Services:\n")
	for _, svc := range c.Services {
		fmt.Fprintf(&b, "- %s: %d mins, %s\n", svc.Name, svc.Minutes(), svc.PriceText())
	}
	return b.String()
}
