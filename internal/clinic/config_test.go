package clinic

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsOpenAt(t *testing.T) {
	cfg := DefaultConfig()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Wednesday 10 AM - open
	assert.True(t, cfg.IsOpenAt(time.Date(2026, 10, 21, 10, 0, 0, 0, loc)))
	// Wednesday 5:59 PM - still open
	assert.True(t, cfg.IsOpenAt(time.Date(2026, 10, 21, 17, 59, 0, 0, loc)))
	// Wednesday 6 PM - closed
	assert.False(t, cfg.IsOpenAt(time.Date(2026, 10, 21, 18, 0, 0, 0, loc)))
	// Wednesday 8:59 AM - closed
	assert.False(t, cfg.IsOpenAt(time.Date(2026, 10, 21, 8, 59, 0, 0, loc)))
	// Saturday - closed
	assert.False(t, cfg.IsOpenAt(time.Date(2026, 10, 24, 10, 0, 0, 0, loc)))
}

func TestOpenWindow(t *testing.T) {
	cfg := DefaultConfig()

	open, closeAt, ok := cfg.OpenWindow(time.Monday)
	require.True(t, ok)
	assert.Equal(t, 9*60, open)
	assert.Equal(t, 18*60, closeAt)

	_, _, ok = cfg.OpenWindow(time.Sunday)
	assert.False(t, ok)

	cfg.BusinessHours.Tuesday = &DayHours{Open: "18:00", Close: "09:00"}
	_, _, ok = cfg.OpenWindow(time.Tuesday)
	assert.False(t, ok, "inverted hours should be treated as closed")

	cfg.BusinessHours.Thursday = &DayHours{Open: "nine", Close: "18:00"}
	_, _, ok = cfg.OpenWindow(time.Thursday)
	assert.False(t, ok)
}

func TestSlotsFor(t *testing.T) {
	cfg := DefaultConfig()
	wednesday := time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC)

	slots := cfg.SlotsFor(wednesday)
	require.Len(t, slots, 18)
	assert.Equal(t, "09:00", slots[0])
	assert.Equal(t, "09:30", slots[1])
	assert.Equal(t, "17:30", slots[len(slots)-1])

	saturday := time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, cfg.SlotsFor(saturday))

	cfg.SlotInterval = time.Hour
	assert.Len(t, cfg.SlotsFor(wednesday), 9)
}

func TestServiceLookup(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"Cleaning", "Cleaning", true},
		{"  cleaning ", "Cleaning", true},
		{"ROOT CANAL", "Root Canal", true},
		{"checkup", "Check-up", true},
		{"check up", "Check-up", true},
		{"Whitening", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			svc, ok := cfg.Service(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, svc.Name)
		})
	}

	crown, ok := cfg.Service("crown")
	require.True(t, ok)
	assert.Equal(t, 90*time.Minute, crown.Duration)
	assert.Equal(t, "$1000", crown.PriceText())
	assert.Equal(t, 90, crown.Minutes())
}

func TestPriceTextCents(t *testing.T) {
	assert.Equal(t, "$12.50", Service{PriceCents: 1250}.PriceText())
	assert.Equal(t, "$75", Service{PriceCents: 7500}.PriceText())
}

func TestFAQ(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		topic    string
		contains string
	}{
		{"parking", "free parking"},
		{"Insurance", "insurance providers"},
		{"where can I park?", "free parking"},
		{"do you take credit cards", "credit cards"},
		{"how do I cancel", "24 hours"},
		{"what are your hours", "Monday-Friday: 9:00 AM - 6:00 PM"},
		{"services", "Root Canal (90 mins, $800)"},
		{"what's your address", "123 Dental Street"},
		{"emergency", "(555) 999-9999"},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			answer, ok := cfg.FAQ(tt.topic)
			require.True(t, ok)
			assert.Contains(t, answer, tt.contains)
		})
	}

	_, ok := cfg.FAQ("teleportation")
	assert.False(t, ok)
	_, ok = cfg.FAQ("   ")
	assert.False(t, ok)
}

func TestFAQTopics(t *testing.T) {
	cfg := DefaultConfig()
	topics := cfg.FAQTopics()
	assert.Equal(t, []string{"cancellation", "emergency", "hours", "insurance", "location", "parking", "payment", "services"}, topics)
}

func TestHoursText(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "Monday-Friday: 9:00 AM - 6:00 PM", cfg.HoursText())

	cfg.BusinessHours.Friday = &DayHours{Open: "09:00", Close: "17:00"}
	cfg.BusinessHours.Saturday = &DayHours{Open: "10:00", Close: "14:00"}
	assert.Equal(t, "Monday-Thursday: 9:00 AM - 6:00 PM, Friday: 9:00 AM - 5:00 PM, Saturday: 10:00 AM - 2:00 PM", cfg.HoursText())

	cfg.BusinessHours = BusinessHours{}
	assert.Equal(t, "by appointment only", cfg.HoursText())
}

func TestPracticeContext(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Date(2026, 10, 21, 15, 0, 0, 0, time.UTC)

	text := cfg.PracticeContext(now)
	assert.Contains(t, text, "Smile Bright Dental")
	assert.Contains(t, text, "Wednesday, 2026-10-21")
	assert.Contains(t, text, "- Cleaning: 60 mins, $100")
	assert.Contains(t, text, "90 days ahead")
	assert.True(t, strings.HasPrefix(text, "Practice Information:"))
}

func TestLocationFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Not/AZone"
	assert.Equal(t, time.UTC, cfg.Location())

	var nilCfg *Config
	assert.Equal(t, time.UTC, nilCfg.Location())
}

func TestCheckTimezone(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.CheckTimezone())

	cfg.Timezone = "Not/AZone"
	err := cfg.CheckTimezone()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not/AZone")

	cfg.Timezone = ""
	assert.NoError(t, cfg.CheckTimezone())
}
