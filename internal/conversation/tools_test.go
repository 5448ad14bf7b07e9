package conversation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dispatch(t *testing.T, d *Dispatcher, name string, args map[string]any) (map[string]any, bool) {
	t.Helper()
	result := d.Dispatch(context.Background(), ToolCall{ID: "t-" + name, Name: name, Args: args})
	assert.Equal(t, "t-"+name, result.CallID)
	assert.Equal(t, name, result.Name)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content), &payload), result.Content)
	return payload, result.IsError
}

func TestDispatcherSpecs(t *testing.T) {
	d := NewDispatcher(newTestLedger(), nil, nil)

	names := make([]string, 0)
	for _, spec := range d.Specs() {
		names = append(names, spec.Name)
	}
	assert.Equal(t, []string{
		"register_patient",
		"find_patient",
		"check_patient_status",
		"book_appointment",
		"cancel_appointment",
		"reschedule_appointment",
		"get_appointment_history",
		"check_slots",
		"get_faq",
	}, names)
}

func TestRegisterAndFindPatientTools(t *testing.T) {
	d := NewDispatcher(newTestLedger(), nil, nil)

	payload, isErr := dispatch(t, d, "register_patient", map[string]any{"name": "Jane Doe", "phone": "555-123-4567"})
	require.False(t, isErr)
	assert.Equal(t, 1.0, payload["patient_id"])

	payload, isErr = dispatch(t, d, "find_patient", map[string]any{"phone": "5551234567"})
	require.False(t, isErr)
	assert.Equal(t, true, payload["found"])
	patient := payload["patient"].(map[string]any)
	assert.Equal(t, "Jane Doe", patient["name"])
	assert.Equal(t, true, patient["is_new"])

	payload, isErr = dispatch(t, d, "find_patient", map[string]any{"phone": "000"})
	require.False(t, isErr)
	assert.Equal(t, false, payload["found"])

	payload, isErr = dispatch(t, d, "register_patient", map[string]any{"name": "No Phone"})
	assert.True(t, isErr)
	assert.Equal(t, "missing required argument: phone", payload["error"])
}

func TestBookingToolRegistersUnknownPhone(t *testing.T) {
	l := newTestLedger()
	d := NewDispatcher(l, nil, nil)

	args := map[string]any{
		"patient_name": "Jane Doe",
		"phone":        "5551234567",
		"date":         "2026-10-21",
		"time":         "10:00",
		"service":      "cleaning",
	}
	payload, isErr := dispatch(t, d, "book_appointment", args)
	require.False(t, isErr, payload)
	appt := payload["appointment"].(map[string]any)
	assert.Equal(t, "Cleaning", appt["service"])
	assert.Equal(t, "$100", appt["price"])
	assert.Equal(t, 60.0, appt["duration_minutes"])
	assert.Equal(t, "2026-10-21-10:00-Jane Doe", appt["key"])
	assert.Contains(t, payload["message"], "Wednesday, October 21, 2026")

	// Same phone, same slot: existing patient reused, slot refused.
	payload, isErr = dispatch(t, d, "book_appointment", args)
	assert.True(t, isErr)
	assert.Equal(t, "That time slot is already booked. Please choose another time.", payload["error"])
	assert.Len(t, l.FindPatientsByName("Jane Doe"), 1)

	payload, isErr = dispatch(t, d, "book_appointment", map[string]any{"patient_name": "Jane Doe"})
	assert.True(t, isErr)
	assert.Equal(t, "missing required argument: date, phone, service, time", payload["error"])
}

func TestBookingToolMatchesNameOnSharedPhone(t *testing.T) {
	l := newTestLedger()
	d := NewDispatcher(l, nil, nil)
	mary := l.RegisterPatient("Mary Doe", "5551234567", "", "")

	payload, isErr := dispatch(t, d, "book_appointment", map[string]any{
		"patient_name": "Jane Doe",
		"phone":        "555-123-4567",
		"date":         "2026-10-21",
		"time":         "10:00",
		"service":      "Cleaning",
	})
	require.False(t, isErr, payload)
	assert.Contains(t, payload["message"], "Appointment booked for Jane Doe")

	janes := l.FindPatientsByName("Jane Doe")
	require.Len(t, janes, 1)
	assert.Len(t, l.GetPatientAppointments(janes[0].ID, false), 1)
	assert.Empty(t, l.GetPatientAppointments(mary, false))

	payload, isErr = dispatch(t, d, "book_appointment", map[string]any{
		"patient_name": "mary doe",
		"phone":        "5551234567",
		"date":         "2026-10-21",
		"time":         "11:00",
		"service":      "Check-up",
	})
	require.False(t, isErr, payload)
	assert.Len(t, l.GetPatientAppointments(mary, false), 1)
	assert.Len(t, l.FindPatientsByPhone("5551234567"), 2)
}

func TestBookingToolRejectedBookingRegistersNobody(t *testing.T) {
	l := newTestLedger()
	d := NewDispatcher(l, nil, nil)

	payload, isErr := dispatch(t, d, "book_appointment", map[string]any{
		"patient_name": "Tom New",
		"phone":        "5559876543",
		"date":         "2026-10-17",
		"time":         "10:00",
		"service":      "Cleaning",
	})
	assert.True(t, isErr)
	assert.Equal(t, "Cannot book appointments in the past.", payload["error"])
	assert.Empty(t, l.FindPatientsByName("Tom New"))

	payload, isErr = dispatch(t, d, "book_appointment", map[string]any{
		"patient_name": "Tom New",
		"phone":        "5559876543",
		"date":         "2026-10-21",
		"time":         "10:00",
		"service":      "Whitening",
	})
	assert.True(t, isErr)
	assert.Contains(t, payload["error"], "That service is not offered.")
	_, found := l.FindPatient("5559876543")
	assert.False(t, found)
}

func TestCancelAndRescheduleTools(t *testing.T) {
	l := newTestLedger()
	d := NewDispatcher(l, nil, nil)
	id := l.RegisterPatient("Jane Doe", "5551234567", "", "")
	_, err := l.BookAppointment(id, "2026-10-21", "10:00", "Cleaning")
	require.NoError(t, err)

	// Numeric ids arrive as JSON numbers.
	payload, isErr := dispatch(t, d, "reschedule_appointment", map[string]any{
		"appointment_id": 1.0, "new_date": "2026-10-22", "new_time": "14:00",
	})
	require.False(t, isErr, payload)
	assert.Equal(t, "14:00", payload["appointment"].(map[string]any)["time"])

	payload, isErr = dispatch(t, d, "reschedule_appointment", map[string]any{
		"patient_name": "jane doe", "new_date": "2026-10-23", "new_time": "09:00",
	})
	require.False(t, isErr, payload)

	payload, isErr = dispatch(t, d, "reschedule_appointment", map[string]any{"new_date": "2026-10-23", "new_time": "09:00"})
	assert.True(t, isErr)
	assert.Contains(t, payload["error"], "appointment_id or patient_name")

	payload, isErr = dispatch(t, d, "cancel_appointment", map[string]any{"appointment_id": "2026-10-23-09:00-Jane Doe"})
	require.False(t, isErr, payload)
	assert.Equal(t, "cancelled", payload["appointment"].(map[string]any)["status"])

	payload, isErr = dispatch(t, d, "reschedule_appointment", map[string]any{
		"appointment_id": "1", "new_date": "2026-10-26", "new_time": "10:00",
	})
	assert.True(t, isErr)
	assert.Equal(t, "Cannot reschedule a cancelled appointment.", payload["error"])

	payload, isErr = dispatch(t, d, "cancel_appointment", map[string]any{"appointment_id": "77"})
	assert.True(t, isErr)
	assert.Equal(t, "Appointment not found.", payload["error"])
}

func TestHistoryAndStatusTools(t *testing.T) {
	l := newTestLedger()
	d := NewDispatcher(l, nil, nil)

	payload, _ := dispatch(t, d, "check_patient_status", map[string]any{"patient_name": "Jane Doe"})
	assert.Equal(t, false, payload["found"])
	assert.Equal(t, true, payload["is_new"])

	id := l.RegisterPatient("Jane Doe", "5551234567", "", "")
	_, err := l.BookAppointment(id, "2026-10-21", "10:00", "Cleaning")
	require.NoError(t, err)
	_, err = l.BookAppointment(id, "2026-10-22", "10:00", "Check-up")
	require.NoError(t, err)
	_, err = l.CancelAppointment("1")
	require.NoError(t, err)

	payload, _ = dispatch(t, d, "check_patient_status", map[string]any{"patient_name": "jane doe"})
	assert.Equal(t, true, payload["found"])
	assert.Equal(t, false, payload["is_new"])
	patients := payload["patients"].([]any)
	require.Len(t, patients, 1)
	assert.Equal(t, 1.0, patients[0].(map[string]any)["upcoming_appointments"])

	payload, _ = dispatch(t, d, "get_appointment_history", map[string]any{"patient_name": "Jane Doe"})
	appts := payload["appointments"].([]any)
	require.Len(t, appts, 2)
	assert.Equal(t, "cancelled", appts[0].(map[string]any)["status"])
	assert.Equal(t, "scheduled", appts[1].(map[string]any)["status"])

	payload, _ = dispatch(t, d, "get_appointment_history", map[string]any{"patient_name": "Nobody"})
	assert.Equal(t, false, payload["found"])
}

func TestSlotsAndFAQTools(t *testing.T) {
	d := NewDispatcher(newTestLedger(), nil, nil)

	payload, isErr := dispatch(t, d, "check_slots", map[string]any{"date": "2026-10-21"})
	require.False(t, isErr)
	assert.Len(t, payload["available_slots"], 18)

	payload, isErr = dispatch(t, d, "check_slots", map[string]any{"date": "2026-10-17"})
	assert.True(t, isErr)
	assert.Equal(t, "Cannot book appointments in the past.", payload["error"])

	payload, isErr = dispatch(t, d, "get_faq", map[string]any{"topic": "parking"})
	require.False(t, isErr)
	assert.Contains(t, payload["answer"], "parking")

	payload, _ = dispatch(t, d, "get_faq", map[string]any{"topic": "teleportation"})
	assert.Equal(t, false, payload["found"])
	assert.NotEmpty(t, payload["topics"])
}

func TestUnknownTool(t *testing.T) {
	d := NewDispatcher(newTestLedger(), nil, nil)

	payload, isErr := dispatch(t, d, "launch_rocket", nil)
	assert.True(t, isErr)
	assert.Equal(t, "Unknown function: launch_rocket", payload["error"])
}

func TestArgString(t *testing.T) {
	args := map[string]any{
		"s":   "  text ",
		"f":   3.0,
		"big": 12345678.0,
		"n":   json.Number("7"),
		"b":   true,
	}
	assert.Equal(t, "text", argString(args, "s"))
	assert.Equal(t, "3", argString(args, "f"))
	assert.Equal(t, "12345678", argString(args, "big"))
	assert.Equal(t, "7", argString(args, "n"))
	assert.Equal(t, "true", argString(args, "b"))
	assert.Equal(t, "", argString(args, "missing"))
}

func TestToolSpecJSONSchema(t *testing.T) {
	spec := ToolSpec{
		Name: "demo",
		Params: []ToolParam{
			{Name: "a", Type: ParamString, Description: "first", Required: true},
			{Name: "b", Type: ParamInteger, Enum: []string{"1", "2"}},
			{Name: "c", Type: "weird"},
		},
	}
	schema := spec.JSONSchema()
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"a"}, schema["required"])

	props := schema["properties"].(map[string]any)
	assert.Equal(t, "string", props["a"].(map[string]any)["type"])
	assert.Equal(t, "integer", props["b"].(map[string]any)["type"])
	assert.Equal(t, []any{"1", "2"}, props["b"].(map[string]any)["enum"])
	assert.Equal(t, "string", props["c"].(map[string]any)["type"])

	_, hasRequired := ToolSpec{Name: "empty"}.JSONSchema()["required"]
	assert.False(t, hasRequired)
}
