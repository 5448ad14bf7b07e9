package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/smilebright-frontdesk/internal/clinic"
	"github.com/wolfman30/smilebright-frontdesk/internal/ledger"
	"github.com/wolfman30/smilebright-frontdesk/internal/observability/metrics"
	"github.com/wolfman30/smilebright-frontdesk/pkg/logging"
)

var (
	// ErrUnknownTool is recorded on the dispatch span when the model names a
	// tool that is not registered; the model gets an error result instead.
	ErrUnknownTool = errors.New("conversation: unknown tool")
	// ErrMissingArgument is returned when a required tool argument is absent.
	ErrMissingArgument = errors.New("missing required argument")
)

var toolTracer = otel.Tracer("smilebright.internal.conversation.tools")

// Tool is one operation the model may invoke.
type Tool interface {
	Spec() ToolSpec
	Call(args map[string]any) (string, error)
}

type funcTool struct {
	spec ToolSpec
	fn   func(args map[string]any) (any, error)
}

func (t funcTool) Spec() ToolSpec { return t.spec }

func (t funcTool) Call(args map[string]any) (string, error) {
	payload, err := t.fn(args)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("conversation: encode %s result: %w", t.spec.Name, err)
	}
	return string(data), nil
}

// Dispatcher routes tool calls to registered tools and renders their results.
type Dispatcher struct {
	tools   map[string]Tool
	order   []string
	explain func(error) string
	logger  *logging.Logger
	metrics *metrics.ConversationMetrics
	tracer  trace.Tracer
}

// NewDispatcher registers the ledger tool catalog. Ledger errors are
// rendered with the ledger's patient-facing text.
func NewDispatcher(l *ledger.Ledger, logger *logging.Logger, m *metrics.ConversationMetrics) *Dispatcher {
	if logger == nil {
		logger = logging.Discard()
	}
	d := &Dispatcher{
		tools:   make(map[string]Tool),
		explain: l.Explain,
		logger:  logger,
		metrics: m,
		tracer:  toolTracer,
	}
	for _, tool := range LedgerTools(l) {
		d.Register(tool)
	}
	return d
}

// Register adds or replaces a tool.
func (d *Dispatcher) Register(tool Tool) {
	name := tool.Spec().Name
	if _, exists := d.tools[name]; !exists {
		d.order = append(d.order, name)
	}
	d.tools[name] = tool
}

// Specs lists the registered tools in registration order.
func (d *Dispatcher) Specs() []ToolSpec {
	specs := make([]ToolSpec, 0, len(d.order))
	for _, name := range d.order {
		specs = append(specs, d.tools[name].Spec())
	}
	return specs
}

// Dispatch runs one tool call. Failures are reported to the model as an
// error result rather than aborting the turn.
func (d *Dispatcher) Dispatch(ctx context.Context, call ToolCall) ToolResult {
	_, span := d.tracer.Start(ctx, "conversation.tool_call")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", call.Name))

	result := ToolResult{CallID: call.ID, Name: call.Name}
	tool, ok := d.tools[call.Name]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
		span.RecordError(err)
		d.logger.Warn("model requested unknown tool", "tool", call.Name)
		d.metrics.ObserveToolCall(call.Name, "unknown_tool")
		result.Content = errorPayload(fmt.Sprintf("Unknown function: %s", call.Name))
		result.IsError = true
		return result
	}

	content, err := tool.Call(call.Args)
	outcome := toolOutcome(err)
	d.metrics.ObserveToolCall(call.Name, outcome)
	if err != nil {
		span.RecordError(err)
		d.logger.Debug("tool call failed", "tool", call.Name, "outcome", outcome, "error", err)
		result.Content = errorPayload(d.render(err))
		result.IsError = true
		return result
	}
	d.logger.Debug("tool call succeeded", "tool", call.Name)
	result.Content = content
	return result
}

func (d *Dispatcher) render(err error) string {
	if errors.Is(err, ErrMissingArgument) {
		return err.Error()
	}
	return d.explain(err)
}

func toolOutcome(err error) string {
	if errors.Is(err, ErrMissingArgument) {
		return "invalid_arguments"
	}
	return ledger.Outcome(err)
}

func errorPayload(message string) string {
	data, _ := json.Marshal(map[string]any{"success": false, "error": message})
	return string(data)
}

// LedgerTools builds the tool catalog over a ledger.
func LedgerTools(l *ledger.Ledger) []Tool {
	services := l.Clinic().ServiceNames()
	return []Tool{
		funcTool{
			spec: ToolSpec{
				Name:        "register_patient",
				Description: "Register a new patient in the system.",
				Params: []ToolParam{
					{Name: "name", Type: ParamString, Description: "Patient's full name", Required: true},
					{Name: "phone", Type: ParamString, Description: "Patient's phone number", Required: true},
					{Name: "email", Type: ParamString, Description: "Patient's email address"},
					{Name: "date_of_birth", Type: ParamString, Description: "Date of birth (YYYY-MM-DD)"},
				},
			},
			fn: func(args map[string]any) (any, error) {
				name, err := requireString(args, "name")
				if err != nil {
					return nil, err
				}
				phone, err := requireString(args, "phone")
				if err != nil {
					return nil, err
				}
				id := l.RegisterPatient(name, phone, argString(args, "email"), argString(args, "date_of_birth"))
				return map[string]any{
					"success":    true,
					"patient_id": id,
					"message":    fmt.Sprintf("Registered %s as a new patient.", name),
				}, nil
			},
		},
		funcTool{
			spec: ToolSpec{
				Name:        "find_patient",
				Description: "Look up an existing patient by phone number.",
				Params: []ToolParam{
					{Name: "phone", Type: ParamString, Description: "Patient's phone number", Required: true},
				},
			},
			fn: func(args map[string]any) (any, error) {
				phone, err := requireString(args, "phone")
				if err != nil {
					return nil, err
				}
				p, ok := l.FindPatient(phone)
				if !ok {
					return map[string]any{
						"found":   false,
						"message": "No patient found with that phone number. Please register first.",
					}, nil
				}
				return map[string]any{
					"found":                 true,
					"patient":               patientView(p),
					"upcoming_appointments": appointmentViews(l.GetPatientAppointments(p.ID, false)),
				}, nil
			},
		},
		funcTool{
			spec: ToolSpec{
				Name:        "check_patient_status",
				Description: "Check whether a patient is new or returning, by name.",
				Params: []ToolParam{
					{Name: "patient_name", Type: ParamString, Description: "Patient's full name", Required: true},
				},
			},
			fn: func(args map[string]any) (any, error) {
				name, err := requireString(args, "patient_name")
				if err != nil {
					return nil, err
				}
				matches := l.FindPatientsByName(name)
				if len(matches) == 0 {
					return map[string]any{
						"found":   false,
						"is_new":  true,
						"message": fmt.Sprintf("No records found for %s. Treat them as a new patient.", name),
					}, nil
				}
				isNew := true
				views := make([]map[string]any, 0, len(matches))
				for _, p := range matches {
					isNew = isNew && p.IsNew
					view := patientView(p)
					view["upcoming_appointments"] = len(l.GetPatientAppointments(p.ID, false))
					views = append(views, view)
				}
				return map[string]any{"found": true, "is_new": isNew, "patients": views}, nil
			},
		},
		funcTool{
			spec: ToolSpec{
				Name:        "book_appointment",
				Description: "Book an appointment. The patient is matched by phone and name, and registered when no one with that name uses the phone.",
				Params: []ToolParam{
					{Name: "patient_name", Type: ParamString, Description: "Patient's full name", Required: true},
					{Name: "phone", Type: ParamString, Description: "Patient's phone number", Required: true},
					{Name: "date", Type: ParamString, Description: "Appointment date (YYYY-MM-DD)", Required: true},
					{Name: "time", Type: ParamString, Description: "Appointment time (HH:MM, 24-hour)", Required: true},
					{Name: "service", Type: ParamString, Description: "Type of dental service", Enum: services, Required: true},
					{Name: "email", Type: ParamString, Description: "Patient's email address"},
				},
			},
			fn: func(args map[string]any) (any, error) {
				values, err := requireStrings(args, "patient_name", "phone", "date", "time", "service")
				if err != nil {
					return nil, err
				}
				name, phone := values[0], values[1]
				var patientID int
				if p, ok := l.MatchPatient(phone, name); ok {
					patientID = p.ID
				} else {
					if err := l.CheckBooking(values[2], values[3], values[4]); err != nil {
						return nil, err
					}
					patientID = l.RegisterPatient(name, phone, argString(args, "email"), "")
				}
				appt, err := l.BookAppointment(patientID, values[2], values[3], values[4])
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"success": true,
					"message": fmt.Sprintf("Appointment booked for %s: %s on %s at %s.",
						appt.PatientName, appt.Service, appt.Date.Format("Monday, January 2, 2006"), appt.Time),
					"appointment": appointmentView(appt),
				}, nil
			},
		},
		funcTool{
			spec: ToolSpec{
				Name:        "cancel_appointment",
				Description: "Cancel an existing appointment.",
				Params: []ToolParam{
					{Name: "appointment_id", Type: ParamString, Description: "Appointment id, or its key in the form YYYY-MM-DD-HH:MM-Name", Required: true},
				},
			},
			fn: func(args map[string]any) (any, error) {
				ref, err := requireString(args, "appointment_id")
				if err != nil {
					return nil, err
				}
				appt, err := l.CancelAppointment(ref)
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"success":     true,
					"message":     fmt.Sprintf("Appointment %d for %s has been cancelled.", appt.ID, appt.PatientName),
					"appointment": appointmentView(appt),
				}, nil
			},
		},
		funcTool{
			spec: ToolSpec{
				Name:        "reschedule_appointment",
				Description: "Move an existing appointment to a new date and time. Identify it by appointment_id, or by patient_name when the patient has a single upcoming appointment.",
				Params: []ToolParam{
					{Name: "appointment_id", Type: ParamString, Description: "Appointment id, or its key in the form YYYY-MM-DD-HH:MM-Name"},
					{Name: "patient_name", Type: ParamString, Description: "Patient's full name"},
					{Name: "new_date", Type: ParamString, Description: "New date (YYYY-MM-DD)", Required: true},
					{Name: "new_time", Type: ParamString, Description: "New time (HH:MM, 24-hour)", Required: true},
				},
			},
			fn: func(args map[string]any) (any, error) {
				values, err := requireStrings(args, "new_date", "new_time")
				if err != nil {
					return nil, err
				}
				var appt ledger.Appointment
				switch ref, name := argString(args, "appointment_id"), argString(args, "patient_name"); {
				case ref != "":
					appt, err = l.RescheduleAppointment(ref, values[0], values[1])
				case name != "":
					appt, err = l.RescheduleByPatientName(name, values[0], values[1])
				default:
					return nil, fmt.Errorf("%w: appointment_id or patient_name", ErrMissingArgument)
				}
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"success": true,
					"message": fmt.Sprintf("Appointment %d moved to %s at %s.",
						appt.ID, appt.Date.Format("Monday, January 2, 2006"), appt.Time),
					"appointment": appointmentView(appt),
				}, nil
			},
		},
		funcTool{
			spec: ToolSpec{
				Name:        "get_appointment_history",
				Description: "List all appointments for a patient, including cancelled ones.",
				Params: []ToolParam{
					{Name: "patient_name", Type: ParamString, Description: "Patient's full name", Required: true},
				},
			},
			fn: func(args map[string]any) (any, error) {
				name, err := requireString(args, "patient_name")
				if err != nil {
					return nil, err
				}
				history := l.AppointmentHistory(name)
				if len(history) == 0 {
					return map[string]any{
						"found":   false,
						"message": fmt.Sprintf("No appointments found for %s.", name),
					}, nil
				}
				return map[string]any{"found": true, "appointments": appointmentViews(history)}, nil
			},
		},
		funcTool{
			spec: ToolSpec{
				Name:        "check_slots",
				Description: "List open appointment times on a date.",
				Params: []ToolParam{
					{Name: "date", Type: ParamString, Description: "Date to check (YYYY-MM-DD)", Required: true},
				},
			},
			fn: func(args map[string]any) (any, error) {
				date, err := requireString(args, "date")
				if err != nil {
					return nil, err
				}
				slots, err := l.CheckSlots(date)
				if err != nil {
					return nil, err
				}
				payload := map[string]any{"date": date, "available_slots": slots}
				if len(slots) == 0 {
					payload["available_slots"] = []string{}
					payload["message"] = "No open slots on that date."
				}
				return payload, nil
			},
		},
		funcTool{
			spec: ToolSpec{
				Name:        "get_faq",
				Description: "Answer a common question about the practice (parking, insurance, payment, hours, services, location, emergencies, cancellations).",
				Params: []ToolParam{
					{Name: "topic", Type: ParamString, Description: "Question or topic keyword", Required: true},
				},
			},
			fn: func(args map[string]any) (any, error) {
				topic, err := requireString(args, "topic")
				if err != nil {
					return nil, err
				}
				if answer, ok := l.FAQ(topic); ok {
					return map[string]any{"found": true, "answer": answer}, nil
				}
				return map[string]any{
					"found":   false,
					"message": "No answer on file for that question.",
					"topics":  l.Clinic().FAQTopics(),
				}, nil
			},
		},
	}
}

func patientView(p ledger.Patient) map[string]any {
	view := map[string]any{
		"patient_id": p.ID,
		"name":       p.Name,
		"phone":      p.Phone,
		"is_new":     p.IsNew,
	}
	if p.Email != "" {
		view["email"] = p.Email
	}
	return view
}

func appointmentView(a ledger.Appointment) map[string]any {
	return map[string]any{
		"appointment_id":   a.ID,
		"key":              a.Key(),
		"patient_name":     a.PatientName,
		"service":          a.Service,
		"date":             a.DateString(),
		"time":             a.Time,
		"duration_minutes": int(a.Duration / time.Minute),
		"price":            clinic.Service{PriceCents: a.PriceCents}.PriceText(),
		"status":           string(a.Status),
	}
}

func appointmentViews(appts []ledger.Appointment) []map[string]any {
	views := make([]map[string]any, 0, len(appts))
	for _, a := range appts {
		views = append(views, appointmentView(a))
	}
	return views
}

// argString reads an argument as text. Models sometimes send ids as numbers.
func argString(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func requireString(args map[string]any, key string) (string, error) {
	v := argString(args, key)
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingArgument, key)
	}
	return v, nil
}

func requireStrings(args map[string]any, keys ...string) ([]string, error) {
	values := make([]string, len(keys))
	var missing []string
	for i, key := range keys {
		values[i] = argString(args, key)
		if values[i] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %s", ErrMissingArgument, strings.Join(missing, ", "))
	}
	return values, nil
}
