package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "frontdesk"

// LedgerMetrics counts appointment ledger operations by outcome.
type LedgerMetrics struct {
	operationsTotal  *prometheus.CounterVec
	liveAppointments prometheus.Gauge
}

func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	m := &LedgerMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Total ledger operations by outcome",
		}, []string{"operation", "outcome"}),
		liveAppointments: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "live_appointments",
			Help:      "Appointments currently holding a slot",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.liveAppointments)
	return m
}

// ObserveOperation records one ledger call. An empty outcome means success.
func (m *LedgerMetrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "ok"
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *LedgerMetrics) SetLiveAppointments(n int) {
	if m == nil {
		return
	}
	m.liveAppointments.Set(float64(n))
}

// ConversationMetrics exposes counters/histograms for LLM-driven turns.
type ConversationMetrics struct {
	completionsTotal  *prometheus.CounterVec
	completionLatency *prometheus.HistogramVec
	toolCallsTotal    *prometheus.CounterVec
	tokensTotal       *prometheus.CounterVec
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		completionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "completions_total",
			Help:      "Total completion calls to the LLM provider",
		}, []string{"status"}),
		completionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "completion_latency_seconds",
			Help:      "Latency of LLM completion calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "tool_calls_total",
			Help:      "Tool invocations requested by the model",
		}, []string{"tool", "outcome"}),
		tokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "tokens_total",
			Help:      "Tokens consumed by completions",
		}, []string{"direction"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.completionsTotal, m.completionLatency, m.toolCallsTotal, m.tokensTotal)
	return m
}

func (m *ConversationMetrics) ObserveCompletion(status string, seconds float64) {
	if m == nil {
		return
	}
	m.completionsTotal.WithLabelValues(status).Inc()
	m.completionLatency.WithLabelValues(status).Observe(seconds)
}

func (m *ConversationMetrics) ObserveToolCall(tool, outcome string) {
	if m == nil {
		return
	}
	m.toolCallsTotal.WithLabelValues(tool, outcome).Inc()
}

func (m *ConversationMetrics) ObserveTokens(input, output int32) {
	if m == nil {
		return
	}
	if input > 0 {
		m.tokensTotal.WithLabelValues("input").Add(float64(input))
	}
	if output > 0 {
		m.tokensTotal.WithLabelValues("output").Add(float64(output))
	}
}

// Summarize flattens counters and gauges into "name{label=value,...}" keys.
// Histograms contribute their sample count under the "_count" suffix.
// There is no scrape endpoint, so the binary logs this on exit.
func Summarize(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("metrics: gather: %w", err)
	}
	out := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			key := mf.GetName() + labelSuffix(metric.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				out[key] = metric.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				out[key] = metric.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				out[mf.GetName()+"_count"+labelSuffix(metric.GetLabel())] = float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return out, nil
}

func labelSuffix(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.GetName()+"="+p.GetValue())
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}
