package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/smilebright-frontdesk/internal/clinic"
	"github.com/wolfman30/smilebright-frontdesk/internal/ledger"
	"github.com/wolfman30/smilebright-frontdesk/internal/observability/metrics"
	"github.com/wolfman30/smilebright-frontdesk/pkg/logging"
)

// ErrToolRoundsExceeded is returned when the model keeps requesting tools
// past the configured number of rounds.
var ErrToolRoundsExceeded = errors.New("conversation: tool rounds exceeded")

const (
	apologyReply  = "I apologize, but I encountered an error. Please try again or call the office."
	clarifyReply  = "Sorry, I didn't catch that. Could you say it another way?"
	greetingReply = "How can I help you today?"

	defaultMaxToolRounds = 3
	defaultHistoryLimit  = 40
	defaultMaxTokens     = 1024
)

var assistantTracer = otel.Tracer("smilebright.internal.conversation.assistant")

// AssistantConfig tunes one assistant session.
type AssistantConfig struct {
	Model       string
	MaxTokens   int32
	Temperature float32
	// Timeout bounds each completion call. Zero means no limit.
	Timeout       time.Duration
	MaxToolRounds int
	// HistoryLimit caps stored messages; the oldest turns go first.
	HistoryLimit        int
	ResetHistoryOnError bool
}

// AssistantOption configures an Assistant.
type AssistantOption func(*Assistant)

// WithAssistantLogger sets the session logger.
func WithAssistantLogger(logger *logging.Logger) AssistantOption {
	return func(a *Assistant) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithAssistantMetrics records completions and tool calls.
func WithAssistantMetrics(m *metrics.ConversationMetrics) AssistantOption {
	return func(a *Assistant) {
		a.metrics = m
	}
}

// WithAssistantClock overrides the clock used for the prompt's "today".
func WithAssistantClock(now func() time.Time) AssistantOption {
	return func(a *Assistant) {
		if now != nil {
			a.now = now
		}
	}
}

// Assistant is one front desk conversation driven by an LLM with access to
// the ledger tools. It is not safe for concurrent use.
type Assistant struct {
	llm        LLMClient
	dispatcher *Dispatcher
	clinic     *clinic.Config
	cfg        AssistantConfig
	logger     *logging.Logger
	metrics    *metrics.ConversationMetrics
	tracer     trace.Tracer
	now        func() time.Time

	sessionID string
	history   []ChatMessage
}

// NewAssistant starts a session over the ledger.
func NewAssistant(llm LLMClient, l *ledger.Ledger, cfg AssistantConfig, opts ...AssistantOption) *Assistant {
	if llm == nil {
		panic("conversation: llm client cannot be nil")
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = defaultMaxToolRounds
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	a := &Assistant{
		llm:       llm,
		clinic:    l.Clinic(),
		cfg:       cfg,
		logger:    logging.Discard(),
		tracer:    assistantTracer,
		now:       time.Now,
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("session_id", a.sessionID)
	a.dispatcher = NewDispatcher(l, a.logger, a.metrics)
	return a
}

// SessionID identifies the conversation in logs.
func (a *Assistant) SessionID() string {
	return a.sessionID
}

// History returns a copy of the stored transcript.
func (a *Assistant) History() []ChatMessage {
	return append([]ChatMessage(nil), a.history...)
}

// reset forgets the transcript. The ledger is untouched.
func (a *Assistant) reset() {
	a.history = nil
}

// Respond handles one patient message. Tool calls requested by the model
// are run against the ledger and their results sent back until the model
// answers in text. On provider failure the reply is a generic apology and
// the error is returned alongside it.
func (a *Assistant) Respond(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return greetingReply, nil
	}

	verdict := ScanMessage(text)
	if verdict.Blocked {
		a.logger.Warn("patient message blocked", "score", verdict.Score, "reasons", verdict.Reasons)
		return guardedReply, nil
	}

	ctx, span := a.tracer.Start(ctx, "conversation.respond")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", a.sessionID))

	mark := len(a.history)
	a.history = append(a.history, ChatMessage{Role: ChatRoleUser, Content: verdict.Cleaned})

	for round := 0; ; round++ {
		resp, err := a.complete(ctx)
		if err != nil {
			span.RecordError(err)
			return a.fail(mark, err)
		}
		if len(resp.ToolCalls) == 0 {
			reply := resp.Text
			if reply == "" {
				reply = clarifyReply
			}
			if check := CheckReply(reply); len(check.Reasons) > 0 {
				a.logger.Warn("assistant reply filtered", "withheld", check.Withheld, "reasons", check.Reasons)
				span.SetAttributes(attribute.StringSlice("reply.filtered", check.Reasons))
				reply = check.Reply
			}
			a.history = append(a.history, ChatMessage{Role: ChatRoleAssistant, Content: reply})
			a.trimHistory()
			span.SetAttributes(attribute.Int("tool.rounds", round))
			return reply, nil
		}
		if round >= a.cfg.MaxToolRounds {
			err := fmt.Errorf("%w: %d", ErrToolRoundsExceeded, a.cfg.MaxToolRounds)
			span.RecordError(err)
			return a.fail(mark, err)
		}

		a.history = append(a.history, ChatMessage{
			Role:      ChatRoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})
		results := make([]ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			results = append(results, a.dispatcher.Dispatch(ctx, call))
		}
		a.history = append(a.history, ChatMessage{Role: ChatRoleUser, ToolResults: results})
	}
}

func (a *Assistant) complete(ctx context.Context) (LLMResponse, error) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}
	ctx, span := a.tracer.Start(ctx, "conversation.complete")
	defer span.End()

	req := LLMRequest{
		Model:       a.cfg.Model,
		System:      []string{buildSystemPrompt(a.clinic, a.now())},
		Messages:    a.History(),
		Tools:       a.dispatcher.Specs(),
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
	}

	start := time.Now()
	resp, err := a.llm.Complete(ctx, req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		status := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		}
		span.RecordError(err)
		a.metrics.ObserveCompletion(status, elapsed)
		return LLMResponse{}, err
	}
	a.metrics.ObserveCompletion("ok", elapsed)
	a.metrics.ObserveTokens(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.Int("llm.tool_calls", len(resp.ToolCalls)),
			attribute.Int("llm.input_tokens", int(resp.Usage.InputTokens)),
			attribute.Int("llm.output_tokens", int(resp.Usage.OutputTokens)),
		)
	}
	a.logger.Debug("completion finished",
		"stop_reason", resp.StopReason,
		"tool_calls", len(resp.ToolCalls),
		"latency_seconds", elapsed,
	)
	return resp, nil
}

// fail drops the turn in progress, or the whole transcript when configured
// to, and returns the apology.
func (a *Assistant) fail(mark int, err error) (string, error) {
	a.logger.Error("assistant turn failed", "error", err)
	if a.cfg.ResetHistoryOnError {
		a.reset()
	} else {
		a.history = a.history[:mark]
	}
	return apologyReply, err
}

// trimHistory keeps the newest messages within the limit. The kept window
// always opens on a plain patient message so no tool result is orphaned.
func (a *Assistant) trimHistory() {
	if len(a.history) <= a.cfg.HistoryLimit {
		return
	}
	start := len(a.history) - a.cfg.HistoryLimit
	for start < len(a.history) && (a.history[start].Role != ChatRoleUser || len(a.history[start].ToolResults) > 0) {
		start++
	}
	a.history = append([]ChatMessage(nil), a.history[start:]...)
}
