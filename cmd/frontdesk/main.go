package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/smilebright-frontdesk/cmd/mainconfig"
	appconfig "github.com/wolfman30/smilebright-frontdesk/internal/config"
	"github.com/wolfman30/smilebright-frontdesk/internal/conversation"
	"github.com/wolfman30/smilebright-frontdesk/internal/frontdesk"
	"github.com/wolfman30/smilebright-frontdesk/internal/ledger"
	"github.com/wolfman30/smilebright-frontdesk/internal/observability/metrics"
	"github.com/wolfman30/smilebright-frontdesk/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	// stdout belongs to the patient conversation.
	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	ledgerMetrics := metrics.NewLedgerMetrics(registry)
	conversationMetrics := metrics.NewConversationMetrics(registry)

	profile := mainconfig.ClinicProfile(cfg)
	if err := profile.CheckTimezone(); err != nil {
		logger.Warn("clinic timezone unavailable; dates use UTC", "error", err)
	}
	book := ledger.New(profile,
		ledger.WithLogger(logger),
		ledger.WithMetrics(ledgerMetrics),
	)

	opts := []frontdesk.Option{frontdesk.WithLogger(logger)}
	llm, closeLLM, err := mainconfig.LLMClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build LLM client; continuing without assistant", "error", err)
	}
	defer closeLLM()
	if llm != nil {
		assistant := conversation.NewAssistant(llm, book, conversation.AssistantConfig{
			Model:               mainconfig.Model(cfg),
			MaxTokens:           int32(cfg.LLMMaxTokens),
			Temperature:         float32(cfg.LLMTemperature),
			Timeout:             cfg.LLMTimeout,
			MaxToolRounds:       cfg.LLMMaxToolRounds,
			HistoryLimit:        cfg.HistoryLimit,
			ResetHistoryOnError: cfg.ResetHistoryOnError,
		},
			conversation.WithAssistantLogger(logger),
			conversation.WithAssistantMetrics(conversationMetrics),
		)
		logger.Info("assistant session started", "session_id", assistant.SessionID())
		opts = append(opts, frontdesk.WithAssistant(assistant))
	}

	console := frontdesk.NewConsole(os.Stdin, os.Stdout, book, opts...)
	runErr := console.Run(ctx)

	if summary, err := metrics.Summarize(registry); err != nil {
		logger.Warn("failed to summarize metrics", "error", err)
	} else {
		logger.Info("session metrics", "metrics", summary)
	}

	if runErr != nil && ctx.Err() == nil {
		logger.Error("front desk stopped", "error", runErr)
		os.Exit(1)
	}
}
