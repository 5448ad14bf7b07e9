package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/wolfman30/smilebright-frontdesk/cmd/mainconfig"
	appconfig "github.com/wolfman30/smilebright-frontdesk/internal/config"
	"github.com/wolfman30/smilebright-frontdesk/internal/conversation"
	"github.com/wolfman30/smilebright-frontdesk/internal/ledger"
	"github.com/wolfman30/smilebright-frontdesk/pkg/logging"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	llm, closeLLM, err := mainconfig.LLMClient(ctx, cfg, logger)
	if err != nil {
		fmt.Printf("❌ Failed to create LLM client: %v\n", err)
		os.Exit(1)
	}
	defer closeLLM()
	if llm == nil {
		fmt.Println("Set LLM_PROVIDER to bedrock or gemini to run the smoke test")
		return
	}

	// Scratch ledger with one known patient so lookups and booking both have work to do.
	book := ledger.New(mainconfig.ClinicProfile(cfg), ledger.WithLogger(logger))
	book.RegisterPatient("Jane Doe", "555-123-4567", "jane@example.com", "1990-05-12")

	assistant := conversation.NewAssistant(llm, book, conversation.AssistantConfig{
		Model:         mainconfig.Model(cfg),
		MaxTokens:     int32(cfg.LLMMaxTokens),
		Temperature:   float32(cfg.LLMTemperature),
		Timeout:       cfg.LLMTimeout,
		MaxToolRounds: cfg.LLMMaxToolRounds,
	}, conversation.WithAssistantLogger(logger))

	slot := nextWeekday(time.Now().In(book.Clinic().Location()))
	turns := []string{
		"Hi, what services do you offer and how much is a cleaning?",
		fmt.Sprintf("This is Jane Doe, phone 555-123-4567. Please book a Cleaning on %s at 10:00.", slot.Format("2006-01-02")),
		"Can you show me my appointment history?",
	}

	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("LLM Provider Test (%s", cfg.LLMProvider)
	if cfg.LLMFallback != appconfig.ProviderNone {
		fmt.Printf(", fallback %s", cfg.LLMFallback)
	}
	fmt.Println(")")
	fmt.Println(strings.Repeat("=", 60))

	failed := false
	for i, turn := range turns {
		fmt.Printf("\n[%d] You: %s\n", i+1, turn)
		start := time.Now()
		reply, err := assistant.Respond(ctx, turn)
		elapsed := time.Since(start)
		if err != nil {
			failed = true
			fmt.Printf("    ❌ error after %v: %v\n", elapsed.Round(time.Millisecond), err)
			continue
		}
		fmt.Printf("    ✅ (%v) %s\n", elapsed.Round(time.Millisecond), reply)
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("Test Summary")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Live appointments in scratch ledger: %d\n", book.LiveAppointments())
	if book.LiveAppointments() == 1 {
		fmt.Println("✅ The model booked through the book_appointment tool")
	} else {
		fmt.Println("❌ No booking reached the ledger; check the tool-calling round trip")
		failed = true
	}
	if failed {
		os.Exit(1)
	}
}

// nextWeekday returns the next Monday-Friday date after now.
func nextWeekday(now time.Time) time.Time {
	day := now.AddDate(0, 0, 1)
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	return day
}
