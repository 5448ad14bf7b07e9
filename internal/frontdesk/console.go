// Package frontdesk runs the interactive front desk session: a line-oriented
// console that handles direct requests with fixed scripts and hands
// everything else to the assistant.
package frontdesk

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wolfman30/smilebright-frontdesk/internal/clinic"
	"github.com/wolfman30/smilebright-frontdesk/internal/ledger"
	"github.com/wolfman30/smilebright-frontdesk/pkg/logging"
)

var (
	// errInputClosed ends a script when the patient's input runs out.
	errInputClosed = errors.New("frontdesk: input closed")
	// errSessionDone ends a script when the session context is cancelled.
	errSessionDone = errors.New("frontdesk: session done")
)

// Responder answers free text. *conversation.Assistant satisfies it.
type Responder interface {
	Respond(ctx context.Context, text string) (string, error)
}

// Option configures a Console.
type Option func(*Console)

// WithAssistant routes free text to an LLM-backed responder.
func WithAssistant(r Responder) Option {
	return func(c *Console) {
		c.assistant = r
	}
}

// WithLogger sets the console logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Console) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Console is one interactive session over a ledger.
type Console struct {
	in        *bufio.Scanner
	out       io.Writer
	ledger    *ledger.Ledger
	clinic    *clinic.Config
	assistant Responder
	logger    *logging.Logger

	// Set by Run: scanned lines, and the session's done channel.
	lines <-chan string
	done  <-chan struct{}
}

// NewConsole reads patient lines from in and writes replies to out.
func NewConsole(in io.Reader, out io.Writer, l *ledger.Ledger, opts ...Option) *Console {
	c := &Console{
		in:     bufio.NewScanner(in),
		out:    out,
		ledger: l,
		clinic: l.Clinic(),
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run greets the patient and serves lines until an exit word, end of input
// or context cancellation. A cancelled context ends the session even while
// it waits for input, and Run returns the context error.
func (c *Console) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.done = ctx.Done()
	c.lines = c.readLines(ctx)

	c.greet()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := c.ask("\nYou: ")
		if err != nil {
			return c.finish(ctx)
		}
		if line == "" {
			continue
		}
		if IsExit(line) {
			c.farewell()
			return nil
		}

		reply, err := c.handle(ctx, line)
		if errors.Is(err, errInputClosed) || errors.Is(err, errSessionDone) {
			return c.finish(ctx)
		}
		c.printf("\nAssistant: %s\n", reply)
	}
}

func (c *Console) finish(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.farewell()
	return nil
}

// readLines scans input apart from Run so a blocked read cannot hold the
// session open after ctx ends. The channel closes at end of input.
func (c *Console) readLines(ctx context.Context) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		for c.in.Scan() {
			select {
			case lines <- c.in.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := c.in.Err(); err != nil {
			c.logger.Warn("console input failed", "error", err)
		}
	}()
	return lines
}

func (c *Console) handle(ctx context.Context, line string) (string, error) {
	cmd := DetectCommand(line)
	if cmd != CommandNone {
		c.logger.Debug("running console script", "command", cmd.String())
	}
	switch cmd {
	case CommandHistory:
		return "I've displayed your appointment history above.", c.historyScript()
	case CommandBook:
		return "I've helped you book your appointment above.", c.bookScript()
	case CommandCancel:
		return "I've helped you with your cancellation request above.", c.cancelScript()
	case CommandReschedule:
		return "I've helped you reschedule your appointment above.", c.rescheduleScript()
	}

	if c.assistant != nil {
		reply, err := c.assistant.Respond(ctx, line)
		if err != nil {
			c.logger.Debug("assistant reply degraded", "error", err)
		}
		return reply, nil
	}
	if answer, ok := c.ledger.FAQ(line); ok {
		return answer, nil
	}
	return helpText, nil
}

const helpText = `I can help you with:
- "book an appointment"
- "cancel an appointment"
- "reschedule an appointment"
- "show my appointments"
You can also ask about parking, insurance, payment, hours or our services.`

func (c *Console) greet() {
	c.printf("Welcome to %s!\n", c.clinic.Name)
	c.printf("How can I help you today? (Type 'quit' to exit)\n")
	c.printf("\nYou can:\n")
	c.printf("- Book an appointment\n")
	c.printf("- Cancel or reschedule existing appointments\n")
	c.printf("- View your appointment history\n")
	c.printf("- Ask questions about our services and policies\n")
}

func (c *Console) farewell() {
	c.printf("\nThank you for choosing %s. Have a great day!\n", c.clinic.Name)
}

// ask prints a prompt and waits for one trimmed line.
func (c *Console) ask(prompt string) (string, error) {
	c.printf("%s", prompt)
	select {
	case <-c.done:
		return "", errSessionDone
	case line, ok := <-c.lines:
		if !ok {
			return "", errInputClosed
		}
		return strings.TrimSpace(line), nil
	}
}

func (c *Console) confirm(prompt string) (bool, error) {
	answer, err := c.ask(prompt)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
