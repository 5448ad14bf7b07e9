package frontdesk

import "strings"

// Command is a request the console handles with a fixed script instead of
// sending it to the assistant.
type Command int

const (
	CommandNone Command = iota
	CommandHistory
	CommandBook
	CommandCancel
	CommandReschedule
)

func (c Command) String() string {
	switch c {
	case CommandHistory:
		return "history"
	case CommandBook:
		return "book"
	case CommandCancel:
		return "cancel"
	case CommandReschedule:
		return "reschedule"
	default:
		return "none"
	}
}

var historyPhrases = []string{
	"show my appointment",
	"view my appointment",
	"appointment history",
	"my appointments",
	"check my appointments",
}

// DetectCommand recognizes direct requests. History phrases win over verbs,
// and verbs only count alongside the word "appointment".
func DetectCommand(input string) Command {
	text := strings.ToLower(input)
	for _, phrase := range historyPhrases {
		if strings.Contains(text, phrase) {
			return CommandHistory
		}
	}
	if !strings.Contains(text, "appointment") {
		return CommandNone
	}
	switch {
	case strings.Contains(text, "book"):
		return CommandBook
	case strings.Contains(text, "cancel"):
		return CommandCancel
	case strings.Contains(text, "reschedule"):
		return CommandReschedule
	default:
		return CommandNone
	}
}

var exitWords = map[string]bool{"quit": true, "exit": true, "bye": true}

// IsExit reports whether the line ends the session.
func IsExit(input string) bool {
	return exitWords[strings.ToLower(strings.TrimSpace(input))]
}
