package conversation

import (
	"regexp"
	"strings"
)

// withheldReply replaces model replies that leak configuration or other
// patients' details.
const withheldReply = "I'm sorry, I can't share that. I can help you book, change or review your own appointments."

// ReplyCheck is the verdict on an outbound assistant reply.
type ReplyCheck struct {
	Withheld bool
	Reasons  []string
	// Reply is what the patient sees: the model text, a sanitized copy,
	// or withheldReply.
	Reply string
}

type replyPattern struct {
	re       *regexp.Regexp
	reason   string
	withhold bool
}

var replyPatterns = []replyPattern{
	{regexp.MustCompile(`(?i)my (system\s+)?prompt\s+(is|says|tells|instructs)`), "system_prompt_disclosure", true},
	{regexp.MustCompile(`(?i)(here are|these are|the following are)\s+(my )?(system )?(instructions|rules|guidelines)`), "rules_listing", true},
	{regexp.MustCompile(`(?i)(powered by|built on|running on)\s+(Claude|GPT|Gemini|Bedrock|AWS|Google)`), "tech_stack", true},
	{regexp.MustCompile(`(?i)(api[_\s]?key|secret[_\s]?key|access[_\s]?token)\s*[:=]\s*\S+`), "credential", true},
	{regexp.MustCompile(`AKIA[A-Z0-9]{16}`), "aws_key", true},
	{regexp.MustCompile(`(?i)other patient'?s?\s+(name|phone|email|appointment|record)`), "other_patient_ref", true},
	// Tool names are internal; the sentence is dropped and the rest kept.
	{toolNamePattern, "tool_name", false},
}

var toolNamePattern = regexp.MustCompile(`\b(register_patient|find_patient|check_patient_status|book_appointment|cancel_appointment|reschedule_appointment|get_appointment_history|check_slots|get_faq)\b`)

var toolSentence = regexp.MustCompile(`[^.!?\n]*` + toolNamePattern.String() + `[^.!?\n]*[.!?]?\s*`)

// CheckReply scans an outbound reply before the patient sees it.
func CheckReply(reply string) ReplyCheck {
	if strings.TrimSpace(reply) == "" {
		return ReplyCheck{Reply: reply}
	}

	var reasons []string
	withhold := false
	for _, p := range replyPatterns {
		if p.re.MatchString(reply) {
			reasons = append(reasons, p.reason)
			withhold = withhold || p.withhold
		}
	}
	if len(reasons) == 0 {
		return ReplyCheck{Reply: reply}
	}
	if withhold {
		return ReplyCheck{Withheld: true, Reasons: reasons, Reply: withheldReply}
	}

	cleaned := strings.TrimSpace(toolSentence.ReplaceAllString(reply, ""))
	if cleaned == "" {
		cleaned = clarifyReply
	}
	return ReplyCheck{Reasons: reasons, Reply: cleaned}
}
