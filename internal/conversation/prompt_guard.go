package conversation

import (
	"regexp"
	"strings"
)

// GuardResult is the verdict on one inbound message.
type GuardResult struct {
	// Blocked messages never reach the model.
	Blocked bool
	// Score is a heuristic risk in [0, 1].
	Score   float64
	Reasons []string
	// Cleaned has known injection markers stripped.
	Cleaned string
}

type guardPattern struct {
	re     *regexp.Regexp
	reason string
	weight float64
}

const guardBlockThreshold = 0.7

var guardPatterns = []guardPattern{
	{regexp.MustCompile(`(?i)(ignore|disregard|forget)\s+(all\s+)?(previous|prior|above|earlier|your)\s+(instructions?|rules?|prompts?|guidelines?)`), "override_instructions", 0.9},
	{regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|my)\s+`), "role_reassignment", 0.7},
	{regexp.MustCompile(`(?i)new\s+instructions?\s*:|system\s*prompt\s*:|<<\s*sys(tem)?\s*>>`), "new_instructions", 0.9},
	{regexp.MustCompile(`(?i)jailbreak|developer\s*mode|DAN\s*mode`), "jailbreak_keyword", 0.9},
	{regexp.MustCompile(`(?i)(reveal|show|print|repeat|tell\s+me)\s+(your\s+)?(system\s+prompt|instructions|hidden\s+prompt)`), "prompt_exfiltration", 0.8},
	{regexp.MustCompile(`(?i)(list|show|give|tell)\s+(me\s+)?(all\s+)?(the\s+)?(other\s+)?patients?('?s)?\s+(data|names?|numbers?|records?|details?|appointments?)`), "patient_exfiltration", 0.7},
	{regexp.MustCompile(`(?i)\b(api|secret|aws|bedrock|gemini)\s*(key|token|secret|password|credential)s?\b`), "credential_probe", 0.8},
	{regexp.MustCompile(`(?i)(end\s+of\s+)?(system|assistant)\s*(message|prompt)\s*[\-=]{2,}`), "fake_boundary", 0.8},
	{regexpSpecialTokens, "special_tokens", 0.9},
	{regexpRoleMarkers, "role_markers", 0.7},
	{regexpHTML, "html_injection", 0.6},
}

var (
	regexpSpecialTokens = regexp.MustCompile(`(?i)\[/?INST\]|\[/?SYS\]|<\|im_start\|>|<\|im_end\|>|<\|(system|user|assistant)\|>`)
	regexpRoleMarkers   = regexp.MustCompile(`(?i)###\s*(system|instruction|human|assistant|user)\s*:`)
	regexpHTML          = regexp.MustCompile(`<\s*(script|img|iframe|object|embed|style|svg)\b[^>]*>`)
)

// guardedReply answers blocked messages.
const guardedReply = "I'm here to help with dental appointments and questions about our practice. How can I help you today?"

// ScanMessage scores inbound patient text for prompt-injection attempts.
// The highest matching weight wins, plus 0.1 for each extra signal.
func ScanMessage(message string) GuardResult {
	if strings.TrimSpace(message) == "" {
		return GuardResult{Cleaned: message}
	}

	var reasons []string
	maxWeight := 0.0
	for _, p := range guardPatterns {
		if !p.re.MatchString(message) {
			continue
		}
		reasons = append(reasons, p.reason)
		if p.weight > maxWeight {
			maxWeight = p.weight
		}
	}

	score := maxWeight
	if len(reasons) > 1 {
		score += float64(len(reasons)-1) * 0.1
		if score > 1.0 {
			score = 1.0
		}
	}
	return GuardResult{
		Blocked: score >= guardBlockThreshold,
		Score:   score,
		Reasons: reasons,
		Cleaned: stripMarkers(message),
	}
}

func stripMarkers(message string) string {
	cleaned := regexpSpecialTokens.ReplaceAllString(message, "")
	cleaned = regexpRoleMarkers.ReplaceAllString(cleaned, "")
	cleaned = regexpHTML.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}
