package agent

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/voxcrm/server/internal/agent/model"
	"github.com/voxcrm/server/internal/agent/prompts"
	errx "github.com/voxcrm/server/internal/core/error"
	logx "github.com/voxcrm/server/pkg/logger"
)

// injectionPatterns flag likely prompt-injection attempts. Matches are logged
// for review but never block the request; false positives on legitimate
// questions would be worse than letting the system prompt defend itself.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+instructions`),
	regexp.MustCompile(`(?i)disregard\s+(your|the)\s+(rules|instructions|system prompt)`),
	regexp.MustCompile(`(?i)reveal\s+(your|the)\s+system\s+prompt`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|in)\b`),
	regexp.MustCompile(`(?i)\bjailbreak\b`),
}

// actionMarkerRe matches bracketed action markers the model is told not to
// emit. They are stripped from the reply as a last line of defense, since the
// text may be read aloud verbatim.
var actionMarkerRe = regexp.MustCompile(`\[ACTION:[^\]]*\]`)

func (a *Agent) validate(req model.ChatRequest) error {
	if strings.TrimSpace(req.SessionID) == "" {
		return errx.Validation("sessionId is required")
	}
	q := strings.TrimSpace(req.Question)
	if q == "" {
		return errx.Validation("question is required")
	}
	if max := a.cfg.MaxQuestionLen; max > 0 && utf8.RuneCountInString(q) > max {
		return errx.Validation("question is too long")
	}
	for _, re := range injectionPatterns {
		if re.MatchString(q) {
			logx.Warn().Str("session_id", req.SessionID).Str("pattern", re.String()).
				Msg("possible prompt injection in question")
			break
		}
	}
	return nil
}

func scrubActionMarkers(s string) string {
	return strings.TrimSpace(actionMarkerRe.ReplaceAllString(s, ""))
}

// fallbackResponse is spoken when the model produced no usable text.
func fallbackResponse(lang prompts.Language) string {
	if lang == prompts.Spanish {
		return "Lo siento, no pude completar tu solicitud en este momento. Por favor, inténtalo de nuevo."
	}
	return "Sorry, I wasn't able to complete that request just now. Please try again."
}
