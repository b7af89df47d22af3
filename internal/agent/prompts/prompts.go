// Package prompts selects the language-matched system prompt and few-shot
// transcript for a turn. Prompts and examples are parallel per-language sets
// loaded once at process start; the model's output language is forced by
// instruction plus in-context example, not post-hoc translation.
package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/voxcrm/server/internal/agent/model"
)

// Language is the closed two-valued language flag. There is no runtime
// locale negotiation beyond what the caller supplies.
type Language string

const (
	English Language = "en"
	Spanish Language = "es"
)

// ParseLanguage normalises a caller-supplied flag, falling back to the
// configured default for anything outside the enumeration.
func ParseLanguage(v, def string) Language {
	switch Language(v) {
	case Spanish:
		return Spanish
	case English:
		return English
	}
	if Language(def) == Spanish {
		return Spanish
	}
	return English
}

//go:embed template/system_en.txt
var systemPromptEN string

//go:embed template/system_es.txt
var systemPromptES string

// Selection is a language-matched prompt set for one turn.
type Selection struct {
	SystemPrompt string
	FewShot      []*schema.Message
}

// Selector renders per-language system prompts with the business config
// applied. It is immutable after construction.
type Selector struct {
	cfg model.PromptConfig
}

// NewSelector creates a prompt selector for the given business config.
func NewSelector(cfg model.PromptConfig) *Selector {
	return &Selector{cfg: cfg}
}

// Select returns the system prompt and few-shot transcript for the language.
func (s *Selector) Select(ctx context.Context, lang Language) (*Selection, error) {
	raw := systemPromptEN
	shots := fewShotEN
	if lang == Spanish {
		raw = systemPromptES
		shots = fewShotES
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(raw),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"BusinessName": s.cfg.BusinessName,
	})
	if err != nil {
		return nil, fmt.Errorf("render system prompt (%s): %w", lang, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return nil, fmt.Errorf("render system prompt (%s): empty result", lang)
	}

	return &Selection{
		SystemPrompt: msgs[0].Content,
		FewShot:      shots,
	}, nil
}
