package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
	"github.com/custodia-labs/kbassist/internal/logger"
)

// Context assembly defaults.
const (
	DefaultContextBudget       = 3000
	DefaultContextMinRemainder = 100
)

// DefaultAnswerTemplate wraps reference material and a question.
// The first placeholder receives the context, the second the question.
const DefaultAnswerTemplate = `Answer the question using the reference material below.
If the material does not contain enough information to answer, say so explicitly.

Reference material:
%s

Question: %s`

const documentHeader = "\n\n=== Document: %s ===\n"

// ContextAssembler packs passages into a prompt under a character budget.
// Lengths are counted in runes.
type ContextAssembler struct {
	Budget       int
	MinRemainder int
	Template     string

	prompts driven.PromptStore
}

// NewContextAssembler creates an assembler with the default budget.
// prompts may be nil; when set, its context_answer prompt replaces the
// default template.
func NewContextAssembler(prompts driven.PromptStore) *ContextAssembler {
	return &ContextAssembler{
		Budget:       DefaultContextBudget,
		MinRemainder: DefaultContextMinRemainder,
		Template:     DefaultAnswerTemplate,
		prompts:      prompts,
	}
}

// Build concatenates passages until the budget is reached. The passage
// that overflows is truncated when at least MinRemainder characters fit,
// and nothing after it is included.
func (a *ContextAssembler) Build(passages []domain.Passage) string {
	parts := make([]string, 0, len(passages))
	current := 0

	for _, p := range passages {
		header := fmt.Sprintf(documentHeader, p.Title)
		headerLen := runeLen(header)
		text := []rune(p.Content)

		if current+headerLen+len(text) <= a.Budget {
			parts = append(parts, header+p.Content)
			current += headerLen + len(text)
			continue
		}

		remaining := a.Budget - current - headerLen
		if remaining > 0 && remaining >= a.MinRemainder {
			parts = append(parts, header+string(text[:remaining])+"...")
		}
		break
	}

	return strings.Join(parts, "\n")
}

// Prompt returns the full prompt for message. Without passages the
// message is returned unchanged.
func (a *ContextAssembler) Prompt(message string, passages []domain.Passage) string {
	if len(passages) == 0 {
		return message
	}
	ctx := a.Build(passages)
	if ctx == "" {
		return message
	}
	return fmt.Sprintf(a.template(), ctx, message)
}

func (a *ContextAssembler) template() string {
	if a.prompts != nil {
		tmpl, err := a.prompts.Load(driven.PromptContextAnswer)
		if err == nil && strings.Count(tmpl, "%s") == 2 {
			return tmpl
		}
		if err != nil {
			logger.Debug("prompt %s not loaded: %v", driven.PromptContextAnswer, err)
		}
	}
	if a.Template == "" {
		return DefaultAnswerTemplate
	}
	return a.Template
}

func runeLen(s string) int {
	return len([]rune(s))
}

// truncateRunes clamps s to max runes and appends suffix when it was cut.
func truncateRunes(s string, max int, suffix string) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + suffix
}
