package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
	"github.com/custodia-labs/sanad/internal/core/ports/driving"
	"github.com/custodia-labs/sanad/internal/logger"
)

// Ensure AnswerComposer implements the interfaces.
var (
	_ driving.AskService      = (*AnswerComposer)(nil)
	_ driven.PromptStoreAware = (*AnswerComposer)(nil)
)

// followupSeparator splits inline follow-up questions from an answer.
const followupSeparator = "|||"

// disclaimerMarker and disclaimerEnd delimit a disclaimer the answer service
// wrote itself, possibly with its own wording or decoration.
const (
	disclaimerMarker = "General Knowledge Mode"
	disclaimerEnd    = "verify with official sources."
)

// AnswerComposer answers questions in HYBRID or GENERAL mode.
type AnswerComposer struct {
	retriever   driving.RetrievalService
	llm         driven.LLMService
	citations   *CitationResolver
	promptStore driven.PromptStore
	policy      domain.ComposerSettings
	chatOpts    driven.ChatOptions
}

// NewAnswerComposer creates a composer. citations may be nil, in which case
// HYBRID answers carry citations with neither URL nor snapshot resolved.
func NewAnswerComposer(
	retriever driving.RetrievalService,
	llm driven.LLMService,
	citations *CitationResolver,
	policy domain.ComposerSettings,
	chatOpts driven.ChatOptions,
) *AnswerComposer {
	if citations == nil {
		citations = NewCitationResolver(nil, nil)
	}
	if policy.MaxContextChars <= 0 {
		policy.MaxContextChars = domain.DefaultAppSettings().Composer.MaxContextChars
	}
	return &AnswerComposer{
		retriever: retriever,
		llm:       llm,
		citations: citations,
		policy:    policy,
		chatOpts:  chatOpts,
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (c *AnswerComposer) SetPromptStore(store driven.PromptStore) {
	c.promptStore = store
}

// Ask answers question from retrieved evidence, or from general knowledge
// with a disclaimer when no evidence passes the relevance threshold.
func (c *AnswerComposer) Ask(ctx context.Context, question string) (*domain.AnswerResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if c.llm == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationUnavailable, domain.ErrLLMUnavailable)
	}

	evidence, err := c.retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	grounding := domain.GroundingFor(evidence)
	logger.Section("Answer")
	logger.Info("Mode: %s (%d evidence units)", grounding.Mode(), len(grounding.Evidence()))

	var contextText string
	var used []domain.EvidenceUnit
	if grounding.Mode() == domain.ModeHybrid {
		contextText, used = BuildContext(grounding.Evidence(), c.policy.MaxContextChars)
		logger.Debug("Context: %d chars from %d units", utf8.RuneCountInString(contextText), len(used))
	}

	var answer string
	var citations []domain.Citation

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		answer, err = c.generate(gctx, grounding.Mode(), question, contextText)
		return err
	})
	if len(used) > 0 {
		g.Go(func() error {
			citations = c.citations.Resolve(gctx, used)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Warn("Answer generation failed: %v", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationUnavailable, err)
	}

	answer = stripInlineFollowups(answer)
	if grounding.Mode() == domain.ModeGeneral {
		answer = WithDisclaimer(answer)
		citations = []domain.Citation{}
	}

	return &domain.AnswerResult{
		Mode:               grounding.Mode(),
		AnswerText:         answer,
		Citations:          citations,
		SuggestedFollowups: c.followups(ctx, question, answer, contextText),
	}, nil
}

func (c *AnswerComposer) generate(ctx context.Context, mode domain.AnswerMode, question, contextText string) (string, error) {
	var system, user string
	switch mode {
	case domain.ModeHybrid:
		system = c.loadPrompt(driven.PromptAnswerHybrid)
		user = "Context:\n" + contextText + "\n\nQuestion: " + question
	default:
		system = c.loadPrompt(driven.PromptAnswerGeneral)
		user = "Question: " + question
	}

	answer, err := c.llm.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: system},
		{Role: driven.RoleUser, Content: user},
	}, c.chatOpts)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", errors.New("empty answer")
	}
	return answer, nil
}

// followups asks for suggested next questions. Failure yields none.
func (c *AnswerComposer) followups(ctx context.Context, question, answer, contextText string) []string {
	n := c.policy.Followups
	if n <= 0 {
		return []string{}
	}

	var user strings.Builder
	user.WriteString("Question: " + question + "\n\nAnswer: " + answer)
	if contextText != "" {
		user.WriteString("\n\nContext:\n" + contextText)
	}

	reply, err := c.llm.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: fmt.Sprintf(c.loadPrompt(driven.PromptFollowups), n)},
		{Role: driven.RoleUser, Content: user.String()},
	}, c.chatOpts)
	if err != nil {
		logger.Warn("Follow-up suggestions unavailable: %v", err)
		return []string{}
	}
	return ParseFollowups(reply, n)
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func (c *AnswerComposer) loadPrompt(name string) string {
	if c.promptStore == nil {
		return defaultPrompts[name]
	}
	prompt, err := c.promptStore.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		return defaultPrompts[name]
	}
	return prompt
}

// BuildContext renders evidence into a tagged context of at most maxChars
// characters, in relevance order. The first unit is truncated when it alone
// exceeds the budget; later units that do not fit are dropped. It returns
// the context and the units it includes.
func BuildContext(evidence []domain.EvidenceUnit, maxChars int) (string, []domain.EvidenceUnit) {
	var b strings.Builder
	used := make([]domain.EvidenceUnit, 0, len(evidence))
	remaining := maxChars

	for i, ev := range evidence {
		sep := ""
		if i > 0 {
			sep = "\n\n"
		}
		block := sep + sourceTag(ev.Unit) + "\n" + strings.TrimSpace(ev.Unit.Text)
		size := utf8.RuneCountInString(block)

		if size > remaining {
			if i > 0 {
				break
			}
			block = truncateRunes(block, remaining)
			size = remaining
		}
		b.WriteString(block)
		remaining -= size
		used = append(used, ev)
	}
	return b.String(), used
}

func sourceTag(u domain.TextUnit) string {
	return fmt.Sprintf("[Source: %s, page %d]", u.Filename, u.PageNumber)
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// WithDisclaimer prefixes answer with domain.GeneralDisclaimer exactly once.
// A disclaimer the answer service wrote itself is replaced by the canonical one.
func WithDisclaimer(answer string) string {
	body := strings.TrimSpace(answer)
	body = strings.TrimSpace(strings.TrimPrefix(body, domain.GeneralDisclaimer))
	if idx := strings.Index(body, disclaimerEnd); idx >= 0 && strings.Contains(body[:idx], disclaimerMarker) {
		body = strings.TrimSpace(body[idx+len(disclaimerEnd):])
	}
	if body == "" {
		return domain.GeneralDisclaimer
	}
	return domain.GeneralDisclaimer + "\n\n" + body
}

func stripInlineFollowups(answer string) string {
	if idx := strings.Index(answer, followupSeparator); idx >= 0 {
		return strings.TrimSpace(answer[:idx])
	}
	return answer
}

// ParseFollowups extracts at most n questions from reply. Entries are split
// on "|||" when present, otherwise on lines; list markers are removed and
// only entries containing a question mark are kept.
func ParseFollowups(reply string, n int) []string {
	var parts []string
	if strings.Contains(reply, followupSeparator) {
		parts = strings.Split(reply, followupSeparator)
	} else {
		parts = strings.Split(reply, "\n")
	}

	out := make([]string, 0, n)
	seen := make(map[string]struct{})
	for _, p := range parts {
		q := trimListMarker(strings.TrimSpace(p))
		if q == "" || !strings.Contains(q, "?") {
			continue
		}
		key := strings.ToLower(q)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
		if len(out) == n {
			break
		}
	}
	return out
}

func trimListMarker(s string) string {
	s = strings.TrimLeft(s, "-*• ")
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
