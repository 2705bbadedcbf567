package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
)

// stubRetriever returns fixed evidence.
type stubRetriever struct {
	evidence []domain.EvidenceUnit
	err      error
}

func (s *stubRetriever) Retrieve(_ context.Context, _ string) ([]domain.EvidenceUnit, error) {
	return s.evidence, s.err
}

func newComposer(ev []domain.EvidenceUnit, llm *mockLLMService) *AnswerComposer {
	citations := NewCitationResolver(
		mockSources{"tawarruq.pdf": "https://bnm.gov.my/tawarruq", "murabaha.pdf": "https://bnm.gov.my/murabaha"},
		&mockSnapshots{},
	)
	return NewAnswerComposer(&stubRetriever{evidence: ev}, llm, citations,
		domain.ComposerSettings{MaxContextChars: 6000, Followups: 3},
		driven.ChatOptions{Temperature: 0})
}

// answerThenFollowups replies with answer to the first call and follow-ups to the second.
func answerThenFollowups(answer, followups string) func(int, []driven.ChatMessage) (string, error) {
	return func(call int, _ []driven.ChatMessage) (string, error) {
		if call == 0 {
			return answer, nil
		}
		return followups, nil
	}
}

func TestAsk_HybridAnswerWithCitations(t *testing.T) {
	llm := &mockLLMService{answer: answerThenFollowups(
		"Tawarruq is permissible subject to conditions (tawarruq.pdf, page 3).",
		"What are the conditions?\nIs organised tawarruq allowed?\nHow does it differ from bai al-inah?",
	)}
	c := newComposer([]domain.EvidenceUnit{
		evidence("tawarruq.pdf", 3, 0.91, "Tawarruq means purchasing an asset on deferred payment."),
		evidence("murabaha.pdf", 1, 0.52, "Murabaha is a cost-plus sale."),
	}, llm)

	res, err := c.Ask(context.Background(), "What is the ruling on Tawarruq?")
	require.NoError(t, err)

	assert.Equal(t, domain.ModeHybrid, res.Mode)
	assert.NotContains(t, res.AnswerText, domain.GeneralDisclaimer)
	require.Len(t, res.Citations, 2)
	assert.Equal(t, "tawarruq.pdf", res.Citations[0].Filename)
	assert.Equal(t, 3, res.Citations[0].PageNumber)
	assert.Equal(t, "https://bnm.gov.my/tawarruq", res.Citations[0].URL)
	assert.NotEmpty(t, res.Citations[0].SnapshotRef)
	assert.Equal(t, "murabaha.pdf", res.Citations[1].Filename)
	assert.Len(t, res.SuggestedFollowups, 3)

	calls := llm.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, driven.RoleSystem, calls[0][0].Role)
	assert.Equal(t, defaultPrompts[driven.PromptAnswerHybrid], calls[0][0].Content)
	assert.Contains(t, calls[0][1].Content, "[Source: tawarruq.pdf, page 3]")
	assert.Contains(t, calls[0][1].Content, "[Source: murabaha.pdf, page 1]")
	assert.Less(t,
		strings.Index(calls[0][1].Content, "tawarruq.pdf"),
		strings.Index(calls[0][1].Content, "murabaha.pdf"))
	assert.Contains(t, calls[0][1].Content, "Question: What is the ruling on Tawarruq?")
}

func TestAsk_GeneralAnswerCarriesDisclaimer(t *testing.T) {
	llm := &mockLLMService{answer: answerThenFollowups("Paris is the capital of France.", "")}
	c := newComposer(nil, llm)

	res, err := c.Ask(context.Background(), "capital of France")
	require.NoError(t, err)

	assert.Equal(t, domain.ModeGeneral, res.Mode)
	assert.True(t, strings.HasPrefix(res.AnswerText, domain.GeneralDisclaimer))
	assert.Contains(t, res.AnswerText, "Paris")
	assert.NotNil(t, res.Citations)
	assert.Empty(t, res.Citations)

	calls := llm.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, defaultPrompts[driven.PromptAnswerGeneral], calls[0][0].Content)
	assert.NotContains(t, calls[0][1].Content, "Context:")
}

func TestAsk_GeneralDisclaimerNotDuplicated(t *testing.T) {
	llm := &mockLLMService{answer: answerThenFollowups(domain.GeneralDisclaimer+"\n\nRiba is prohibited.", "")}
	c := newComposer(nil, llm)

	res, err := c.Ask(context.Background(), "What is riba?")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(res.AnswerText, "General Knowledge Mode"))
}

func TestAsk_GenerationFailure(t *testing.T) {
	llm := &mockLLMService{answer: func(int, []driven.ChatMessage) (string, error) {
		return "", errors.New("503 service unavailable")
	}}

	for _, ev := range [][]domain.EvidenceUnit{nil, {evidence("tawarruq.pdf", 3, 0.9, "text")}} {
		c := newComposer(ev, llm)
		res, err := c.Ask(context.Background(), "question")
		assert.Nil(t, res)
		assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
	}
	assert.Len(t, llm.Calls(), 2, "no retries")
}

func TestAsk_EmptyAnswerIsFailure(t *testing.T) {
	llm := &mockLLMService{answer: func(int, []driven.ChatMessage) (string, error) { return "  ", nil }}
	c := newComposer(nil, llm)

	_, err := c.Ask(context.Background(), "question")
	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
}

func TestAsk_CancelledContext(t *testing.T) {
	llm := &mockLLMService{latency: time.Second}
	c := newComposer(nil, llm)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.Ask(ctx, "question")
	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAsk_FollowupFailureDegrades(t *testing.T) {
	llm := &mockLLMService{answer: func(call int, _ []driven.ChatMessage) (string, error) {
		if call == 0 {
			return "Murabaha is a cost-plus sale.", nil
		}
		return "", errors.New("rate limited")
	}}
	c := newComposer([]domain.EvidenceUnit{evidence("murabaha.pdf", 1, 0.8, "text")}, llm)

	res, err := c.Ask(context.Background(), "Explain murabaha")
	require.NoError(t, err)
	assert.NotNil(t, res.SuggestedFollowups)
	assert.Empty(t, res.SuggestedFollowups)
	assert.Len(t, res.Citations, 1)
}

func TestAsk_FollowupsDisabled(t *testing.T) {
	llm := &mockLLMService{}
	c := NewAnswerComposer(&stubRetriever{}, llm, nil, domain.ComposerSettings{Followups: 0}, driven.ChatOptions{})

	res, err := c.Ask(context.Background(), "question")
	require.NoError(t, err)
	assert.Empty(t, res.SuggestedFollowups)
	assert.Len(t, llm.Calls(), 1)
}

func TestAsk_InlineFollowupsStripped(t *testing.T) {
	llm := &mockLLMService{answer: answerThenFollowups("Answer body ||| Q1? ||| Q2?", "Next?")}
	c := newComposer(nil, llm)

	res, err := c.Ask(context.Background(), "question")
	require.NoError(t, err)
	assert.NotContains(t, res.AnswerText, "|||")
	assert.Equal(t, []string{"Next?"}, res.SuggestedFollowups)
}

func TestAsk_InvalidInput(t *testing.T) {
	c := newComposer(nil, &mockLLMService{})
	_, err := c.Ask(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	noLLM := NewAnswerComposer(&stubRetriever{}, nil, nil, domain.ComposerSettings{}, driven.ChatOptions{})
	_, err = noLLM.Ask(context.Background(), "question")
	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
}

func TestAsk_RetrievalErrorPropagates(t *testing.T) {
	llm := &mockLLMService{}
	c := NewAnswerComposer(&stubRetriever{err: domain.ErrEmbeddingMismatch}, llm, nil,
		domain.ComposerSettings{}, driven.ChatOptions{})

	_, err := c.Ask(context.Background(), "question")
	assert.ErrorIs(t, err, domain.ErrEmbeddingMismatch)
	assert.Empty(t, llm.Calls())
}

func TestAsk_UsesPromptStore(t *testing.T) {
	llm := &mockLLMService{}
	c := newComposer(nil, llm)
	c.SetPromptStore(mockPromptStore{driven.PromptAnswerGeneral: "custom general"})

	_, err := c.Ask(context.Background(), "question")
	require.NoError(t, err)

	calls := llm.Calls()
	assert.Equal(t, "custom general", calls[0][0].Content)
	assert.Contains(t, calls[1][0].Content, "3 short follow-up questions")
}

func TestAsk_CitationsOnlyForUsedEvidence(t *testing.T) {
	llm := &mockLLMService{}
	long := strings.Repeat("x", 120)
	c := NewAnswerComposer(&stubRetriever{evidence: []domain.EvidenceUnit{
		evidence("tawarruq.pdf", 1, 0.9, long),
		evidence("murabaha.pdf", 2, 0.8, long),
	}}, llm, NewCitationResolver(mockSources{}, &mockSnapshots{}),
		domain.ComposerSettings{MaxContextChars: 200}, driven.ChatOptions{})

	res, err := c.Ask(context.Background(), "question")
	require.NoError(t, err)
	require.Len(t, res.Citations, 1)
	assert.Equal(t, "tawarruq.pdf", res.Citations[0].Filename)
}

func TestBuildContext(t *testing.T) {
	ev := []domain.EvidenceUnit{
		evidence("a.pdf", 1, 0.9, "alpha"),
		evidence("b.pdf", 2, 0.8, "beta"),
	}

	t.Run("fits", func(t *testing.T) {
		text, used := BuildContext(ev, 1000)
		assert.Equal(t, "[Source: a.pdf, page 1]\nalpha\n\n[Source: b.pdf, page 2]\nbeta", text)
		assert.Len(t, used, 2)
	})

	t.Run("drops units that do not fit", func(t *testing.T) {
		text, used := BuildContext(ev, 35)
		assert.Equal(t, "[Source: a.pdf, page 1]\nalpha", text)
		assert.Len(t, used, 1)
	})

	t.Run("truncates an oversized first unit", func(t *testing.T) {
		text, used := BuildContext(ev, 26)
		assert.Equal(t, "[Source: a.pdf, page 1]\nal", text)
		assert.Len(t, used, 1)
	})

	t.Run("counts characters not bytes", func(t *testing.T) {
		text, _ := BuildContext([]domain.EvidenceUnit{evidence("a.pdf", 1, 1, "ربا ربا")}, 27)
		assert.Equal(t, "[Source: a.pdf, page 1]\nربا", text)
	})

	t.Run("empty", func(t *testing.T) {
		text, used := BuildContext(nil, 100)
		assert.Empty(t, text)
		assert.Empty(t, used)
	})
}

func TestWithDisclaimer(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{"plain", "Body.", domain.GeneralDisclaimer + "\n\nBody."},
		{"already prefixed", domain.GeneralDisclaimer + "\nBody.", domain.GeneralDisclaimer + "\n\nBody."},
		{
			"service wording",
			"⚠️ **General Knowledge Mode:** This answer is based on general principles. Please verify with official sources.\n\nBody.",
			domain.GeneralDisclaimer + "\n\nBody.",
		},
		{"empty", "", domain.GeneralDisclaimer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithDisclaimer(tt.answer))
		})
	}
}

func TestParseFollowups(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		n     int
		want  []string
	}{
		{"lines", "What is A?\nWhat is B?\nWhat is C?", 3, []string{"What is A?", "What is B?", "What is C?"}},
		{"separator", "||| What is A? ||| What is B?", 3, []string{"What is A?", "What is B?"}},
		{"numbered", "1. What is A?\n2) What is B?\n- What is C?", 3, []string{"What is A?", "What is B?", "What is C?"}},
		{"limit", "A?\nB?\nC?\nD?", 2, []string{"A?", "B?"}},
		{"drops non questions", "Here are some questions:\nWhat is A?\n\nThanks", 3, []string{"What is A?"}},
		{"dedupes", "What is A?\nwhat is a?", 3, []string{"What is A?"}},
		{"empty", "", 3, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFollowups(tt.reply, tt.n))
		})
	}
}
