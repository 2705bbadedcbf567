package driving

import (
	"context"

	"github.com/custodia-labs/sanad/internal/core/domain"
)

// AskService is the single public entry point for answering questions.
type AskService interface {
	// Ask answers question. HYBRID answers carry citations in evidence
	// relevance order; GENERAL answers carry the disclaimer and no citations.
	// Fails with domain.ErrGenerationUnavailable when the answer service fails.
	Ask(ctx context.Context, question string) (*domain.AnswerResult, error)
}

// RetrievalService exposes evidence retrieval without answer generation.
type RetrievalService interface {
	// Retrieve returns evidence at or above the relevance threshold,
	// ordered by descending score.
	Retrieve(ctx context.Context, query string) ([]domain.EvidenceUnit, error)
}
