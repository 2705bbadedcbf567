package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
	"github.com/custodia-labs/sanad/internal/core/ports/driving"
	"github.com/custodia-labs/sanad/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.RetrievalService = (*Retriever)(nil)

// Retriever turns a question into relevance-filtered evidence.
type Retriever struct {
	index         *EmbeddingIndex
	embedder      driven.EmbeddingService
	topK          int
	minSimilarity float64
}

// NewRetriever creates a retriever. Candidates scoring below minSimilarity
// are excluded, never down-ranked.
func NewRetriever(index *EmbeddingIndex, embedder driven.EmbeddingService, policy domain.RetrievalSettings) *Retriever {
	topK := policy.TopK
	if topK <= 0 {
		topK = domain.DefaultAppSettings().Retrieval.TopK
	}
	return &Retriever{
		index:         index,
		embedder:      embedder,
		topK:          topK,
		minSimilarity: policy.MinSimilarity,
	}
}

// Retrieve returns evidence for query, most relevant first.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]domain.EvidenceUnit, error) {
	logger.Section("Retrieval")

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no evidence")
		return []domain.EvidenceUnit{}, nil
	}
	if r.embedder == nil {
		return nil, fmt.Errorf("retrieve: %w: no embedding service configured", domain.ErrEmbeddingUnavailable)
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieve: embed query: %w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	if err := r.checkFingerprint(ctx, vector); err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	candidates, err := r.index.Search(ctx, vector, r.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	evidence := make([]domain.EvidenceUnit, 0, len(candidates))
	for _, c := range candidates {
		if c.Score < r.minSimilarity {
			logger.Debug("Excluded %s (score %.3f < %.3f)", c.Unit.Key(), c.Score, r.minSimilarity)
			continue
		}
		evidence = append(evidence, c)
	}
	domain.SortEvidence(evidence)

	logger.Info("Retrieved %d of %d candidates", len(evidence), len(candidates))
	return evidence, nil
}

// checkFingerprint fails when the index was built with another embedding
// function than the one that produced vector. An index with nothing pinned
// has nothing to compare against.
func (r *Retriever) checkFingerprint(ctx context.Context, vector []float32) error {
	pinned, err := r.index.PinnedFingerprint(ctx)
	if err != nil {
		return fmt.Errorf("read index fingerprint: %w", err)
	}
	if pinned.IsZero() {
		return nil
	}
	current := domain.EmbeddingFingerprint{
		Model:      r.embedder.ModelName(),
		Dimensions: len(vector),
	}
	if current != pinned {
		return fmt.Errorf("%w: index built with %s, query embedder is %s",
			domain.ErrEmbeddingMismatch, pinned, current)
	}
	return nil
}
