package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
	"github.com/custodia-labs/sanad/internal/logger"
)

// DefaultBatchSize is the number of units embedded per request.
const DefaultBatchSize = 16

// EmbeddingIndex pairs an embedding service with a unit store.
// Every write carries the fingerprint of the vectors it embedded, and the
// store pins it in the same transaction, so the index only ever holds
// vectors from one embedding function and a failed write pins nothing.
type EmbeddingIndex struct {
	store     driven.UnitStore
	embedder  driven.EmbeddingService
	limiter   *RateLimiter
	batchSize int
}

// IndexOption configures an EmbeddingIndex.
type IndexOption func(*EmbeddingIndex)

// WithBatchSize sets the number of units embedded per request.
func WithBatchSize(n int) IndexOption {
	return func(ix *EmbeddingIndex) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// WithRateLimiter throttles embedding requests.
func WithRateLimiter(l *RateLimiter) IndexOption {
	return func(ix *EmbeddingIndex) {
		ix.limiter = l
	}
}

// NewEmbeddingIndex creates an index over store. The embedder may be nil for
// read-only use (Search, Stats).
func NewEmbeddingIndex(store driven.UnitStore, embedder driven.EmbeddingService, opts ...IndexOption) *EmbeddingIndex {
	ix := &EmbeddingIndex{
		store:     store,
		embedder:  embedder,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Fingerprint returns the identity the configured embedding service reports.
// Dimensions stay 0 for a model whose size is only known once it has answered.
func (ix *EmbeddingIndex) Fingerprint() domain.EmbeddingFingerprint {
	if ix.embedder == nil {
		return domain.EmbeddingFingerprint{}
	}
	return domain.EmbeddingFingerprint{
		Model:      ix.embedder.ModelName(),
		Dimensions: ix.embedder.Dimensions(),
	}
}

// Add embeds units and upserts them. Re-adding a (filename, page) replaces it.
func (ix *EmbeddingIndex) Add(ctx context.Context, units []domain.TextUnit) error {
	if len(units) == 0 {
		return nil
	}
	embedded, fp, err := ix.embed(ctx, units)
	if err != nil {
		return err
	}
	if err := ix.store.Upsert(ctx, fp, embedded); err != nil {
		return fmt.Errorf("store units: %w", err)
	}
	return nil
}

// ReplaceDocument embeds units and swaps them in for every stored unit of filename.
func (ix *EmbeddingIndex) ReplaceDocument(ctx context.Context, filename string, units []domain.TextUnit) error {
	embedded, fp, err := ix.embed(ctx, units)
	if err != nil {
		return err
	}
	if err := ix.store.ReplaceDocument(ctx, fp, filename, embedded); err != nil {
		return fmt.Errorf("replace %s: %w", filename, err)
	}
	return nil
}

// Search returns at most k units nearest to vector.
func (ix *EmbeddingIndex) Search(ctx context.Context, vector []float32, k int) ([]domain.EvidenceUnit, error) {
	if k <= 0 {
		return []domain.EvidenceUnit{}, nil
	}
	results, err := ix.store.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return results, nil
}

// Stats summarises the index.
func (ix *EmbeddingIndex) Stats(ctx context.Context) (domain.IndexStats, error) {
	return ix.store.Stats(ctx)
}

// PinnedFingerprint returns the fingerprint recorded in the store.
func (ix *EmbeddingIndex) PinnedFingerprint(ctx context.Context) (domain.EmbeddingFingerprint, error) {
	return ix.store.Fingerprint(ctx)
}

// Reset clears the store.
func (ix *EmbeddingIndex) Reset(ctx context.Context) error {
	return ix.store.Reset(ctx)
}

// embed returns copies of units carrying their vectors, plus the fingerprint
// those vectors were produced with: the model name and the size of the first
// vector. Every vector must share that size, and must match the size the
// service reports when it reports one.
func (ix *EmbeddingIndex) embed(ctx context.Context, units []domain.TextUnit) ([]domain.TextUnit, domain.EmbeddingFingerprint, error) {
	var fp domain.EmbeddingFingerprint
	if ix.embedder == nil {
		return nil, fp, fmt.Errorf("%w: no embedding service configured", domain.ErrEmbeddingUnavailable)
	}
	if len(units) == 0 {
		return units, fp, nil
	}

	fp.Model = ix.embedder.ModelName()
	claimed := ix.embedder.Dimensions()

	out := make([]domain.TextUnit, len(units))
	copy(out, units)

	for start := 0; start < len(out); start += ix.batchSize {
		end := min(start+ix.batchSize, len(out))
		batch := out[start:end]

		texts := make([]string, len(batch))
		for i, u := range batch {
			texts[i] = u.Text
		}

		if ix.limiter != nil {
			if err := ix.limiter.Wait(ctx); err != nil {
				return nil, fp, err
			}
		}

		logger.Debug("Embedding units %d-%d of %d", start+1, end, len(out))
		vectors, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fp, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		if len(vectors) != len(batch) {
			return nil, fp, fmt.Errorf("%w: got %d vectors for %d texts",
				domain.ErrEmbeddingUnavailable, len(vectors), len(batch))
		}
		for i := range batch {
			if fp.Dimensions == 0 {
				fp.Dimensions = len(vectors[i])
				if claimed > 0 && fp.Dimensions != claimed {
					return nil, fp, fmt.Errorf("%w: %s returned %d dimensions, expected %d",
						domain.ErrEmbeddingMismatch, fp.Model, fp.Dimensions, claimed)
				}
			}
			if len(vectors[i]) == 0 || len(vectors[i]) != fp.Dimensions {
				return nil, fp, fmt.Errorf("%w: %s returned %d dimensions, expected %d",
					domain.ErrEmbeddingMismatch, fp.Model, len(vectors[i]), fp.Dimensions)
			}
			batch[i].Embedding = vectors[i]
		}
	}
	return out, fp, nil
}
