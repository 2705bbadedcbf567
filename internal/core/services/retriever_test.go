package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sanad/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sanad/internal/core/domain"
)

// setupRetriever indexes three documents on orthogonal axes plus one
// halfway between the first two.
func setupRetriever(t *testing.T, policy domain.RetrievalSettings) (*Retriever, *mockEmbeddingService) {
	t.Helper()
	ctx := context.Background()

	embedder := newMockEmbedder(4)
	embedder.vectors["tawarruq"] = []float32{1, 0, 0, 0}
	embedder.vectors["murabaha"] = []float32{0, 1, 0, 0}
	embedder.vectors["hibah"] = []float32{0, 0, 1, 0}
	embedder.vectors["wakalah"] = []float32{1, 1, 0, 0}

	ix := NewEmbeddingIndex(memory.NewUnitStore(), embedder)
	require.NoError(t, ix.Add(ctx, []domain.TextUnit{
		textUnit("tawarruq.pdf", 3, "tawarruq policy document"),
		textUnit("murabaha.pdf", 1, "murabaha conditions"),
		textUnit("hibah.pdf", 2, "hibah gift rules"),
		textUnit("wakalah.pdf", 5, "wakalah agency"),
	}))

	return NewRetriever(ix, embedder, policy), embedder
}

func TestRetriever_ReturnsRelevantEvidence(t *testing.T) {
	r, _ := setupRetriever(t, domain.RetrievalSettings{TopK: 2, MinSimilarity: 0.3})

	got, err := r.Retrieve(context.Background(), "What is the ruling on Tawarruq?")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "tawarruq.pdf", got[0].Unit.Filename)
	assert.Equal(t, 3, got[0].Unit.PageNumber)
	assert.InDelta(t, 1.0, got[0].Score, 1e-6)
	assert.Equal(t, "wakalah.pdf", got[1].Unit.Filename)
	assert.GreaterOrEqual(t, got[0].Score, got[1].Score)
}

func TestRetriever_ExcludesBelowThreshold(t *testing.T) {
	r, _ := setupRetriever(t, domain.RetrievalSettings{TopK: 4, MinSimilarity: 0.9})

	got, err := r.Retrieve(context.Background(), "tawarruq")
	require.NoError(t, err)
	require.Len(t, got, 1)
	for _, ev := range got {
		assert.GreaterOrEqual(t, ev.Score, 0.9)
	}
}

func TestRetriever_NothingRelevant(t *testing.T) {
	r, _ := setupRetriever(t, domain.RetrievalSettings{TopK: 2, MinSimilarity: 0.3})

	got, err := r.Retrieve(context.Background(), "capital of France")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRetriever_EmptyQuery(t *testing.T) {
	r, embedder := setupRetriever(t, domain.RetrievalSettings{TopK: 2})
	embedder.embedErr = errors.New("must not be called")

	for _, q := range []string{"", "   ", "\n\t"} {
		got, err := r.Retrieve(context.Background(), q)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestRetriever_EmptyIndex(t *testing.T) {
	embedder := newMockEmbedder(2)
	r := NewRetriever(NewEmbeddingIndex(memory.NewUnitStore(), embedder), embedder, domain.RetrievalSettings{TopK: 2})

	got, err := r.Retrieve(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetriever_EmbeddingMismatch(t *testing.T) {
	r, _ := setupRetriever(t, domain.RetrievalSettings{TopK: 2})

	other := newMockEmbedder(4)
	other.model = "nomic-embed-text"
	mismatched := NewRetriever(r.index, other, domain.RetrievalSettings{TopK: 2})

	_, err := mismatched.Retrieve(context.Background(), "tawarruq")
	assert.ErrorIs(t, err, domain.ErrEmbeddingMismatch)
}

func TestRetriever_EmbeddingFailure(t *testing.T) {
	r, embedder := setupRetriever(t, domain.RetrievalSettings{TopK: 2})
	embedder.embedErr = errors.New("connection refused")

	_, err := r.Retrieve(context.Background(), "tawarruq")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestRetriever_DefaultTopK(t *testing.T) {
	r := NewRetriever(nil, nil, domain.RetrievalSettings{})
	assert.Equal(t, domain.DefaultAppSettings().Retrieval.TopK, r.topK)
}

func TestRetriever_UsesObservedQueryDimensions(t *testing.T) {
	r, embedder := setupRetriever(t, domain.RetrievalSettings{TopK: 1})
	embedder.dims = 0

	got, err := r.Retrieve(context.Background(), "tawarruq")
	require.NoError(t, err)
	require.Len(t, got, 1)

	embedder.vectors["tawarruq"] = []float32{1, 0}
	_, err = r.Retrieve(context.Background(), "tawarruq")
	assert.ErrorIs(t, err, domain.ErrEmbeddingMismatch)
}
