package driven

import (
	"context"

	"github.com/custodia-labs/sanad/internal/core/domain"
)

// UnitStore persists text units with their embeddings and answers
// nearest-neighbour queries over them. Ingestion holds a read-write handle;
// query processes hold their own read-only handle to the same store.
type UnitStore interface {
	// Upsert writes units keyed by (filename, page). An existing entry for
	// the same key is replaced, never duplicated. A non-zero fp is checked
	// against the pinned identity and pinned in the same transaction when
	// nothing is pinned yet, so a failed write never leaves a pin behind.
	Upsert(ctx context.Context, fp domain.EmbeddingFingerprint, units []domain.TextUnit) error

	// ReplaceDocument atomically removes every unit of filename and writes
	// units, pinning fp as Upsert does.
	ReplaceDocument(ctx context.Context, fp domain.EmbeddingFingerprint, filename string, units []domain.TextUnit) error

	// Search returns at most k units by descending cosine similarity to query,
	// ordered per domain.SortEvidence. An empty store yields an empty slice.
	Search(ctx context.Context, query []float32, k int) ([]domain.EvidenceUnit, error)

	// Get returns the unit stored for key, or domain.ErrNotFound.
	Get(ctx context.Context, key domain.UnitKey) (*domain.TextUnit, error)

	// Fingerprint returns the pinned embedding identity, zero if none is pinned.
	Fingerprint(ctx context.Context) (domain.EmbeddingFingerprint, error)

	// Stats summarises the store's contents.
	Stats(ctx context.Context) (domain.IndexStats, error)

	// Reset removes every unit and the pinned fingerprint.
	Reset(ctx context.Context) error

	// Close releases resources.
	Close() error
}
