package driving

import (
	"context"

	"github.com/custodia-labs/sanad/internal/core/domain"
)

// IngestService builds the embedding index from the document corpus.
type IngestService interface {
	// Ingest indexes the documents at paths (files, directories or globs).
	// A failing document is reported and skipped; the others still proceed.
	// The returned error joins every per-document failure.
	Ingest(ctx context.Context, paths []string) (*domain.IngestReport, error)

	// IngestFile indexes a single document.
	IngestFile(ctx context.Context, path string) domain.DocumentReport

	// Reset clears the index and its pinned embedding identity.
	Reset(ctx context.Context) error
}

// SnapshotService serves page images for citations.
type SnapshotService interface {
	// Snapshot returns a reference to the image of page of filename.
	Snapshot(ctx context.Context, filename string, page int) (string, error)
}

// CatalogService lists the manifest and the state of the index.
type CatalogService interface {
	// Sources returns every manifest record in file order.
	Sources() []domain.SourceRecord

	// Stats summarises the persisted index.
	Stats(ctx context.Context) (domain.IndexStats, error)
}

// CrawlService downloads published documents into the corpus folder and
// records where each came from.
type CrawlService interface {
	// Crawl walks listings, or the configured targets when none are given.
	// A listing or download that fails is reported; the others proceed.
	Crawl(ctx context.Context, listings []string) (*domain.CrawlReport, error)
}
