package driven

import (
	"context"

	"github.com/custodia-labs/sanad/internal/core/domain"
)

// SourceCrawler finds and fetches published documents.
type SourceCrawler interface {
	// Discover walks listing and the pages its "Next" links lead to. It
	// returns one record per PDF link in discovery order, named after the
	// last segment of the link, and the number of pages visited. Records
	// found before a failure are returned with the error.
	Discover(ctx context.Context, listing string) ([]domain.SourceRecord, int, error)

	// Fetch downloads rec.URL into the corpus folder as rec.Filename. It
	// reports false without fetching when that file already exists.
	Fetch(ctx context.Context, rec domain.SourceRecord) (bool, error)
}
