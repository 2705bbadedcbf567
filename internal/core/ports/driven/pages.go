package driven

import (
	"context"

	"github.com/custodia-labs/sanad/internal/core/domain"
)

// PageReader extracts per-page text from a document format.
type PageReader interface {
	// Extensions returns the lower-case file extensions handled, with dot.
	Extensions() []string

	// ReadPages returns every physical page in order, including blank ones.
	ReadPages(ctx context.Context, path string) ([]domain.Page, error)

	// PageCount returns the number of physical pages.
	PageCount(ctx context.Context, path string) (int, error)
}

// PageReaderRegistry selects a PageReader by file extension.
type PageReaderRegistry interface {
	// For returns the reader for path, or domain.ErrUnsupportedType.
	For(path string) (PageReader, error)

	// Register adds a reader for each of its extensions.
	Register(reader PageReader)

	// Supports reports whether some reader handles path.
	Supports(path string) bool
}

// PageRenderer rasterises one page of a document to a PNG file.
type PageRenderer interface {
	// Extensions returns the lower-case file extensions handled, with dot.
	Extensions() []string

	// Render writes page (1-indexed) of the document at path as PNG to out.
	Render(ctx context.Context, path string, page int, out string) error
}

// DocumentChunker splits a document into page-scoped text units.
type DocumentChunker interface {
	// Process reads the document at path and returns its units.
	Process(ctx context.Context, path string) (*domain.ChunkedDocument, error)
}
