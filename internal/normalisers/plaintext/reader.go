// Package plaintext reads and renders page-oriented text documents.
// Pages are separated by form feeds, the convention of pdftotext output.
package plaintext

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
)

// Verify interface compliance.
var (
	_ driven.PageReader   = (*Reader)(nil)
	_ driven.PageRenderer = (*Renderer)(nil)
)

// Reader handles .txt documents.
type Reader struct{}

// New creates a new plain text reader.
func New() *Reader {
	return &Reader{}
}

// Extensions returns the handled file extensions.
func (r *Reader) Extensions() []string {
	return []string{".txt"}
}

// ReadPages splits the file on form feeds into 1-indexed pages.
func (r *Reader) ReadPages(_ context.Context, path string) ([]domain.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrInvalidInput, path)
	}
	return splitPages(string(data)), nil
}

// PageCount returns the number of pages.
func (r *Reader) PageCount(ctx context.Context, path string) (int, error) {
	pages, err := r.ReadPages(ctx, path)
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}

func splitPages(text string) []domain.Page {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\f")
	if n := len(parts); n > 1 && strings.TrimSpace(parts[n-1]) == "" {
		parts = parts[:n-1]
	}
	pages := make([]domain.Page, len(parts))
	for i, p := range parts {
		pages[i] = domain.Page{Number: i + 1, Text: p}
	}
	return pages
}
