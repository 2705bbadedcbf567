// Package chunker splits documents into page-scoped text units.
//
// Granularity is the physical page: text is never merged across pages, so
// every unit maps to exactly one displayable page image.
package chunker

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
)

// DefaultMinChars is the default minimum normalised text length of an indexed page.
const DefaultMinChars = 20

// unitNamespace scopes the name-based unit IDs.
var unitNamespace = uuid.MustParse("6f1c1a0e-5b7e-4f43-9a55-2d0b7c3e8a11")

// Verify interface compliance.
var _ driven.DocumentChunker = (*Processor)(nil)

// Processor produces one TextUnit per non-empty page.
type Processor struct {
	readers  driven.PageReaderRegistry
	minChars int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMinChars sets the minimum number of characters a page needs to be indexed.
func WithMinChars(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.minChars = n
		}
	}
}

// New creates a chunker reading pages through readers.
func New(readers driven.PageReaderRegistry, opts ...Option) *Processor {
	p := &Processor{
		readers:  readers,
		minChars: DefaultMinChars,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Chunk returns the text units of the document at path.
func (p *Processor) Chunk(ctx context.Context, path string) ([]domain.TextUnit, error) {
	res, err := p.Process(ctx, path)
	if err != nil {
		return nil, err
	}
	return res.Units, nil
}

// Process reads the document at path and builds its units.
func (p *Processor) Process(ctx context.Context, path string) (*domain.ChunkedDocument, error) {
	reader, err := p.readers.For(path)
	if err != nil {
		return nil, err
	}
	pages, err := reader.ReadPages(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read pages: %w", err)
	}
	return &domain.ChunkedDocument{
		Filename: filepath.Base(path),
		Units:    p.Units(filepath.Base(path), pages),
		Pages:    len(pages),
	}, nil
}

// Units builds units for filename from its extracted pages.
func (p *Processor) Units(filename string, pages []domain.Page) []domain.TextUnit {
	units := make([]domain.TextUnit, 0, len(pages))
	for _, page := range pages {
		text := normalise(page.Text)
		if utf8.RuneCountInString(text) < p.minChars {
			continue
		}
		units = append(units, NewUnit(filename, page.Number, text))
	}
	return units
}

// NewUnit builds a unit whose ID is derived from (filename, page).
func NewUnit(filename string, page int, text string) domain.TextUnit {
	key := domain.UnitKey{Filename: filename, PageNumber: page}
	return domain.TextUnit{
		ID:         UnitID(key),
		Filename:   filename,
		PageNumber: page,
		Text:       text,
	}
}

// UnitID returns the stable ID for key.
func UnitID(key domain.UnitKey) string {
	return uuid.NewSHA1(unitNamespace, []byte(key.String())).String()
}

// normalise collapses whitespace runs within lines and drops blank lines.
func normalise(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		if f := strings.Fields(line); len(f) > 0 {
			out = append(out, strings.Join(f, " "))
		}
	}
	return strings.Join(out, "\n")
}
