package normalisers

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
	"github.com/custodia-labs/sanad/internal/normalisers/pdf"
	"github.com/custodia-labs/sanad/internal/normalisers/plaintext"
)

// Verify interface compliance.
var _ driven.PageReaderRegistry = (*Registry)(nil)

// Registry maps file extensions to page readers and renderers.
// Later registrations for an extension replace earlier ones.
type Registry struct {
	mu        sync.RWMutex
	readers   map[string]driven.PageReader
	renderers map[string]driven.PageRenderer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		readers:   make(map[string]driven.PageReader),
		renderers: make(map[string]driven.PageRenderer),
	}
}

// DefaultRegistry registers the built-in PDF and plain text formats.
// dpi sets the PDF page image resolution.
func DefaultRegistry(dpi int) *Registry {
	r := NewRegistry()
	r.Register(pdf.New())
	r.Register(plaintext.New())
	r.RegisterRenderer(pdf.NewRenderer(dpi))
	r.RegisterRenderer(plaintext.NewRenderer())
	return r
}

// Register adds reader for each of its extensions.
func (r *Registry) Register(reader driven.PageReader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range reader.Extensions() {
		r.readers[strings.ToLower(ext)] = reader
	}
}

// RegisterRenderer adds renderer for each of its extensions.
func (r *Registry) RegisterRenderer(renderer driven.PageRenderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range renderer.Extensions() {
		r.renderers[strings.ToLower(ext)] = renderer
	}
}

// For returns the reader for path.
func (r *Registry) For(path string) (driven.PageReader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reader, ok := r.readers[ext(path)]
	if !ok {
		return nil, fmt.Errorf("%w: no page reader for %q", domain.ErrUnsupportedType, filepath.Base(path))
	}
	return reader, nil
}

// RendererFor returns the renderer for path.
func (r *Registry) RendererFor(path string) (driven.PageRenderer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	renderer, ok := r.renderers[ext(path)]
	if !ok {
		return nil, fmt.Errorf("%w: no page renderer for %q", domain.ErrUnsupportedType, filepath.Base(path))
	}
	return renderer, nil
}

// Supports reports whether a reader handles path.
func (r *Registry) Supports(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.readers[ext(path)]
	return ok
}

// Extensions returns the readable extensions, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.readers))
	for e := range r.readers {
		exts = append(exts, e)
	}
	sort.Strings(exts)
	return exts
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
