// Package pdf reads and renders PDF pages.
//
// Text is extracted in-process with github.com/ledongthuc/pdf. Documents the
// pure Go parser cannot handle fall back to poppler's pdftotext, whose output
// separates pages with form feeds. Page images are rendered with pdftoppm.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
	"github.com/custodia-labs/sanad/internal/logger"
)

// Verify interface compliance.
var (
	_ driven.PageReader   = (*Reader)(nil)
	_ driven.PageRenderer = (*Renderer)(nil)
)

// Reader extracts per-page text from PDF files.
type Reader struct {
	runner   CommandRunner
	fallback bool
}

// New creates a reader. The pdftotext fallback is enabled when poppler is installed.
func New() *Reader {
	return &Reader{runner: ExecRunner{}, fallback: CheckAvailable() == nil}
}

// NewWithRunner creates a reader whose fallback always goes through runner.
func NewWithRunner(runner CommandRunner) *Reader {
	return &Reader{runner: runner, fallback: true}
}

// Extensions returns the handled file extensions.
func (r *Reader) Extensions() []string {
	return []string{".pdf"}
}

// ReadPages returns every physical page, blank pages included.
func (r *Reader) ReadPages(ctx context.Context, path string) ([]domain.Page, error) {
	pages, err := readNative(path)
	if err == nil {
		return pages, nil
	}
	if !r.fallback {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}
	logger.Debug("pdf: native extraction failed for %s (%v), using pdftotext", path, err)
	return r.readWithPdftotext(ctx, path)
}

// PageCount returns the number of physical pages.
func (r *Reader) PageCount(ctx context.Context, path string) (int, error) {
	n, err := countNative(path)
	if err == nil {
		return n, nil
	}
	if !r.fallback {
		return 0, fmt.Errorf("count pages %s: %w", path, err)
	}
	pages, err := r.readWithPdftotext(ctx, path)
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}

func readNative(path string) (pages []domain.Page, err error) {
	// The parser panics on some malformed streams.
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("pdf parser panic: %v", rec)
		}
	}()

	f, rd, err := lpdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	total := rd.NumPage()
	pages = make([]domain.Page, 0, total)
	for i := 1; i <= total; i++ {
		p := rd.Page(i)
		page := domain.Page{Number: i}
		if !p.V.IsNull() {
			text, err := p.GetPlainText(nil)
			if err != nil {
				return nil, fmt.Errorf("page %d: %w", i, err)
			}
			page.Text = text
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func countNative(path string) (n int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			n, err = 0, fmt.Errorf("pdf parser panic: %v", rec)
		}
	}()

	f, rd, err := lpdf.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return rd.NumPage(), nil
}

func (r *Reader) readWithPdftotext(ctx context.Context, path string) ([]domain.Page, error) {
	out, err := r.runner.Run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		if errors.Is(err, ErrPDFToolNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}
	return SplitFormFeeds(string(out)), nil
}

// SplitFormFeeds splits text on form feeds into 1-indexed pages.
// The empty segment after a trailing form feed is not a page.
func SplitFormFeeds(text string) []domain.Page {
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
