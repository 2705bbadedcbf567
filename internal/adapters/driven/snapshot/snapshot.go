// Package snapshot renders and caches page images for citations.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
	"github.com/custodia-labs/sanad/internal/logger"
)

// Verify interface compliance.
var _ driven.SnapshotIndex = (*Index)(nil)

// Formats selects readers and renderers by file extension.
type Formats interface {
	For(path string) (driven.PageReader, error)
	RendererFor(path string) (driven.PageRenderer, error)
}

// Index serves page images from a cache directory, rendering on first use.
// The cache layout is <cacheDir>/<filename>/page-0001.png. A cached image
// older than its document is rendered again.
type Index struct {
	corpusDir string
	cacheDir  string
	formats   Formats
	group     singleflight.Group
}

// New creates a snapshot index over the documents in corpusDir.
func New(corpusDir, cacheDir string, formats Formats) *Index {
	return &Index{
		corpusDir: corpusDir,
		cacheDir:  cacheDir,
		formats:   formats,
	}
}

// CacheDir returns the image cache directory.
func (ix *Index) CacheDir() string {
	return ix.cacheDir
}

// Get returns the path of the PNG image of page of filename.
func (ix *Index) Get(ctx context.Context, filename string, page int) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("%w: invalid document name %q", domain.ErrPageRender, filename)
	}
	if page < 1 {
		return "", fmt.Errorf("%w: page %d of %s out of range", domain.ErrPageRender, page, filename)
	}

	src := filepath.Join(ix.corpusDir, filename)
	srcInfo, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrPageRender, filename, err)
	}

	out := ix.imagePath(filename, page)
	if fresh(out, srcInfo) {
		return out, nil
	}

	_, err, _ = ix.group.Do(out, func() (any, error) {
		if fresh(out, srcInfo) {
			return nil, nil
		}
		return nil, ix.render(ctx, src, page, out)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrPageRender) {
			err = fmt.Errorf("%w: %w", domain.ErrPageRender, err)
		}
		return "", err
	}
	return out, nil
}

func (ix *Index) imagePath(filename string, page int) string {
	return filepath.Join(ix.cacheDir, filename, fmt.Sprintf("page-%04d.png", page))
}

func (ix *Index) render(ctx context.Context, src string, page int, out string) error {
	reader, err := ix.formats.For(src)
	if err != nil {
		return err
	}
	count, err := reader.PageCount(ctx, src)
	if err != nil {
		return fmt.Errorf("count pages of %s: %w", filepath.Base(src), err)
	}
	if page > count {
		return fmt.Errorf("%w: page %d of %s out of range (1-%d)",
			domain.ErrPageRender, page, filepath.Base(src), count)
	}

	renderer, err := ix.formats.RendererFor(src)
	if err != nil {
		return err
	}

	dir := filepath.Dir(out)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, strings.TrimSuffix(filepath.Base(out), ".png")+"-*.png")
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()

	logger.Debug("Rendering %s page %d", filepath.Base(src), page)
	if err := renderer.Render(ctx, src, page, tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, out); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// fresh reports whether out exists and is no older than the document.
func fresh(out string, src os.FileInfo) bool {
	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 {
		return false
	}
	return !info.ModTime().Before(src.ModTime())
}

// Purge removes every cached image of filename.
func (ix *Index) Purge(filename string) error {
	if filename == "" || filename != filepath.Base(filename) {
		return fmt.Errorf("%w: invalid document name %q", domain.ErrInvalidInput, filename)
	}
	return os.RemoveAll(filepath.Join(ix.cacheDir, filename))
}
