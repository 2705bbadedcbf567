package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
	"github.com/custodia-labs/sanad/internal/core/ports/driving"
	"github.com/custodia-labs/sanad/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// PathExpander turns files, directories and globs into document paths.
type PathExpander interface {
	Expand(ctx context.Context, patterns []string) ([]string, error)
}

// IngestService builds the embedding index from documents.
// Every document must be listed in the source manifest.
type IngestService struct {
	sources  driven.SourceResolver
	chunker  driven.DocumentChunker
	index    *EmbeddingIndex
	expander PathExpander
}

// NewIngestService creates an ingest service. expander may be nil, in which
// case paths are taken as document files.
func NewIngestService(
	sources driven.SourceResolver,
	chunker driven.DocumentChunker,
	index *EmbeddingIndex,
	expander PathExpander,
) *IngestService {
	return &IngestService{
		sources:  sources,
		chunker:  chunker,
		index:    index,
		expander: expander,
	}
}

// Ingest indexes every document under paths. A failing document is
// reported and skipped; the returned error joins all failures.
func (s *IngestService) Ingest(ctx context.Context, paths []string) (*domain.IngestReport, error) {
	logger.Section("Ingestion")

	files := paths
	if s.expander != nil {
		var err error
		files, err = s.expander.Expand(ctx, paths)
		if err != nil {
			return nil, fmt.Errorf("ingest: %w", err)
		}
	}
	logger.Info("Ingesting %d documents", len(files))

	report := &domain.IngestReport{Documents: make([]domain.DocumentReport, 0, len(files))}
	var errs []error
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		doc := s.IngestFile(ctx, path)
		report.Documents = append(report.Documents, doc)
		if doc.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", doc.Filename, doc.Err))
		}
	}

	logger.Info("Ingested %d documents, %d failed", report.Succeeded(), report.Failed())
	return report, errors.Join(errs...)
}

// IngestFile indexes one document, replacing whatever the index held for it.
func (s *IngestService) IngestFile(ctx context.Context, path string) domain.DocumentReport {
	filename := filepath.Base(path)
	report := domain.DocumentReport{Filename: filename}

	if s.sources == nil {
		report.Err = fmt.Errorf("%w: no manifest loaded", domain.ErrUnknownSource)
		return report
	}
	if _, err := s.sources.Resolve(filename); err != nil {
		logger.Warn("Skipping %s: not listed in the source manifest", filename)
		report.Err = err
		return report
	}

	doc, err := s.chunker.Process(ctx, path)
	if err != nil {
		logger.Warn("Skipping %s: %v", filename, err)
		report.Err = fmt.Errorf("chunk: %w", err)
		return report
	}
	report.SkippedPages = doc.Skipped()

	if err := s.index.ReplaceDocument(ctx, doc.Filename, doc.Units); err != nil {
		logger.Warn("Skipping %s: %v", filename, err)
		report.Err = err
		return report
	}
	report.Units = len(doc.Units)

	logger.Debug("%s: %d pages indexed, %d skipped", filename, report.Units, report.SkippedPages)
	return report
}

// Reset clears the index and its pinned embedding identity.
func (s *IngestService) Reset(ctx context.Context) error {
	if err := s.index.Reset(ctx); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	logger.Info("Index reset")
	return nil
}
