package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
	"github.com/custodia-labs/sanad/internal/core/ports/driving"
)

// Ensure the services implement the interfaces.
var (
	_ driving.CatalogService  = (*CatalogService)(nil)
	_ driving.SnapshotService = (*SnapshotService)(nil)
)

// CatalogService reports the manifest and the index state.
type CatalogService struct {
	sources driven.SourceResolver
	index   *EmbeddingIndex
}

// NewCatalogService creates a catalog service.
func NewCatalogService(sources driven.SourceResolver, index *EmbeddingIndex) *CatalogService {
	return &CatalogService{sources: sources, index: index}
}

// Sources returns every manifest record in file order.
func (s *CatalogService) Sources() []domain.SourceRecord {
	if s.sources == nil {
		return []domain.SourceRecord{}
	}
	return s.sources.Records()
}

// Stats summarises the index.
func (s *CatalogService) Stats(ctx context.Context) (domain.IndexStats, error) {
	if s.index == nil {
		return domain.IndexStats{}, domain.ErrIndexNotFound
	}
	stats, err := s.index.Stats(ctx)
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("index stats: %w", err)
	}
	return stats, nil
}

// SnapshotService serves page images.
type SnapshotService struct {
	snapshots driven.SnapshotIndex
}

// NewSnapshotService creates a snapshot service.
func NewSnapshotService(snapshots driven.SnapshotIndex) *SnapshotService {
	return &SnapshotService{snapshots: snapshots}
}

// Snapshot returns the image reference for page of filename.
func (s *SnapshotService) Snapshot(ctx context.Context, filename string, page int) (string, error) {
	return s.snapshots.Get(ctx, filename, page)
}
